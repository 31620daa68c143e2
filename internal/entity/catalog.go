package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Food is a catalog entry. The catalog deployment owns these rows; orders only read them.
type Food struct {
	bun.BaseModel `bun:"table:foods,alias:f"`

	ID        string          `bun:"id,pk"`
	Name      string          `bun:"name,notnull"`
	Price     decimal.Decimal `bun:"price,type:numeric(12,2),notnull"`
	Image     string          `bun:"image"`
	CreatedAt time.Time       `bun:"created_at,notnull"`
}

// User is the identity record behind an authenticated caller.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email,notnull,unique"`
	Role      string    `bun:"role,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
