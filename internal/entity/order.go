package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// DefaultDeliveryAddress is stored when the client leaves the address empty.
const DefaultDeliveryAddress = "N/A"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no transition leaves the status.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentPending PaymentMethod = "pending"
)

// OrderType is set per line item.
type OrderType string

const (
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDineIn   OrderType = "dine-in"
)

// Order represents a food order stored in the relational database.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID              string          `bun:"id,pk"`
	UserID          string          `bun:"user_id,notnull"`
	Items           []*OrderItem    `bun:"rel:has-many,join:id=order_id"`
	TotalAmount     decimal.Decimal `bun:"total_amount,type:numeric(12,2),notnull"`
	DeliveryAddress string          `bun:"delivery_address,notnull"`
	TableNumber     string          `bun:"table_number"`
	Status          Status          `bun:"status,notnull"`
	Guest           GuestDetails    `bun:"embed:guest_"`
	PaymentMethod   PaymentMethod   `bun:"payment_method,notnull"`
	CreatedAt       time.Time       `bun:"created_at,notnull"`
	UpdatedAt       time.Time       `bun:"updated_at,notnull"`
}

// OrderItem is one line of an order; Price is the price at time of order.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	OrderID   string          `bun:"order_id,pk"`
	Position  int             `bun:"position,pk"`
	FoodID    string          `bun:"food_id,notnull"`
	Food      *Food           `bun:"rel:belongs-to,join:food_id=id"`
	Quantity  int             `bun:"quantity,notnull"`
	Price     decimal.Decimal `bun:"price,type:numeric(12,2),notnull"`
	OrderType OrderType       `bun:"order_type,notnull"`
}

// GuestDetails carries inline contact details for guest checkout.
type GuestDetails struct {
	Name        string `bun:"name"`
	Phone       string `bun:"phone"`
	Address     string `bun:"address"`
	TableNumber string `bun:"table_number"`
}

// IsZero reports whether no guest field is set.
func (g GuestDetails) IsZero() bool {
	return strings.TrimSpace(g.Name) == "" &&
		strings.TrimSpace(g.Phone) == "" &&
		strings.TrimSpace(g.Address) == "" &&
		strings.TrimSpace(g.TableNumber) == ""
}
