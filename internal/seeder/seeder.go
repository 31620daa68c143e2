package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/auth"
	"github.com/Additional-Code/bistro/internal/database"
	"github.com/Additional-Code/bistro/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Fixed ids so development tokens can be issued against them.
const (
	DemoCustomerID = "u-demo-customer"
	DemoManagerID  = "u-demo-manager"
)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
	now    func() time.Time
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger, now: time.Now}
}

// All seeds users then foods.
func (s *Seeder) All(ctx context.Context) error {
	if err := s.Users(ctx); err != nil {
		return err
	}
	return s.Foods(ctx)
}

// Users seeds a demo customer and manager if they are missing.
func (s *Seeder) Users(ctx context.Context) error {
	now := s.now().UTC()
	users := []entity.User{
		{ID: DemoCustomerID, Name: "Demo Customer", Email: "customer@bistro.local", Role: string(auth.RoleCustomer), CreatedAt: now},
		{ID: DemoManagerID, Name: "Demo Manager", Email: "manager@bistro.local", Role: string(auth.RoleManager), CreatedAt: now},
	}
	if _, err := s.db.NewInsert().Model(&users).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("seeded users", zap.Int("count", len(users)))
	}
	return nil
}

// Foods seeds a small menu if it is missing.
func (s *Seeder) Foods(ctx context.Context) error {
	now := s.now().UTC()
	foods := []entity.Food{
		{ID: "food-zinger", Name: "Zinger Burger", Price: decimal.RequireFromString("650.00"), Image: "zinger.jpg", CreatedAt: now},
		{ID: "food-fries", Name: "Masala Fries", Price: decimal.RequireFromString("250.00"), Image: "fries.jpg", CreatedAt: now},
		{ID: "food-biryani", Name: "Chicken Biryani", Price: decimal.RequireFromString("500.00"), Image: "biryani.jpg", CreatedAt: now},
		{ID: "food-lassi", Name: "Sweet Lassi", Price: decimal.RequireFromString("180.00"), Image: "lassi.jpg", CreatedAt: now},
	}
	if _, err := s.db.NewInsert().Model(&foods).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed foods: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("seeded foods", zap.Int("count", len(foods)))
	}
	return nil
}
