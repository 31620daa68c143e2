package order

import (
	"go.uber.org/fx"

	orderrepo "github.com/Additional-Code/bistro/internal/repository/order"
	userrepo "github.com/Additional-Code/bistro/internal/repository/user"
	catalogsvc "github.com/Additional-Code/bistro/internal/service/catalog"
)

// Module provides the order service to Fx.
var Module = fx.Provide(
	NewService,
	func(r *orderrepo.Repository) Store { return r },
	func(c *catalogsvc.Service) Catalog { return c },
	func(r *userrepo.Repository) Identity { return r },
)
