package catalog

import (
	"go.uber.org/fx"

	repo "github.com/Additional-Code/bistro/internal/repository/catalog"
)

// Module provides the cached catalog lookup to Fx.
var Module = fx.Provide(
	NewService,
	func(r *repo.Repository) Finder { return r },
)
