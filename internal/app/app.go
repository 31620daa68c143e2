package app

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/auth"
	"github.com/Additional-Code/bistro/internal/cache"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/database"
	"github.com/Additional-Code/bistro/internal/logger"
	"github.com/Additional-Code/bistro/internal/messaging"
	"github.com/Additional-Code/bistro/internal/observability"
	repositorycatalog "github.com/Additional-Code/bistro/internal/repository/catalog"
	repositoryorder "github.com/Additional-Code/bistro/internal/repository/order"
	repositoryuser "github.com/Additional-Code/bistro/internal/repository/user"
	grpcserver "github.com/Additional-Code/bistro/internal/server/grpc"
	httpserver "github.com/Additional-Code/bistro/internal/server/http"
	servicecatalog "github.com/Additional-Code/bistro/internal/service/catalog"
	serviceorder "github.com/Additional-Code/bistro/internal/service/order"
	transporthttp "github.com/Additional-Code/bistro/internal/transport/http"
	"github.com/Additional-Code/bistro/internal/worker"
	workerorder "github.com/Additional-Code/bistro/internal/worker/order"
)

// Storage is the minimum needed by migrations and seeders.
var Storage = fx.Options(
	config.Module,
	logger.Module,
	database.Module,
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	Storage,
	fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: l.Named("fx")}
	}),
	cache.Module,
	messaging.Module,
	observability.Module,
	auth.Module,
	repositorycatalog.Module,
	repositoryorder.Module,
	repositoryuser.Module,
	servicecatalog.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP and gRPC servers on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring.
var Module = HTTP
