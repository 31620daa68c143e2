package catalog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/cache"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/entity"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/bistro/service/catalog")

// Finder loads foods from the catalog store.
type Finder interface {
	FindByIDs(ctx context.Context, ids []string) ([]entity.Food, error)
}

// Service resolves food ids against the catalog store. The per-food cache only
// answers while the store is unreachable.
type Service struct {
	finder   Finder
	cache    cache.Store
	cacheTTL time.Duration
	prefix   string
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Finder Finder
	Cache  cache.Store `optional:"true"`
	Config config.Config
	Logger *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		finder:   p.Finder,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		prefix:   p.Config.Cache.Prefix,
		logger:   logger,
	}
}

// Lookup returns the foods known for ids keyed by id. Unknown ids are absent.
// Existence is always decided by the store; cached entries of foods the store no
// longer returns are evicted.
func (s *Service) Lookup(ctx context.Context, ids []string) (map[string]entity.Food, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.Lookup", trace.WithAttributes(attribute.Int("food.count", len(ids))))
	defer span.End()

	wanted := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		wanted = append(wanted, id)
	}
	found := make(map[string]entity.Food, len(wanted))
	if len(wanted) == 0 {
		return found, nil
	}

	foods, err := s.finder.FindByIDs(ctx, wanted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog lookup failed")
		if cached, ok := s.fromCache(ctx, wanted); ok {
			s.logger.Warn("catalog unavailable, serving cached foods", zap.Int("food.count", len(cached)), zap.Error(err))
			return cached, nil
		}
		return nil, err
	}

	for _, food := range foods {
		found[food.ID] = food
		if err := cache.SetJSON(ctx, s.cache, s.cacheKey(food.ID), food, s.cacheTTL); err != nil {
			s.logger.Warn("food cache write failed", zap.String("food_id", food.ID), zap.Error(err))
		}
	}
	for _, id := range wanted {
		if _, ok := found[id]; ok || s.cache == nil {
			continue
		}
		if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
			s.logger.Warn("food cache evict failed", zap.String("food_id", id), zap.Error(err))
		}
	}
	return found, nil
}

// fromCache succeeds only when every id has a cached entry.
func (s *Service) fromCache(ctx context.Context, ids []string) (map[string]entity.Food, bool) {
	out := make(map[string]entity.Food, len(ids))
	for _, id := range ids {
		var food entity.Food
		if err := cache.GetJSON(ctx, s.cache, s.cacheKey(id), &food); err != nil {
			return nil, false
		}
		out[id] = food
	}
	return out, true
}

func (s *Service) cacheKey(id string) string {
	return cache.Key(s.prefix, "foods", id)
}
