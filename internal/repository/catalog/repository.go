package catalog

import (
	"context"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/bistro/internal/database"
	"github.com/Additional-Code/bistro/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/bistro/repository/catalog")

// Repository reads catalog entries.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a read-only catalog repository.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// FindByIDs returns the foods matching ids; unknown ids are simply absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]entity.Food, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.FindByIDs", trace.WithAttributes(attribute.Int("food.count", len(ids))))
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	var foods []entity.Food
	err := r.reader.NewSelect().
		Model(&foods).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return foods, nil
}
