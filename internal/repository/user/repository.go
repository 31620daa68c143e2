package user

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

var repoTracer = otel.Tracer("github.com/Additional-Code/bistro/repository/user")

// Repository resolves identity records.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a read-only user repository.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// Exists reports whether a user with id is registered.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.Exists", trace.WithAttributes(attribute.String("user.id", id)))
	defer span.End()

	ok, err := r.reader.NewSelect().
		Model((*entity.User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return false, err
	}
	return ok, nil
}
