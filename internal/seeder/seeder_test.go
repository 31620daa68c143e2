package seeder

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/database"
)

func setupSeeder(t *testing.T) (*Seeder, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return New(&database.Connections{Writer: db, Reader: db}, zap.NewNop()), mock
}

func TestAllSeedsUsersAndFoods(t *testing.T) {
	s, mock := setupSeeder(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users"`)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "foods"`)).WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, s.All(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllStopsOnUserFailure(t *testing.T) {
	s, mock := setupSeeder(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users"`)).WillReturnError(errors.New("relation users does not exist"))

	err := s.All(context.Background())
	assert.ErrorContains(t, err, "seed users")
	assert.NoError(t, mock.ExpectationsWereMet())
}
