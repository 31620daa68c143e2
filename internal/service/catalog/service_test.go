package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/bistro/internal/cache"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/entity"
)

type fakeFinder struct {
	foods map[string]entity.Food
	calls [][]string
	err   error
}

func (f *fakeFinder) FindByIDs(_ context.Context, ids []string) ([]entity.Food, error) {
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	var out []entity.Food
	for _, id := range ids {
		if food, ok := f.foods[id]; ok {
			out = append(out, food)
		}
	}
	return out, nil
}

type mapStore map[string][]byte

func (m mapStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (m mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m[key] = value
	return nil
}

func (m mapStore) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func newTestService(finder Finder, store cache.Store) *Service {
	return NewService(Params{
		Finder: finder,
		Cache:  store,
		Config: config.Config{Cache: config.Cache{Prefix: "test", DefaultTTL: time.Minute}},
	})
}

func TestLookupAsksStoreAndWarmsCache(t *testing.T) {
	finder := &fakeFinder{foods: map[string]entity.Food{
		"f-1": {ID: "f-1", Name: "Zinger", Price: decimal.NewFromInt(650)},
	}}
	store := mapStore{}
	svc := newTestService(finder, store)

	got, err := svc.Lookup(context.Background(), []string{"f-1", "f-1", "f-404"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "Zinger", got["f-1"].Name)
	assert.Equal(t, [][]string{{"f-1", "f-404"}}, finder.calls)
	assert.Contains(t, store, "test:foods:f-1")
	assert.NotContains(t, store, "test:foods:f-404")
}

func TestLookupDropsFoodRemovedFromCatalog(t *testing.T) {
	finder := &fakeFinder{foods: map[string]entity.Food{
		"f-1": {ID: "f-1", Name: "Zinger", Price: decimal.NewFromInt(650)},
	}}
	store := mapStore{}
	svc := newTestService(finder, store)

	_, err := svc.Lookup(context.Background(), []string{"f-1"})
	require.NoError(t, err)
	require.Contains(t, store, "test:foods:f-1")

	delete(finder.foods, "f-1")
	got, err := svc.Lookup(context.Background(), []string{"f-1"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotContains(t, store, "test:foods:f-1")
}

func TestLookupFallsBackToCacheWhenStoreDown(t *testing.T) {
	finder := &fakeFinder{foods: map[string]entity.Food{
		"f-1": {ID: "f-1", Name: "Zinger", Price: decimal.NewFromInt(650)},
	}}
	store := mapStore{}
	svc := newTestService(finder, store)

	_, err := svc.Lookup(context.Background(), []string{"f-1"})
	require.NoError(t, err)

	finder.err = errors.New("db down")
	got, err := svc.Lookup(context.Background(), []string{"f-1"})
	require.NoError(t, err)
	assert.Equal(t, "650", got["f-1"].Price.String())

	_, err = svc.Lookup(context.Background(), []string{"f-1", "f-2"})
	assert.ErrorIs(t, err, finder.err)
}

func TestLookupPropagatesFinderError(t *testing.T) {
	boom := errors.New("db down")
	svc := newTestService(&fakeFinder{err: boom}, cache.NewNoop())

	_, err := svc.Lookup(context.Background(), []string{"f-1"})
	assert.ErrorIs(t, err, boom)
}

func TestLookupSkipsEmptyIDs(t *testing.T) {
	finder := &fakeFinder{}
	svc := newTestService(finder, nil)

	got, err := svc.Lookup(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, finder.calls)
}
