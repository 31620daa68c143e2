package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore map[string][]byte

func (m mapStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, ErrCacheMiss
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

func TestKey(t *testing.T) {
	assert.Equal(t, "bistro:orders:42", Key("bistro", "orders", "42"))
	assert.Equal(t, "orders:42", Key("", "orders", "42"))
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := mapStore{}

	type payload struct {
		Name string
	}
	require.NoError(t, SetJSON(ctx, store, "k", payload{Name: "biryani"}, time.Minute))

	var got payload
	require.NoError(t, GetJSON(ctx, store, "k", &got))
	assert.Equal(t, "biryani", got.Name)
}

func TestGetJSONMiss(t *testing.T) {
	var dst struct{}
	assert.ErrorIs(t, GetJSON(context.Background(), NewNoop(), "k", &dst), ErrCacheMiss)
	assert.ErrorIs(t, GetJSON(context.Background(), nil, "k", &dst), ErrCacheMiss)
}

func TestGetJSONCorrupt(t *testing.T) {
	store := mapStore{"k": []byte("{not json")}
	var dst struct{}
	err := GetJSON(context.Background(), store, "k", &dst)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
