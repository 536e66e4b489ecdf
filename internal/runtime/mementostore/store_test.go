package mementostore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/conduit-lang/facetmodel/internal/config"
	"github.com/conduit-lang/facetmodel/internal/runtime/memento"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		want    any
		wantErr bool
	}{
		{name: "memory", mutate: func(*config.Config) {}, want: &MemoryStore{}},
		{name: "redis", mutate: func(cfg *config.Config) {
			cfg.Memento.Store = config.StoreRedis
			cfg.Redis.Addr = mr.Addr()
		}, want: &RedisStore{}},
		{name: "unknown", mutate: func(cfg *config.Config) { cfg.Memento.Store = "etcd" }, wantErr: true},
		{name: "unreachable pgx", mutate: func(cfg *config.Config) {
			cfg.Memento.Store = config.StorePgx
			cfg.Memento.DSN = "postgres://127.0.0.1:1/none?connect_timeout=1"
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			store, err := Open(context.Background(), cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, tt.want, store)
		})
	}
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryStore(), memento.Runtime{}, nil)

	empty, err := memento.New(memento.Runtime{}, nil)
	require.NoError(t, err)

	key, err := repo.Save(ctx, empty)
	require.NoError(t, err)
	assert.Len(t, key, 36)

	loaded, err := repo.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, loaded.Data())

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	require.NoError(t, repo.Delete(ctx, key))
	_, err = repo.Load(ctx, key)
	assert.True(t, IsNotFound(err))

	require.NoError(t, repo.store.Put(ctx, "garbage", []byte{7}))
	_, err = repo.Load(ctx, "garbage")
	assert.Error(t, err)
	assert.False(t, IsNotFound(err))
}
