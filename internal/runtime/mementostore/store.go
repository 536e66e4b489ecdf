// Package mementostore keeps encoded mementos under string keys in memory, SQL databases or redis.
package mementostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/conduit-lang/facetmodel/internal/config"
	"github.com/conduit-lang/facetmodel/internal/runtime/memento"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no memento is stored under a key
var ErrNotFound = errors.New("memento not found")

// Store defines the interface for all memento backends
type Store interface {
	// Put stores encoded memento bytes under key, replacing any previous value
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the bytes stored under key
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Keys lists the stored keys in sorted order
	Keys(ctx context.Context) ([]string, error)

	// Close releases the backend's resources
	Close() error
}

// IsNotFound checks if an error is a missing memento
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Open creates the store selected by cfg.Memento.Store.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Memento.Store {
	case config.StoreMemory, "":
		return NewMemoryStore(), nil
	case config.StoreSQLite, config.StorePgx:
		return OpenSQLStore(ctx, cfg.Memento.Store, cfg.Memento.DSN, cfg.Memento.Table, logger)
	case config.StoreRedis:
		return NewRedisStoreWithConfig(ctx, RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		}, logger)
	}
	return nil, fmt.Errorf("unknown memento store %q", cfg.Memento.Store)
}

// Repository saves and loads mementos through a Store.
type Repository struct {
	store  Store
	rt     memento.Runtime
	logger *zap.Logger
}

func NewRepository(store Store, rt memento.Runtime, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{store: store, rt: rt, logger: logger}
}

// Save stores m under a new random key and returns the key.
func (r *Repository) Save(ctx context.Context, m *memento.Memento) (string, error) {
	key := uuid.NewString()
	if err := r.SaveAs(ctx, key, m); err != nil {
		return "", err
	}
	return key, nil
}

// SaveAs stores m under key.
func (r *Repository) SaveAs(ctx context.Context, key string, m *memento.Memento) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode memento: %w", err)
	}
	if err := r.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to store memento %s: %w", key, err)
	}
	r.logger.Debug("memento saved", zap.String("key", key), zap.Int("bytes", len(data)), zap.Stringer("memento", m))
	return nil
}

// Load restores the memento stored under key.
func (r *Repository) Load(ctx context.Context, key string) (*memento.Memento, error) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	m, err := memento.Unmarshal(r.rt, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode memento %s: %w", key, err)
	}
	return m, nil
}

func (r *Repository) Delete(ctx context.Context, key string) error {
	return r.store.Delete(ctx, key)
}

func (r *Repository) Keys(ctx context.Context) ([]string, error) {
	return r.store.Keys(ctx)
}
