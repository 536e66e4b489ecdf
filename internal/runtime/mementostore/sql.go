package mementostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect captures the differences between the supported drivers
type dialect struct {
	blobType    string
	placeholder func(n int) string
}

var dialects = map[string]dialect{
	"sqlite3": {blobType: "BLOB", placeholder: func(int) string { return "?" }},
	"pgx":     {blobType: "BYTEA", placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }},
}

// SQLStore keeps mementos in a table with id, data and updated_at columns
type SQLStore struct {
	db      *sql.DB
	table   string
	dialect dialect
	logger  *zap.Logger
	now     func() time.Time
}

// OpenSQLStore opens driver with dsn, verifies the connection and creates the table if needed
func OpenSQLStore(ctx context.Context, driver, dsn, table string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	store, err := NewSQLStore(db, driver, table, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore creates a store over an open database
func NewSQLStore(db *sql.DB, driver, table string, logger *zap.Logger) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported memento store driver %q", driver)
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid memento table name %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, table: table, dialect: d, logger: logger, now: time.Now}, nil
}

// Initialize ensures the memento table exists
func (s *SQLStore) Initialize(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id VARCHAR(64) PRIMARY KEY,
	data %s NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`, s.table, s.dialect.blobType)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to initialize memento table: %w", err)
	}
	return nil
}

func (s *SQLStore) Put(ctx context.Context, key string, data []byte) error {
	p := s.dialect.placeholder
	query := fmt.Sprintf(`
INSERT INTO %s (id, data, updated_at) VALUES (%s, %s, %s)
ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.table, p(1), p(2), p(3))

	if _, err := s.db.ExecContext(ctx, query, key, data, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to store memento: %w", err)
	}
	s.logger.Debug("stored memento", zap.String("key", key), zap.String("table", s.table))
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = %s`, s.table, s.dialect.placeholder(1))

	var data []byte
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("failed to load memento: %w", err)
	}
	return data, nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, s.table, s.dialect.placeholder(1))
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete memento: %w", err)
	}
	return nil
}

func (s *SQLStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s ORDER BY id ASC`, s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query mementos: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan memento key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
