package store

import (
	"context"
	"database/sql"
	_ "embed"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

//go:embed migrations/postgres.sql
var postgresSchema string

//go:embed migrations/sqlite.sql
var sqliteSchema string

// Dialect holds the statements a SQL backend runs against the cart_kv table.
type Dialect struct {
	Name   string
	Schema string
	Get    string
	Set    string
	Delete string
}

var Postgres = Dialect{
	Name:   "postgres",
	Schema: postgresSchema,
	Get:    `SELECT value FROM cart_kv WHERE key=$1`,
	Set: `INSERT INTO cart_kv (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
	Delete: `DELETE FROM cart_kv WHERE key=$1`,
}

var SQLite = Dialect{
	Name:   "sqlite",
	Schema: sqliteSchema,
	Get:    `SELECT value FROM cart_kv WHERE key=?`,
	Set: `INSERT INTO cart_kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
	Delete: `DELETE FROM cart_kv WHERE key=?`,
}

// SQLStore is a Store backed by a single cart_kv table.
type SQLStore struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &SQLStore{DB: db, Dialect: Postgres}, nil
}

// NewSQLiteStore opens a file database, or a private in-memory one for
// ":memory:".
func NewSQLiteStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// one connection: an in-memory database lives and dies with it
	db.SetMaxOpenConns(1)
	return &SQLStore{DB: db, Dialect: SQLite}, nil
}

// Migrate creates the cart_kv table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.Schema); err != nil {
		return errors.Wrapf(err, "migrate %s", s.Dialect.Name)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, s.Dialect.Get, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %q", key)
	}
	return []byte(value), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.Set, key, string(value)); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.Delete, key); err != nil {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *SQLStore) Close() error { return s.DB.Close() }
