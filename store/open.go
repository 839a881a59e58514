package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Options selects and configures a backend for Open.
type Options struct {
	Driver string // memory, postgres, sqlite or redis
	DSN    string
	TTL    time.Duration // redis only
}

// Open builds the backend named by opts.Driver. SQL backends are migrated
// before they are returned.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		s, err := NewPostgresStore(opts.DSN)
		if err != nil {
			return nil, err
		}
		return migrated(ctx, s)
	case "sqlite":
		s, err := NewSQLiteStore(opts.DSN)
		if err != nil {
			return nil, err
		}
		return migrated(ctx, s)
	case "redis":
		return NewRedisStore(opts.DSN, opts.TTL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

func migrated(ctx context.Context, s *SQLStore) (Store, error) {
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
