package store

import (
	"context"
	"fmt"
)

// Collection names. Each collection is persisted as one JSON document.
const (
	Users      = "users"
	Events     = "events"
	Attendance = "attendance"
)

// Store persists whole collections. Save always overwrites the full document;
// there are no partial or merge writes.
type Store interface {
	// Load returns the stored document, or nil with no error when it does not exist.
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, doc []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend     string // memory | file | postgres | sqlite | redis
	DataDir     string
	DatabaseURL string
	SQLitePath  string
	RedisAddr   string
	RedisPrefix string
}

// Open builds the backend named in opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(opts.DataDir)
	case "postgres":
		db, err := NewDB(opts.DatabaseURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return NewPostgres(ctx, db)
	case "sqlite":
		return NewSQLite(ctx, opts.SQLitePath)
	case "redis":
		r := NewRedis(opts.RedisAddr)
		if !r.Healthy(ctx) {
			_ = r.Client.Close()
			return nil, fmt.Errorf("redis: %s not reachable", opts.RedisAddr)
		}
		return NewRedisStore(r.Client, opts.RedisPrefix), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}
