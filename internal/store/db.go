package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return &DB{Client: db}, db.PingContext(ctx)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// Postgres keeps collections in a single JSONB table.
type Postgres struct {
	db *DB
}

// NewPostgres creates the collections table if it is missing.
func NewPostgres(ctx context.Context, db *DB) (*Postgres, error) {
	_, err := db.Client.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS record_collections (
			name       TEXT PRIMARY KEY,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Load(ctx context.Context, name string) ([]byte, error) {
	var doc string
	err := p.db.Client.QueryRowContext(ctx,
		`SELECT doc::text FROM record_collections WHERE name = $1`, name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

func (p *Postgres) Save(ctx context.Context, name string, doc []byte) error {
	_, err := p.db.Client.ExecContext(ctx, `
		INSERT INTO record_collections (name, doc, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (name) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()
	`, name, string(doc))
	return err
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.Client.PingContext(ctx) }
func (p *Postgres) Close() error                   { return p.db.Close() }
