package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
)

// Postgres stores values in a key/value table partitioned by origin. It lets a
// server-rendered front end keep one "local storage" per visitor.
type Postgres struct {
	db      *sql.DB
	origin  string
	timeout time.Duration
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS storefront_local_storage (
	origin     TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (origin, key)
)`

// ConnectPostgres opens and pings a PostgreSQL connection
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// NewPostgres returns a Postgres storage for origin, creating the table if needed.
func NewPostgres(ctx context.Context, db *sql.DB, origin string) (*Postgres, error) {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, err
	}
	return &Postgres{db: db, origin: origin, timeout: 5 * time.Second}, nil
}

func (p *Postgres) GetItem(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	var value string
	err := p.db.QueryRowContext(ctx,
		"SELECT value FROM storefront_local_storage WHERE origin = $1 AND key = $2",
		p.origin, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (p *Postgres) SetItem(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO storefront_local_storage (origin, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (origin, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, p.origin, key, value, time.Now())
	return err
}

func (p *Postgres) RemoveItem(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx,
		"DELETE FROM storefront_local_storage WHERE origin = $1 AND key = $2",
		p.origin, key,
	)
	return err
}
