// Package persistence opens the configured repository.KVStore backend.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"comic-notifier/internal/infra/adapter/persistence/memory"
	"comic-notifier/internal/infra/adapter/persistence/postgres"
	"comic-notifier/internal/infra/adapter/persistence/sqlite"
	"comic-notifier/internal/infra/db"
	"comic-notifier/internal/repository"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options locate the backend.
type Options struct {
	Backend     string
	DatabaseURL string
	SQLitePath  string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the store for opts.Backend together with the closer of its
// connection pool. SQL backends are migrated before being returned.
func Open(ctx context.Context, opts Options) (repository.KVStore, io.Closer, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return memory.NewKVStore(), nopCloser{}, nil

	case BackendSQLite:
		conn, err := db.OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate(conn, db.DialectSQLite); err != nil {
			return nil, nil, err
		}
		return sqlite.NewKVStore(conn), conn, nil

	case BackendPostgres:
		conn, err := db.OpenPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate(conn, db.DialectPostgres); err != nil {
			return nil, nil, err
		}
		return postgres.NewKVStore(conn), conn, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

func migrate(conn *sql.DB, dialect db.Dialect) error {
	if err := db.MigrateUp(conn, dialect); err != nil {
		_ = conn.Close()
		return fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return nil
}
