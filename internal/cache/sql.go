package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const cacheTable = "cache_entries"

// Dialect names accepted by NewSQLStore.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// SQLStore keeps entries in a single table of a sqlite or postgres database.
type SQLStore struct {
	db  *sqlx.DB
	qb  sq.StatementBuilderType
	now func() time.Time
}

// NewSQLStore connects, applies migrations and returns a ready store.
// For sqlite the dsn is a file path (or ":memory:").
func NewSQLStore(ctx context.Context, dialect, dsn string) (*SQLStore, error) {
	var (
		gooseDialect goose.Dialect
		placeholder  sq.PlaceholderFormat
	)
	switch dialect {
	case DialectSQLite:
		gooseDialect, placeholder = goose.DialectSQLite3, sq.Question
	case DialectPostgres:
		gooseDialect, placeholder = goose.DialectPostgres, sq.Dollar
	default:
		return nil, fmt.Errorf("unsupported cache dialect %q", dialect)
	}

	db, err := sqlx.ConnectContext(ctx, dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s cache: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent preloads.
		db.SetMaxOpenConns(1)
	}

	if err := migrate(ctx, gooseDialect, db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLStore{
		db:  db,
		qb:  sq.StatementBuilder.PlaceholderFormat(placeholder),
		now: time.Now,
	}, nil
}

func migrate(ctx context.Context, dialect goose.Dialect, db *sql.DB) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	query, args, err := s.qb.Select("value").From(cacheTable).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var value string
	if err := s.db.GetContext(ctx, &value, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select cache entry: %w", err)
	}
	return []byte(value), nil
}

// Put implements Store.
func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	query, args, err := s.qb.Insert(cacheTable).
		Columns("key", "value", "updated_at").
		Values(key, string(value), s.now().UTC()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	query, args, err := s.qb.Delete(cacheTable).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *SQLStore) Clear(ctx context.Context, prefix string) error {
	del := s.qb.Delete(cacheTable)
	if prefix != "" {
		if strings.ContainsAny(prefix, "%_") {
			return fmt.Errorf("cache: invalid prefix %q", prefix)
		}
		del = del.Where(sq.Like{"key": prefix + "%"})
	}

	query, args, err := del.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear cache entries: %w", err)
	}
	return nil
}

// Keys implements Store.
func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	sel := s.qb.Select("key").From(cacheTable)
	if prefix != "" {
		if strings.ContainsAny(prefix, "%_") {
			return nil, fmt.Errorf("cache: invalid prefix %q", prefix)
		}
		sel = sel.Where(sq.Like{"key": prefix + "%"})
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, query, args...); err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	return keys, nil
}

// Len returns the number of stored entries.
func (s *SQLStore) Len(ctx context.Context) (int, error) {
	query, args, err := s.qb.Select("COUNT(*)").From(cacheTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
