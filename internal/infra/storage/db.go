package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// Dialect selects the SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect accepts "sqlite" (also the empty string) or "postgres".
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case "", DialectSQLite:
		return DialectSQLite, nil
	case DialectPostgres, "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database dialect %q", s)
	}
}

// Options configures Open.
type Options struct {
	Dialect      Dialect
	SQLitePath   string
	PostgresDSN  string
	MaxOpenConns int
	MaxIdleConns int
}

// SQLRepository implements WorldRepository and EventRepository on
// database/sql for both dialects.
type SQLRepository struct {
	dialect Dialect
	db      *sql.DB
}

// Open connects, pings and applies pending migrations.
func Open(ctx context.Context, opts Options) (*SQLRepository, error) {
	var driverName, dsn string
	switch opts.Dialect {
	case DialectSQLite, "":
		opts.Dialect = DialectSQLite
		driverName = "sqlite"
		dsn = opts.SQLitePath
		if dsn == "" {
			dsn = filepath.Join("data", "mafia.db")
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// SQLite allows a single writer.
		opts.MaxOpenConns = 1
	case DialectPostgres:
		driverName = "pgx"
		dsn = opts.PostgresDSN
		if dsn == "" {
			return nil, errors.New("postgres dialect requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", opts.Dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", opts.Dialect, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", opts.Dialect, err)
	}

	repo := &SQLRepository{dialect: opts.Dialect, db: db}
	if err := repo.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Dialect reports the backend in use.
func (r *SQLRepository) Dialect() Dialect { return r.dialect }

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) bind(pos int) string {
	if r.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

func (r *SQLRepository) binds(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = r.bind(i + 1)
	}
	return strings.Join(ph, ", ")
}

func (r *SQLRepository) applyMigrations(ctx context.Context) error {
	create := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := r.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan schema migration: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to iterate schema migrations: %w", err)
	}
	rows.Close()

	files, err := fs.Glob(migrationFS, fmt.Sprintf("migrations/%s/*.sql", r.dialect))
	if err != nil {
		return fmt.Errorf("failed to glob migrations: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		version := filepath.Base(file)
		if applied[version] {
			continue
		}
		body, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", version, err)
		}
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", version, err)
		}
		q := fmt.Sprintf("INSERT INTO schema_migrations (version, applied_at) VALUES (%s)", r.binds(2))
		if _, err := tx.ExecContext(ctx, q, version, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", version, err)
		}
	}
	return nil
}

// AppliedMigrations lists recorded migration versions in order.
func (r *SQLRepository) AppliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
