// Package cache persists intermediate pipeline results between runs.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// Backend names a cache storage backend
type Backend string

const (
	BackendNone     Backend = "none"
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendMySQL    Backend = "mysql"
	BackendPostgres Backend = "postgres"
)

// ParseBackend converts a configured backend name
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendNone, BackendMemory, BackendSQLite, BackendMySQL, BackendPostgres:
		return b, nil
	case "":
		return BackendNone, nil
	default:
		return "", domain.NewConfigError(fmt.Sprintf("unsupported cache backend: %s", s), nil)
	}
}

// SQLStore stores cache entries in a single SQL table
type SQLStore struct {
	db        *sql.DB
	tableName string
	backend   Backend
}

var _ domain.CacheStore = (*SQLStore)(nil)

// NewStore opens the store for a backend. The none backend returns a store
// that never hits.
func NewStore(backend Backend, dsn, tableName string) (domain.CacheStore, error) {
	switch backend {
	case BackendNone:
		return noneStore{}, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	}

	if err := validateTableName(tableName); err != nil {
		return nil, err
	}

	var driverName string
	switch backend {
	case BackendSQLite:
		driverName = "sqlite"
		if err := ensureParentDir(dsn); err != nil {
			return nil, domain.NewCacheError(fmt.Sprintf("cannot create cache directory for %q", dsn), err)
		}
	case BackendMySQL:
		// user:password@tcp(host:port)/dbname
		driverName = "mysql"
	case BackendPostgres:
		// host=localhost port=5432 user=postgres dbname=valknut
		driverName = "pgx"
	default:
		return nil, domain.NewConfigError(fmt.Sprintf("unsupported cache backend: %s", backend), nil)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, domain.NewCacheError(fmt.Sprintf("failed to open %s cache", backend), err)
	}
	if backend == BackendSQLite {
		// a single connection avoids "database is locked"
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, domain.NewCacheError(fmt.Sprintf("failed to connect to %s cache", backend), err)
	}
	if _, err := db.Exec(createTableQuery(tableName, backend)); err != nil {
		_ = db.Close()
		return nil, domain.NewCacheError(fmt.Sprintf("failed to create table %s", tableName), err)
	}

	return &SQLStore{db: db, tableName: tableName, backend: backend}, nil
}

func ensureParentDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validateTableName(name string) error {
	if name == "" {
		return domain.NewConfigError("cache table name cannot be empty", nil)
	}
	if !tableNamePattern.MatchString(name) {
		return domain.NewConfigError(fmt.Sprintf("invalid cache table name: %s", name), nil)
	}
	return nil
}

func quoteTableName(name string, backend Backend) string {
	if backend == BackendMySQL {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

func createTableQuery(tableName string, backend Backend) string {
	quoted := quoteTableName(tableName, backend)
	switch backend {
	case BackendMySQL:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				cache_key VARCHAR(255) PRIMARY KEY,
				cache_value LONGBLOB NOT NULL,
				cache_version INT NOT NULL,
				cache_timestamp BIGINT NOT NULL
			);
		`, quoted)
	case BackendPostgres:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				cache_key TEXT PRIMARY KEY,
				cache_value BYTEA NOT NULL,
				cache_version INTEGER NOT NULL,
				cache_timestamp BIGINT NOT NULL
			);
		`, quoted)
	default:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				cache_key TEXT PRIMARY KEY,
				cache_value BLOB NOT NULL,
				cache_version INTEGER NOT NULL,
				cache_timestamp INTEGER NOT NULL
			);
		`, quoted)
	}
}

// Get returns the value, version and timestamp stored under key.
// A miss returns sql.ErrNoRows.
func (s *SQLStore) Get(key string) ([]byte, int, int64, error) {
	placeholder := "?"
	if s.backend == BackendPostgres {
		placeholder = "$1"
	}
	query := fmt.Sprintf(`SELECT cache_value, cache_version, cache_timestamp FROM %s WHERE cache_key = %s`,
		quoteTableName(s.tableName, s.backend), placeholder)

	var value []byte
	var version int
	var ts int64
	if err := s.db.QueryRow(query, key).Scan(&value, &version, &ts); err != nil {
		return nil, 0, 0, err
	}
	return value, version, ts, nil
}

// Set inserts or replaces an entry
func (s *SQLStore) Set(key string, value []byte, version int, timestamp int64) error {
	_, err := s.db.Exec(s.upsertQuery(), key, value, version, timestamp)
	return err
}

func (s *SQLStore) upsertQuery() string {
	quoted := quoteTableName(s.tableName, s.backend)
	switch s.backend {
	case BackendMySQL:
		return fmt.Sprintf(`INSERT INTO %s (cache_key, cache_value, cache_version, cache_timestamp) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE cache_value = new.cache_value, cache_version = new.cache_version, cache_timestamp = new.cache_timestamp`, quoted)
	case BackendPostgres:
		return fmt.Sprintf(`INSERT INTO %s (cache_key, cache_value, cache_version, cache_timestamp) VALUES ($1, $2, $3, $4)
			ON CONFLICT (cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value, cache_version = EXCLUDED.cache_version, cache_timestamp = EXCLUDED.cache_timestamp`, quoted)
	default:
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (cache_key, cache_value, cache_version, cache_timestamp) VALUES (?, ?, ?, ?)`, quoted)
	}
}

// Close closes the underlying connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// noneStore is the disabled backend
type noneStore struct{}

func (noneStore) Get(string) ([]byte, int, int64, error) { return nil, 0, 0, sql.ErrNoRows }
func (noneStore) Set(string, []byte, int, int64) error    { return nil }
func (noneStore) Close() error                            { return nil }
