// Package sqlite implements the memory backend on SQLite with FTS5 text search.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

// Store implements store.Backend using SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ store.Backend = (*Store)(nil)

// defaultPragmas are applied to every connection before caller options.
const defaultPragmas = "_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"

// foldFunc is a Unicode-aware lower(). SQLite's built-in LOWER only folds ASCII.
const foldFunc = "memori_fold"

var (
	registerOnce sync.Once
	registerErr  error
)

func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = msqlite.RegisterDeterministicScalarFunction(foldFunc, 1,
			func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				switch v := args[0].(type) {
				case string:
					return strings.ToLower(v), nil
				case []byte:
					return strings.ToLower(string(v)), nil
				case nil:
					return nil, nil
				default:
					return strings.ToLower(fmt.Sprint(v)), nil
				}
			})
	})
	return registerErr
}

// Open opens or creates the SQLite database named by d. Options in d other
// than in_memory are appended to the driver DSN untouched.
func Open(d store.Descriptor, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("register sql functions: %w", err)
	}

	inMemory := d.Options["in_memory"] == "true" || d.Database == ":memory:"

	var dsn string
	if inMemory {
		dsn = ":memory:?" + defaultPragmas
	} else {
		dir := filepath.Dir(d.Database)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = d.Database + "?" + defaultPragmas
	}
	if extra := d.Query("in_memory"); extra != "" {
		dsn += "&" + extra
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if inMemory {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	path := d.Database
	if inMemory {
		path = ":memory:"
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Info(ctx context.Context) (*model.Info, error) {
	info := &model.Info{
		Backend:  "sqlite",
		Database: s.path,
		Version:  "unknown",
	}
	var v string
	if err := s.db.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&v); err == nil {
		info.Version = v
	}
	info.SupportsFullText = s.hasTable(ctx, ftsTable(model.KindShortTerm)) &&
		s.hasTable(ctx, ftsTable(model.KindLongTerm))
	if st, err := s.StorageStats(ctx); err == nil {
		info.Storage = st
	}
	return info, nil
}

func (s *Store) hasTable(ctx context.Context, name string) bool {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	return err == nil && n > 0
}

// tableFor maps a kind to its table name.
func tableFor(kind model.Kind) (string, error) {
	switch kind {
	case model.KindChat:
		return "chat_history", nil
	case model.KindShortTerm:
		return "short_term_memory", nil
	case model.KindLongTerm:
		return "long_term_memory", nil
	}
	return "", fmt.Errorf("%w: %q", model.ErrInvalidKind, kind)
}

func ftsTable(kind model.Kind) string {
	t, _ := tableFor(kind)
	return t + "_fts"
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
