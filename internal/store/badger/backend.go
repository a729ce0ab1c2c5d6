// Package badger implements the memory backend as JSON documents in BadgerDB.
// Badger has no full-text index, so text queries always take the substring path.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

const schemaVersion = "1"

var (
	errClosed  = errors.New("badger: database is closed")
	errCorrupt = errors.New("badger: corrupt document")
)

// Store implements store.Backend on a BadgerDB instance.
type Store struct {
	db     *badger.DB
	path   string
	logger *slog.Logger
}

var _ store.Backend = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens the Badger directory named by d, or an in-memory instance when
// d carries in_memory=true. Creates the directory if it doesn't exist.
func Open(d store.Descriptor, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	path := d.Database
	if d.Options["in_memory"] == "true" {
		opts = badger.DefaultOptions("").WithInMemory(true)
		path = ":memory:"
	} else {
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(path, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", path)
		}
		opts = badger.DefaultOptions(path)
	}

	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None
	if d.Options["sync_writes"] == "true" {
		opts = opts.WithSyncWrites(true)
	}
	for k := range d.Options {
		if k != "in_memory" && k != "sync_writes" {
			logger.Debug("badger ignores descriptor option", "option", k)
		}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errClosed
	}
	return s.db.View(func(tx *badger.Txn) error {
		_, err := tx.Get([]byte(schemaKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InitSchema records the document layout version. Badger needs no
// collections or indexes; the key layout in keys.go provides both.
func (s *Store) InitSchema(ctx context.Context) error {
	err := s.db.Update(func(tx *badger.Txn) error {
		return tx.Set([]byte(schemaKey), []byte(schemaVersion))
	})
	if err != nil {
		return fmt.Errorf("write schema marker: %w", err)
	}
	s.logger.Debug("badger has no text index; text queries use substring matching")
	return nil
}

func (s *Store) Info(ctx context.Context) (*model.Info, error) {
	info := &model.Info{
		Backend:          "badger",
		Database:         s.path,
		Version:          "v4",
		SupportsFullText: false,
	}
	if st, err := s.StorageStats(ctx); err == nil {
		info.Storage = st
	}
	return info, nil
}
