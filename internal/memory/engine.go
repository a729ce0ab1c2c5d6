// Package memory is the dual-tier memory engine: chat history, short-term
// and long-term memories kept per namespace in one backing store.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/rcliao/memori-store/internal/config"
	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

// Engine stores and retrieves memories. It is safe for concurrent use.
type Engine struct {
	cfg    config.Config
	conn   *connManager
	pool   *ants.Pool
	logger *slog.Logger
	now    func() time.Time

	releaseOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithClock sets the time source used for defaults and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		if now != nil {
			e.now = now
		}
		return nil
	}
}

// New creates an engine for cfg. No connection is made until the first
// operation.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(cfg.SearchWorkers)
	if err != nil {
		return nil, err
	}
	e.pool = pool
	e.conn = newConnManager(cfg.Database, cfg.ConnectTimeout, e.logger)
	return e, nil
}

// Close releases the connection and the worker pool. Calling Close more
// than once is a no-op.
func (e *Engine) Close() error {
	err := e.conn.close()
	e.releaseOnce.Do(e.pool.Release)
	return err
}

// Info describes the connected store.
func (e *Engine) Info(ctx context.Context) (*model.Info, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return nil, err
	}
	info, err := b.Info(ctx)
	if err != nil {
		return nil, classify(err)
	}
	info.Descriptor = e.conn.redacted()
	return info, nil
}

// backend returns the live store, connecting and initializing the schema
// on first use.
func (e *Engine) backend(ctx context.Context) (store.Backend, error) {
	return e.conn.acquire(ctx, e.initSchema)
}

func (e *Engine) initSchema(ctx context.Context, b store.Backend) error {
	if !e.cfg.SchemaInit {
		e.logger.Info("schema initialization disabled")
		return nil
	}
	if err := b.InitSchema(ctx); err != nil {
		return &SchemaError{Cause: classify(err)}
	}
	return nil
}

// opContext bounds one public operation by Config.OperationTimeout.
func (e *Engine) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.OperationTimeout)
}
