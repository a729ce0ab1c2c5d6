package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rcliao/memori-store/internal/store"
	"github.com/rcliao/memori-store/internal/store/badger"
	"github.com/rcliao/memori-store/internal/store/sqlite"
)

// opener opens a backend for a parsed descriptor.
type opener func(d store.Descriptor, logger *slog.Logger) (store.Backend, error)

var defaultOpeners = map[string]opener{
	"sqlite": openSQLite,
	"file":   openSQLite,
	"badger": openBadger,
}

func openSQLite(d store.Descriptor, logger *slog.Logger) (store.Backend, error) {
	return sqlite.Open(d, logger)
}

func openBadger(d store.Descriptor, logger *slog.Logger) (store.Backend, error) {
	return badger.Open(d, logger)
}

// connManager owns the single backend handle. The handle is created on
// first use and reused until close.
type connManager struct {
	mu      sync.Mutex
	raw     string
	openers map[string]opener
	timeout time.Duration
	logger  *slog.Logger

	backend    store.Backend
	descriptor store.Descriptor
	closed     bool
}

func newConnManager(raw string, timeout time.Duration, logger *slog.Logger) *connManager {
	return &connManager{
		raw:     raw,
		openers: defaultOpeners,
		timeout: timeout,
		logger:  logger,
	}
}

// acquire returns the cached backend, connecting and running init on the
// first call. A failed init closes the new backend and is retried on the
// next call.
func (c *connManager) acquire(ctx context.Context, init func(context.Context, store.Backend) error) (store.Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.backend != nil {
		return c.backend, nil
	}

	b, d, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	if init != nil {
		if err := init(ctx, b); err != nil {
			b.Close()
			return nil, err
		}
	}

	c.backend = b
	c.descriptor = d
	return b, nil
}

// connect tries the configured descriptor, then once more with its
// normalized form.
func (c *connManager) connect(ctx context.Context) (store.Backend, store.Descriptor, error) {
	d, err := store.ParseDescriptor(c.raw)
	if err != nil {
		return nil, store.Descriptor{}, &ConnectionError{Descriptor: "<unparseable>", Cause: err}
	}

	b, primaryErr := c.open(ctx, d)
	if primaryErr == nil {
		return b, d, nil
	}

	fallback := d.Normalized()
	c.logger.Warn("primary connection failed, retrying with normalized descriptor",
		"descriptor", d.Redacted(), "fallback", fallback, "err", primaryErr)

	fd, err := store.ParseDescriptor(fallback)
	if err == nil {
		b, err = c.open(ctx, fd)
		if err == nil {
			return b, fd, nil
		}
	}

	return nil, store.Descriptor{}, &ConnectionError{
		Descriptor: d.Redacted(),
		Cause:      classify(errors.Join(primaryErr, fmt.Errorf("fallback: %w", err))),
	}
}

func (c *connManager) open(ctx context.Context, d store.Descriptor) (store.Backend, error) {
	open, ok := c.openers[d.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported scheme %q", store.ErrInvalidDescriptor, d.Scheme)
	}

	b, err := open(d, c.logger)
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := b.Ping(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	c.logger.Debug("connected", "scheme", d.Scheme, "database", d.Database)
	return b, nil
}

// redacted returns the descriptor of the live connection, or of the
// configured one before connecting.
func (c *connManager) redacted() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		return c.descriptor.Redacted()
	}
	if d, err := store.ParseDescriptor(c.raw); err == nil {
		return d.Redacted()
	}
	return ""
}

// close releases the backend. Later calls are no-ops.
func (c *connManager) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.backend == nil {
		return nil
	}
	err := c.backend.Close()
	c.backend = nil
	c.descriptor = store.Descriptor{}
	return err
}
