package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

var (
	// ErrTimeout indicates an operation exceeded Config.OperationTimeout or
	// Config.ConnectTimeout.
	ErrTimeout = errors.New("operation timed out")

	// ErrClosed indicates the engine was used after Close.
	ErrClosed = errors.New("engine is closed")

	// ErrNotFound indicates the requested record does not exist in the namespace.
	ErrNotFound = store.ErrNotFound
)

// ConnectionError reports that neither the configured descriptor nor its
// normalized fallback produced a usable store.
type ConnectionError struct {
	// Descriptor is the configured descriptor with the password masked.
	Descriptor string
	Cause      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Descriptor, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// SchemaError reports that collections could not be created.
type SchemaError struct {
	Cause error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("initialize schema: %v", e.Cause)
}

func (e *SchemaError) Unwrap() error { return e.Cause }

// WriteError reports a failed store, update or delete of one record.
type WriteError struct {
	Op    string
	Kind  model.Kind
	Key   string
	Cause error
}

func (e *WriteError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Kind, e.Key, e.Cause)
}

func (e *WriteError) Unwrap() error { return e.Cause }

// classify maps context deadlines onto ErrTimeout.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

func writeErr(op string, kind model.Kind, key string, err error) error {
	return &WriteError{Op: op, Kind: kind, Key: key, Cause: classify(err)}
}
