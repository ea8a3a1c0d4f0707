// Package store keeps one puzzle instance per session.
package store

import (
	"context"
	"fmt"

	"puzzled/internal/types"
)

// Sessions persists puzzle instances keyed by session id. Implementations
// hand out copies so callers can mutate what they get back.
type Sessions interface {
	// Get returns the session's instance or an error wrapping types.ErrNotFound.
	Get(ctx context.Context, session string) (*types.Instance, error)
	// Put replaces the session's instance.
	Put(ctx context.Context, inst *types.Instance) error
	// Delete drops the session's instance. Unknown sessions are not an error.
	Delete(ctx context.Context, session string) error
	Close() error
}

// Open returns the backend named by backend ("memory" or "sqlite").
func Open(backend, driver, path string) (Sessions, error) {
	switch backend {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(driver, path)
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}

func notFound(session string) error {
	return fmt.Errorf("session %s: %w", session, types.ErrNotFound)
}
