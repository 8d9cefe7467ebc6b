package session

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	// ErrSessionNotFound is returned when a thread id doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("session store is closed")
)

// Store abstracts session persistence. One record per thread id; Save is a
// whole-record write so any key-value backend with per-key atomic writes
// suffices. Implementations must be safe for concurrent use and provide
// read-your-writes consistency within a turn.
type Store interface {
	// Save creates or replaces the state record for state.ThreadID.
	Save(ctx context.Context, state *State) error

	// Load retrieves the state record for a thread id.
	// Returns ErrSessionNotFound if the thread doesn't exist.
	Load(ctx context.Context, threadID string) (*State, error)

	// Delete removes a thread's state record.
	Delete(ctx context.Context, threadID string) error

	// List returns stored thread ids, sorted, honoring opts.
	List(ctx context.Context, opts ListOptions) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// ListOptions provides pagination for thread listing.
type ListOptions struct {
	// Limit caps the number of results (0 = unlimited).
	Limit int
	// Offset skips the first N results.
	Offset int
}
