// ABOUTME: Store interface and Record type for long-term memory persistence
// ABOUTME: All operations are scoped to a single user identifier

package memory

import (
	"context"
	"time"
)

// Record is one stored memory.
type Record struct {
	ID        string
	UserID    string
	Text      string
	CreatedAt time.Time
}

// Store defines the interface for long-term memory persistence.
type Store interface {
	// Add stores a memory text for the user.
	Add(ctx context.Context, text, userID string) error

	// Search returns up to limit records relevant to the query, most
	// relevant first. An empty result is not an error.
	Search(ctx context.Context, query, userID string, limit int) ([]Record, error)

	// GetAll returns every record for the user, oldest first.
	GetAll(ctx context.Context, userID string) ([]Record, error)

	// Count returns the number of records stored for the user.
	Count(ctx context.Context, userID string) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
