package store

import (
	"context"
	"time"
)

// SeenSet maps a job link to an opaque seen-marker. Presence is all that
// matters; the marker is carried through load and persist unchanged.
type SeenSet map[string]string

// Store represents the persisted record of links already notified
type Store interface {
	// Load reads the persisted set. Missing state yields an empty set;
	// unreadable state is an error.
	Load(ctx context.Context) (SeenSet, error)

	// Persist atomically replaces the persisted state with set
	Persist(ctx context.Context, set SeenSet) error

	// Close releases the store's resources
	Close() error
}

// Contains reports whether link has been seen
func Contains(set SeenSet, link string) bool {
	_, ok := set[link]
	return ok
}

// Insert marks link as seen. An existing marker is left untouched.
func Insert(set SeenSet, link string) {
	if _, ok := set[link]; ok {
		return
	}
	set[link] = time.Now().UTC().Format(time.RFC3339)
}
