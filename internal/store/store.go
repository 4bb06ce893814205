package store

import "context"

// Recorder persists subjects. The poller is its only caller.
type Recorder interface {
	// RecordIfNew inserts subject unless an identical one is already stored.
	// It reports whether a new record was created.
	RecordIfNew(ctx context.Context, subject string) (bool, error)
}

// Reader serves the most recently recorded subjects. It never mutates the store.
type Reader interface {
	// Recent returns up to limit subjects, newest first.
	Recent(ctx context.Context, limit int) ([]string, error)
}

// ReadOnlyStore is the subject store as opened by the status commands.
type ReadOnlyStore interface {
	Reader
	Count(ctx context.Context) (int, error)
	Close() error
}

// Store is the full subject store as opened by the poller commands.
type Store interface {
	Recorder
	ReadOnlyStore
}
