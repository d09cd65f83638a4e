// Package database defines the key-value backends that hold persisted wallet
// state and completed subtree roots.
package database

type (
	KeyValueReader interface {
		// Has reports whether key is present.
		Has(key []byte) (bool, error)

		// Get returns the value stored under key, or ErrDatabaseNotFound.
		Get(key []byte) ([]byte, error)
	}
	KeyValueWriter interface {
		Set(key []byte, value []byte) error
		Delete(key []byte) error
	}
	TreeDB interface {
		KeyValueReader
		KeyValueWriter
		// NewBatch returns a write-only view whose changes reach the
		// database together when Write is called.
		NewBatch() Batcher
		Close() error
	}

	// Batcher groups writes so that a subtree root and the root count are
	// stored atomically.
	Batcher interface {
		KeyValueWriter

		Write() error

		// ValueSize returns the number of bytes queued for writing.
		ValueSize() int
	}
)
