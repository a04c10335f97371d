package storage

import "fmt"

// Store backend kinds accepted by NewStore. An empty kind falls back to
// the in-memory backend so callers without persistence needs work out of
// the box.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		if sqlitePath == "" {
			return nil, fmt.Errorf("sqlite backend requires a database path")
		}
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s (supported: memory, sqlite)", kind)
	}
}

// CloseIfSupported closes backends that hold external resources; the
// memory backend has nothing to release.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
