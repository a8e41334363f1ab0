package library

import (
	"context"
	"fmt"
	"sync"
)

// Store persists the three logical tables. Save replaces the whole
// persisted state with snap (last write wins).
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}

// MemoryStore keeps the snapshot in process memory. It backs ephemeral
// sessions and tests.
type MemoryStore struct {
	mu    sync.Mutex
	snap  *Snapshot
	saves int
}

// NewMemoryStore returns a store seeded with a copy of seed (may be nil).
func NewMemoryStore(seed *Snapshot) *MemoryStore {
	return &MemoryStore{snap: seed.Clone()}
}

func (m *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap.Clone()
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Close() error { return nil }

// Store drivers accepted by OpenStore.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
	DriverMemory = "memory"
)

// OpenStore opens the store named by driver at path. The memory driver
// ignores path.
func OpenStore(driver, path string) (Store, error) {
	switch driver {
	case DriverSQLite:
		db, err := NewDatabase(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverJSON:
		js, err := NewJSONStore(path)
		if err != nil {
			return nil, err
		}
		return js, nil
	case DriverMemory:
		return NewMemoryStore(nil), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q: %w", driver, ErrInvalidArgument)
	}
}
