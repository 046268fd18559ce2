package library

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrEntryNotFound is returned when a catalog has no entry for an ID.
var ErrEntryNotFound = errors.New("catalog entry not found")

// Catalog stores detection entries keyed by Entry.ID.
type Catalog interface {
	// Put inserts or replaces an entry.
	Put(ctx context.Context, e *Entry) error

	// Get returns the entry with id or ErrEntryNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns all entries sorted by path.
	List(ctx context.Context) ([]*Entry, error)

	// Delete removes the entry with id or returns ErrEntryNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the catalog.
	Close() error
}

// MemoryCatalog is a process-local Catalog.
type MemoryCatalog struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{entries: make(map[string]*Entry)}
}

func (m *MemoryCatalog) Put(_ context.Context, e *Entry) error {
	cp := *e
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = &cp
	return nil
}

func (m *MemoryCatalog) Get(_ context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryCatalog) List(_ context.Context) ([]*Entry, error) {
	m.mu.RLock()
	out := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		cp := *e
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	sortEntries(out)
	return out, nil
}

func (m *MemoryCatalog) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *MemoryCatalog) Close() error { return nil }

func sortEntries(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}
