package shipments

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the in-memory Store used for dev mode and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]Shipment
	byRef map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]Shipment),
		byRef: make(map[string]string),
	}
}

func (m *MemoryStore) Insert(ctx context.Context, s Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byRef[s.BookingReference]; ok {
		return ErrDuplicateRef
	}
	if _, ok := m.byID[s.ID]; ok {
		return ErrDuplicateRef
	}
	m.byID[s.ID] = s
	m.byRef[s.BookingReference] = s.ID
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (Shipment, error) {
	if err := ctx.Err(); err != nil {
		return Shipment{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.byID[id]
	if !ok || s.DeletedAt != nil {
		return Shipment{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) List(ctx context.Context, f Filter) ([]Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	all := make([]Shipment, 0, len(m.byID))
	for _, s := range m.byID {
		if s.DeletedAt != nil {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		all = append(all, s)
	}
	m.mu.RUnlock()

	// Newest first, breaking created_at ties by id for stable pages.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []Shipment{}, nil
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MemoryStore) Update(ctx context.Context, s Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.byID[s.ID]
	if !ok || cur.DeletedAt != nil {
		return ErrNotFound
	}
	// The reference is immutable after insert.
	s.BookingReference = cur.BookingReference
	m.byID[s.ID] = s
	return nil
}

func (m *MemoryStore) SoftDelete(ctx context.Context, id string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok || s.DeletedAt != nil {
		return ErrNotFound
	}
	deleted := now
	s.DeletedAt = &deleted
	s.UpdatedAt = now
	m.byID[id] = s
	return nil
}

func (m *MemoryStore) CountByRefPrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for ref := range m.byRef {
		if strings.HasPrefix(ref, prefix) {
			n++
		}
	}
	return n, nil
}
