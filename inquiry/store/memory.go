// Package store provides in-memory implementations of the inquiry storage interfaces.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/inquiry-desk/inquiry"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements inquiry.RecordStore and inquiry.IdentityStore.
type Memory struct {
	mu         sync.RWMutex
	periods    map[inquiry.PeriodID][]inquiry.Record
	identities []inquiry.Identity
	hasIDs     bool

	// Writes counts Persist and SaveIdentities calls.
	Writes int
}

func NewMemory() *Memory {
	return &Memory{
		periods: make(map[inquiry.PeriodID][]inquiry.Record),
	}
}

func (m *Memory) Load(_ context.Context, id inquiry.PeriodID) ([]inquiry.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.periods[id]
	result := make([]inquiry.Record, len(records))
	copy(result, records)
	return result, nil
}

// Persist replaces the period's record set with a copy of records.
func (m *Memory) Persist(_ context.Context, id inquiry.PeriodID, records []inquiry.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]inquiry.Record, len(records))
	copy(stored, records)
	m.periods[id] = stored
	m.Writes++
	return nil
}

func (m *Memory) Delete(_ context.Context, id inquiry.PeriodID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.periods, id)
	return nil
}

func (m *Memory) Exists(_ context.Context, id inquiry.PeriodID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.periods[id]
	return ok, nil
}

func (m *Memory) List(_ context.Context) ([]inquiry.PeriodID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]inquiry.PeriodID, 0, len(m.periods))
	for id := range m.periods {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// =============================================================================
// IDENTITIES
// =============================================================================

func (m *Memory) LoadIdentities(_ context.Context) ([]inquiry.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.hasIDs {
		return nil, inquiry.ErrStoreNotFound
	}
	return append([]inquiry.Identity(nil), m.identities...), nil
}

func (m *Memory) SaveIdentities(_ context.Context, identities []inquiry.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.identities = append([]inquiry.Identity(nil), identities...)
	m.hasIDs = true
	m.Writes++
	return nil
}
