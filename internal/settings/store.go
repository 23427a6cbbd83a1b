package settings

import (
	"fmt"
	"sync"
)

// Store owns the current settings and their generation.
type Store struct {
	mu      sync.RWMutex
	persist Persister
	current Snapshot
}

// NewStore loads settings from p and starts at generation 1.
func NewStore(p Persister) (*Store, error) {
	s, err := p.Load()
	if err != nil {
		return nil, err
	}
	return &Store{persist: p, current: Snapshot{Settings: s, Generation: 1}}, nil
}

// Current returns the latest snapshot.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Generation returns the latest generation number.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Generation
}

// Update applies fn to a copy of the current settings, validates and persists
// the result, then publishes it under the next generation. On any error the
// current snapshot is unchanged.
func (s *Store) Update(fn func(*Settings) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Settings
	if err := fn(&next); err != nil {
		return s.current, err
	}
	if err := next.Validate(); err != nil {
		return s.current, err
	}
	if err := s.persist.Save(next); err != nil {
		return s.current, fmt.Errorf("failed to persist settings: %w", err)
	}

	s.current = Snapshot{Settings: next, Generation: s.current.Generation + 1}
	return s.current, nil
}

// SetLocation replaces the location.
func (s *Store) SetLocation(l Location) (Snapshot, error) {
	return s.Update(func(st *Settings) error {
		st.Location = l
		return nil
	})
}

// SetCalculation replaces the calculation settings.
func (s *Store) SetCalculation(c Calculation) (Snapshot, error) {
	return s.Update(func(st *Settings) error {
		st.Calculation = c
		return nil
	})
}

// Memory is an in-process Persister.
type Memory struct {
	mu sync.Mutex
	s  Settings
}

// NewMemory returns a Memory persister seeded with s.
func NewMemory(s Settings) *Memory {
	return &Memory{s: s}
}

// Load implements Persister.
func (m *Memory) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

// Save implements Persister.
func (m *Memory) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}
