package core

import (
	"maps"
	"sync"
)

// State is the mutable key/value context shared by reference across every
// node participating in one run. It is safe for concurrent access.
//
// Contract:
//   - Get returns (nil, false) for absent keys; absence is data, never an
//     error.
//   - Set is visible to all subsequent readers sharing the instance; on key
//     collision last writer wins.
//   - Snapshot returns an isolated copy for parallel fan-out so children
//     never observe each other's in-flight writes.
//   - Delta reports only the keys written since construction, which is how a
//     parallel branch's writes are replayed into the live state after the
//     join.
type State struct {
	mu      sync.RWMutex
	values  map[string]any
	touched map[string]struct{}
}

// NewState creates an empty run state.
func NewState() *State {
	return &State{values: map[string]any{}, touched: map[string]struct{}{}}
}

// NewStateFrom creates a state seeded with the given snapshot. The seed keys
// do not count as writes: Delta starts empty.
func NewStateFrom(seed map[string]any) *State {
	s := NewState()
	maps.Copy(s.values, seed)
	return s
}

// Get returns the value stored under key and whether it was present.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetString returns the value under key rendered as a string, or "" when the
// key is absent or not a string.
func (s *State) GetString(key string) string {
	v, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// Set stores value under key, recording the key as written.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.touched[key] = struct{}{}
}

// Apply merges all pairs from delta into the state as writes.
func (s *State) Apply(delta map[string]any) {
	if len(delta) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		s.values[k] = v
		s.touched[k] = struct{}{}
	}
}

// Snapshot returns a copy of the full key/value mapping. Mutating the copy
// does not affect the live state.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]any, len(s.values))
	maps.Copy(snap, s.values)
	return snap
}

// Delta returns the key/value pairs written via Set or Apply since the state
// was constructed.
func (s *State) Delta() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	delta := make(map[string]any, len(s.touched))
	for k := range s.touched {
		delta[k] = s.values[k]
	}
	return delta
}

// Len returns the number of keys currently stored.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
