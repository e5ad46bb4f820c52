package cycler

import "sync"

// State is the per-cycler mutable record that persists across ticks but is
// never published to other cyclers (e.g. motion_safe_exits,
// stand_up_front_estimated_remaining_duration, and similar). It backs both
// CyclerState<T, path> and PersistentState<T, path> declarations; the two
// kinds share the same lifecycle in this rendition (single cycler
// ownership, never shared), differing only in the label a node uses to
// declare intent.
type State struct {
	mu     sync.Mutex
	values map[string]interface{}
}

// NewState returns an empty cycler state.
func NewState() *State {
	return &State{values: map[string]interface{}{}}
}

// StateGet returns the stored value at path, or the zero value and false if
// unset.
func StateGet[T any](s *State, path string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	raw, ok := s.values[path]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// StateSet stores a value at path. Only the owning cycler's own nodes call
// this: cycler state is mutated by its own nodes only.
func StateSet[T any](s *State, path string, value T) {
	s.mu.Lock()
	s.values[path] = value
	s.mu.Unlock()
}

// StateGetOrInit returns the stored value at path, initializing it with
// init() on first access. Useful for a node's first tick, when e.g.
// stand_up_front_estimated_remaining_duration has no prior value yet.
func StateGetOrInit[T any](s *State, path string, init func() T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw, ok := s.values[path]; ok {
		if v, ok := raw.(T); ok {
			return v
		}
	}
	v := init()
	s.values[path] = v
	return v
}
