package forecast

import "sync/atomic"

// Store holds the current Engine. A reload swaps in a whole new Engine;
// in-flight forecasts keep the snapshot they started with.
type Store struct {
	p atomic.Pointer[Engine]
}

// Load returns the current engine, or nil before the first Swap.
func (s *Store) Load() *Engine { return s.p.Load() }

// Swap installs e and returns the previous engine.
func (s *Store) Swap(e *Engine) *Engine { return s.p.Swap(e) }
