package model

// Signals carries the listener list, rebuild state and generation of one view.
// Views embed it and call Check at the top of every query.
type Signals struct {
	listeners  []Listener
	resetting  bool
	generation uint64
}

// Rebuild is the guard returned by BeginReset. End must be called exactly once
// on every path, typically with defer.
type Rebuild struct {
	s     *Signals
	ended bool
}

// Subscribe registers a listener. Listeners are notified in subscription order.
func (s *Signals) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Unsubscribe removes a listener added with Subscribe. l must be comparable,
// in practice a pointer. Unknown listeners are ignored.
func (s *Signals) Unsubscribe(l Listener) {
	for i, cur := range s.listeners {
		if cur == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// Listeners returns the number of subscribed listeners.
func (s *Signals) Listeners() int {
	return len(s.listeners)
}

// BeginReset marks the view as rebuilding and notifies ModelAboutToReset.
// Panics if a rebuild is already open: rebuilds never nest.
func (s *Signals) BeginReset() *Rebuild {
	if s.resetting {
		panic("model: BeginReset called while a reset is already in progress")
	}
	s.resetting = true
	for _, l := range s.listeners {
		l.ModelAboutToReset()
	}
	return &Rebuild{s: s}
}

// End closes the rebuild, advances the generation and notifies ModelReset.
// Calling End more than once is a no-op.
func (r *Rebuild) End() {
	if r.ended {
		return
	}
	r.ended = true
	r.s.resetting = false
	r.s.generation++
	for _, l := range r.s.listeners {
		l.ModelReset()
	}
}

// Resetting reports whether a rebuild is open.
func (s *Signals) Resetting() bool {
	return s.resetting
}

// Check returns ErrResetInProgress while a rebuild is open.
func (s *Signals) Check() error {
	if s.resetting {
		return ErrResetInProgress
	}
	return nil
}

// Generation counts completed rebuilds. Positions issued in an earlier
// generation are stale.
func (s *Signals) Generation() uint64 {
	return s.generation
}

// EmitRowsChanged notifies listeners that rows first..last (inclusive) changed
// in place. Row count and order are unchanged.
func (s *Signals) EmitRowsChanged(first, last int) {
	for _, l := range s.listeners {
		l.RowsChanged(first, last)
	}
}
