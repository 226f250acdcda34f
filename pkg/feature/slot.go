package feature

import "sync"

// slot holds the most recent value posted by a source goroutine.
//
// Every enable starts a new run. Posts carry the run they were produced in
// and are dropped when that run has ended, so a detection that completes
// after Disable can never become visible.
type slot[T any] struct {
	mu    sync.Mutex
	run   uint64
	open  bool
	value T
	has   bool
}

// begin starts a new run and returns its token.
func (s *slot[T]) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run++
	s.open = true
	s.has = false
	var zero T
	s.value = zero
	return s.run
}

// end closes the current run and forgets its value.
func (s *slot[T]) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run++
	s.open = false
	s.has = false
	var zero T
	s.value = zero
}

// post stores v if run is still current. It reports whether v was kept.
func (s *slot[T]) post(run uint64, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || run != s.run {
		return false
	}
	s.value = v
	s.has = true
	return true
}

// get returns the latest value of the current run.
func (s *slot[T]) get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.has
}
