package pipeline

import "sync"

// ProcessedSet tracks event IDs that already produced a brief in this
// process's lifetime. It only grows; nothing is ever un-marked. Safe for
// concurrent use by parallel meeting workers.
type ProcessedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewProcessedSet returns an empty set.
func NewProcessedSet() *ProcessedSet {
	return &ProcessedSet{seen: make(map[string]struct{})}
}

// IsNew reports whether eventID has not been marked processed yet.
func (s *ProcessedSet) IsNew(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[eventID]
	return !ok
}

// MarkProcessed records eventID. Idempotent.
func (s *ProcessedSet) MarkProcessed(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[eventID] = struct{}{}
}

// CheckAndMark atomically tests membership and inserts, returning true when
// eventID was new. The critical section is exactly test-then-insert so two
// concurrent workers cannot both claim the same event.
func (s *ProcessedSet) CheckAndMark(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return false
	}
	s.seen[eventID] = struct{}{}
	return true
}

// Len returns the number of processed events.
func (s *ProcessedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
