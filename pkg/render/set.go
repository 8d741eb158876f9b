package render

import "sync"

// OrderedSet is an insertion-ordered set of rendered fragments. Adding a value
// already present is a no-op.
type OrderedSet struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	items []string
}

// NewOrderedSet returns an empty set.
func NewOrderedSet() *OrderedSet {
	return &OrderedSet{seen: make(map[string]struct{})}
}

// Add inserts v and reports whether it was new.
func (s *OrderedSet) Add(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Has reports whether v is in the set.
func (s *OrderedSet) Has(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[v]
	return ok
}

// Len returns the number of values.
func (s *OrderedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Values returns the values in insertion order.
func (s *OrderedSet) Values() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.items...)
}

// String concatenates the values in insertion order.
func (s *OrderedSet) String() string {
	var n int
	values := s.Values()
	for _, v := range values {
		n += len(v)
	}
	b := make([]byte, 0, n)
	for _, v := range values {
		b = append(b, v...)
	}
	return string(b)
}
