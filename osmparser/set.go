package osmparser

import "sync"

type set[K comparable] struct {
	mu    sync.RWMutex
	items map[K]struct{}
}

func newSet[K comparable]() *set[K] {
	return &set[K]{
		items: make(map[K]struct{}),
	}
}

func (s *set[K]) Add(items ...K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.items[item] = struct{}{}
	}
}

func (s *set[K]) Contains(item K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[item]
	return ok
}

func (s *set[K]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
