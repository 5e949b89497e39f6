package tokenstore

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu     sync.RWMutex
	tokens map[Kind]string
}

func NewMemoryStore() Store {
	return &memoryStore{tokens: make(map[Kind]string, 2)}
}

func (s *memoryStore) Get(_ context.Context, kind Kind) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[kind]
	if !ok {
		return "", ErrNotFound
	}

	return token, nil
}

func (s *memoryStore) Set(_ context.Context, kind Kind, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[kind] = token
	return nil
}

func (s *memoryStore) Clear(_ context.Context, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, kind)
	return nil
}
