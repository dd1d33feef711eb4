package inmemory

import (
	"context"
	"streakTracker/internal/logger"
	repo "streakTracker/internal/repository"
	"sync"
)

type Storage struct {
	storage map[string][]byte
	mtx     *sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{
		storage: make(map[string][]byte),
		mtx:     &sync.RWMutex{},
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	value, ok := s.storage[key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.storage[key] = append([]byte(nil), value...)
	return nil
}

// Keys - список ключей, удобно для тестов
func (s *Storage) Keys() []string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	keys := make([]string, 0, len(s.storage))
	for k := range s.storage {
		keys = append(keys, k)
	}
	return keys
}

func (s *Storage) Close() error {
	return nil
}

var _ repo.Store = (*Storage)(nil)
