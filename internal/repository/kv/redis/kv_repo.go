package redis

import (
	"context"
	"errors"
	"fmt"
	"streakTracker/internal/logger"
	repo "streakTracker/internal/repository"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultPrefix = "streak:"

type Storage struct {
	client *redis.Client
	prefix string
}

func New(ctx context.Context, addr, prefix string) (*Storage, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.Error("Repository: Redis недоступен", err, zap.String("addr", addr))
		return nil, fmt.Errorf("подключение к redis: %w", err)
	}

	logger.Info("Repository: Успешное подключение к Redis", zap.String("addr", addr))
	return NewWithClient(client, prefix), nil
}

func NewWithClient(client *redis.Client, prefix string) *Storage {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Storage{client: client, prefix: prefix}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("чтение ключа %s: %w", key, err)
	}
	return data, nil
}

// Set пишет без TTL: снапшот должен переживать сессии
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()

	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("запись ключа %s: %w", key, err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: Медленная операция", zap.String("key", key), zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) Close() error {
	logger.Info("Repository: Закрытие соединения Redis")
	return s.client.Close()
}

var _ repo.Store = (*Storage)(nil)
