package repository

import "context"

// ключи снапшота в долговременном хранилище
const (
	KeyTasks    = "tasks"
	KeySettings = "settings"
	KeyStats    = "stats"
	KeyStreak   = "streak"
)

// Store - долговременное хранилище ключ -> JSON.
// Get возвращает ErrNotFound, если ключа нет.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	HealthCheck(ctx context.Context) error
	Close() error
}
