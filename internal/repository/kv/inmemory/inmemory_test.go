package inmemory_test

import (
	"context"
	"fmt"
	"streakTracker/internal/repository"
	"streakTracker/internal/repository/kv/inmemory"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStorage_GetMissing тестирует отсутствующий ключ
func TestStorage_GetMissing(t *testing.T) {
	storage := inmemory.NewStorage()

	_, err := storage.Get(context.Background(), repository.KeyTasks)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestStorage_SetGet тестирует запись и чтение
func TestStorage_SetGet(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	require.NoError(t, storage.Set(ctx, repository.KeySettings, []byte(`{"theme":"dark"}`)))

	value, err := storage.Get(ctx, repository.KeySettings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(value))

	require.NoError(t, storage.Set(ctx, repository.KeySettings, []byte(`{"theme":"light"}`)))
	value, err = storage.Get(ctx, repository.KeySettings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"light"}`, string(value))
}

// TestStorage_CopiesValues тестирует, что хранилище не делит срезы с вызывающим
func TestStorage_CopiesValues(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	value := []byte("abc")
	require.NoError(t, storage.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := storage.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, _ := storage.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

// TestStorage_ConcurrentAccess тестирует конкурентный доступ
func TestStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				key := fmt.Sprintf("k-%d-%d", workerID, j)
				assert.NoError(t, storage.Set(ctx, key, []byte("v")))
				_, err := storage.Get(ctx, key)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, storage.Keys(), 100)
	assert.NoError(t, storage.HealthCheck(ctx))
	assert.NoError(t, storage.Close())
}
