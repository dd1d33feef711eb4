package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"streakTracker/internal/models/progress"
	"streakTracker/internal/models/settings"
	"streakTracker/internal/models/task"
	"streakTracker/internal/repository"
	"streakTracker/internal/repository/kv/inmemory"
	"streakTracker/internal/store"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockKV - мок долговременного хранилища
type MockKV struct {
	mock.Mock
}

func (m *MockKV) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKV) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKV) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockKV) Close() error {
	return m.Called().Error(0)
}

var _ repository.Store = (*MockKV)(nil)

func newStore(t *testing.T) (*store.TaskStore, *inmemory.Storage, *fakeClock) {
	t.Helper()
	kv := inmemory.NewStorage()
	clock := newClock()
	s, err := store.New(context.Background(), kv, store.WithClock(clock.Now), store.WithLocation(time.UTC))
	require.NoError(t, err)
	return s, kv, clock
}

func todayAt(clock *fakeClock, hm string) task.Draft {
	return task.Draft{Title: "task " + hm, DueDate: clock.Now().Format(task.DateLayout), DueTime: hm}
}

// TestTaskStore_New тестирует создание пустого стора
func TestTaskStore_New(t *testing.T) {
	s, _, _ := newStore(t)

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Version)
	assert.Empty(t, snap.Tasks)
	assert.Equal(t, settings.Default(), snap.Settings)
	assert.Equal(t, 0, snap.Streak.Current)

	_, err := store.New(context.Background(), nil)
	assert.Error(t, err)
}

// TestTaskStore_CreateValidation тестирует отказ без изменения состояния
func TestTaskStore_CreateValidation(t *testing.T) {
	ctx := context.Background()
	s, kv, clock := newStore(t)

	tests := []struct {
		name  string
		draft task.Draft
		field string
	}{
		{name: "empty title", draft: task.Draft{Title: "   "}, field: "title"},
		{name: "bad priority", draft: task.Draft{Title: "a", Priority: "urgent"}, field: "priority"},
		{name: "bad date", draft: task.Draft{Title: "a", DueDate: "tomorrow"}, field: "dueDate"},
		{name: "due in the past", draft: task.Draft{Title: "a", DueDate: clock.Now().Format(task.DateLayout), DueTime: "08:00"}, field: "dueDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, tt.draft)
			require.Error(t, err)
			assert.True(t, store.IsValidation(err))

			var businessErr *store.BusinessError
			require.True(t, errors.As(err, &businessErr))
			assert.Equal(t, tt.field, businessErr.Details["field"])
		})
	}

	assert.Equal(t, uint64(1), s.Snapshot().Version)
	assert.Empty(t, kv.Keys())
}

// TestTaskStore_Create тестирует создание и запись в хранилище
func TestTaskStore_Create(t *testing.T) {
	ctx := context.Background()
	s, kv, clock := newStore(t)

	created, err := s.Create(ctx, task.Draft{Title: " Buy milk ", DueDate: "2026-10-19"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, task.PriorityMedium, created.Priority)
	assert.Equal(t, clock.Now(), created.CreatedAt)
	assert.Equal(t, clock.Now(), created.UpdatedAt)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, time.Date(2026, 10, 19, 23, 59, 59, 0, time.UTC), *created.DueDate)

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.Version)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, 1, snap.Stats.TotalTasks)

	raw, err := kv.Get(ctx, repository.KeyTasks)
	require.NoError(t, err)
	var persisted []task.Task
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, created.ID, persisted[0].ID)

	assert.ElementsMatch(t, []string{repository.KeyTasks, repository.KeyStats, repository.KeyStreak}, kv.Keys())
}

// TestTaskStore_UniqueIDs тестирует уникальность id и отсутствие повторов после удаления
func TestTaskStore_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	seen := make(map[uuid.UUID]struct{})
	for i := 0; i < 20; i++ {
		created, err := s.Create(ctx, task.Draft{Title: "t"})
		require.NoError(t, err)
		_, dup := seen[created.ID]
		require.False(t, dup)
		seen[created.ID] = struct{}{}

		if i%2 == 0 {
			require.NoError(t, s.Delete(ctx, created.ID))
		}
	}
	assert.Len(t, s.Snapshot().Tasks, 10)
}

// TestTaskStore_ToggleTwice тестирует возврат флага и строгий рост updatedAt
func TestTaskStore_ToggleTwice(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newStore(t)

	created, err := s.Create(ctx, task.Draft{Title: "a"})
	require.NoError(t, err)

	// часы не двигаются, updatedAt всё равно растёт
	first, err := s.ToggleCompleted(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, first.Completed)
	assert.NotNil(t, first.CompletedAt)
	assert.True(t, first.UpdatedAt.After(created.UpdatedAt))

	clock.Advance(time.Minute)
	second, err := s.ToggleCompleted(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, second.Completed)
	assert.Nil(t, second.CompletedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, created.CreatedAt, second.CreatedAt)
}

// TestTaskStore_Update тестирует частичное обновление
func TestTaskStore_Update(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newStore(t)

	created, err := s.Create(ctx, task.Draft{Title: "a", Description: "d", Priority: task.PriorityLow})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	past := clock.Now().Add(-48 * time.Hour)
	updated, err := s.Update(ctx, created.ID, task.WithTitle("b"), task.WithDueDate(past))
	require.NoError(t, err)

	assert.Equal(t, "b", updated.Title)
	assert.Equal(t, "d", updated.Description)
	assert.Equal(t, task.PriorityLow, updated.Priority)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, past, *updated.DueDate)
	assert.Equal(t, clock.Now(), updated.UpdatedAt)

	t.Run("empty title rejected", func(t *testing.T) {
		version := s.Snapshot().Version
		_, err := s.Update(ctx, created.ID, task.WithTitle(""))
		assert.True(t, store.IsValidation(err))
		assert.Equal(t, version, s.Snapshot().Version)

		current, ok := s.Task(created.ID)
		require.True(t, ok)
		assert.Equal(t, "b", current.Title)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Update(ctx, uuid.New(), task.WithTitle("x"))
		assert.True(t, store.IsNotFound(err))

		_, err = s.ToggleCompleted(ctx, uuid.New())
		assert.True(t, store.IsNotFound(err))
	})
}

// TestTaskStore_UpdatePartialDue тестирует замену только дня или только времени дедлайна
func TestTaskStore_UpdatePartialDue(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newStore(t)

	created, err := s.Create(ctx, task.Draft{Title: "report", DueDate: "2026-10-25", DueTime: "12:00"})
	require.NoError(t, err)

	opts, err := task.Draft{DueTime: "18:00"}.Options(clock.Now())
	require.NoError(t, err)
	updated, err := s.Update(ctx, created.ID, opts...)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 25, 18, 0, 0, 0, time.UTC), *updated.DueDate)

	opts, err = task.Draft{DueDate: "2026-10-27"}.Options(clock.Now())
	require.NoError(t, err)
	updated, err = s.Update(ctx, created.ID, opts...)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 27, 18, 0, 0, 0, time.UTC), *updated.DueDate)
	assert.Equal(t, "report", updated.Title)
}

// TestTaskStore_DeleteIdempotent тестирует повторное удаление
func TestTaskStore_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	created, err := s.Create(ctx, task.Draft{Title: "a"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))
	version := s.Snapshot().Version

	assert.NoError(t, s.Delete(ctx, created.ID))
	assert.NoError(t, s.Delete(ctx, uuid.New()))
	assert.Equal(t, version, s.Snapshot().Version, "нет нового снапшота")
	assert.Empty(t, s.Snapshot().Tasks)
}

// TestTaskStore_Subscribe тестирует порядок и неизменяемость снапшотов
func TestTaskStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	var got []store.Snapshot
	unsubscribe := s.Subscribe(func(snap store.Snapshot) {
		got = append(got, snap)
	})
	require.Len(t, got, 1, "текущий снапшот отдаётся сразу")

	created, err := s.Create(ctx, task.Draft{Title: "a"})
	require.NoError(t, err)
	_, err = s.ToggleCompleted(ctx, created.ID)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Less(t, got[1].Version, got[2].Version)
	assert.False(t, got[1].Tasks[0].Completed)
	assert.True(t, got[2].Tasks[0].Completed)
	assert.Equal(t, 1, got[2].Stats.CompletedTasks)

	// изменение полученного снапшота не трогает стор
	got[2].Tasks[0].Title = "hacked"
	current, _ := s.Task(created.ID)
	assert.Equal(t, "a", current.Title)

	unsubscribe()
	require.NoError(t, s.Delete(ctx, created.ID))
	assert.Len(t, got, 3)
}

// TestTaskStore_StreakScenario тестирует квалификацию дня через команды
func TestTaskStore_StreakScenario(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newStore(t)

	a, err := s.Create(ctx, todayAt(clock, "12:00"))
	require.NoError(t, err)
	b, err := s.Create(ctx, todayAt(clock, "18:00"))
	require.NoError(t, err)

	_, err = s.ToggleCompleted(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Snapshot().Streak.Current)

	_, err = s.ToggleCompleted(ctx, b.ID)
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Streak.Current)
	assert.Contains(t, snap.Streak.QualifyingDays, "2026-10-18")

	_, err = s.Create(ctx, todayAt(clock, "20:00"))
	require.NoError(t, err)
	snap = s.Snapshot()
	assert.NotContains(t, snap.Streak.QualifyingDays, "2026-10-18")
	assert.Equal(t, 0, snap.Streak.Current)
	assert.Equal(t, 1, snap.Streak.Longest)
}

// TestTaskStore_Refresh тестирует пересчёт после смены дня
func TestTaskStore_Refresh(t *testing.T) {
	ctx := context.Background()
	s, kv, clock := newStore(t)

	a, err := s.Create(ctx, todayAt(clock, "12:00"))
	require.NoError(t, err)
	_, err = s.ToggleCompleted(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 1, s.Snapshot().Streak.Current)

	assert.False(t, s.Refresh(ctx), "в тот же день ничего не меняется")

	// следующий день: вчерашний день ещё держит серию
	clock.Advance(24 * time.Hour)
	assert.True(t, s.Refresh(ctx))
	assert.Equal(t, 1, s.Snapshot().Streak.Current)

	// через день серия обрывается
	clock.Advance(24 * time.Hour)
	assert.True(t, s.Refresh(ctx))
	assert.Equal(t, 0, s.Snapshot().Streak.Current)
	assert.Equal(t, 1, s.Snapshot().Streak.Longest)

	raw, err := kv.Get(ctx, repository.KeyStreak)
	require.NoError(t, err)
	var info progress.StreakInfo
	require.NoError(t, json.Unmarshal(raw, &info))
	assert.Equal(t, 0, info.Current)
}

// TestTaskStore_UpdateSettings тестирует настройки
func TestTaskStore_UpdateSettings(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newStore(t)

	next, err := s.UpdateSettings(ctx, settings.WithReminderLead(30), settings.WithTheme(settings.ThemeDark))
	require.NoError(t, err)
	assert.Equal(t, 30, next.Notifications.ReminderLeadMinutes)
	assert.Equal(t, next, s.Snapshot().Settings)

	_, err = kv.Get(ctx, repository.KeySettings)
	assert.NoError(t, err)
	_, err = kv.Get(ctx, repository.KeyTasks)
	assert.ErrorIs(t, err, repository.ErrNotFound, "задачи не менялись")

	_, err = s.UpdateSettings(ctx, settings.WithReminderLead(-1))
	assert.True(t, store.IsValidation(err))
	assert.Equal(t, 30, s.Snapshot().Settings.Notifications.ReminderLeadMinutes)
}

// TestTaskStore_LoadRehydrates тестирует загрузку снапшота с датами
func TestTaskStore_LoadRehydrates(t *testing.T) {
	ctx := context.Background()
	kv := inmemory.NewStorage()
	id := uuid.New()

	require.NoError(t, kv.Set(ctx, repository.KeyTasks, []byte(`[
		{"id":"`+id.String()+`","title":"loaded","completed":true,"priority":"high",
		 "dueDate":"2026-10-17T18:00:00Z","createdAt":"2026-10-16T10:00:00Z","updatedAt":"2026-10-17T12:00:00Z"},
		{"id":"`+id.String()+`","title":"duplicate"},
		{"title":"no id"}
	]`)))
	require.NoError(t, kv.Set(ctx, repository.KeySettings, []byte(`{"notifications":{"enabled":false,"soundEnabled":true,"reminderLeadMinutes":5},"theme":"dark","language":"ru"}`)))
	require.NoError(t, kv.Set(ctx, repository.KeyStreak, []byte(`{"current":1,"longest":7,"qualifyingDays":["2026-10-17"]}`)))
	require.NoError(t, kv.Set(ctx, repository.KeyStats, []byte(`{"totalTasks":999}`)))

	clock := newClock()
	s, err := store.New(ctx, kv, store.WithClock(clock.Now), store.WithLocation(time.UTC))
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Tasks, 1)
	loaded := snap.Tasks[0]
	assert.Equal(t, "loaded", loaded.Title)
	require.NotNil(t, loaded.DueDate)
	assert.True(t, loaded.DueDate.Equal(time.Date(2026, 10, 17, 18, 0, 0, 0, time.UTC)))
	require.NotNil(t, loaded.CompletedAt)

	assert.False(t, snap.Settings.Notifications.Enabled)
	assert.Equal(t, "ru", snap.Settings.Language)
	assert.Equal(t, 1, snap.Stats.TotalTasks, "stats пересчитан, а не прочитан")
	assert.Equal(t, 1, snap.Streak.Current)
	assert.Equal(t, 7, snap.Streak.Longest)
}

// TestTaskStore_LoadMalformed тестирует отбрасывание испорченных записей
func TestTaskStore_LoadMalformed(t *testing.T) {
	ctx := context.Background()
	kv := inmemory.NewStorage()
	require.NoError(t, kv.Set(ctx, repository.KeyTasks, []byte(`{not json`)))
	require.NoError(t, kv.Set(ctx, repository.KeySettings, []byte(`{"theme":"neon","language":"en"}`)))
	require.NoError(t, kv.Set(ctx, repository.KeyStreak, []byte(`{"current":-4,"longest":2}`)))

	s, err := store.New(ctx, kv, store.WithLocation(time.UTC))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Empty(t, snap.Tasks)
	assert.Equal(t, settings.Default(), snap.Settings)
	assert.Equal(t, 0, snap.Streak.Current)
	assert.Equal(t, 0, snap.Streak.Longest)
}

// TestTaskStore_PersistenceFailure тестирует, что ошибка записи не откатывает коммит
func TestTaskStore_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	kv := new(MockKV)
	kv.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("disk unavailable"))
	kv.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	s, err := store.New(ctx, kv)
	require.NoError(t, err)

	created, err := s.Create(ctx, task.Draft{Title: "still here"})
	require.NoError(t, err)

	current, ok := s.Task(created.ID)
	require.True(t, ok)
	assert.Equal(t, "still here", current.Title)
	kv.AssertCalled(t, "Set", mock.Anything, repository.KeyTasks, mock.Anything)
}

// TestTaskStore_Dispatch тестирует действия из уведомлений
func TestTaskStore_Dispatch(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	created, err := s.Create(ctx, task.Draft{Title: "a"})
	require.NoError(t, err)

	require.NoError(t, s.Dispatch(ctx, store.Action{Kind: store.ActionComplete, TaskID: created.ID}))
	current, _ := s.Task(created.ID)
	assert.True(t, current.Completed)

	// повторное complete ничего не меняет
	version := s.Snapshot().Version
	require.NoError(t, s.Dispatch(ctx, store.Action{Kind: store.ActionComplete, TaskID: created.ID}))
	assert.Equal(t, version, s.Snapshot().Version)

	require.NoError(t, s.Dispatch(ctx, store.Action{Kind: store.ActionToggle, TaskID: created.ID}))
	current, _ = s.Task(created.ID)
	assert.False(t, current.Completed)

	assert.True(t, store.IsNotFound(s.Dispatch(ctx, store.Action{Kind: store.ActionComplete, TaskID: uuid.New()})))
	assert.True(t, store.IsValidation(s.Dispatch(ctx, store.Action{Kind: "snooze", TaskID: created.ID})))
}

// TestTaskStore_ServeActions тестирует обработку канала действий
func TestTaskStore_ServeActions(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	created, err := s.Create(ctx, task.Draft{Title: "a"})
	require.NoError(t, err)

	actions := make(chan store.Action, 2)
	actions <- store.Action{Kind: store.ActionComplete, TaskID: uuid.New()}
	actions <- store.Action{Kind: store.ActionComplete, TaskID: created.ID}
	close(actions)

	s.ServeActions(ctx, actions)

	current, _ := s.Task(created.ID)
	assert.True(t, current.Completed)
}

// TestTaskStore_ConcurrentCommands тестирует сериализацию команд
func TestTaskStore_ConcurrentCommands(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	var versions []uint64
	s.Subscribe(func(snap store.Snapshot) {
		versions = append(versions, snap.Version)
		assert.Equal(t, len(snap.Tasks), snap.Stats.TotalTasks)
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := s.Create(ctx, task.Draft{Title: "t"})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.Snapshot().Tasks, 100)
	require.Len(t, versions, 101)
	for i := 1; i < len(versions); i++ {
		assert.Equal(t, versions[i-1]+1, versions[i])
	}
}
