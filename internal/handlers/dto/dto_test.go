package dto

import (
	"streakTracker/internal/models/settings"
	"streakTracker/internal/models/task"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

// TestUpdateTaskRequest_Options тестирует перевод запроса в опции
func TestUpdateTaskRequest_Options(t *testing.T) {
	due := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)
	base := task.Task{ID: uuid.New(), Title: "old", Priority: task.PriorityLow, DueDate: &due}

	tests := []struct {
		name    string
		request UpdateTaskRequest
		undated bool
		check   func(t *testing.T, got task.Task)
		wantErr bool
	}{
		{
			name:    "title and priority",
			request: UpdateTaskRequest{Title: ptr("new"), Priority: ptr(task.PriorityHigh)},
			check: func(t *testing.T, got task.Task) {
				assert.Equal(t, "new", got.Title)
				assert.Equal(t, task.PriorityHigh, got.Priority)
				assert.Equal(t, due, *got.DueDate)
			},
		},
		{
			name:    "date only keeps time",
			request: UpdateTaskRequest{DueDate: ptr("2026-11-01")},
			check: func(t *testing.T, got task.Task) {
				assert.Equal(t, time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC), *got.DueDate)
			},
		},
		{
			name:    "time only keeps date",
			request: UpdateTaskRequest{DueTime: ptr("18:30")},
			check: func(t *testing.T, got task.Task) {
				assert.Equal(t, time.Date(2026, 10, 20, 18, 30, 0, 0, time.UTC), *got.DueDate)
			},
		},
		{
			name:    "date only without due date is end of day",
			request: UpdateTaskRequest{DueDate: ptr("2026-11-01")},
			undated: true,
			check: func(t *testing.T, got task.Task) {
				assert.Equal(t, time.Date(2026, 11, 1, 23, 59, 59, 0, time.UTC), *got.DueDate)
			},
		},
		{
			name:    "time only without due date is today",
			request: UpdateTaskRequest{DueTime: ptr("18:30")},
			undated: true,
			check: func(t *testing.T, got task.Task) {
				assert.Equal(t, time.Date(2026, 10, 18, 18, 30, 0, 0, time.UTC), *got.DueDate)
			},
		},
		{
			name:    "date and time together",
			request: UpdateTaskRequest{DueDate: ptr("2026-11-01"), DueTime: ptr("07:15")},
			check: func(t *testing.T, got task.Task) {
				assert.Equal(t, time.Date(2026, 11, 1, 7, 15, 0, 0, time.UTC), *got.DueDate)
			},
		},
		{
			name:    "clear wins over date",
			request: UpdateTaskRequest{ClearDueDate: true, DueDate: ptr("2026-11-01")},
			check: func(t *testing.T, got task.Task) {
				assert.Nil(t, got.DueDate)
			},
		},
		{
			name:    "complete",
			request: UpdateTaskRequest{Completed: ptr(true)},
			check: func(t *testing.T, got task.Task) {
				assert.True(t, got.Completed)
				require.NotNil(t, got.CompletedAt)
				assert.Equal(t, now, *got.CompletedAt)
			},
		},
		{
			name:    "bad time",
			request: UpdateTaskRequest{DueTime: ptr("25:99")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options, err := tt.request.Options(now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			got := base.Clone()
			if tt.undated {
				got.DueDate = nil
			}
			got.Apply(options...)
			tt.check(t, got)
		})
	}
}

// TestUpdateTaskRequest_Empty тестирует пустой патч
func TestUpdateTaskRequest_Empty(t *testing.T) {
	assert.True(t, UpdateTaskRequest{}.Empty())
	assert.False(t, UpdateTaskRequest{ClearDueDate: true}.Empty())
	assert.False(t, UpdateTaskRequest{Completed: ptr(false)}.Empty())
}

// TestUpdateSettingsRequest_Options тестирует частичные настройки
func TestUpdateSettingsRequest_Options(t *testing.T) {
	request := UpdateSettingsRequest{
		Notifications: &UpdateNotificationsRequest{SoundEnabled: ptr(false)},
		Theme:         ptr(settings.Theme("dark")),
	}

	cfg := settings.Default()
	cfg.Apply(request.Options()...)

	assert.False(t, cfg.Notifications.SoundEnabled)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, 15, cfg.Notifications.ReminderLeadMinutes)
	assert.Equal(t, settings.Theme("dark"), cfg.Theme)
	assert.Empty(t, UpdateSettingsRequest{}.Options())
}

// TestFromTask тестирует флаги просрочки и сегодняшнего дедлайна
func TestFromTask(t *testing.T) {
	earlier := now.Add(-time.Hour)
	later := now.Add(3 * time.Hour)

	overdue := FromTask(task.Task{Title: "a", DueDate: &earlier}, now)
	assert.True(t, overdue.IsOverdue)
	assert.True(t, overdue.DueToday)

	done := FromTask(task.Task{Title: "b", DueDate: &earlier, Completed: true}, now)
	assert.False(t, done.IsOverdue)

	upcoming := FromTask(task.Task{Title: "c", DueDate: &later}, now)
	assert.False(t, upcoming.IsOverdue)
	assert.True(t, upcoming.DueToday)

	assert.False(t, FromTask(task.Task{Title: "d"}, now).DueToday)
	assert.Len(t, FromTaskList([]task.Task{{}, {}}, now), 2)
}
