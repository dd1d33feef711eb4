package handlers

import (
	"context"
	"streakTracker/internal/models/settings"
	"streakTracker/internal/models/task"
	"streakTracker/internal/reminder"
	"streakTracker/internal/store"

	"github.com/google/uuid"
)

type TaskStore interface {
	Snapshot() store.Snapshot
	Create(ctx context.Context, draft task.Draft) (task.Task, error)
	Update(ctx context.Context, id uuid.UUID, options ...task.TaskOption) (task.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ToggleCompleted(ctx context.Context, id uuid.UUID) (task.Task, error)
	UpdateSettings(ctx context.Context, options ...settings.Option) (settings.Settings, error)
}

type Reminders interface {
	Armed() []reminder.Reminder
	Permission() reminder.Permission
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

var _ TaskStore = (*store.TaskStore)(nil)
var _ Reminders = (*reminder.Scheduler)(nil)
