// Package notify holds the host notification capabilities the reminder
// scheduler talks to. A host without notification support gets Noop.
package notify

import (
	"context"
	"streakTracker/internal/logger"
	"streakTracker/internal/models/task"

	"go.uber.org/zap"
)

type Sink interface {
	// RequestPermission может блокироваться, планировщик вызывает его в горутине
	RequestPermission(ctx context.Context) (bool, error)
	Display(ctx context.Context, t task.Task) error
	PlaySound(ctx context.Context) error
}

// Noop - хост без уведомлений: разрешения нет, звук глушится
type Noop struct{}

func (Noop) RequestPermission(ctx context.Context) (bool, error) {
	return false, nil
}

func (Noop) Display(ctx context.Context, t task.Task) error {
	return nil
}

func (Noop) PlaySound(ctx context.Context) error {
	return nil
}

// LogSink пишет напоминания в лог, удобно для запуска без фронтенда
type LogSink struct{}

func (LogSink) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

func (LogSink) Display(ctx context.Context, t task.Task) error {
	fields := []zap.Field{
		zap.String("task_id", t.ID.String()),
		zap.String("title", t.Title),
	}
	if t.DueDate != nil {
		fields = append(fields, zap.Time("due_date", *t.DueDate))
	}
	logger.Info("Notify: Напоминание", fields...)
	return nil
}

func (LogSink) PlaySound(ctx context.Context) error {
	logger.Info("Notify: Звуковой сигнал")
	return nil
}

var _ Sink = Noop{}
var _ Sink = LogSink{}
