package store

import (
	"context"
	"fmt"
	"streakTracker/internal/logger"
	"streakTracker/internal/models/task"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ActionKind string

const ActionComplete ActionKind = "complete"
const ActionToggle ActionKind = "toggle"

// Action - команда, пришедшая не от пользователя напрямую,
// а например из кнопки в уведомлении
type Action struct {
	Kind   ActionKind `json:"action"`
	TaskID uuid.UUID  `json:"taskId"`
}

// Dispatch проводит действие через обычный путь команд
func (s *TaskStore) Dispatch(ctx context.Context, action Action) error {
	switch action.Kind {
	case ActionComplete:
		s.mtx.Lock()
		defer s.mtx.Unlock()

		idx := s.indexOf(action.TaskID)
		if idx < 0 {
			return NewNotFound(action.TaskID.String())
		}
		if s.tasks[idx].Completed {
			return nil
		}
		_, err := s.modify(ctx, action.TaskID, func(t *task.Task, now time.Time) error {
			t.SetCompleted(true, now)
			return nil
		})
		return err
	case ActionToggle:
		_, err := s.ToggleCompleted(ctx, action.TaskID)
		return err
	default:
		return NewValidationError("action", fmt.Sprintf("неизвестное действие %q", action.Kind))
	}
}

// ServeActions читает действия из канала до закрытия канала или отмены ctx
func (s *TaskStore) ServeActions(ctx context.Context, actions <-chan Action) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Store: Обработка действий остановлена")
			return
		case action, ok := <-actions:
			if !ok {
				return
			}
			if err := s.Dispatch(ctx, action); err != nil {
				logger.Warn("Store: Действие не выполнено",
					zap.String("action", string(action.Kind)),
					zap.String("task_id", action.TaskID.String()),
					zap.Error(err))
			}
		}
	}
}
