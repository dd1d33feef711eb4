package store

import (
	"context"
	"encoding/json"
	"errors"
	"streakTracker/internal/logger"
	"streakTracker/internal/models/progress"
	"streakTracker/internal/models/settings"
	"streakTracker/internal/models/task"
	"streakTracker/internal/repository"
	"streakTracker/internal/streak"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// slice - какие части снапшота записывать после коммита
type slice uint8

const (
	sliceTasks slice = 1 << iota
	sliceSettings
	sliceDerived
)

// persist пишет изменённые части. Ошибки только логируются:
// состояние в памяти остаётся главным, следующая запись перекроет неудачную.
func (s *TaskStore) persist(ctx context.Context, snap Snapshot, changed slice) {
	if changed == 0 {
		return
	}
	if changed&sliceTasks != 0 {
		s.write(ctx, repository.KeyTasks, snap.Tasks)
		changed |= sliceDerived
	}
	if changed&sliceSettings != 0 {
		s.write(ctx, repository.KeySettings, snap.Settings)
	}
	if changed&sliceDerived != 0 {
		s.write(ctx, repository.KeyStats, snap.Stats)
		s.write(ctx, repository.KeyStreak, snap.Streak)
	}
}

func (s *TaskStore) write(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Error("Store: Ошибка сериализации", err, zap.String("key", key))
		return
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		logger.Error("Store: Ошибка сохранения, состояние в памяти сохранено", err, zap.String("key", key))
	}
}

// load читает снапшот. Испорченные записи отбрасываются,
// stats никогда не читается - он пересчитывается из задач.
func (s *TaskStore) load(ctx context.Context) {
	var tasks []task.Task
	if s.read(ctx, repository.KeyTasks, &tasks) {
		s.tasks = sanitizeTasks(tasks)
	}

	cfg := settings.Default()
	if s.read(ctx, repository.KeySettings, &cfg) {
		if err := cfg.Validate(); err != nil {
			logger.Warn("Store: Испорченные настройки отброшены", zap.Error(err))
		} else {
			s.settings = cfg
		}
	}

	var info progress.StreakInfo
	if s.read(ctx, repository.KeyStreak, &info) {
		if err := streak.Validate(info); err != nil {
			logger.Warn("Store: Испорченная серия отброшена", zap.Error(err))
		} else {
			s.streak = info
		}
	}
}

func (s *TaskStore) read(ctx context.Context, key string, dest any) bool {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Error("Store: Ошибка чтения, старт с пустым значением", err, zap.String("key", key))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.Warn("Store: Испорченная запись отброшена", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// sanitizeTasks выкидывает записи без id или названия и повторные id
func sanitizeTasks(tasks []task.Task) []task.Task {
	seen := make(map[uuid.UUID]struct{}, len(tasks))
	res := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == uuid.Nil || t.Title == "" {
			logger.Warn("Store: Задача без id или названия пропущена")
			continue
		}
		if _, ok := seen[t.ID]; ok {
			logger.Warn("Store: Повторный id пропущен", zap.String("task_id", t.ID.String()))
			continue
		}
		seen[t.ID] = struct{}{}
		t.Priority = t.Priority.OrDefault()
		if t.Completed && t.CompletedAt == nil {
			done := t.UpdatedAt
			t.CompletedAt = &done
		}
		res = append(res, t)
	}
	return res
}
