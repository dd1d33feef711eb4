// Package store owns the canonical task list and settings.
//
// Every command runs under a single mutex: the mutation is applied to a copy,
// validated, swapped in, then stats and streak are recomputed and a new
// immutable Snapshot is handed to every subscriber before the lock is released.
// Subscribers therefore never see a task list paired with stale derived state.
// Subscribers must not issue commands from the callback; use Actions instead.
package store

import (
	"context"
	"errors"
	"streakTracker/internal/logger"
	"streakTracker/internal/models/progress"
	"streakTracker/internal/models/settings"
	"streakTracker/internal/models/task"
	"streakTracker/internal/repository"
	"streakTracker/internal/stats"
	"streakTracker/internal/streak"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Snapshot - неизменяемое состояние после коммита
type Snapshot struct {
	Version  uint64              `json:"version"`
	At       time.Time           `json:"at"`
	Tasks    []task.Task         `json:"tasks"`
	Settings settings.Settings   `json:"settings"`
	Stats    progress.UserStats  `json:"stats"`
	Streak   progress.StreakInfo `json:"streak"`
}

// Clone отдаёт независимую копию, которую получатель может менять
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Tasks = make([]task.Task, len(s.Tasks))
	for i, t := range s.Tasks {
		c.Tasks[i] = t.Clone()
	}
	c.Stats.CreatedPerDay = copyCounts(s.Stats.CreatedPerDay)
	c.Stats.CompletedPerWeek = copyCounts(s.Stats.CompletedPerWeek)
	c.Streak = s.Streak.Clone()
	return c
}

func copyCounts(src map[string]int) map[string]int {
	if src == nil {
		return nil
	}
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (s Snapshot) Task(id uuid.UUID) (task.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return task.Task{}, false
}

type Option func(*TaskStore)

func WithClock(clock func() time.Time) Option {
	return func(s *TaskStore) {
		s.clock = clock
	}
}

// WithLocation задаёт часовой пояс, по которому режутся дни
func WithLocation(loc *time.Location) Option {
	return func(s *TaskStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}

type TaskStore struct {
	mtx      sync.Mutex
	kv       repository.Store
	clock    func() time.Time
	loc      *time.Location
	tasks    []task.Task
	settings settings.Settings
	streak   progress.StreakInfo
	version  uint64
	current  atomic.Pointer[Snapshot]

	subs    map[int]func(Snapshot)
	subSeq  int
	subKeys []int
}

// New загружает снапшот из хранилища и публикует начальное состояние.
// Ошибки чтения и испорченные записи не мешают старту.
func New(ctx context.Context, kv repository.Store, options ...Option) (*TaskStore, error) {
	if kv == nil {
		return nil, errors.New("store: не задано хранилище")
	}

	s := &TaskStore{
		kv:       kv,
		clock:    time.Now,
		loc:      time.Local,
		settings: settings.Default(),
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range options {
		opt(s)
	}

	s.load(ctx)

	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.publish(ctx, s.tasks, s.settings, 0)

	logger.Info("Store: Состояние загружено",
		zap.Int("tasks", len(s.tasks)),
		zap.Int("streak", s.streak.Current))
	return s, nil
}

// Snapshot возвращает последний опубликованный снапшот
func (s *TaskStore) Snapshot() Snapshot {
	return s.current.Load().Clone()
}

func (s *TaskStore) Task(id uuid.UUID) (task.Task, bool) {
	return s.Snapshot().Task(id)
}

// Subscribe сразу отдаёт текущий снапшот, затем каждый следующий.
// Вызовы идут синхронно внутри коммита в порядке подписки.
func (s *TaskStore) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.subSeq++
	key := s.subSeq
	s.subs[key] = fn
	s.subKeys = append(s.subKeys, key)
	fn(s.current.Load().Clone())

	return func() {
		s.mtx.Lock()
		defer s.mtx.Unlock()
		delete(s.subs, key)
		for i, k := range s.subKeys {
			if k == key {
				s.subKeys = append(s.subKeys[:i], s.subKeys[i+1:]...)
				break
			}
		}
	}
}

func (s *TaskStore) Create(ctx context.Context, draft task.Draft) (task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	now := s.now()

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return task.Task{}, NewValidationError("title", "название не может быть пустым")
	}

	priority := draft.Priority.OrDefault()
	if !priority.Valid() {
		return task.Task{}, NewValidationError("priority", "допустимо low, medium или high")
	}

	due, err := draft.DueAt(now)
	if err != nil {
		verr := NewValidationError("dueDate", "неверный формат даты или времени")
		verr.Err = err
		return task.Task{}, verr
	}
	if due != nil && due.Before(now) {
		return task.Task{}, NewValidationError("dueDate", "дедлайн не может быть в прошлом")
	}

	created := task.Task{
		ID:          s.newID(),
		Title:       title,
		Description: draft.Description,
		Priority:    priority,
		DueDate:     due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	next := s.cloneTasks(len(s.tasks) + 1)
	next = append(next, created)
	s.publish(ctx, next, s.settings, sliceTasks)

	logger.Info("Store: Задача создана", zap.String("task_id", created.ID.String()))
	return created.Clone(), nil
}

// Update применяет частичное обновление. Дедлайн в прошлом здесь разрешён:
// запрет действует только при создании.
func (s *TaskStore) Update(ctx context.Context, id uuid.UUID, options ...task.TaskOption) (task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.modify(ctx, id, func(t *task.Task, now time.Time) error {
		t.Apply(options...)
		if strings.TrimSpace(t.Title) == "" {
			return NewValidationError("title", "название не может быть пустым")
		}
		if !t.Priority.Valid() {
			return NewValidationError("priority", "допустимо low, medium или high")
		}
		return nil
	})
}

func (s *TaskStore) ToggleCompleted(ctx context.Context, id uuid.UUID) (task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.modify(ctx, id, func(t *task.Task, now time.Time) error {
		t.SetCompleted(!t.Completed, now)
		return nil
	})
}

// Delete идемпотентен: отсутствующий id - успех без нового снапшота
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		logger.Debug("Store: Удаление отсутствующей задачи", zap.String("task_id", id.String()))
		return nil
	}

	next := make([]task.Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:idx]...)
	next = append(next, s.tasks[idx+1:]...)
	s.publish(ctx, next, s.settings, sliceTasks)

	logger.Info("Store: Задача удалена", zap.String("task_id", id.String()))
	return nil
}

func (s *TaskStore) UpdateSettings(ctx context.Context, options ...settings.Option) (settings.Settings, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	next := s.settings
	next.Apply(options...)
	if err := next.Validate(); err != nil {
		verr := NewValidationError("settings", err.Error())
		verr.Err = err
		return s.settings, verr
	}

	s.publish(ctx, s.tasks, next, sliceSettings)
	logger.Info("Store: Настройки обновлены",
		zap.Bool("notifications", next.Notifications.Enabled),
		zap.Int("lead_minutes", next.Notifications.ReminderLeadMinutes))
	return next, nil
}

// Refresh пересчитывает серию без изменения задач, например после полуночи.
// Снапшот публикуется, только если что-то поменялось.
func (s *TaskStore) Refresh(ctx context.Context) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	now := s.now()
	prev := s.current.Load()
	next := streak.Compute(s.tasks, s.streak, now)
	if progress.DayKey(prev.At) == progress.DayKey(now) && sameStreak(prev.Streak, next) {
		return false
	}

	s.publish(ctx, s.tasks, s.settings, sliceDerived)
	logger.Info("Store: Пересчёт серии", zap.Int("current", next.Current), zap.Int("longest", next.Longest))
	return true
}

func (s *TaskStore) modify(ctx context.Context, id uuid.UUID, mutate func(*task.Task, time.Time) error) (task.Task, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return task.Task{}, NewNotFound(id.String())
	}

	now := s.now()
	original := s.tasks[idx]
	updated := original.Clone()
	if err := mutate(&updated, now); err != nil {
		return task.Task{}, err
	}

	updated.ID = original.ID
	updated.CreatedAt = original.CreatedAt
	updated.UpdatedAt = bump(original.UpdatedAt, now)

	next := s.cloneTasks(len(s.tasks))
	next[idx] = updated
	s.publish(ctx, next, s.settings, sliceTasks)

	logger.Info("Store: Задача обновлена", zap.String("task_id", id.String()))
	return updated.Clone(), nil
}

// publish вызывается под mtx
func (s *TaskStore) publish(ctx context.Context, tasks []task.Task, cfg settings.Settings, changed slice) {
	now := s.now()

	s.tasks = tasks
	s.settings = cfg
	s.streak = streak.Compute(tasks, s.streak, now)
	s.version++

	snap := Snapshot{
		Version:  s.version,
		At:       now,
		Tasks:    s.cloneTasks(len(tasks)),
		Settings: cfg,
		Stats:    stats.Compute(tasks, s.loc),
		Streak:   s.streak.Clone(),
	}
	s.current.Store(&snap)

	for _, key := range s.subKeys {
		s.subs[key](snap.Clone())
	}

	s.persist(ctx, snap, changed)
}

func (s *TaskStore) now() time.Time {
	return s.clock().In(s.loc)
}

func (s *TaskStore) indexOf(id uuid.UUID) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskStore) newID() uuid.UUID {
	for {
		id := uuid.New()
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

func (s *TaskStore) cloneTasks(capacity int) []task.Task {
	res := make([]task.Task, len(s.tasks), capacity)
	for i, t := range s.tasks {
		res[i] = t.Clone()
	}
	return res
}

// bump гарантирует строгий рост updatedAt даже при одинаковых часах
func bump(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Nanosecond)
}

func sameStreak(a, b progress.StreakInfo) bool {
	if a.Current != b.Current || a.Longest != b.Longest || len(a.QualifyingDays) != len(b.QualifyingDays) {
		return false
	}
	for i := range a.QualifyingDays {
		if a.QualifyingDays[i] != b.QualifyingDays[i] {
			return false
		}
	}
	return true
}
