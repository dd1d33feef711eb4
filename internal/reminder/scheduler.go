// Package reminder arms one single-shot timer per eligible task and keeps the
// timer table in step with the task store.
//
// Every snapshot triggers a full resync: all armed timers are cancelled and
// the table is rebuilt from the snapshot. Each rebuild bumps a generation
// number; a timer callback whose generation no longer matches its entry is
// ignored. A callback that was already running when its timer was cancelled
// keeps its entry only while the task is still pending with a due date.
package reminder

import (
	"context"
	"sort"
	"streakTracker/internal/logger"
	"streakTracker/internal/models/task"
	"streakTracker/internal/notify"
	"streakTracker/internal/store"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Timer interface {
	Stop() bool
}

// TimerFunc запускает f через d. Реализация не должна вызывать f синхронно.
type TimerFunc func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Permission int32

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	}
	return "unknown"
}

type Reminder struct {
	TaskID  uuid.UUID `json:"taskId"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"dueDate"`
	FireAt  time.Time `json:"fireAt"`
}

type entry struct {
	reminder   Reminder
	task       task.Task
	timer      Timer
	generation uint64
}

type Option func(*Scheduler)

func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func WithTimerFunc(fn TimerFunc) Option {
	return func(s *Scheduler) {
		s.afterFunc = fn
	}
}

type Scheduler struct {
	sink      notify.Sink
	clock     func() time.Time
	afterFunc TimerFunc

	mtx        sync.Mutex
	timers     map[uuid.UUID]*entry
	fired      map[uuid.UUID]time.Time
	generation uint64
	sound      bool
	stopped    bool

	permission atomic.Int32
	asked      atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(sink notify.Sink, options ...Option) *Scheduler {
	if sink == nil {
		sink = notify.Noop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		sink:      sink,
		clock:     time.Now,
		afterFunc: afterFunc,
		timers:    make(map[uuid.UUID]*entry),
		fired:     make(map[uuid.UUID]time.Time),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Resync отменяет все таймеры и заново ставит их по снапшоту.
// Вызывается внутри коммита стора, поэтому не блокируется на синке.
func (s *Scheduler) Resync(snap store.Snapshot) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.stopped {
		return
	}

	s.generation++
	// Stop == false: колбэк уже запущен и ждёт mtx
	running := make(map[uuid.UUID]*entry)
	for id, e := range s.timers {
		if !e.timer.Stop() {
			running[id] = e
		}
	}
	s.timers = make(map[uuid.UUID]*entry, len(s.timers))

	cfg := snap.Settings.Notifications
	s.sound = cfg.SoundEnabled
	if !cfg.Enabled {
		s.fired = make(map[uuid.UUID]time.Time)
		logger.Debug("Scheduler: Уведомления выключены, таймеры сняты", zap.Uint64("version", snap.Version))
		return
	}
	s.requestPermission()

	now := s.clock()
	lead := time.Duration(cfg.ReminderLeadMinutes) * time.Minute
	present := make(map[uuid.UUID]struct{}, len(snap.Tasks))
	eligible := make(map[uuid.UUID]struct{}, len(snap.Tasks))

	for _, t := range snap.Tasks {
		present[t.ID] = struct{}{}
		if t.Completed || t.DueDate == nil {
			continue
		}
		eligible[t.ID] = struct{}{}

		fireAt := t.DueDate.Add(-lead)
		if !fireAt.After(now) {
			continue
		}
		// уже показанное напоминание с тем же временем не повторяем
		if last, ok := s.fired[t.ID]; ok && last.Equal(fireAt) {
			continue
		}

		s.arm(t, fireAt, now)
	}

	// сработавший таймер доставит напоминание, если задача всё ещё его ждёт
	for id, e := range running {
		if _, armed := s.timers[id]; armed {
			continue
		}
		if _, ok := eligible[id]; ok {
			s.timers[id] = e
		}
	}

	for id := range s.fired {
		if _, ok := present[id]; !ok {
			delete(s.fired, id)
		}
	}

	logger.Debug("Scheduler: Пересинхронизация",
		zap.Uint64("version", snap.Version),
		zap.Uint64("generation", s.generation),
		zap.Int("armed", len(s.timers)))
}

// arm вызывается под mtx
func (s *Scheduler) arm(t task.Task, fireAt, now time.Time) {
	id := t.ID
	generation := s.generation

	e := &entry{
		reminder: Reminder{
			TaskID:  id,
			Title:   t.Title,
			DueDate: *t.DueDate,
			FireAt:  fireAt,
		},
		task:       t.Clone(),
		generation: generation,
	}
	e.timer = s.afterFunc(fireAt.Sub(now), func() {
		s.fire(id, generation)
	})
	s.timers[id] = e
}

func (s *Scheduler) fire(id uuid.UUID, generation uint64) {
	s.mtx.Lock()
	e, ok := s.timers[id]
	if s.stopped || !ok || e.generation != generation {
		s.mtx.Unlock()
		logger.Debug("Scheduler: Устаревший таймер пропущен", zap.String("task_id", id.String()))
		return
	}
	delete(s.timers, id)
	s.fired[id] = e.reminder.FireAt
	sound := s.sound
	s.mtx.Unlock()

	logger.Info("Scheduler: Напоминание",
		zap.String("task_id", id.String()),
		zap.Time("fire_at", e.reminder.FireAt))

	if s.Permission() == PermissionGranted {
		if err := s.sink.Display(s.ctx, e.task); err != nil {
			logger.Error("Scheduler: Ошибка показа уведомления", err, zap.String("task_id", id.String()))
		}
	} else {
		logger.Debug("Scheduler: Нет разрешения на показ", zap.String("task_id", id.String()))
	}

	if sound {
		if err := s.sink.PlaySound(s.ctx); err != nil {
			logger.Error("Scheduler: Ошибка звукового сигнала", err)
		}
	}
}

// requestPermission запрашивает разрешение один раз, не блокируя вызывающего
func (s *Scheduler) requestPermission() {
	if !s.asked.CompareAndSwap(false, true) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		granted, err := s.sink.RequestPermission(s.ctx)
		if err != nil {
			logger.Warn("Scheduler: Запрос разрешения не удался", zap.Error(err))
			granted = false
		}

		result := PermissionDenied
		if granted {
			result = PermissionGranted
		}
		s.permission.Store(int32(result))
		logger.Info("Scheduler: Разрешение на уведомления", zap.String("permission", result.String()))
	}()
}

func (s *Scheduler) Permission() Permission {
	return Permission(s.permission.Load())
}

// Armed возвращает взведённые напоминания по времени срабатывания
func (s *Scheduler) Armed() []Reminder {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	res := make([]Reminder, 0, len(s.timers))
	for _, e := range s.timers {
		res = append(res, e.reminder)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].FireAt.Equal(res[j].FireAt) {
			return res[i].TaskID.String() < res[j].TaskID.String()
		}
		return res[i].FireAt.Before(res[j].FireAt)
	})
	return res
}

// Stop снимает все таймеры и ждёт запроса разрешения. Повторный Resync ничего не делает.
func (s *Scheduler) Stop() {
	s.mtx.Lock()
	if !s.stopped {
		s.stopped = true
		for _, e := range s.timers {
			e.timer.Stop()
		}
		s.timers = make(map[uuid.UUID]*entry)
		logger.Info("Scheduler: Остановлен")
	}
	s.mtx.Unlock()

	s.cancel()
	s.wg.Wait()
}
