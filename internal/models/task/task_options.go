package task

import (
	"strings"
	"time"
)

// TaskOption - частичное обновление задачи, применяется к копии внутри стора
type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	return func(task *Task) {
		task.Title = strings.TrimSpace(title)
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = description
	}
}

func WithPriority(priority Priority) TaskOption {
	if priority == "" {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithDueDate(dueDate time.Time) TaskOption {
	if dueDate.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.DueDate = &dueDate
	}
}

// WithDueDay переносит дедлайн на day, сохраняя время. Без дедлайна - конец дня.
func WithDueDay(day time.Time) TaskOption {
	return func(task *Task) {
		loc := day.Location()
		hour, minute, sec := 23, 59, 59
		if task.DueDate != nil {
			hour, minute, sec = task.DueDate.In(loc).Clock()
		}
		y, m, d := day.Date()
		due := time.Date(y, m, d, hour, minute, sec, 0, loc)
		task.DueDate = &due
	}
}

// WithDueClock меняет время дедлайна, сохраняя день. Без дедлайна - день today.
func WithDueClock(hour, minute int, today time.Time) TaskOption {
	return func(task *Task) {
		loc := today.Location()
		day := today
		if task.DueDate != nil {
			day = task.DueDate.In(loc)
		}
		y, m, d := day.Date()
		due := time.Date(y, m, d, hour, minute, 0, 0, loc)
		task.DueDate = &due
	}
}

func WithoutDueDate() TaskOption {
	return func(task *Task) {
		task.DueDate = nil
	}
}

func WithCompleted(completed bool, at time.Time) TaskOption {
	return func(task *Task) {
		task.SetCompleted(completed, at)
	}
}

// SetCompleted держит CompletedAt согласованным с флагом
func (t *Task) SetCompleted(completed bool, at time.Time) {
	if t.Completed == completed {
		return
	}
	t.Completed = completed
	if completed {
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
}

// Apply применяет опции, пропуская nil (их возвращают конструкторы на пустых значениях)
func (t *Task) Apply(options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}
