package dto

import (
	"streakTracker/internal/models/settings"
	"streakTracker/internal/models/task"
	"time"

	"github.com/google/uuid"
)

// CreateTaskRequest - черновик задачи от формы или распознанной речи
type CreateTaskRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    task.Priority `json:"priority"`
	DueDate     string        `json:"dueDate"`
	DueTime     string        `json:"dueTime"`
}

func (r CreateTaskRequest) Draft() task.Draft {
	return task.Draft{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		DueDate:     r.DueDate,
		DueTime:     r.DueTime,
	}
}

// UpdateTaskRequest - частичное обновление, nil поля не меняются
type UpdateTaskRequest struct {
	Title        *string        `json:"title,omitempty"`
	Description  *string        `json:"description,omitempty"`
	Priority     *task.Priority `json:"priority,omitempty"`
	DueDate      *string        `json:"dueDate,omitempty"`
	DueTime      *string        `json:"dueTime,omitempty"`
	ClearDueDate bool           `json:"clearDueDate,omitempty"`
	Completed    *bool          `json:"completed,omitempty"`
}

// Options переводит запрос в опции стора. Только дата или только время
// меняют свою половину дедлайна, склейка происходит в сторе.
func (r UpdateTaskRequest) Options(now time.Time) ([]task.TaskOption, error) {
	var opts []task.TaskOption
	if r.Title != nil {
		opts = append(opts, task.WithTitle(*r.Title))
	}
	if r.Description != nil {
		opts = append(opts, task.WithDescription(*r.Description))
	}
	if r.Priority != nil {
		opts = append(opts, task.WithPriority(*r.Priority))
	}

	switch {
	case r.ClearDueDate:
		opts = append(opts, task.WithoutDueDate())
	case r.DueDate != nil || r.DueTime != nil:
		draft := task.Draft{}
		if r.DueDate != nil {
			draft.DueDate = *r.DueDate
		}
		if r.DueTime != nil {
			draft.DueTime = *r.DueTime
		}
		due, err := draft.Options(now)
		if err != nil {
			return nil, err
		}
		opts = append(opts, due...)
	}

	if r.Completed != nil {
		opts = append(opts, task.WithCompleted(*r.Completed, now))
	}
	return opts, nil
}

func (r UpdateTaskRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Priority == nil &&
		r.DueDate == nil && r.DueTime == nil && !r.ClearDueDate && r.Completed == nil
}

type UpdateNotificationsRequest struct {
	Enabled             *bool `json:"enabled,omitempty"`
	SoundEnabled        *bool `json:"soundEnabled,omitempty"`
	ReminderLeadMinutes *int  `json:"reminderLeadMinutes,omitempty"`
}

type UpdateSettingsRequest struct {
	Notifications *UpdateNotificationsRequest `json:"notifications,omitempty"`
	Theme         *settings.Theme             `json:"theme,omitempty"`
	Language      *string                     `json:"language,omitempty"`
}

func (r UpdateSettingsRequest) Options() []settings.Option {
	var opts []settings.Option
	if n := r.Notifications; n != nil {
		if n.Enabled != nil {
			opts = append(opts, settings.WithNotificationsEnabled(*n.Enabled))
		}
		if n.SoundEnabled != nil {
			opts = append(opts, settings.WithSoundEnabled(*n.SoundEnabled))
		}
		if n.ReminderLeadMinutes != nil {
			opts = append(opts, settings.WithReminderLead(*n.ReminderLeadMinutes))
		}
	}
	if r.Theme != nil {
		opts = append(opts, settings.WithTheme(*r.Theme))
	}
	if r.Language != nil {
		opts = append(opts, settings.WithLanguage(*r.Language))
	}
	return opts
}

type TaskResponse struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Completed   bool          `json:"completed"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	Priority    task.Priority `json:"priority"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	IsOverdue   bool          `json:"isOverdue"`
	DueToday    bool          `json:"dueToday"`
}

func FromTask(t task.Task, now time.Time) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		IsOverdue:   !t.Completed && t.DueDate != nil && t.DueDate.Before(now),
		DueToday:    t.DueOn(now),
	}
}

func FromTaskList(tasks []task.Task, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, now)
	}
	return result
}
