package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"streakTracker/internal/handlers/dto"
	"streakTracker/internal/logger"
	"streakTracker/internal/models/task"
	"streakTracker/internal/store"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const serviceName = "streak-tracker"

type TaskHandler struct {
	store     TaskStore
	reminders Reminders
	health    HealthChecker
	clock     func() time.Time
}

func NewTaskHandler(taskStore TaskStore, reminders Reminders, health HealthChecker) *TaskHandler {
	return &TaskHandler{
		store:     taskStore,
		reminders: reminders,
		health:    health,
		clock:     time.Now,
	}
}

// InLocation разбирает даты запросов в часовом поясе стора
func (h *TaskHandler) InLocation(loc *time.Location) *TaskHandler {
	h.clock = func() time.Time {
		return time.Now().In(loc)
	}
	return h
}

func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.GetTasks)  // GET /tasks?status=active|completed|overdue|today
		r.Post("/", h.PostTask) // POST /tasks

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTaskByID)       // GET /tasks/{id}
			r.Patch("/", h.UpdateTaskByID)  // PATCH /tasks/{id}
			r.Delete("/", h.DeleteTaskByID) // DELETE /tasks/{id}
			r.Post("/toggle", h.ToggleTask) // POST /tasks/{id}/toggle
		})
	})

	r.Get("/settings", h.GetSettings)
	r.Patch("/settings", h.UpdateSettings)
	r.Get("/stats", h.GetStats)
	r.Get("/streak", h.GetStreak)
	r.Get("/reminders", h.GetReminders)
	r.Get("/health", h.HealthCheck)

	return r
}

func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	now := h.clock()

	filter, ok := taskFilters[status]
	if !ok {
		logger.Warn("HTTP: Неверное значение параметра",
			zap.String("query", "status"),
			zap.String("value", status),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "status: допустимо active, completed, overdue или today")
		return
	}

	snap := h.store.Snapshot()
	tasks := make([]task.Task, 0, len(snap.Tasks))
	for _, t := range snap.Tasks {
		if filter(t, now) {
			tasks = append(tasks, t)
		}
	}
	sortTasks(tasks)

	responseWithJSON(w, http.StatusOK,
		toPayload("tasks", dto.FromTaskList(tasks, now)),
		toPayload("count", len(tasks)),
		toPayload("version", snap.Version),
	)
}

var taskFilters = map[string]func(task.Task, time.Time) bool{
	"":    all,
	"all": all,
	"active": func(t task.Task, _ time.Time) bool {
		return !t.Completed
	},
	"completed": func(t task.Task, _ time.Time) bool {
		return t.Completed
	},
	"overdue": func(t task.Task, now time.Time) bool {
		return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
	},
	"today": func(t task.Task, now time.Time) bool {
		return t.DueOn(now)
	},
}

func all(task.Task, time.Time) bool {
	return true
}

// sortTasks: сначала с дедлайном по возрастанию, потом без дедлайна по созданию
func sortTasks(tasks []task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.DueDate != nil && b.DueDate != nil:
			return a.DueDate.Before(*b.DueDate)
		case a.DueDate != nil:
			return true
		case b.DueDate != nil:
			return false
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func (h *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !requireJSON(w, r) {
		return
	}

	var request dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	created, err := h.store.Create(r.Context(), request.Draft())
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, toPayload("task", dto.FromTask(created, h.clock())))
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	found, ok := h.store.Snapshot().Task(id)
	if !ok {
		handleBusinessError(w, store.NewNotFound(id.String()))
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(found, h.clock())))
}

func (h *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}

	var request dto.UpdateTaskRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверно переданы параметры обновления: "+err.Error())
		return
	}
	if request.Empty() {
		responseWithError(w, http.StatusBadRequest, "нет полей для обновления")
		return
	}

	options, err := request.Options(h.clock())
	if err != nil {
		handleBusinessError(w, wrapValidation("dueDate", err))
		return
	}

	updated, err := h.store.Update(r.Context(), id, options...)
	if err != nil {
		handleError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(updated, h.clock())))
}

func (h *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		handleError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", id.String()),
		zap.Int("http_status", http.StatusNoContent))
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	toggled, err := h.store.ToggleCompleted(r.Context(), id)
	if err != nil {
		handleError(w, r, err, "toggle_task")
		return
	}

	snap := h.store.Snapshot()
	responseWithJSON(w, http.StatusOK,
		toPayload("task", dto.FromTask(toggled, h.clock())),
		toPayload("streak", snap.Streak),
	)
}

func (h *TaskHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot().Settings)
}

func (h *TaskHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}

	var request dto.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	updated, err := h.store.UpdateSettings(r.Context(), request.Options()...)
	if err != nil {
		handleError(w, r, err, "update_settings")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot().Stats)
}

func (h *TaskHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot().Streak)
}

func (h *TaskHandler) GetReminders(w http.ResponseWriter, r *http.Request) {
	responseWithJSON(w, http.StatusOK,
		toPayload("permission", h.reminders.Permission().String()),
		toPayload("reminders", h.reminders.Armed()),
	)
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.health.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Хранилище недоступно", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", serviceName),
			toPayload("error", err.Error()),
		)
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", serviceName),
		toPayload("version", h.store.Snapshot().Version),
	)
}

func wrapValidation(field string, err error) *store.BusinessError {
	verr := store.NewValidationError(field, "неверный формат даты или времени")
	verr.Err = err
	return verr
}
