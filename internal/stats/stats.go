// Package stats derives aggregate counters from the task list.
// There is no incremental mode: every call starts from scratch.
package stats

import (
	"streakTracker/internal/models/progress"
	"streakTracker/internal/models/task"
	"time"
)

// Compute считает статистику по всем задачам; loc задаёт границы дней и недель
func Compute(tasks []task.Task, loc *time.Location) progress.UserStats {
	if loc == nil {
		loc = time.Local
	}

	res := progress.UserStats{
		TotalTasks:       len(tasks),
		CreatedPerDay:    make(map[string]int),
		CompletedPerWeek: make(map[string]int),
	}

	for _, t := range tasks {
		if !t.CreatedAt.IsZero() {
			res.CreatedPerDay[progress.DayKey(t.CreatedAt.In(loc))]++
		}

		if !t.Completed {
			continue
		}
		res.CompletedTasks++

		// задачи из старых снапшотов могут не иметь CompletedAt
		doneAt := t.UpdatedAt
		if t.CompletedAt != nil {
			doneAt = *t.CompletedAt
		}
		if !doneAt.IsZero() {
			res.CompletedPerWeek[progress.WeekKey(doneAt.In(loc))]++
		}
	}

	return res
}
