// Package streak derives the day-granularity completion streak.
//
// A day qualifies when it has at least one task due and every task due that
// day is completed. Each call re-evaluates only today's bucket: membership of
// earlier days is carried over from the previous record as-is, so late edits
// to old tasks never rewrite history.
package streak

import (
	"fmt"
	"sort"
	"streakTracker/internal/models/progress"
	"streakTracker/internal/models/task"
	"time"
)

// Compute строит новую запись серии по задачам, предыдущей записи и текущему дню.
// Границы дней берутся из часового пояса today.
func Compute(tasks []task.Task, prev progress.StreakInfo, today time.Time) progress.StreakInfo {
	loc := today.Location()
	today = progress.StartOfDay(today)
	todayKey := progress.DayKey(today)

	days := make(map[string]struct{}, len(prev.QualifyingDays)+1)
	for _, key := range prev.QualifyingDays {
		if _, err := progress.ParseDayKey(key, loc); err != nil {
			continue
		}
		days[key] = struct{}{}
	}

	if Qualifies(tasks, today) {
		days[todayKey] = struct{}{}
	} else {
		delete(days, todayKey)
	}

	keys := make([]string, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	// формат YYYY-MM-DD сортируется лексикографически
	sort.Strings(keys)

	res := progress.StreakInfo{
		Current:        current(days, keys, today),
		Longest:        prev.Longest,
		QualifyingDays: keys,
	}
	if res.Longest < 0 {
		res.Longest = 0
	}
	if res.Current > res.Longest {
		res.Longest = res.Current
	}

	if len(keys) > 0 {
		last, _ := progress.ParseDayKey(keys[len(keys)-1], loc)
		res.LastAllCompleteDate = &last
	}

	return res
}

// Qualifies сообщает, закрыт ли день: есть хотя бы одна задача на этот день и все выполнены
func Qualifies(tasks []task.Task, day time.Time) bool {
	due := 0
	for _, t := range tasks {
		if !t.DueOn(day) {
			continue
		}
		if !t.Completed {
			return false
		}
		due++
	}
	return due > 0
}

func current(days map[string]struct{}, keys []string, today time.Time) int {
	if len(keys) == 0 {
		return 0
	}

	yesterday := today.AddDate(0, 0, -1)
	latest := keys[len(keys)-1]
	if latest != progress.DayKey(today) && latest != progress.DayKey(yesterday) {
		return 0
	}

	// сегодня ещё может быть не закрыт - тогда считаем со вчера
	cursor := today
	if _, ok := days[progress.DayKey(cursor)]; !ok {
		cursor = yesterday
	}

	count := 0
	for {
		if _, ok := days[progress.DayKey(cursor)]; !ok {
			break
		}
		count++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return count
}

// Validate проверяет запись, прочитанную из хранилища
func Validate(info progress.StreakInfo) error {
	if info.Current < 0 || info.Longest < 0 {
		return fmt.Errorf("отрицательные счётчики: current=%d longest=%d", info.Current, info.Longest)
	}
	for _, key := range info.QualifyingDays {
		if _, err := progress.ParseDayKey(key, time.UTC); err != nil {
			return fmt.Errorf("неверный ключ дня %q: %w", key, err)
		}
	}
	return nil
}
