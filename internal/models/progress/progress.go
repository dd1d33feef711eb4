// Package progress holds the derived records published with every snapshot:
// aggregate counters and the completion streak.
package progress

import (
	"fmt"
	"time"
)

const dayKeyLayout = "2006-01-02"

type UserStats struct {
	TotalTasks       int            `json:"totalTasks"`
	CompletedTasks   int            `json:"completedTasks"`
	CreatedPerDay    map[string]int `json:"createdPerDay"`
	CompletedPerWeek map[string]int `json:"completedPerWeek"`
}

type StreakInfo struct {
	Current             int        `json:"current"`
	Longest             int        `json:"longest"`
	LastAllCompleteDate *time.Time `json:"lastAllCompleteDate,omitempty"`
	QualifyingDays      []string   `json:"qualifyingDays"`
}

// DayKey - ключ календарного дня в часовом поясе t
func DayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// WeekKey - ключ ISO-недели, например 2026-W42
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func ParseDayKey(key string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dayKeyLayout, key, loc)
}

// StartOfDay обрезает время до полуночи в том же часовом поясе
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Clone копирует список дней, чтобы снапшоты не делили срез
func (s StreakInfo) Clone() StreakInfo {
	c := s
	c.QualifyingDays = append([]string(nil), s.QualifyingDays...)
	if s.LastAllCompleteDate != nil {
		last := *s.LastAllCompleteDate
		c.LastAllCompleteDate = &last
	}
	return c
}
