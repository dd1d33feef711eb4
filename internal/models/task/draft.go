package task

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"
const TimeLayout = "15:04"

// Draft - непроверенные данные задачи от формы или распознанной речи
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	DueTime     string   `json:"dueTime,omitempty"`
}

// DueAt собирает дату и время в один момент в часовом поясе now.
// Только дата - конец дня, только время - сегодня.
func (d Draft) DueAt(now time.Time) (*time.Time, error) {
	date := strings.TrimSpace(d.DueDate)
	clock := strings.TrimSpace(d.DueTime)
	loc := now.Location()

	if date == "" && clock == "" {
		return nil, nil
	}

	day := now
	if date != "" {
		parsed, err := parseDay(date, loc)
		if err != nil {
			return nil, err
		}
		day = parsed
	}

	y, m, dd := day.Date()
	if clock == "" {
		due := time.Date(y, m, dd, 23, 59, 59, 0, loc)
		return &due, nil
	}

	hm, err := parseClock(clock, loc)
	if err != nil {
		return nil, err
	}
	due := time.Date(y, m, dd, hm.Hour(), hm.Minute(), 0, 0, loc)
	return &due, nil
}

// DueOption - частичное обновление дедлайна. Переданная половина заменяет
// свою часть текущего дедлайна, вторая половина остаётся как была.
func (d Draft) DueOption(now time.Time) (TaskOption, error) {
	date := strings.TrimSpace(d.DueDate)
	clock := strings.TrimSpace(d.DueTime)
	loc := now.Location()

	switch {
	case date == "" && clock == "":
		return nil, nil
	case date != "" && clock != "":
		due, err := d.DueAt(now)
		if err != nil {
			return nil, err
		}
		return WithDueDate(*due), nil
	case date != "":
		day, err := parseDay(date, loc)
		if err != nil {
			return nil, err
		}
		return WithDueDay(day), nil
	default:
		hm, err := parseClock(clock, loc)
		if err != nil {
			return nil, err
		}
		return WithDueClock(hm.Hour(), hm.Minute(), now), nil
	}
}

// Options превращает черновик в частичное обновление: пустые поля не трогают задачу
func (d Draft) Options(now time.Time) ([]TaskOption, error) {
	var opts []TaskOption
	if strings.TrimSpace(d.Title) != "" {
		opts = append(opts, WithTitle(d.Title))
	}
	if d.Description != "" {
		opts = append(opts, WithDescription(d.Description))
	}
	if d.Priority != "" {
		opts = append(opts, WithPriority(d.Priority))
	}
	due, err := d.DueOption(now)
	if err != nil {
		return nil, err
	}
	if due != nil {
		opts = append(opts, due)
	}
	return opts, nil
}

func parseDay(date string, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("разбор даты %q: %w", date, err)
	}
	return parsed, nil
}

func parseClock(clock string, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(TimeLayout, clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("разбор времени %q: %w", clock, err)
	}
	return parsed, nil
}
