package settings

import (
	"fmt"
	"strings"
)

type Settings struct {
	Notifications Notifications `json:"notifications"`
	Theme         Theme         `json:"theme"`
	Language      string        `json:"language"`
}

type Notifications struct {
	Enabled             bool `json:"enabled"`
	SoundEnabled        bool `json:"soundEnabled"`
	ReminderLeadMinutes int  `json:"reminderLeadMinutes"`
}

type Theme string

const ThemeLight Theme = "light"
const ThemeDark Theme = "dark"
const ThemeSystem Theme = "system"

func Default() Settings {
	return Settings{
		Notifications: Notifications{
			Enabled:             true,
			SoundEnabled:        true,
			ReminderLeadMinutes: 15,
		},
		Theme:    ThemeSystem,
		Language: "en",
	}
}

func (s Settings) Validate() error {
	if s.Notifications.ReminderLeadMinutes < 0 {
		return fmt.Errorf("reminderLeadMinutes: отрицательное значение %d", s.Notifications.ReminderLeadMinutes)
	}
	switch s.Theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return fmt.Errorf("theme: неизвестное значение %q", s.Theme)
	}
	if strings.TrimSpace(s.Language) == "" {
		return fmt.Errorf("language: пустое значение")
	}
	return nil
}

type Option func(*Settings)

func WithNotificationsEnabled(enabled bool) Option {
	return func(s *Settings) {
		s.Notifications.Enabled = enabled
	}
}

func WithSoundEnabled(enabled bool) Option {
	return func(s *Settings) {
		s.Notifications.SoundEnabled = enabled
	}
}

func WithReminderLead(minutes int) Option {
	return func(s *Settings) {
		s.Notifications.ReminderLeadMinutes = minutes
	}
}

func WithTheme(theme Theme) Option {
	return func(s *Settings) {
		s.Theme = theme
	}
}

func WithLanguage(language string) Option {
	return func(s *Settings) {
		s.Language = strings.TrimSpace(language)
	}
}

func (s *Settings) Apply(options ...Option) {
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
}
