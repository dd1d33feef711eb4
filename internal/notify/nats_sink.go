package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"streakTracker/internal/logger"
	"streakTracker/internal/models/task"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nuid"
	"go.uber.org/zap"
)

const DefaultSubject = "streak.reminders"
const DefaultActionSubject = "streak.actions"

type EventKind string

const KindDisplay EventKind = "display"
const KindSound EventKind = "sound"

// ReminderEvent - сообщение для клиента, который сам показывает уведомление
type ReminderEvent struct {
	EventID    string     `json:"eventId"`
	Kind       EventKind  `json:"kind"`
	TaskID     string     `json:"taskId,omitempty"`
	Title      string     `json:"title,omitempty"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Publisher покрывает *nats.Conn
type Publisher interface {
	Publish(subject string, data []byte) error
}

type NATSSink struct {
	publisher Publisher
	subject   string
	now       func() time.Time
	newID     func() string
}

func NewNATSSink(publisher Publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{
		publisher: publisher,
		subject:   subject,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     nuid.Next,
	}
}

// Connect открывает соединение с переподключением, как ждут долгоживущие подписчики
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("streak-tracker"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		logger.Error("Notify: Ошибка подключения к NATS", err, zap.String("url", url))
		return nil, fmt.Errorf("подключение к NATS: %w", err)
	}
	logger.Info("Notify: Подключение к NATS", zap.String("url", url))
	return conn, nil
}

// RequestPermission всегда true: решение о показе принимает подписчик
func (s *NATSSink) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

func (s *NATSSink) Display(ctx context.Context, t task.Task) error {
	event := ReminderEvent{
		Kind:    KindDisplay,
		TaskID:  t.ID.String(),
		Title:   t.Title,
		DueDate: t.DueDate,
	}
	return s.publish(event)
}

func (s *NATSSink) PlaySound(ctx context.Context) error {
	return s.publish(ReminderEvent{Kind: KindSound})
}

func (s *NATSSink) publish(event ReminderEvent) error {
	event.EventID = s.newID()
	event.OccurredAt = s.now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("сериализация события: %w", err)
	}
	if err := s.publisher.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("публикация в %s: %w", s.subject, err)
	}

	logger.Debug("Notify: Событие опубликовано",
		zap.String("event_id", event.EventID),
		zap.String("kind", string(event.Kind)))
	return nil
}

var _ Sink = (*NATSSink)(nil)
var _ Publisher = (*nats.Conn)(nil)
