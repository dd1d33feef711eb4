package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"streakTracker/internal/logger"
	"streakTracker/internal/store"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ActionListener принимает нажатия кнопок в уведомлениях
// и передаёт их стору через канал действий
type ActionListener struct {
	conn    *nats.Conn
	subject string
	actions chan store.Action

	mtx    sync.RWMutex
	closed bool
}

func NewActionListener(conn *nats.Conn, subject string) *ActionListener {
	if subject == "" {
		subject = DefaultActionSubject
	}
	return &ActionListener{
		conn:    conn,
		subject: subject,
		actions: make(chan store.Action, 16),
	}
}

func (l *ActionListener) Actions() <-chan store.Action {
	return l.actions
}

// Listen подписывается и держит подписку до отмены ctx, затем закрывает канал
func (l *ActionListener) Listen(ctx context.Context) error {
	defer l.close()

	sub, err := l.conn.Subscribe(l.subject, func(msg *nats.Msg) {
		l.handle(ctx, msg)
	})
	if err != nil {
		logger.Error("Notify: Ошибка подписки на действия", err, zap.String("subject", l.subject))
		return fmt.Errorf("подписка на %s: %w", l.subject, err)
	}
	logger.Info("Notify: Слушаем действия", zap.String("subject", l.subject))

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		logger.Warn("Notify: Ошибка отписки", zap.Error(err))
	}
	return nil
}

func (l *ActionListener) close() {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.closed = true
	close(l.actions)
}

func (l *ActionListener) handle(ctx context.Context, msg *nats.Msg) {
	action, err := DecodeAction(msg.Data)
	if err != nil {
		logger.Warn("Notify: Неверное действие", zap.Error(err))
		return
	}

	// колбэк nats может прийти уже после отписки
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.actions <- action:
	case <-ctx.Done():
	}
}

type actionPayload struct {
	Action string `json:"action"`
	TaskID string `json:"taskId"`
}

func DecodeAction(data []byte) (store.Action, error) {
	var payload actionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return store.Action{}, fmt.Errorf("разбор действия: %w", err)
	}

	id, err := uuid.Parse(payload.TaskID)
	if err != nil {
		return store.Action{}, fmt.Errorf("неверный taskId %q: %w", payload.TaskID, err)
	}

	kind := store.ActionKind(payload.Action)
	switch kind {
	case store.ActionComplete, store.ActionToggle:
	default:
		return store.Action{}, fmt.Errorf("неизвестное действие %q", payload.Action)
	}
	return store.Action{Kind: kind, TaskID: id}, nil
}
