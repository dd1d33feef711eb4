package worker

import (
	"context"
	"streakTracker/internal/logger"
	"time"

	"go.uber.org/zap"
)

type Refresher interface {
	Refresh(ctx context.Context) bool
}

// RolloverWorker пересчитывает серию, когда наступает новый день,
// даже если за это время не было ни одной команды
type RolloverWorker struct {
	store    Refresher
	interval time.Duration
}

func NewRolloverWorker(store Refresher, interval *time.Duration) *RolloverWorker {
	intervalToSet := time.Minute
	if interval != nil && *interval > 0 {
		intervalToSet = *interval
	}
	return &RolloverWorker{
		store:    store,
		interval: intervalToSet,
	}
}

func (w *RolloverWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Проверка смены дня запущена", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Проверка смены дня останавливается")
			return
		}
	}
}

func (w *RolloverWorker) Check(ctx context.Context) bool {
	start := time.Now()

	changed := w.store.Refresh(ctx)
	if changed {
		logger.Info("Worker: Серия пересчитана", zap.Duration("ms", time.Since(start)))
	} else {
		logger.Debug("Worker: Изменений нет", zap.Duration("ms", time.Since(start)))
	}
	return changed
}
