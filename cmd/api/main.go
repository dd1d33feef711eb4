package main

import (
	"context"
	"log"
	"os"
	"streakTracker/internal/app"
	"streakTracker/internal/config"
	"streakTracker/internal/logger"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

type runner interface {
	Run(ctx context.Context) error
	Shutdown()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфига: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	application, err := app.New(cfg).Init(ctx)
	if err != nil {
		cancel()
		log.Fatalf("Ошибка инициализации: %v", err)
	}

	exitCode := serve(ctx, cancel, application, shutdownTimeout)
	log.Printf("Приложение завершено с кодом: %d", exitCode)
	os.Exit(exitCode)
}

// serve держит приложение до сигнала ОС или до выхода Run.
// Ошибка Run даёт ненулевой код завершения.
func serve(ctx context.Context, cancel context.CancelFunc, application runner, timeout time.Duration) int {
	// runCtx закрывается вместе с Run и запускает остановку без сигнала
	runCtx, stop := context.WithCancel(context.Background())
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stop()
		if runErr = application.Run(ctx); runErr != nil {
			logger.Error("App: Приложение остановилось с ошибкой", runErr)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		runCtx,
		timeout,
		map[string]gfshutdown.Operation{
			"streak-tracker": func(shutdownCtx context.Context) error {
				logger.Info("App: Остановка приложения")
				cancel()
				select {
				case <-done:
				case <-shutdownCtx.Done():
					logger.Warn("App: Не дождались остановки", zap.Duration("timeout", timeout))
				}
				application.Shutdown()
				return nil
			},
		},
	)

	exitCode := <-wait
	select {
	case <-done:
		if runErr != nil && exitCode == 0 {
			exitCode = 1
		}
	default:
	}
	return exitCode
}
