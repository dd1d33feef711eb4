package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"streakTracker/internal/config"
	"streakTracker/internal/handlers"
	"streakTracker/internal/logger"
	"streakTracker/internal/middleware"
	"streakTracker/internal/notify"
	"streakTracker/internal/reminder"
	"streakTracker/internal/repository"
	"streakTracker/internal/repository/kv/inmemory"
	"streakTracker/internal/repository/kv/postgres"
	"streakTracker/internal/repository/kv/redis"
	"streakTracker/internal/repository/kv/sqlite"
	"streakTracker/internal/store"
	"streakTracker/internal/worker"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serverShutdownTimeout = 10 * time.Second

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	kv        repository.Store
	store     *store.TaskStore
	scheduler *reminder.Scheduler
	worker    *worker.RolloverWorker
	conn      *nats.Conn
	listener  *notify.ActionListener
	shutdowns []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// Init собирает зависимости. При ошибке уже поднятое закрывается.
func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	a.onShutdown(func() {
		logger.Info("App: Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initStorage(ctx); err != nil {
		a.Shutdown()
		return nil, err
	}
	loc, err := a.config.Location()
	if err != nil {
		a.Shutdown()
		return nil, err
	}
	if err := a.initStore(ctx, loc); err != nil {
		a.Shutdown()
		return nil, err
	}
	if err := a.initReminders(); err != nil {
		a.Shutdown()
		return nil, err
	}

	interval := a.config.Rollover.Interval
	a.worker = worker.NewRolloverWorker(a.store, &interval)

	a.initRouter(loc)
	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           otelhttp.NewHandler(a.router, "streak-tracker"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("App: Приложение инициализировано",
		zap.String("storage", a.config.Storage.Type),
		zap.String("sink", a.config.Notifications.Sink),
		zap.String("addr", a.server.Addr))
	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	cfg := a.config.Storage

	switch cfg.Type {
	case config.StorageInMemory:
		a.kv = inmemory.NewStorage()
	case config.StorageSQLite:
		storage, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("подключение к sqlite: %w", err)
		}
		a.kv = storage
	case config.StoragePostgres:
		storage, err := postgres.New(ctx, cfg.PostgresURL, postgres.PoolConfig{
			MaxConnections: int32(cfg.MaxConnections),
			MinConnections: int32(cfg.MinConnections),
			IdleTimeout:    cfg.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return fmt.Errorf("миграции postgres: %w", err)
		}
		a.kv = storage
	case config.StorageRedis:
		storage, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return fmt.Errorf("подключение к redis: %w", err)
		}
		a.kv = storage
	default:
		return fmt.Errorf("неизвестный тип хранилища %q", cfg.Type)
	}

	a.onShutdown(func() {
		logger.Info("App: Закрытие хранилища...")
		if err := a.kv.Close(); err != nil {
			logger.Error("App: Ошибка закрытия хранилища", err)
		}
	})
	return nil
}

func (a *App) initStore(ctx context.Context, loc *time.Location) error {
	taskStore, err := store.New(ctx, a.kv, store.WithLocation(loc))
	if err != nil {
		return fmt.Errorf("загрузка стора: %w", err)
	}
	a.store = taskStore
	return nil
}

func (a *App) initReminders() error {
	var sink notify.Sink
	switch a.config.Notifications.Sink {
	case config.SinkNATS:
		conn, err := notify.Connect(a.config.Notifications.NATSURL)
		if err != nil {
			return fmt.Errorf("подключение к nats: %w", err)
		}
		a.conn = conn
		a.onShutdown(func() {
			logger.Info("App: Закрытие соединения с NATS...")
			if err := conn.Drain(); err != nil {
				conn.Close()
			}
		})
		sink = notify.NewNATSSink(conn, a.config.Notifications.Subject)
		a.listener = notify.NewActionListener(conn, a.config.Notifications.ActionSubject)
	case config.SinkLog:
		sink = notify.LogSink{}
	default:
		sink = notify.Noop{}
	}

	a.scheduler = reminder.New(sink)
	unsubscribe := a.store.Subscribe(a.scheduler.Resync)
	a.onShutdown(func() {
		logger.Info("App: Остановка напоминаний...")
		unsubscribe()
		a.scheduler.Stop()
	})
	return nil
}

func (a *App) initRouter(loc *time.Location) {
	cfg := a.config.Server
	handler := handlers.NewTaskHandler(a.store, a.scheduler, a.kv).InLocation(loc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RateLimit(cfg.RateLimitRPM))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Mount("/", handler.Routes())
	a.router = r
}

// Handler - корневой обработчик с middleware и трассировкой
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run блокируется до отмены ctx или падения одной из частей
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("App: Остановка сервера...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		a.worker.Start(ctx)
		return nil
	})

	if a.listener != nil {
		g.Go(func() error {
			return a.listener.Listen(ctx)
		})
		g.Go(func() error {
			a.store.ServeActions(ctx, a.listener.Actions())
			return nil
		})
	}

	return g.Wait()
}

// Shutdown вызывает закрытие в обратном порядке
func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = a.shutdowns[:0]
}

func (a *App) onShutdown(fn func()) {
	a.shutdowns = append(a.shutdowns, fn)
}
