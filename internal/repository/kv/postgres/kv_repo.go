package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"streakTracker/internal/logger"
	repo "streakTracker/internal/repository"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PoolConfig struct {
	MaxConnections int32
	MinConnections int32
	IdleTimeout    time.Duration
}

type Storage struct {
	pool    *pgxpool.Pool
	connStr string
}

func New(ctx context.Context, connString string, poolCfg PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if poolCfg.MaxConnections > 0 {
		config.MaxConns = poolCfg.MaxConnections
	}
	if poolCfg.MinConnections > 0 {
		config.MinConns = poolCfg.MinConnections
	}
	if poolCfg.IdleTimeout > 0 {
		config.MaxConnIdleTime = poolCfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool, connStr: connString}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	query := `SELECT value FROM kv_entries WHERE key = $1`

	var value []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось прочитать ключ", err, zap.String("key", key), zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("чтение ключа %s: %w", key, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.String("key", key), zap.Duration("ms", time.Since(start)))
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()

	query := `INSERT INTO kv_entries (key, value, updated_at)
				VALUES ($1, $2::jsonb, NOW())
				ON CONFLICT (key) DO UPDATE
				SET value = EXCLUDED.value,
					updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query, key, string(value))
	if err != nil {
		logger.Error("Repository: Не удалось записать ключ", err, zap.String("key", key), zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("запись ключа %s: %w", key, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.String("key", key), zap.Duration("ms", time.Since(start)))
	}
	return nil
}

// Migrate применяет встроенные миграции через golang-migrate
func (s *Storage) Migrate(ctx context.Context) error {
	logger.Info("Repository: Применение миграций")

	m, err := s.migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка применения миграций", err)
		return fmt.Errorf("применение миграций: %w", err)
	}

	logger.Info("Repository: Миграции применены")
	return nil
}

func (s *Storage) Down(ctx context.Context) error {
	logger.Info("Repository: Откат миграций")

	m, err := s.migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка отката миграций", err)
		return fmt.Errorf("откат миграций: %w", err)
	}
	return nil
}

func (s *Storage) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("источник миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(s.connStr))
	if err != nil {
		return nil, fmt.Errorf("инициализация миграций: %w", err)
	}
	return m, nil
}

// драйвер pgx/v5 для golang-migrate регистрируется под схемой pgx5
func migrateURL(connString string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}

var _ repo.Store = (*Storage)(nil)
