// Package sqlite keeps snapshot slices in a local SQLite file through gorm.
// It is the default backend for a single-user install.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"streakTracker/internal/logger"
	repo "streakTracker/internal/repository"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type Entry struct {
	Key       string    `gorm:"column:entry_key;primarykey;size:64"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Entry) TableName() string {
	return "kv_entries"
}

type Storage struct {
	db *gorm.DB
}

func New(path string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("Repository: Ошибка открытия SQLite", err, zap.String("path", path))
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		logger.Error("Repository: Ошибка миграции SQLite", err)
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("миграция sqlite: %w", err)
	}

	logger.Info("Repository: Хранилище SQLite готово", zap.String("path", path))
	return &Storage{db: db}, nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("получение соединения: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	err := s.db.WithContext(ctx).First(&entry, "entry_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("чтение ключа %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()

	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("запись ключа %s: %w", key, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.String("key", key), zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	logger.Info("Repository: Закрытие SQLite")
	return sqlDB.Close()
}

var _ repo.Store = (*Storage)(nil)
