package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "STREAK"

const (
	StorageInMemory = "inmemory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

const (
	SinkNoop = "noop"
	SinkLog  = "log"
	SinkNATS = "nats"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Rollover      RolloverConfig      `mapstructure:"rollover"`
	Timezone      string              `mapstructure:"timezone"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RateLimitRPM   int           `mapstructure:"rate_limit_rpm"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

type StorageConfig struct {
	Type           string        `mapstructure:"type"` // inmemory, sqlite, postgres или redis
	SQLitePath     string        `mapstructure:"sqlite_path"`
	PostgresURL    string        `mapstructure:"postgres_url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MinConnections int           `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPrefix    string        `mapstructure:"redis_prefix"`
}

type NotificationsConfig struct {
	Sink          string `mapstructure:"sink"` // noop, log или nats
	NATSURL       string `mapstructure:"nats_url"`
	Subject       string `mapstructure:"subject"`
	ActionSubject string `mapstructure:"action_subject"`
}

type RolloverConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rpm", 100)
	v.SetDefault("server.request_timeout", 30*time.Second)

	v.SetDefault("logging.development", false)

	v.SetDefault("storage.type", StorageSQLite)
	v.SetDefault("storage.sqlite_path", "streak.db")
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.max_connections", 10)
	v.SetDefault("storage.min_connections", 2)
	v.SetDefault("storage.idle_timeout", 5*time.Minute)
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_prefix", "streak:")

	v.SetDefault("notifications.sink", SinkLog)
	v.SetDefault("notifications.nats_url", "nats://localhost:4222")
	v.SetDefault("notifications.subject", "streak.reminders")
	v.SetDefault("notifications.action_subject", "streak.actions")

	v.SetDefault("rollover.interval", time.Minute)
	v.SetDefault("timezone", "Local")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load ищет config.yml в . и ./config. Файл не обязателен:
// без него работают значения по умолчанию и переменные STREAK_*.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка парсинга config.yml: %w", err)
		}
	}
	return decode(v)
}

// LoadFile читает конфиг из явно указанного файла
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("не могу прочитать %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("разбор конфига: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageInMemory:
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path: пустой путь")
		}
	case StoragePostgres:
		if c.Storage.PostgresURL == "" {
			return errors.New("storage.postgres_url: не задан адрес")
		}
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr: не задан адрес")
		}
	default:
		return fmt.Errorf("storage.type: неизвестный тип %q", c.Storage.Type)
	}

	switch c.Notifications.Sink {
	case SinkNoop, SinkLog:
	case SinkNATS:
		if c.Notifications.NATSURL == "" {
			return errors.New("notifications.nats_url: не задан адрес")
		}
	default:
		return fmt.Errorf("notifications.sink: неизвестный тип %q", c.Notifications.Sink)
	}

	if c.Rollover.Interval <= 0 {
		return fmt.Errorf("rollover.interval: должен быть положительным, получено %s", c.Rollover.Interval)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
