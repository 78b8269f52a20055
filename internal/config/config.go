package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrMissingAPIKey ключ Google Maps не задан
var ErrMissingAPIKey = errors.New("GOOGLE_MAPS_API_KEY is not set")

// Config структура конфигурации приложения
type Config struct {
	Environment string `toml:"environment"`

	Server struct {
		Port           int      `toml:"port"`
		Host           string   `toml:"host"`
		GRPCPort       int      `toml:"grpc_port"`
		AllowedOrigins []string `toml:"allowed_origins"`
	} `toml:"server"`

	Maps struct {
		APIKey       string `toml:"api_key"`
		BaseURL      string `toml:"base_url"`
		Timeout      int    `toml:"timeout_seconds"` // в секундах
		TrafficModel string `toml:"traffic_model"`
	} `toml:"maps"`

	Session struct {
		AutoRouteDelayMs int   `toml:"auto_route_delay_ms"`
		TrafficSeed      int64 `toml:"traffic_seed"` // 0 означает зерно от текущего времени
	} `toml:"session"`

	History struct {
		Enabled bool `toml:"enabled"`
	} `toml:"history"`

	Database struct {
		Host     string `toml:"host"`
		Port     string `toml:"port"`
		Name     string `toml:"name"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		SSLMode  string `toml:"ssl_mode"`
	} `toml:"database"`

	Kafka struct {
		Brokers []string `toml:"brokers"`
		Topic   string   `toml:"topic"`
	} `toml:"kafka"`

	Logging struct {
		Level string `toml:"level"`
	} `toml:"logging"`
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем TOML файл
// из CONFIG_FILE (если задан), затем переменные окружения
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Environment = "development"

	// Конфигурация сервера
	cfg.Server.Port = 8080
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.GRPCPort = 9090
	cfg.Server.AllowedOrigins = []string{"*"}

	// Конфигурация Google Maps
	cfg.Maps.BaseURL = "https://maps.googleapis.com/maps/api"
	cfg.Maps.Timeout = 10
	cfg.Maps.TrafficModel = "best_guess"

	cfg.Session.AutoRouteDelayMs = 100

	cfg.Database.Host = "localhost"
	cfg.Database.Port = "5432"
	cfg.Database.Name = "route_traffic"
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.SSLMode = "disable"

	cfg.Kafka.Topic = "route.events"

	// Конфигурация логирования
	cfg.Logging.Level = "info"
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)

	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.GRPCPort = getEnvInt("GRPC_PORT", cfg.Server.GRPCPort)
	cfg.Server.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Maps.APIKey = getEnv("GOOGLE_MAPS_API_KEY", cfg.Maps.APIKey)
	cfg.Maps.BaseURL = getEnv("MAPS_BASE_URL", cfg.Maps.BaseURL)
	cfg.Maps.Timeout = getEnvInt("MAPS_TIMEOUT_SECONDS", cfg.Maps.Timeout)
	cfg.Maps.TrafficModel = getEnv("MAPS_TRAFFIC_MODEL", cfg.Maps.TrafficModel)

	cfg.Session.AutoRouteDelayMs = getEnvInt("AUTO_ROUTE_DELAY_MS", cfg.Session.AutoRouteDelayMs)
	cfg.Session.TrafficSeed = int64(getEnvInt("TRAFFIC_SEED", int(cfg.Session.TrafficSeed)))

	cfg.History.Enabled = getEnvBool("HISTORY_ENABLED", cfg.History.Enabled)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", cfg.Database.SSLMode)

	cfg.Kafka.Brokers = getEnvList("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Maps.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Maps.Timeout <= 0 {
		return fmt.Errorf("invalid maps timeout %d", c.Maps.Timeout)
	}
	if c.Session.AutoRouteDelayMs < 0 {
		return fmt.Errorf("invalid auto route delay %d", c.Session.AutoRouteDelayMs)
	}
	return nil
}

// IsProduction сообщает, что приложение запущено в production окружении
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool получает bool значение переменной окружения или возвращает значение по умолчанию
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList получает список через запятую
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
