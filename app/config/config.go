package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Log     Log     `yaml:"log"`
	Backend Backend `yaml:"backend"`
	Chat    Chat    `yaml:"chat"`
	Server  Server  `yaml:"server"`
}

type Backend struct {
	// Search endpoint of the conversational backend
	Endpoint string `yaml:"endpoint" example:"https://kw-ai-chatbot.onrender.com/search" validate:"required,url"`
	// Feedback endpoint, derived from Endpoint when empty
	FeedbackEndpoint string `yaml:"feedback_endpoint" example:"https://kw-ai-chatbot.onrender.com/log_feedback" validate:"omitempty,url"`
	// Client-side deadline for search calls
	Timeout time.Duration `yaml:"timeout" example:"15s" validate:"gt=0"`
}

type Chat struct {
	// Number of results revealed per "more"
	BatchSize int `yaml:"batch_size" example:"3" validate:"gte=1,lte=50"`
	// Currency prefix for prices
	Currency string `yaml:"currency" example:"AED" validate:"required"`
}

type Server struct {
	// Listen address of the widget API
	Addr string `yaml:"addr" example:":8080" validate:"required"`
	// Idle time after which a widget session is dropped
	SessionTTL time.Duration `yaml:"session_ttl" example:"30m" validate:"gt=0"`
}

type Log struct {
	// Minimum console log level: debug, info, warn, error
	Level string `yaml:"level" example:"info" validate:"omitempty,oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load(path string) (*Config, error) {
	var result Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("Config file not found, using environment", "path", path)
	case err != nil:
		return nil, oops.Errorf("failed to read config file: %w", err)
	default:
		if err = yaml.Unmarshal(data, &result); err != nil {
			return nil, oops.Errorf("failed to parse YAML config: %w", err)
		}
	}

	_ = godotenv.Load()
	applyEnv(&result)
	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err = validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PROPCHAT_BACKEND_ENDPOINT"); v != "" {
		cfg.Backend.Endpoint = v
	}
	if v := os.Getenv("PROPCHAT_FEEDBACK_ENDPOINT"); v != "" {
		cfg.Backend.FeedbackEndpoint = v
	}
	if v := os.Getenv("PROPCHAT_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		} else {
			slog.Warn("Invalid duration, ignoring", "key", "PROPCHAT_BACKEND_TIMEOUT", "value", v)
		}
	}
	if v := os.Getenv("PROPCHAT_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chat.BatchSize = n
		} else {
			slog.Warn("Invalid integer, ignoring", "key", "PROPCHAT_BATCH_SIZE", "value", v)
		}
	}
	if v := os.Getenv("PROPCHAT_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PROPCHAT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PROPCHAT_TELEGRAM_TOKEN"); v != "" {
		cfg.Log.Telegram.Token = v
	}
	if v := os.Getenv("PROPCHAT_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Log.Telegram.ChatID = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 15 * time.Second
	}
	if cfg.Chat.BatchSize == 0 {
		cfg.Chat.BatchSize = 3
	}
	if cfg.Chat.Currency == "" {
		cfg.Chat.Currency = "AED"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = 30 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
