package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	OpenAI      OpenAIConfig
	Groq        GroqConfig
	Evaluation  EvaluationConfig
	Transcribe  TranscribeConfig
	Storage     StorageConfig
	Telegram    TelegramConfig
	Retry       RetryConfig
	MetricsAddr string
}

type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

type GroqConfig struct {
	APIKey        string
	Model         string
	FallbackModel string
}

// EvaluationConfig определяет бэкенд оценки ответов.
// Backend выбирается конфигурацией: "openai" или "groq".
type EvaluationConfig struct {
	Backend string
	Timeout time.Duration
}

type TranscribeConfig struct {
	Model   string
	Timeout time.Duration
}

type StorageConfig struct {
	Driver string
	DSN    string
}

type TelegramConfig struct {
	Token string
	Debug bool
}

type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

func LoadAppConfig() *AppConfig {
	return &AppConfig{
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o"),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 1500),
			Temperature: getEnvAsFloat("OPENAI_TEMPERATURE", 0.1),
		},
		Groq: GroqConfig{
			APIKey:        getEnv("GROQ_API_KEY", ""),
			Model:         getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			FallbackModel: getEnv("GROQ_FALLBACK_MODEL", "llama-3.1-8b-instant"),
		},
		Evaluation: EvaluationConfig{
			Backend: getEnv("EVAL_BACKEND", "openai"),
			Timeout: getEnvAsDuration("EVAL_TIMEOUT", 60*time.Second),
		},
		Transcribe: TranscribeConfig{
			Model:   getEnv("WHISPER_MODEL", "whisper-1"),
			Timeout: getEnvAsDuration("TRANSCRIBE_TIMEOUT", 60*time.Second),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "sqlite"),
			DSN:    getEnv("STORAGE_DSN", "data/interviews.db"),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TELEGRAM_BOT_TOKEN", ""),
			Debug: getEnvAsBool("TELEGRAM_DEBUG", false),
		},
		Retry: RetryConfig{
			MaxAttempts:     getEnvAsInt("STORAGE_RETRY_ATTEMPTS", 4),
			InitialInterval: getEnvAsDuration("STORAGE_RETRY_INTERVAL", 200*time.Millisecond),
		},
		MetricsAddr: getEnv("METRICS_ADDR", ":9091"),
	}
}

// ValidateConfig проверяет корректность конфигурации
func (c *AppConfig) ValidateConfig() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	switch c.Evaluation.Backend {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case "groq":
		if c.Groq.APIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required")
		}
	default:
		return fmt.Errorf("EVAL_BACKEND must be openai or groq, got %q", c.Evaluation.Backend)
	}

	// Транскрипция всегда идет через Whisper API
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for transcription")
	}

	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("STORAGE_RETRY_ATTEMPTS must be positive")
	}

	return nil
}

// helper функции для чтения переменных окружения
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
