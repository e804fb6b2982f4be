package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"lab-compare-be/internal/constant"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Ai      AIConfig
	Intake  IntakeConfig
	Storage StorageConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
}

type AIConfig struct {
	LLMProvider string // "ollama", "huggingface", "openai", "groq", "gemini", "mock"
	LLMModel    string // e.g. "llama3", "gpt-4o-mini"
	LLMBaseURL  string
	LLMAPIKey   string
	Temperature float64
	MaxTokens   int
}

type IntakeConfig struct {
	ComparisonTimeout  time.Duration
	Language           string
	PromptTemplatePath string
	SystemInstruction  string
	PromptTemplate     string
	SessionTTL         time.Duration
	OutcomeTopic       string
}

type StorageConfig struct {
	Dir              string
	MaxDocumentBytes int64
	SweepInterval    time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/websocket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Ai: AIConfig{
			LLMProvider: getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:    getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:  getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:   getEnv("LLM_API_KEY", getEnv("GOOGLE_GEMINI_API_KEY", "")),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.2),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 4096),
		},
		Intake: IntakeConfig{
			ComparisonTimeout:  getEnvAsDuration("COMPARISON_TIMEOUT", 90*time.Second),
			Language:           getEnv("COMPARISON_LANGUAGE", "English"),
			PromptTemplatePath: getEnv("PROMPT_TEMPLATE_PATH", ""),
			SystemInstruction:  constant.ComparisonSystemInstructionV1,
			PromptTemplate:     constant.ComparisonPromptV1,
			SessionTTL:         getEnvAsDuration("SESSION_TTL", 1*time.Hour),
			OutcomeTopic:       getEnv("INTAKE_OUTCOME_TOPIC_NAME", "INTAKE_OUTCOMES"),
		},
		Storage: StorageConfig{
			Dir:              getEnv("STORAGE_DIR", ""),
			MaxDocumentBytes: int64(getEnvAsInt("MAX_DOCUMENT_BYTES", 10*1024*1024)),
			SweepInterval:    getEnvAsDuration("STORAGE_SWEEP_INTERVAL", 10*time.Minute),
		},
	}

	if path := cfg.Intake.PromptTemplatePath; path != "" {
		tmpl, err := LoadPromptTemplate(path)
		if err != nil {
			log.Printf("[WARN] %v, using built-in prompt template", err)
		} else {
			cfg.Intake.PromptTemplate = tmpl
		}
	}

	return cfg
}

// LoadPromptTemplate reads a report template override from disk.
func LoadPromptTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template %s: %w", path, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("prompt template %s is empty", path)
	}
	return string(data), nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
