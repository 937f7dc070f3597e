package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Adapter  AdapterConfig
	Ask      AskConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	AskTerminalTopic   string
}

type DatabaseConfig struct {
	Connection string
}

type AdapterConfig struct {
	BaseURL string
}

type AskConfig struct {
	PollInterval     time.Duration
	StopGracePeriod  time.Duration
	GenerateDeadline time.Duration
	SeedQuestions    int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			AskTerminalTopic:   getEnv("ASK_TERMINAL_TOPIC_NAME", "ASK_TERMINAL"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Adapter: AdapterConfig{
			BaseURL: getEnv("AI_SERVICE_BASE_URL", "http://localhost:5555"),
		},
		Ask: AskConfig{
			PollInterval:     getEnvAsDuration("ASK_POLL_INTERVAL", 1*time.Second),
			StopGracePeriod:  getEnvAsDuration("ASK_STOP_GRACE_PERIOD", 2*time.Second),
			GenerateDeadline: getEnvAsDuration("SQL_GENERATION_DEADLINE", 3*time.Minute),
			SeedQuestions:    getEnvAsInt("RECOMMEND_SEED_QUESTIONS", 5),
		},
	}
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
