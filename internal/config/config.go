package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application-level configuration loaded from environment
// variables.
type Config struct {
	HTTPPort       string
	AllowedOrigins []string

	HeliusAPIKey  string
	HeliusBaseURL string
	HeliusRPCURL  string

	BirdeyeAPIKey  string
	BirdeyeBaseURL string

	// Optional shared price cache; empty RedisAddr keeps the in-memory one.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	// Optional result summarizer; empty key disables it.
	OpenAIAPIKey string
	OpenAIModel  string

	ExecutionDelay time.Duration
}

// Load reads configuration from the environment, with an optional .env
// file. Missing upstream credentials are a startup failure, never a
// per-request one.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8000"),
		AllowedOrigins: getEnvAsSlice("CORS_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:3002",
			"http://127.0.0.1:3002",
		}),

		HeliusAPIKey:  os.Getenv("HELIUS_API_KEY"),
		HeliusBaseURL: getEnv("HELIUS_BASE_URL", "https://api.helius.xyz"),
		HeliusRPCURL:  os.Getenv("HELIUS_RPC_URL"),

		BirdeyeAPIKey:  os.Getenv("BIRDEYE_API_KEY"),
		BirdeyeBaseURL: getEnv("BIRDEYE_BASE_URL", "https://public-api.birdeye.so"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisTTL:      time.Duration(getEnvAsInt("REDIS_TTL_SECONDS", 0)) * time.Second,

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		ExecutionDelay: time.Duration(getEnvAsInt("EXECUTION_DELAY_SECONDS", 60)) * time.Second,
	}

	if cfg.HeliusRPCURL == "" {
		if cfg.HeliusAPIKey == "" {
			return nil, fmt.Errorf("helius credentials not found: set HELIUS_RPC_URL or HELIUS_API_KEY")
		}
		cfg.HeliusRPCURL = fmt.Sprintf("https://rpc.helius.xyz/?api-key=%s", cfg.HeliusAPIKey)
	}
	if cfg.BirdeyeAPIKey == "" {
		return nil, fmt.Errorf("BIRDEYE_API_KEY environment variable is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
