package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Search          SearchConfig
	Mail            MailConfig
	Database        DatabaseConfig
	Sweep           SweepConfig
	Server          ServerConfig
	RulesPath       string
	StyleServiceURL string
	BrowserFallback bool
	FetchTimeout    time.Duration
}

// DatabaseConfig selects the SQL driver and connection string
type DatabaseConfig struct {
	Driver string // "postgres", "pgx" or "sqlite"
	URL    string
}

// SweepConfig controls the scheduled price sweep
type SweepConfig struct {
	Schedule   string // cron spec with seconds
	Workers    int
	RunOnStart bool
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string
	Port           string
	AllowedOrigins []string
	RatePerSecond  float64
	RequestTimeout time.Duration
}

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Search: LoadSearchConfig(),
		Mail:   LoadMailConfig(),
		Database: DatabaseConfig{
			Driver: getEnv("DATABASE_DRIVER", "postgres"),
			URL:    getEnv("DATABASE_URL", ""),
		},
		Sweep: SweepConfig{
			Schedule:   getEnv("SWEEP_SCHEDULE", "0 0 0,12 * * *"),
			Workers:    getEnvInt("SWEEP_WORKERS", 4),
			RunOnStart: getEnvBool("SWEEP_RUN_ON_START", false),
		},
		Server: ServerConfig{
			Host:           getEnv("HOST", "0.0.0.0"),
			Port:           getEnv("PORT", "8000"),
			AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://localhost:5173")),
			RatePerSecond:  getEnvFloat("API_RATE_LIMIT", 10),
			RequestTimeout: getEnvDuration("API_REQUEST_TIMEOUT", 30*time.Second),
		},
		RulesPath:       getEnv("MATCH_RULES_PATH", ""),
		StyleServiceURL: getEnv("AI_API_URL", ""),
		BrowserFallback: getEnvBool("BROWSER_FALLBACK", false),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would make startup impossible
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "pgx", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if c.Sweep.Workers <= 0 || c.Sweep.Workers > 64 {
		return fmt.Errorf("SWEEP_WORKERS must be 1..64")
	}
	if strings.TrimSpace(c.Sweep.Schedule) == "" {
		return fmt.Errorf("SWEEP_SCHEDULE is required")
	}
	if c.Search.Timeout <= 0 || c.FetchTimeout <= 0 || c.Mail.Timeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
