package config

import (
	"time"
)

// SearchConfig holds SerpAPI configuration
type SearchConfig struct {
	APIKey            string
	BaseURL           string
	AmazonDomain      string
	GoogleDomain      string
	Language          string
	Country           string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxResults        int
	Enabled           bool
}

// LoadSearchConfig loads SerpAPI configuration from environment variables
func LoadSearchConfig() SearchConfig {
	return SearchConfig{
		APIKey:            getEnv("SERPAPI_KEY", ""),
		BaseURL:           getEnv("SERPAPI_BASE_URL", "https://serpapi.com/search"),
		AmazonDomain:      getEnv("AMAZON_DOMAIN", "amazon.in"),
		GoogleDomain:      getEnv("GOOGLE_DOMAIN", "google.co.in"),
		Language:          getEnv("SEARCH_LANGUAGE", "en"),
		Country:           getEnv("SEARCH_COUNTRY", "in"),
		Timeout:           getEnvDuration("SEARCH_TIMEOUT", 10*time.Second),
		RequestsPerSecond: getEnvFloat("SERPAPI_RPS", 2),
		MaxResults:        getEnvInt("SEARCH_MAX_RESULTS", 20),
		Enabled:           getEnvBool("SERPAPI_ENABLED", true),
	}
}

// IsValid checks if the search API can be called
func (c SearchConfig) IsValid() bool {
	if !c.Enabled {
		return false
	}

	return c.APIKey != "" && c.BaseURL != ""
}

// MailConfig holds SMTP configuration for price drop emails
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	SSL      bool
	Timeout  time.Duration
}

// LoadMailConfig loads SMTP configuration from environment variables
func LoadMailConfig() MailConfig {
	user := getEnv("EMAIL_USER", "")
	from := getEnv("EMAIL_FROM", "")
	if from == "" && user != "" {
		from = "ValueScout <" + user + ">"
	}
	return MailConfig{
		Host:     getEnv("EMAIL_HOST", "smtp.gmail.com"),
		Port:     getEnvInt("EMAIL_PORT", 587),
		Username: user,
		Password: getEnv("EMAIL_PASSWORD", ""),
		From:     from,
		SSL:      getEnvBool("EMAIL_SECURE", false),
		Timeout:  getEnvDuration("EMAIL_TIMEOUT", 10*time.Second),
	}
}

// IsValid checks if mail credentials are present
func (c MailConfig) IsValid() bool {
	return c.Host != "" && c.Port > 0 && c.Username != "" && c.Password != ""
}
