package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ConfigurationError describes an invalid configuration value. It is fatal at
// startup and never occurs mid-request.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

// Config is the root configuration, populated from the environment.
type Config struct {
	Port      string
	DBPath    string
	RedisAddr string
	AppEnv    string

	LLM       LLMConfig
	Cache     CacheConfig
	Detection DetectionConfig
	Cost      CostConfig
}

// LLMConfig contains settings for the LLM provider.
type LLMConfig struct {
	URL         string
	Model       string
	APIKey      string // optional bearer token for hosted endpoints
	Timeout     time.Duration
	Temperature float64
}

// CacheConfig contains result cache and provider health settings.
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	HealthTTL  time.Duration
}

// DetectionConfig contains scoring thresholds and ensemble weights.
type DetectionConfig struct {
	MinTextLength int
	MaxTextLength int

	LLMWeight         float64
	StatisticalWeight float64

	AIScoreThreshold          int
	HighConfidenceThreshold   int
	MediumConfidenceThreshold int
	ConfidenceDelta           int
}

// TierLimits are the per-day request and cost budgets for one plan tier.
type TierLimits struct {
	MaxRequestsPerDay int
	MaxCostPerDayUSD  float64
}

// CostConfig contains process-wide and per-tier cost governance settings.
type CostConfig struct {
	DailyAlertUSD     float64
	DailyEmergencyUSD float64

	Free       TierLimits
	Pro        TierLimits
	Enterprise TierLimits
}

// Production reports whether the service runs with production defaults.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

// Load reads configuration from the environment, applying per-environment
// defaults, and validates it. A .env file is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	appEnv := getEnv("APP_ENV", "development")
	prod := appEnv == "production"

	// Lower temperature and a long cache TTL in production for determinism.
	defaultTemp := "0.3"
	defaultCacheTTL := "30"
	if prod {
		defaultTemp = "0"
		defaultCacheTTL = strconv.Itoa(7 * 24 * 60) // 7 days
	}

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		DBPath:    getEnv("DB_PATH", "detector.db"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		AppEnv:    appEnv,
		LLM: LLMConfig{
			URL:         getEnv("OLLAMA_URL", "http://localhost:11434"),
			Model:       getEnv("OLLAMA_MODEL", "llama3.1:8b"),
			APIKey:      os.Getenv("LLM_API_KEY"),
			Timeout:     time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 30)) * time.Second,
			Temperature: getEnvFloat("LLM_TEMPERATURE", mustParseFloat(defaultTemp)),
		},
		Cache: CacheConfig{
			TTL:        time.Duration(getEnvInt("CACHE_TTL_MINUTES", mustParseInt(defaultCacheTTL))) * time.Minute,
			MaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 1000),
			HealthTTL:  time.Duration(getEnvInt("HEALTH_TTL_MINUTES", 5)) * time.Minute,
		},
		Detection: DetectionConfig{
			MinTextLength:             getEnvInt("MIN_TEXT_LENGTH", 10),
			MaxTextLength:             getEnvInt("MAX_TEXT_LENGTH", 15000),
			LLMWeight:                 getEnvFloat("ENSEMBLE_LLM_WEIGHT", 0.7),
			StatisticalWeight:         getEnvFloat("ENSEMBLE_STATISTICAL_WEIGHT", 0.3),
			AIScoreThreshold:          getEnvInt("AI_SCORE_THRESHOLD", 68),
			HighConfidenceThreshold:   getEnvInt("HIGH_CONFIDENCE_THRESHOLD", 75),
			MediumConfidenceThreshold: getEnvInt("MEDIUM_CONFIDENCE_THRESHOLD", 50),
			ConfidenceDelta:           getEnvInt("CONFIDENCE_DELTA", 15),
		},
		Cost: CostConfig{
			DailyAlertUSD:     getEnvFloat("DAILY_COST_ALERT_USD", 10),
			DailyEmergencyUSD: getEnvFloat("DAILY_COST_EMERGENCY_USD", 25),
			Free: TierLimits{
				MaxRequestsPerDay: getEnvInt("FREE_MAX_REQUESTS_PER_DAY", 10),
				MaxCostPerDayUSD:  getEnvFloat("FREE_MAX_COST_PER_DAY_USD", 0.10),
			},
			Pro: TierLimits{
				MaxRequestsPerDay: getEnvInt("PRO_MAX_REQUESTS_PER_DAY", 500),
				MaxCostPerDayUSD:  getEnvFloat("PRO_MAX_COST_PER_DAY_USD", 2.50),
			},
			Enterprise: TierLimits{
				MaxRequestsPerDay: getEnvInt("ENTERPRISE_MAX_REQUESTS_PER_DAY", 10000),
				MaxCostPerDayUSD:  getEnvFloat("ENTERPRISE_MAX_COST_PER_DAY_USD", 25),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every invariant that must hold before the service starts.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.LLM.URL); err != nil {
		return &ConfigurationError{Key: "OLLAMA_URL", Reason: err.Error()}
	}
	if c.LLM.Model == "" {
		return &ConfigurationError{Key: "OLLAMA_MODEL", Reason: "must not be empty"}
	}
	if c.LLM.APIKey != "" && !strings.HasPrefix(c.LLM.APIKey, "sk-") {
		return &ConfigurationError{Key: "LLM_API_KEY", Reason: "must start with sk-"}
	}
	if c.LLM.Timeout <= 0 {
		return &ConfigurationError{Key: "LLM_TIMEOUT_SECONDS", Reason: "must be positive"}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return &ConfigurationError{Key: "LLM_TEMPERATURE", Reason: "must be in [0,1]"}
	}

	if c.Cache.TTL <= 0 {
		return &ConfigurationError{Key: "CACHE_TTL_MINUTES", Reason: "must be positive"}
	}
	if c.Cache.MaxEntries <= 0 {
		return &ConfigurationError{Key: "CACHE_MAX_ENTRIES", Reason: "must be positive"}
	}
	if c.Cache.HealthTTL <= 0 {
		return &ConfigurationError{Key: "HEALTH_TTL_MINUTES", Reason: "must be positive"}
	}

	d := c.Detection
	if d.MinTextLength <= 0 || d.MaxTextLength <= d.MinTextLength {
		return &ConfigurationError{Key: "MIN_TEXT_LENGTH/MAX_TEXT_LENGTH", Reason: "require 0 < min < max"}
	}
	if sum := d.LLMWeight + d.StatisticalWeight; sum < 0.99 || sum > 1.01 {
		return &ConfigurationError{
			Key:    "ENSEMBLE_LLM_WEIGHT/ENSEMBLE_STATISTICAL_WEIGHT",
			Reason: fmt.Sprintf("weights must sum to 1.0, got %.3f", sum),
		}
	}
	for key, v := range map[string]int{
		"AI_SCORE_THRESHOLD":          d.AIScoreThreshold,
		"HIGH_CONFIDENCE_THRESHOLD":   d.HighConfidenceThreshold,
		"MEDIUM_CONFIDENCE_THRESHOLD": d.MediumConfidenceThreshold,
	} {
		if v < 0 || v > 100 {
			return &ConfigurationError{Key: key, Reason: "must be in [0,100]"}
		}
	}
	if d.ConfidenceDelta <= 0 {
		return &ConfigurationError{Key: "CONFIDENCE_DELTA", Reason: "must be positive"}
	}

	if c.Cost.DailyAlertUSD <= 0 {
		return &ConfigurationError{Key: "DAILY_COST_ALERT_USD", Reason: "must be positive"}
	}
	if c.Cost.DailyEmergencyUSD < c.Cost.DailyAlertUSD {
		return &ConfigurationError{Key: "DAILY_COST_EMERGENCY_USD", Reason: "must be >= DAILY_COST_ALERT_USD"}
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func mustParseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func mustParseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
