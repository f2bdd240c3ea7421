package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	VisionAPI VisionAPIConfig
	Redis     RedisConfig
	Analysis  AnalysisConfig
	Jobs      JobsConfig
	OTEL      OTELConfig
}

// VisionAPIConfig holds configuration for the remote analysis API
type VisionAPIConfig struct {
	BaseURL        string
	APIKey         string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	RecipeCount    int
	RateLimitRPM   int
	RateLimitBurst int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AnalysisConfig holds limits and progress bounds for the interactive
// analysis pipeline.
type AnalysisConfig struct {
	MaxImages        int
	MaxManualItems   int
	MaxManualItemLen int

	// ProgressFloor is reported when detection starts; ProgressMidpoint is
	// reached when all images have resolved and the list is reviewable.
	ProgressFloor    float64
	ProgressMidpoint float64
}

// JobsConfig holds background job tracker configuration
type JobsConfig struct {
	// StageDelay paces the cosmetic searching/sourcesFound/calculating
	// transitions while a generation call is outstanding.
	StageDelay time.Duration

	PersistAttempts int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		VisionAPI: VisionAPIConfig{
			BaseURL:        getEnv("VISION_API_URL", "https://api.snapdish.app"),
			APIKey:         getEnv("VISION_API_KEY", ""),
			ConnectTimeout: getEnvAsDuration("VISION_API_CONNECT_TIMEOUT", 90*time.Second),
			RequestTimeout: getEnvAsDuration("VISION_API_REQUEST_TIMEOUT", 120*time.Second),
			RecipeCount:    getEnvAsInt("VISION_API_RECIPE_COUNT", 5),
			RateLimitRPM:   getEnvAsInt("VISION_API_RATE_LIMIT_RPM", -1),
			RateLimitBurst: getEnvAsInt("VISION_API_RATE_LIMIT_BURST", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Analysis: DefaultAnalysisConfig(),
		Jobs: JobsConfig{
			StageDelay:      getEnvAsDuration("JOBS_STAGE_DELAY", 900*time.Millisecond),
			PersistAttempts: getEnvAsInt("JOBS_PERSIST_ATTEMPTS", 3),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "snapdish-core"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DefaultAnalysisConfig returns the analysis limits used when nothing is
// configured explicitly.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		MaxImages:        getEnvAsInt("ANALYSIS_MAX_IMAGES", 5),
		MaxManualItems:   getEnvAsInt("ANALYSIS_MAX_MANUAL_ITEMS", 20),
		MaxManualItemLen: getEnvAsInt("ANALYSIS_MAX_MANUAL_ITEM_LEN", 100),
		ProgressFloor:    0.1,
		ProgressMidpoint: 0.6,
	}
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
