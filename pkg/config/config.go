package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend    BackendConfig
	Retry      RetryConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Directory  DirectoryConfig
	Search     SearchConfig
	Reconciler ReconcilerConfig
	Reports    ReportsConfig

	// ViewTTL is how long a caller's local request and enrollment state outlives their last request.
	ViewTTL time.Duration
}

// BackendConfig points the gateway at the remote REST API.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RetryConfig controls the fixed bounded retry of outbound calls.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	// UnsafeWithKey allows POST retries only when the request carries an idempotency key.
	UnsafeWithKey bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DirectoryConfig governs caching of the instructor/course directory used by search.
type DirectoryConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SearchConfig tunes geo search defaults.
type SearchConfig struct {
	DefaultMaxDistanceKm float64
}

// ReconcilerConfig configures the attendance/progress drift job.
type ReconcilerConfig struct {
	Enabled    bool
	Workers    int
	Retries    int
	RetryDelay time.Duration
	// ReportTTL bounds how long a drift report is kept after it was generated.
	ReportTTL time.Duration
}

// ReportsConfig configures progress report exports.
type ReportsConfig struct {
	Title      string
	StorageDir string
	// LinkSecret enables shareable download links when set.
	LinkSecret string
	LinkTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Backend = BackendConfig{
		BaseURL: strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("BACKEND_TIMEOUT"), 10*time.Second),
	}

	maxAttempts := v.GetInt("RETRY_MAX_ATTEMPTS")
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	cfg.Retry = RetryConfig{
		MaxAttempts:   maxAttempts,
		Delay:         parseDuration(v.GetString("RETRY_DELAY"), time.Second),
		UnsafeWithKey: v.GetBool("RETRY_UNSAFE_WITH_KEY"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Directory = DirectoryConfig{
		CacheEnabled: v.GetBool("ENABLE_DIRECTORY_CACHE"),
		CacheTTL:     parseDuration(v.GetString("DIRECTORY_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Search = SearchConfig{
		DefaultMaxDistanceKm: v.GetFloat64("SEARCH_DEFAULT_MAX_DISTANCE_KM"),
	}

	cfg.Reconciler = ReconcilerConfig{
		Enabled:    v.GetBool("ENABLE_RECONCILER"),
		Workers:    v.GetInt("RECONCILER_WORKERS"),
		Retries:    v.GetInt("RECONCILER_RETRIES"),
		RetryDelay: parseDuration(v.GetString("RECONCILER_RETRY_DELAY"), time.Second),
		ReportTTL:  parseDuration(v.GetString("RECONCILER_REPORT_TTL"), 24*time.Hour),
	}

	cfg.ViewTTL = parseDuration(v.GetString("LOCAL_VIEW_TTL"), 30*time.Minute)

	cfg.Reports = ReportsConfig{
		Title:      v.GetString("REPORTS_TITLE"),
		StorageDir: v.GetString("REPORTS_STORAGE_DIR"),
		LinkSecret: v.GetString("REPORTS_LINK_SECRET"),
		LinkTTL:    parseDuration(v.GetString("REPORTS_LINK_TTL"), time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	v.SetDefault("RETRY_DELAY", "1s")
	v.SetDefault("RETRY_UNSAFE_WITH_KEY", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_DIRECTORY_CACHE", false)
	v.SetDefault("DIRECTORY_CACHE_TTL", "10m")
	v.SetDefault("SEARCH_DEFAULT_MAX_DISTANCE_KM", 0)

	v.SetDefault("ENABLE_RECONCILER", true)
	v.SetDefault("RECONCILER_WORKERS", 2)
	v.SetDefault("RECONCILER_RETRIES", 2)
	v.SetDefault("RECONCILER_RETRY_DELAY", "1s")
	v.SetDefault("RECONCILER_REPORT_TTL", "24h")
	v.SetDefault("LOCAL_VIEW_TTL", "30m")

	v.SetDefault("REPORTS_TITLE", "Swimming Progress Report")
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_LINK_SECRET", "")
	v.SetDefault("REPORTS_LINK_TTL", "1h")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
