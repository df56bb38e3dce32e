package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SecurityConfig represents security configuration
type SecurityConfig struct {
	EnableRateLimit       bool
	RateLimitPerSecond    float64
	RateLimitBurst        int
	EnableCORS            bool
	AllowedOrigins        []string
	EnableSecurityHeaders bool
	MaxRequestSize        int64
	EnableRequestID       bool
}

// DatabaseConfig selects and locates the storage backend
type DatabaseConfig struct {
	Driver       string // sqlite3 or postgres
	URL          string // DSN for postgres; ignored for sqlite3
	MaxOpenConns int
}

// GridConfig controls how the post grid is derived and rendered
type GridConfig struct {
	RecentCommentsLimit int
	SkeletonCount       int
	FetchTimeout        time.Duration
	CollationLocale     string // BCP 47 tag, or "auto" to detect from post titles
	CommentsAPIURL      string // empty means read comments from local storage
	EmptyMessage        string // empty keeps the renderer default
	MinifyHTML          bool
	PageTitle           string
}

type Config struct {
	Port              int
	CacheTTL          time.Duration
	DataDir           string
	Database          DatabaseConfig
	Feeds             []string
	FetchCommentFeeds bool
	LogLevel          string
	PollInterval      time.Duration
	EnableWeb         bool
	EnableSwagger     bool
	Grid              GridConfig
	Security          SecurityConfig
}

func Load() *Config {
	port := getEnvAsInt("PORT", 8080)
	cacheTTL := getEnvAsDuration("CACHE_TTL", 1*time.Minute)
	dataDir := getEnv("DATA_DIR", "./data")
	logLevel := getEnv("LOG_LEVEL", "info")
	pollInterval := getEnvAsDuration("POLL_INTERVAL", 15*time.Minute)
	enableWeb := getEnvAsBool("ENABLE_WEB", true)
	enableSwagger := getEnvAsBool("ENABLE_SWAGGER", true)

	return &Config{
		Port:              port,
		CacheTTL:          cacheTTL,
		DataDir:           dataDir,
		Database:          loadDatabaseConfig(),
		Feeds:             getEnvAsStringSlice("BLOG_FEEDS", nil),
		FetchCommentFeeds: getEnvAsBool("FETCH_COMMENT_FEEDS", true),
		LogLevel:          logLevel,
		PollInterval:      pollInterval,
		EnableWeb:         enableWeb,
		EnableSwagger:     enableSwagger,
		Grid:              loadGridConfig(),
		Security:          loadSecurityConfig(),
	}
}

// Verbose reports whether LOG_LEVEL lets informational progress lines through.
// Only "warn" and "error" silence them; warnings and errors are always logged.
func (c *Config) Verbose() bool {
	switch strings.ToLower(c.LogLevel) {
	case "warn", "warning", "error":
		return false
	default:
		return true
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite3")),
		URL:          getEnv("DATABASE_URL", ""),
		MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
	}
}

func loadGridConfig() GridConfig {
	return GridConfig{
		RecentCommentsLimit: getEnvAsInt("RECENT_COMMENTS_LIMIT", 20),
		SkeletonCount:       getEnvAsInt("SKELETON_COUNT", 6),
		FetchTimeout:        getEnvAsDuration("FETCH_TIMEOUT", 3*time.Second),
		CollationLocale:     getEnv("COLLATION_LOCALE", "en"),
		CommentsAPIURL:      strings.TrimRight(getEnv("COMMENTS_API_URL", ""), "/"),
		EmptyMessage:        getEnv("EMPTY_MESSAGE", ""),
		MinifyHTML:          getEnvAsBool("MINIFY_HTML", true),
		PageTitle:           getEnv("PAGE_TITLE", "Latest posts"),
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		EnableRateLimit:       getEnvAsBool("ENABLE_RATE_LIMIT", true),
		RateLimitPerSecond:    getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10.0),
		RateLimitBurst:        getEnvAsInt("RATE_LIMIT_BURST", 20),
		EnableCORS:            getEnvAsBool("ENABLE_CORS", true),
		AllowedOrigins:        getEnvAsStringSlice("ALLOWED_ORIGINS", []string{"*"}),
		EnableSecurityHeaders: getEnvAsBool("ENABLE_SECURITY_HEADERS", true),
		MaxRequestSize:        getEnvAsInt64("MAX_REQUEST_SIZE", 1<<20), // 1MB
		EnableRequestID:       getEnvAsBool("ENABLE_REQUEST_ID", true),
	}
}

func getEnv(key string, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultVal
}
