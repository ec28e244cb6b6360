package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"streetwise-crawler/crawler"
)

var (
	errInvalidPort      = errors.New("config: invalid PORT number")
	errInvalidRenderer  = errors.New("config: RENDERER must be http or browser")
	errInvalidStrategy  = errors.New("config: PROXY_STRATEGY must be round-robin, random or health")
	errWorkersRange     = errors.New("config: JOB_WORKERS must be 1-16")
	errQueueSize        = errors.New("config: JOB_QUEUE_SIZE must be positive")
	errCrawlsPerHour    = errors.New("config: CRAWLS_PER_HOUR must be positive")
	errThrottleDelays   = errors.New("config: THROTTLE_MIN_DELAY must not exceed THROTTLE_MAX_DELAY")
	errThrottleRPM      = errors.New("config: THROTTLE_RPM must be positive")
	errProxyMaxFailures = errors.New("config: PROXY_MAX_FAILURES must be positive")
)

// Renderer kinds.
const (
	RendererHTTP    = crawler.RendererHTTP
	RendererBrowser = crawler.RendererBrowser
)

// Config holds all application configuration loaded from the environment.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	Renderer   string
	ChromePath string
	UserAgent  string

	DatabasePath string
	CacheTTL     time.Duration

	JobWorkers    int
	JobQueueSize  int
	CrawlsPerHour int

	Proxies          []string
	ProxyStrategy    string
	ProxyMaxFailures int

	ThrottleEnabled  bool
	ThrottleMinDelay time.Duration
	ThrottleMaxDelay time.Duration
	ThrottleRPM      int

	RespectRobots bool
}

// Load reads an optional .env file and then the environment, applying
// defaults for anything unset.
func Load() (Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Renderer:   strings.ToLower(getEnv("RENDERER", RendererHTTP)),
		ChromePath: getEnv("CHROME_PATH", ""),
		UserAgent:  getEnv("USER_AGENT", ""),

		DatabasePath: getEnv("DATABASE_PATH", "streetwise.db"),
		CacheTTL:     getEnvAsDuration("CACHE_TTL", 10*time.Minute),

		JobWorkers:    getEnvAsInt("JOB_WORKERS", 2),
		JobQueueSize:  getEnvAsInt("JOB_QUEUE_SIZE", 32),
		CrawlsPerHour: getEnvAsInt("CRAWLS_PER_HOUR", 5),

		Proxies:          getEnvAsList("PROXIES"),
		ProxyStrategy:    strings.ToLower(getEnv("PROXY_STRATEGY", "health")),
		ProxyMaxFailures: getEnvAsInt("PROXY_MAX_FAILURES", 3),

		ThrottleEnabled:  getEnvAsBool("THROTTLE_ENABLED", false),
		ThrottleMinDelay: getEnvAsDuration("THROTTLE_MIN_DELAY", 2*time.Second),
		ThrottleMaxDelay: getEnvAsDuration("THROTTLE_MAX_DELAY", 8*time.Second),
		ThrottleRPM:      getEnvAsInt("THROTTLE_RPM", 30),

		RespectRobots: getEnvAsBool("RESPECT_ROBOTS", false),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	if c.Renderer != RendererHTTP && c.Renderer != RendererBrowser {
		return fmt.Errorf("%w: got %q", errInvalidRenderer, c.Renderer)
	}

	switch c.ProxyStrategy {
	case "round-robin", "random", "health":
	default:
		return fmt.Errorf("%w: got %q", errInvalidStrategy, c.ProxyStrategy)
	}

	if c.JobWorkers < 1 || c.JobWorkers > 16 {
		return fmt.Errorf("%w: got %d", errWorkersRange, c.JobWorkers)
	}
	if c.JobQueueSize < 1 {
		return fmt.Errorf("%w: got %d", errQueueSize, c.JobQueueSize)
	}
	if c.CrawlsPerHour < 1 {
		return fmt.Errorf("%w: got %d", errCrawlsPerHour, c.CrawlsPerHour)
	}
	if c.ProxyMaxFailures < 1 {
		return fmt.Errorf("%w: got %d", errProxyMaxFailures, c.ProxyMaxFailures)
	}
	if c.ThrottleMinDelay > c.ThrottleMaxDelay {
		return fmt.Errorf("%w: %s > %s", errThrottleDelays, c.ThrottleMinDelay, c.ThrottleMaxDelay)
	}
	if c.ThrottleRPM < 1 {
		return fmt.Errorf("%w: got %d", errThrottleRPM, c.ThrottleRPM)
	}

	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
