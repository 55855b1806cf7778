package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "sjsage522/jobfeedworker/pkg/errors"
)

// Renderer and store backend names accepted by the configuration
const (
	RendererPlaywright = "playwright"
	RendererHTTP       = "http"

	StoreFile  = "file"
	StoreRedis = "redis"
)

// Config represents the application configuration
type Config struct {
	// Telegram configuration
	TelegramToken          string
	TelegramChatID         string
	TelegramAPIURL         string
	TelegramDisablePreview bool

	// Feed configuration
	FeedURL             string
	FeedName            string
	CardSelector        string
	TitleSelector       string
	DescriptionSelector string
	DateSelector        string

	// Polling configuration
	PollInterval time.Duration

	// Rendering configuration
	Renderer          string
	BrowserHeadless   bool
	BrowserSlowMo     time.Duration
	BrowserExecutable string
	BrowserUserAgent  string
	RenderTimeout     time.Duration

	// Dedup store configuration
	StoreBackend string
	StatePath    string
	RedisAddr    string
	RedisDB      int
	RedisKey     string

	// Memcache configuration for the cycle lease, empty disables it
	MemcacheAddr string
	LeaseTTL     time.Duration

	// Notification configuration
	MaxDescription int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		TelegramToken:          getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:         getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramAPIURL:         getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		TelegramDisablePreview: getEnvBool("TELEGRAM_DISABLE_PREVIEW", true),

		FeedURL:             getEnv("FEED_URL", "https://www.upwork.com/nx/find-work/most-recent"),
		FeedName:            getEnv("FEED_NAME", "Upwork"),
		CardSelector:        getEnv("FEED_CARD_SELECTOR", ".air3-card-section.air3-card-hover.p-4.px-2x.px-md-4x"),
		TitleSelector:       getEnv("FEED_TITLE_SELECTOR", "h3.job-tile-title a"),
		DescriptionSelector: getEnv("FEED_DESCRIPTION_SELECTOR", `span[data-test="job-description-text"]`),
		DateSelector:        getEnv("FEED_DATE_SELECTOR", `span.text-caption span[data-test="posted-on"]`),

		PollInterval: getEnvSeconds("POLL_INTERVAL_SECONDS", 15*60),

		Renderer:          getEnv("RENDERER", RendererPlaywright),
		BrowserHeadless:   getEnvBool("BROWSER_HEADLESS", true),
		BrowserSlowMo:     time.Duration(getEnvInt("BROWSER_SLOWMO_MS", 2)) * time.Millisecond,
		BrowserExecutable: getEnv("BROWSER_EXECUTABLE", ""),
		BrowserUserAgent:  getEnv("BROWSER_USER_AGENT", ""),
		RenderTimeout:     getEnvSeconds("RENDER_TIMEOUT_SECONDS", 60),

		StoreBackend: getEnv("STORE_BACKEND", StoreFile),
		StatePath:    getEnv("STATE_PATH", "jobs.json"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:      getEnvInt("REDIS_DB", 0),
		RedisKey:     getEnv("REDIS_KEY", "jobfeed:seen"),

		MemcacheAddr: getEnv("MEMCACHE_ADDR", ""),
		LeaseTTL:     getEnvSeconds("LEASE_TTL_SECONDS", 10*60),

		MaxDescription: getEnvInt("NOTIFY_MAX_DESCRIPTION", 1500),

		Environment: getEnv("JOBFEED_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration can drive a poll cycle
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TelegramToken) == "" {
		return apperrors.NewConfiguration("TELEGRAM_BOT_TOKEN is required", nil)
	}
	if strings.TrimSpace(c.TelegramChatID) == "" {
		return apperrors.NewConfiguration("TELEGRAM_CHAT_ID is required", nil)
	}
	if u, err := url.Parse(c.FeedURL); err != nil || u.Scheme == "" || u.Host == "" {
		return apperrors.NewConfiguration("FEED_URL must be an absolute URL", err)
	}
	if c.CardSelector == "" || c.TitleSelector == "" {
		return apperrors.NewConfiguration("card and title selectors must not be empty", nil)
	}
	if c.PollInterval < time.Second {
		return apperrors.NewConfiguration("POLL_INTERVAL_SECONDS must be at least 1", nil)
	}
	if c.RenderTimeout <= 0 {
		return apperrors.NewConfiguration("RENDER_TIMEOUT_SECONDS must be positive", nil)
	}
	switch c.Renderer {
	case RendererPlaywright, RendererHTTP:
	default:
		return apperrors.NewConfiguration("unknown RENDERER "+c.Renderer, nil)
	}
	switch c.StoreBackend {
	case StoreFile:
		if c.StatePath == "" {
			return apperrors.NewConfiguration("STATE_PATH is required for the file store", nil)
		}
	case StoreRedis:
		if c.RedisAddr == "" || c.RedisKey == "" {
			return apperrors.NewConfiguration("REDIS_ADDR and REDIS_KEY are required for the redis store", nil)
		}
	default:
		return apperrors.NewConfiguration("unknown STORE_BACKEND "+c.StoreBackend, nil)
	}
	if c.MemcacheAddr != "" && c.LeaseTTL < time.Second {
		return apperrors.NewConfiguration("LEASE_TTL_SECONDS must be at least 1", nil)
	}
	// A lease that expires mid-render lets a second instance start the same cycle
	if c.MemcacheAddr != "" && c.LeaseTTL <= c.RenderTimeout {
		return apperrors.NewConfiguration("LEASE_TTL_SECONDS must exceed RENDER_TIMEOUT_SECONDS", nil)
	}
	if c.MaxDescription < 0 {
		return apperrors.NewConfiguration("NOTIFY_MAX_DESCRIPTION must not be negative", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
