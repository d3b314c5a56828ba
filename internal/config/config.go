package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings, loaded from the environment.
type Config struct {
	DataDir       string
	CollectorMode string // "live" or "mock"
	Port          string

	CacheMaxAge     time.Duration
	PlatformTimeout time.Duration
	OverallTimeout  time.Duration
	RetryBackoff    time.Duration

	HistoricalLimit int
	HotLimit        int

	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
	RedditUserAgent    string

	YouTubeAPIKey string
	YouTubeAPIURL string

	HackerNewsAPIURL string

	DiscordArchiveDir string

	MonitorSchedule  string // cron expression; empty means single-shot checks
	MonitorRetention time.Duration
	MonitorKeywords  string // path to keywords CSV
	WatchlistPath    string // path to keywords.json
}

// Load reads configuration from the environment with typed defaults.
func Load() Config {
	dataDir := getEnv("DATA_DIR", "./data")

	return Config{
		DataDir:       dataDir,
		CollectorMode: getEnv("COLLECTOR_MODE", "live"),
		Port:          getEnv("PORT", "8080"),

		CacheMaxAge:     getEnvDuration("CACHE_MAX_AGE", 24*time.Hour),
		PlatformTimeout: getEnvDuration("PLATFORM_TIMEOUT", 60*time.Second),
		OverallTimeout:  getEnvDuration("OVERALL_TIMEOUT", 5*time.Minute),
		RetryBackoff:    getEnvDuration("RETRY_BACKOFF", 2*time.Second),

		HistoricalLimit: getEnvInt("HISTORICAL_LIMIT", 100),
		HotLimit:        getEnvInt("HOT_LIMIT", 50),

		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUsername:     os.Getenv("REDDIT_USERNAME"),
		RedditPassword:     os.Getenv("REDDIT_PASSWORD"),
		RedditUserAgent:    getEnv("REDDIT_USER_AGENT", "buzzscope/1.0"),

		YouTubeAPIKey: os.Getenv("YOUTUBE_API_KEY"),
		YouTubeAPIURL: getEnv("YOUTUBE_API_URL", "https://www.googleapis.com/youtube/v3"),

		HackerNewsAPIURL: getEnv("HACKERNEWS_API_URL", "https://hacker-news.firebaseio.com/v0"),

		DiscordArchiveDir: getEnv("DISCORD_ARCHIVE_DIR", dataDir+"/discord"),

		MonitorSchedule:  os.Getenv("MONITOR_SCHEDULE"),
		MonitorRetention: getEnvDuration("MONITOR_RETENTION", 30*24*time.Hour),
		MonitorKeywords:  getEnv("MONITOR_KEYWORDS", "input/keywords.csv"),
		WatchlistPath:    getEnv("WATCHLIST_PATH", dataDir+"/keywords.json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
