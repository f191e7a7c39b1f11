// Package config assembles runtime configuration from environment
// variables, following the same getEnv-with-default convention used
// throughout the rest of this codebase's command entry points.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the fully resolved runtime configuration for one process.
type Config struct {
	// LogFormat is "json" or "pretty".
	LogFormat string
	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string

	// DBPath is the filesystem path to the SQLite database file.
	DBPath string

	// HTTPAddr is the bind address for the admin/status HTTP surface.
	HTTPAddr string

	// UserTimezone is the IANA timezone name used for date-boundary
	// comparisons (e.g. "America/New_York").
	UserTimezone string

	// DaysAhead is the default generation lookahead window in days.
	DaysAhead int

	// MatchWindowDays is how many days in the past a cached match stays valid.
	MatchWindowDays int

	// SchedulerTickInterval is loaded but not read by internal/scheduler,
	// whose loop always wakes once a second to check its sub-task cron
	// schedules.
	SchedulerTickInterval time.Duration

	// GenerationCron is the cron expression for the full-generation task.
	GenerationCron string
	// CacheRefreshCron is the cron expression for the daily cache-refresh task.
	CacheRefreshCron string
	// BackupCron is the cron expression for the database backup task.
	BackupCron string
	// ChannelResetCron is the cron expression for the channel logo-cache
	// reset sweep.
	ChannelResetCron string
	// LinearEPGCron is the cron expression for the linear-EPG refresh task.
	LinearEPGCron string

	// HistoryRetentionDays is how long channel-history rows are kept.
	HistoryRetentionDays int
	// BackupRetentionCount is how many rotated backups to keep.
	BackupRetentionCount int

	// TSDBAPIKey is the API key for TheSportsDB.
	TSDBAPIKey string
	// TSDBRateLimit is the max TheSportsDB requests allowed per minute.
	TSDBRateLimit int

	// GatewayBaseURL is the base URL of the channel aggregator (Dispatcharr-
	// compatible) REST API.
	GatewayBaseURL string
	// GatewayEPGID is the EPG source ID to refresh/associate after generation.
	GatewayEPGID string

	// OutputPath is where the merged XMLTV document is written.
	OutputPath string

	// WorkerPoolSize bounds the number of concurrent provider/match workers.
	WorkerPoolSize int

	// LinearSources is a comma-separated "name=url" list of externally
	// published XMLTV guides to ingest wholesale, highest-priority first
	// (the first entry wins any channel/programme conflict).
	LinearSources string
}

// Load builds a Config from the process environment, applying the same
// defaults the reference deployment ships with.
func Load() Config {
	return Config{
		LogFormat:             getEnv("TEAMARR_LOG_FORMAT", "json"),
		LogLevel:              getEnv("TEAMARR_LOG_LEVEL", "info"),
		DBPath:                getEnv("TEAMARR_DB_PATH", "./data/teamarr.db"),
		HTTPAddr:              getEnv("TEAMARR_HTTP_ADDR", ":8181"),
		UserTimezone:          getEnv("TEAMARR_TIMEZONE", "UTC"),
		DaysAhead:             getEnvInt("TEAMARR_DAYS_AHEAD", 3),
		MatchWindowDays:       getEnvInt("TEAMARR_MATCH_WINDOW_DAYS", 1),
		SchedulerTickInterval: getEnvDuration("TEAMARR_SCHEDULER_TICK", time.Minute),
		GenerationCron:        getEnv("TEAMARR_CRON_GENERATION", "0 */4 * * *"),
		CacheRefreshCron:      getEnv("TEAMARR_CRON_CACHE_REFRESH", "30 2 * * *"),
		BackupCron:            getEnv("TEAMARR_CRON_BACKUP", "0 3 * * *"),
		ChannelResetCron:      getEnv("TEAMARR_CRON_CHANNEL_RESET", "0 4 * * 0"),
		LinearEPGCron:         getEnv("TEAMARR_CRON_LINEAR_EPG", "15 2 * * *"),
		HistoryRetentionDays:  getEnvInt("TEAMARR_HISTORY_RETENTION_DAYS", 30),
		BackupRetentionCount:  getEnvInt("TEAMARR_BACKUP_RETENTION_COUNT", 7),
		TSDBAPIKey:            getEnv("TEAMARR_TSDB_API_KEY", ""),
		TSDBRateLimit:         getEnvInt("TEAMARR_TSDB_RATE_LIMIT", 30),
		GatewayBaseURL:        getEnv("TEAMARR_GATEWAY_URL", ""),
		GatewayEPGID:          getEnv("TEAMARR_GATEWAY_EPG_ID", ""),
		OutputPath:            getEnv("TEAMARR_OUTPUT_PATH", "./data/epg.xml"),
		WorkerPoolSize:        getEnvInt("TEAMARR_WORKER_POOL_SIZE", 16),
		LinearSources:         getEnv("TEAMARR_LINEAR_SOURCES", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
