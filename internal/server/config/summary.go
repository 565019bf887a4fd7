package config

// Summary returns the effective settings as slog key/value pairs for the
// startup log line.
func Summary(cfg *ServerConfig) []any {
	metrics := cfg.Server.Metrics.Addr
	if metrics == "" {
		metrics = "disabled"
	}
	return []any{
		"redis_addr", cfg.Server.Redis.Addr,
		"queue_size", cfg.Server.Redis.QueueSize,
		"rate_limit", cfg.Server.Redis.RateLimit,
		"idle_timeout", cfg.Server.Redis.IdleTimeout,
		"metrics_addr", metrics,
		"snapshot", orNone(SnapshotPath(cfg)),
		"log_level", cfg.Log.Level,
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
