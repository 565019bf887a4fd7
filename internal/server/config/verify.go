package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if err := verifyAddr("server.redis.addr", cfg.Redis.Addr); err != nil {
		return err
	}
	if cfg.Redis.QueueSize < 1 {
		return fmt.Errorf("%w: server.redis.queue_size must be at least 1", ErrInvalid)
	}
	if cfg.Redis.RateLimit < 0 {
		return fmt.Errorf("%w: server.redis.rate_limit must not be negative", ErrInvalid)
	}
	if cfg.Redis.RateLimit > 0 && cfg.Redis.RateBurst < 1 {
		return fmt.Errorf("%w: server.redis.rate_burst must be at least 1 when rate_limit is set", ErrInvalid)
	}
	if cfg.Redis.IdleTimeout < 0 || cfg.Redis.WriteTimeout < 0 {
		return fmt.Errorf("%w: server.redis timeouts must not be negative", ErrInvalid)
	}

	if cfg.Metrics.Addr != "" {
		if err := verifyAddr("server.metrics.addr", cfg.Metrics.Addr); err != nil {
			return err
		}
		if cfg.Metrics.Addr == cfg.Redis.Addr {
			return fmt.Errorf("%w: server.metrics.addr conflicts with server.redis.addr", ErrInvalid)
		}
	}
	return nil
}

func verifyAddr(field, addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, field)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, field, err)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalid, cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, cfg.Format)
	}
	return nil
}
