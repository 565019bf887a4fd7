package config

import "time"

// ServerConfig is the root configuration for respkv-server.
type ServerConfig struct {
	Server ServerSection `koanf:"server"`
	Store  StoreSection  `koanf:"store"`
	Log    LogSection    `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Redis   RedisConfig   `koanf:"redis"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// RedisConfig configures the RESP listener and the store queue behind it.
type RedisConfig struct {
	Addr string `koanf:"addr"`

	// QueueSize bounds the commands waiting for the store actor.
	QueueSize int `koanf:"queue_size"`

	// RateLimit is the per-connection command rate (commands/s).
	// Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// IdleTimeout closes connections that send nothing for this long.
	// Zero means reads never time out.
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// StoreSection holds the snapshot location. Both fields are exposed
// read-only through CONFIG GET under their Redis names.
type StoreSection struct {
	Dir        string `koanf:"dir"`
	DBFilename string `koanf:"dbfilename"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
