package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/core/command"
	"github.com/yndnr/respkv-go/internal/core/store"
	"github.com/yndnr/respkv-go/internal/infra/buildinfo"
	"github.com/yndnr/respkv-go/internal/infra/confloader"
	"github.com/yndnr/respkv-go/internal/infra/shutdown"
	"github.com/yndnr/respkv-go/internal/server/config"
	"github.com/yndnr/respkv-go/internal/server/httpserver"
	"github.com/yndnr/respkv-go/internal/server/redisserver"
	"github.com/yndnr/respkv-go/internal/storage/rdb"
	"github.com/yndnr/respkv-go/internal/telemetry/logger"
	"github.com/yndnr/respkv-go/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

// errDanglingOption is returned for an odd number of trailing arguments.
var errDanglingOption = errors.New("option without value")

func runServer(c *cli.Context) error {
	opts, err := parseOptionArgs(c.Args().Slice())
	if err != nil {
		return err
	}
	for _, name := range []string{config.OptionDir, config.OptionDBFilename} {
		if c.IsSet(name) {
			opts[name] = c.String(name)
		}
	}

	overrides := map[string]any{}
	for flag, key := range map[string]string{
		"addr":         "server.redis.addr",
		"metrics-addr": "server.metrics.addr",
		"log-level":    "log.level",
		"log-format":   "log.format",
	} {
		if c.IsSet(flag) {
			overrides[key] = c.String(flag)
		}
	}

	configPath := c.String("config")
	cfg, err := loadConfig(configPath, overrides, opts)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting respkv-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configPath)
	log.Info("effective configuration", config.Summary(cfg)...)

	srv, err := start(cfg, log)
	if err != nil {
		return err
	}

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, log)
	srv.registerHooks(shutdownHandler)

	if configPath != "" {
		w, err := watchConfig(configPath, overrides, opts, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return w.Stop()
			})
		}
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		select {
		case <-srv.store.Done():
			log.Error("store actor exited unexpectedly")
			shutdownHandler.Trigger()
		case <-shutdownHandler.Done():
		}
	}()

	log.Info("server started", "addr", srv.redis.Addr().String())
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// parseOptionArgs reads trailing "name value" pairs. Names may carry a
// leading "--" as redis-server allows.
func parseOptionArgs(args []string) (map[string]string, error) {
	opts := make(map[string]string, len(args)/2)
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("%w: %q", errDanglingOption, args[len(args)-1])
	}
	for i := 0; i < len(args); i += 2 {
		name := args[i]
		if len(name) > 2 && name[:2] == "--" {
			name = name[2:]
		}
		opts[name] = args[i+1]
	}
	return opts, nil
}

// loadConfig layers defaults, file, environment, flag overrides and
// finally the startup options, then validates the result.
func loadConfig(path string, overrides map[string]any, opts map[string]string) (*config.ServerConfig, error) {
	cfg := config.Default()

	loaderOpts := []confloader.Option{confloader.WithOverrides(overrides)}
	if path != "" {
		loaderOpts = append(loaderOpts, confloader.WithConfigFile(path))
	}
	if err := confloader.NewLoader(loaderOpts...).Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := config.ApplyOptions(cfg, opts); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// watchConfig reloads the config file on change and applies log.level.
// Everything else needs a restart.
func watchConfig(path string, overrides map[string]any, opts map[string]string, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		cfg, err := loadConfig(path, overrides, opts)
		if err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		if cfg.Log.Level == logger.GetLevel() {
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		log.Info("log level changed", "level", cfg.Log.Level)
	})
	w.StartAsync()
	return w, nil
}

// instance is a running server: the store actor, the RESP gateway and
// the optional ops endpoint.
type instance struct {
	registry  *metric.Registry
	store     *store.Store
	stopStore context.CancelFunc
	redis     *redisserver.Server
	ops       *httpserver.Server
}

func start(cfg *config.ServerConfig, log *slog.Logger) (*instance, error) {
	registry := metric.NewRegistry()

	snap := rdb.Recover(config.SnapshotPath(cfg), log)

	st := store.New(store.Options{
		QueueSize: cfg.Server.Redis.QueueSize,
		Config:    config.StoreOptions(cfg),
		Logger:    log,
		Observer:  registry,
		OnApply: func(seq uint64, cmd command.Command) {
			if log.Enabled(context.Background(), slog.LevelDebug) {
				log.Debug("command applied", append([]any{"seq", seq, "command", cmd.Name()}, commandAttrs(cmd)...)...)
			}
		},
	})
	loaded, err := st.Load(snap.Values, snap.Expires)
	if err != nil {
		return nil, fmt.Errorf("seed store: %w", err)
	}
	registry.SnapshotLoaded(loaded)
	registry.MustRegister(metric.NewCollector(st, cfg.Server.Redis.QueueSize))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := st.Run(ctx); err != nil {
			log.Error("store actor failed", "error", err)
		}
	}()

	redis := redisserver.New(redisserver.Config{
		Address:      cfg.Server.Redis.Addr,
		RateLimit:    cfg.Server.Redis.RateLimit,
		RateBurst:    cfg.Server.Redis.RateBurst,
		IdleTimeout:  cfg.Server.Redis.IdleTimeout,
		WriteTimeout: cfg.Server.Redis.WriteTimeout,
	}, st, redisserver.WithLogger(log), redisserver.WithObserver(registry))
	if err := redis.Start(); err != nil {
		cancel()
		<-st.Done()
		return nil, err
	}

	in := &instance{
		registry:  registry,
		store:     st,
		stopStore: cancel,
		redis:     redis,
	}

	if addr := cfg.Server.Metrics.Addr; addr != "" {
		router := httpserver.NewRouter(httpserver.RouterConfig{
			Metrics: registry.Handler(),
			Health:  in.health,
			Logger:  log,
		})
		in.ops = httpserver.New(addr, router, log)
		if err := in.ops.Start(); err != nil {
			_ = redis.Shutdown(context.Background())
			cancel()
			<-st.Done()
			return nil, err
		}
	}
	return in, nil
}

// commandAttrs returns the log attributes of cmd. Values are clipped by
// the logger.
func commandAttrs(cmd command.Command) []any {
	switch c := cmd.(type) {
	case command.Set:
		return []any{"key", c.Key, "value", string(c.Value)}
	case command.Get:
		return []any{"key", c.Key}
	case command.ConfigGet:
		return []any{"key", c.Key}
	case command.Echo:
		return []any{"message", string(c.Message)}
	case command.Keys:
		return []any{"pattern", c.Pattern}
	case command.NotImplemented:
		return []any{"name", c.Command}
	default:
		return nil
	}
}

func (in *instance) health() error {
	select {
	case <-in.store.Done():
		return store.ErrStopped
	default:
		return nil
	}
}

// registerHooks registers shutdown in startup order; the handler runs
// them in reverse, so connections drain before the store stops.
func (in *instance) registerHooks(h *shutdown.Handler) {
	h.OnShutdown("store", func(ctx context.Context) error {
		in.stopStore()
		select {
		case <-in.store.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	h.OnShutdown("redis", in.redis.Shutdown)
	if in.ops != nil {
		h.OnShutdown("http", in.ops.Shutdown)
	}
}
