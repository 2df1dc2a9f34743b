package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obsidianstack/regionlatency/internal/aggregate"
	"github.com/obsidianstack/regionlatency/internal/api"
	"github.com/obsidianstack/regionlatency/internal/config"
	"github.com/obsidianstack/regionlatency/internal/telemetry"
)

// embeddedDataset is served when data.path is left empty.
//
//go:embed q-vercel-latency.json
var embeddedDataset []byte

const defaultConfigPath = "config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to config file")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("regionlatency-server starting", "config", *configPath)

	cfg, fromFile, err := loadConfig(*configPath, flagPassed("config"))
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	applyLogLevel(level, cfg)

	slog.Info("config loaded",
		"from_file", fromFile,
		"http_port", cfg.Server.HTTPPort,
		"shutdown_timeout", cfg.Server.ShutdownTimeout,
		"max_body_bytes", cfg.Server.MaxBodyBytes,
		"allowed_origins", cfg.Server.CORS.AllowedOrigins,
		"log_level", cfg.Log.Level,
	)

	// The dataset is loaded exactly once; a bad dataset means we never serve.
	table, source, err := loadTable(cfg)
	if err != nil {
		slog.Error("failed to load telemetry dataset", "source", source, "err", err)
		os.Exit(1)
	}
	slog.Info("telemetry dataset loaded",
		"source", source,
		"records", table.Len(),
		"regions", table.Regions(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Only log.level is applied on reload; everything else needs a restart.
	if fromFile {
		go func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config) {
				applyLogLevel(level, next)
				slog.Info("config reloaded", "log_level", next.Log.Level)
			})
			if err != nil {
				slog.Warn("config watcher stopped", "err", err)
			}
		}()
	}

	handler := api.New(aggregate.New(table), api.Options{
		AllowedOrigins:   cfg.Server.CORS.AllowedOrigins,
		AllowCredentials: cfg.Server.CORS.AllowCredentials,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		Logger:           logger,
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			slog.Error("HTTP server stopped", "err", err)
			os.Exit(1)
		}
	}

	slog.Info("regionlatency-server shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown incomplete", "err", err)
	}
}

// loadConfig reads the config file at path. A missing file is only tolerated
// when the path was not given explicitly, in which case defaults are used and
// fromFile is false.
func loadConfig(path string, explicit bool) (cfg *config.Config, fromFile bool, err error) {
	cfg, err = config.Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), false, nil
	}
	return nil, false, err
}

// loadTable returns the telemetry table selected by cfg along with a label
// describing where it came from.
func loadTable(cfg *config.Config) (*telemetry.Table, string, error) {
	if p := cfg.DataPath(); p != "" {
		t, err := telemetry.Load(p)
		return t, p, err
	}
	t, err := telemetry.Parse(bytes.NewReader(embeddedDataset))
	return t, "embedded", err
}

func applyLogLevel(level *slog.LevelVar, cfg *config.Config) {
	lvl, err := cfg.Log.SlogLevel()
	if err != nil {
		// Load has already validated the level.
		return
	}
	level.Set(lvl)
}

// flagPassed reports whether the named flag was set on the command line.
func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}
