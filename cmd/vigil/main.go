package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ayusman/vigil/internal/alert"
	"github.com/ayusman/vigil/internal/config"
	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/monitor"
	"github.com/ayusman/vigil/internal/server"
	"github.com/ayusman/vigil/internal/source"
	"github.com/ayusman/vigil/internal/store"
)

func main() {
	replayPath := flag.String("replay", "", "replay a recorded session file (JSON lines) and print the report")
	extractorCmd := flag.String("extractor", "", "command that emits frames as JSON lines on stdout")
	addr := flag.String("addr", "", "listen address (overrides VIGIL_ADDR)")
	flag.Parse()

	cfg := config.Load()
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *replayPath, *extractorCmd); err != nil {
		logger.Fatal("vigil exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, replayPath, extractorCmd string) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	calibration := fatigue.Calibration(cfg.Calibration)
	if saved, err := st.Settings().Get(store.SettingCalibration); err == nil {
		calibration = fatigue.Calibration(saved)
	}

	hooks := alert.NewRunner(cfg.HookDir, cfg.HookTimeout, logger)
	if err := hooks.Discover(); err != nil {
		return fmt.Errorf("discover alert hooks: %w", err)
	}

	m, err := monitor.New(monitor.Config{
		Fatigue:     cfg.FatigueConfig(),
		Attention:   cfg.AttentionConfig(),
		Calibration: calibration,
		Store:       st,
		Hooks:       hooks,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	if replayPath != "" {
		return replay(m, replayPath)
	}
	return serve(cfg, logger, st, m, extractorCmd)
}

// replay drains a recorded session file through the monitor and prints the
// final report to stdout.
func replay(m *monitor.Monitor, path string) error {
	src, err := source.OpenReplay(path)
	if err != nil {
		return fmt.Errorf("open replay: %w", err)
	}
	defer src.Close()

	if err := m.Run(context.Background(), src); err != nil {
		return fmt.Errorf("replay session: %w", err)
	}

	report, err := m.Finish()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// serve runs the HTTP server and, when an extractor command is given, feeds
// its frames into the monitor until the process is signalled to stop.
func serve(cfg *config.Config, logger *zap.Logger, st *store.Store, m *monitor.Monitor, extractorCmd string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Store:   st,
		Monitor: m,
		Logger:  logger,
	})

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe(cfg.ListenAddr)
	}()

	if extractorCmd != "" {
		go func() {
			src := source.NewExtractor("sh", "-c", extractorCmd)
			defer src.Close()
			errCh <- m.Run(ctx, src)
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	if _, err := m.Finish(); err != nil {
		return err
	}
	return nil
}

// newLogger builds a production zap logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
