package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/hostbridge/bridge"
	"github.com/wippyai/hostbridge/config"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to guest wasm module (omit for loopback)")
		formats     = flag.String("formats", "", "Struct format schema file (overrides HOSTBRIDGE_FORMATS_FILE)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		headless    = flag.Bool("headless", false, "Run without a TUI even on a terminal")
		frames      = flag.Int("frames", 0, "Headless frame count (0 runs until interrupted)")
		wasi        = flag.Bool("wasi", false, "Provide wasi_snapshot_preview1 to the guest")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *formats != "" {
		cfg.FormatsFile = *formats
	}

	tui := *interactive || (!*headless && term.IsTerminal(int(os.Stdout.Fd())))
	if err := run(cfg, *wasmFile, tui, *frames, *wasi); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, wasmFile string, tui bool, frames int, wasi bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zap.NewNop()
	if !tui {
		var err error
		if logger, err = cfg.NewLogger(); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
	}
	bridge.SetLogger(logger)

	reg := prometheus.NewRegistry()
	opts, err := bridge.OptionsFromConfig(cfg, logger, reg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	opts = append(opts, bridge.WithWASI(wasi))

	var wasm []byte
	title := "loopback"
	if wasmFile != "" {
		if wasm, err = os.ReadFile(wasmFile); err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		title = filepath.Base(wasmFile)
	} else {
		opts = append(opts, loopbackOptions(cfg.MemoryPages, cfg.MemoryLimit)...)
	}

	b := bridge.New(opts...)
	defer b.Close(context.Background())

	d, err := newDriver(ctx, b, wasm, logger)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	if tui {
		return runInteractive(d, title, cfg.TickInterval)
	}
	return runHeadless(ctx, d, cfg.TickInterval, frames)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}

// runHeadless steps d every interval until ctx ends or frames have run.
func runHeadless(ctx context.Context, d *driver, interval time.Duration, frames int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; frames <= 0 || n < frames; n++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := d.Step(ctx); err != nil {
			return err
		}
	}
	s := d.Snapshot()
	d.logger.Info("headless run finished",
		zap.Uint64("frames", s.frames),
		zap.Int("handles", s.handles))
	return nil
}
