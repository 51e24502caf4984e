package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcelontime/browser-automation-sub001/internal/browserworker"
	"github.com/marcelontime/browser-automation-sub001/internal/config"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
	"github.com/marcelontime/browser-automation-sub001/internal/gateway"
	"github.com/marcelontime/browser-automation-sub001/internal/interpreter"
	"github.com/marcelontime/browser-automation-sub001/internal/providers"
	"github.com/marcelontime/browser-automation-sub001/internal/resolver"
	"github.com/marcelontime/browser-automation-sub001/internal/scriptstore"
	"github.com/marcelontime/browser-automation-sub001/internal/session"
	"github.com/marcelontime/browser-automation-sub001/internal/streamer"
	"github.com/marcelontime/browser-automation-sub001/internal/telemetry"
)

// exit codes, per spec §6 / SPEC_FULL §4.14.
const (
	exitOK          = 0
	exitConfigError = 1
	exitListenError = 2
	exitDriverInit  = 3
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway — the single long-running process this repository ships",
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(runServe())
		},
	}
}

func runServe() int {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("config.load_failed", "path", cfgPath, "error", err)
		return exitConfigError
	}
	cfg.Storage.Root = config.ExpandHome(cfg.Storage.Root)
	if err := cfg.Validate(); err != nil {
		slog.Error("config.invalid", "error", err)
		return exitConfigError
	}

	stopWatch, err := config.Watch(cfgPath, cfg)
	if err != nil {
		slog.Warn("config.watch_unavailable", "error", err)
	} else {
		defer stopWatch()
	}

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(context.Background(), cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint, cfg.Telemetry.Insecure)
		if err != nil {
			slog.Warn("telemetry.init_failed", "error", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				shutdownTelemetry(ctx)
			}()
		}
	}

	// Fail fast on a browser that cannot be launched (spec §6 exit code 3),
	// rather than only discovering it on the first session's first action.
	probe := browserworker.NewRodDriver(cfg.Browser.Headless, cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight)
	probeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	probeErr := probe.Open(probeCtx)
	cancel()
	if probeErr != nil {
		slog.Error("browser.init_failed", "error", probeErr)
		return exitDriverInit
	}
	probe.Close()

	var planner interpreter.Planner
	if cfg.Planner.Endpoint != "" {
		provider := providers.NewOpenAIProvider("planner", cfg.Planner.APIKey, cfg.Planner.Endpoint, cfg.Planner.Model)
		planner = interpreter.NewProviderPlanner(provider, cfg.Planner.Model)
	}
	interp := interpreter.New(planner)

	var store scriptstore.Store
	switch cfg.Storage.Backend {
	case "sqlite":
		if err := os.MkdirAll(cfg.Storage.Root, 0o755); err != nil {
			slog.Error("storage.init_failed", "backend", cfg.Storage.Backend, "error", err)
			return exitConfigError
		}
		store, err = scriptstore.NewSQLiteStore(filepath.Join(cfg.Storage.Root, "scripts.db"))
	default:
		store, err = scriptstore.NewFileStore(cfg.Storage.Root)
	}
	if err != nil {
		slog.Error("storage.init_failed", "backend", cfg.Storage.Backend, "error", err)
		return exitConfigError
	}

	driverFactory := func() browserworker.Driver {
		return browserworker.NewRodDriver(cfg.Browser.Headless, cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight)
	}
	streamerFactory := func(w *browserworker.Worker) session.FrameStreamer { return streamer.New(w) }

	sessions := session.New(driverFactory, resolver.Resolve,
		session.WithIdleTimeout(cfg.Session.IdleTimeout),
		session.WithMaxConcurrentExecutions(cfg.Session.MaxConcurrentExecutions),
		session.WithHistoryCapacity(cfg.Session.HistoryCapacity),
		session.WithStreamerFactory(streamerFactory),
	)
	defer sessions.Shutdown()

	srv := gateway.NewServer(cfg, gateway.Deps{
		Sessions:    sessions,
		Interpreter: interp,
		Scripts:     store,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("gateway.shutdown_signal", "signal", sig)
		cancel()
	}()

	slog.Info("basctl.starting", "version", Version, "host", cfg.Gateway.Host, "port", cfg.Gateway.Port)
	if err := srv.Start(ctx); err != nil {
		if errkind.KindOf(err) == errkind.ResourceInit {
			return exitDriverInit
		}
		slog.Error("gateway.listen_failed", "error", err)
		return exitListenError
	}
	return exitOK
}
