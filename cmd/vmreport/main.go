package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/Yterayut/vm-daily-report-system/internal/api"
	"github.com/Yterayut/vm-daily-report-system/internal/collector"
	"github.com/Yterayut/vm-daily-report-system/internal/config"
	"github.com/Yterayut/vm-daily-report-system/internal/cycle"
	"github.com/Yterayut/vm-daily-report-system/internal/dispatch"
	"github.com/Yterayut/vm-daily-report-system/internal/notify"
	"github.com/Yterayut/vm-daily-report-system/internal/power"
	"github.com/Yterayut/vm-daily-report-system/internal/statestore"
	"github.com/Yterayut/vm-daily-report-system/internal/status"
	"github.com/Yterayut/vm-daily-report-system/internal/threshold"
	"github.com/Yterayut/vm-daily-report-system/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to optional .env file with credentials")
	once := flag.Bool("once", false, "run a single reporting cycle and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Credentials live in the environment, never in the YAML file. A missing
	// .env file is fine — the variables may already be exported.
	if err := godotenv.Load(*envPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load env file", "path", *envPath, "err", err)
	}

	slog.Info("vm-report starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"collector", cfg.Collector.Type,
		"schedule", cfg.Schedule,
		"state_file", cfg.State.Path,
		"http_port", cfg.HTTP.Port,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	latest := status.NewLatest()

	runner, err := buildRunner(cfg, latest)
	if err != nil {
		slog.Error("failed to assemble pipeline", "err", err)
		os.Exit(1)
	}

	if *once {
		if _, err := runner.Run(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		return
	}

	// The runner is swapped wholesale on config reload; the cron job always
	// picks up the current one.
	var mu sync.RWMutex
	current := runner

	runCycle := func() {
		mu.RLock()
		r := current
		mu.RUnlock()
		if _, err := r.Run(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
		}
	}

	// Cycles are serialized: a tick that fires while the previous cycle is
	// still running is skipped, not queued.
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := sched.AddFunc(cfg.Schedule, runCycle); err != nil {
		slog.Error("invalid schedule", "schedule", cfg.Schedule, "err", err)
		os.Exit(1)
	}
	sched.Start()
	slog.Info("scheduler started", "schedule", cfg.Schedule)

	// Hot-reload: rebuild the pipeline when the config file changes. The
	// schedule itself is fixed for the process lifetime.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			r, err := buildRunner(next, latest)
			if err != nil {
				slog.Error("config reload: pipeline rebuild failed — keeping previous", "err", err)
				return
			}
			mu.Lock()
			current = r
			mu.Unlock()
			slog.Info("config reloaded", "collector", next.Collector.Type)
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// Read-only status surface: REST API + WebSocket report stream.
	var httpSrv *http.Server
	if cfg.HTTP.Port > 0 {
		hub := ws.New(latest, cfg.HTTP.StreamInterval)
		go hub.Run(ctx)

		mux := http.NewServeMux()
		mux.Handle("/api/", api.New(latest))
		mux.Handle("/ws/stream", hub)

		httpSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler: mux,
		}
		go func() {
			slog.Info("HTTP server listening", "port", cfg.HTTP.Port)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("HTTP server stopped", "err", err)
			}
		}()
	}

	<-ctx.Done()
	slog.Info("vm-report shutting down")
	stop := sched.Stop()
	<-stop.Done() // wait for an in-flight cycle to finish
	if httpSrv != nil {
		httpSrv.Shutdown(context.Background()) //nolint:errcheck
	}
}

// buildRunner assembles the full reporting pipeline from one config snapshot.
func buildRunner(cfg *config.Config, latest *status.Latest) (*cycle.Runner, error) {
	coll, err := collector.New(cfg.Collector)
	if err != nil {
		return nil, err
	}

	thresholds := threshold.Thresholds{
		CPU:    threshold.Limit{Warning: cfg.Thresholds.CPU.Warning, Critical: cfg.Thresholds.CPU.Critical},
		Memory: threshold.Limit{Warning: cfg.Thresholds.Memory.Warning, Critical: cfg.Thresholds.Memory.Critical},
		Disk:   threshold.Limit{Warning: cfg.Thresholds.Disk.Warning, Critical: cfg.Thresholds.Disk.Critical},
	}

	store := statestore.New(cfg.State.Path)
	detector := power.NewDetector(cfg.Power.RecoveryWindow, thresholds.Status)
	dispatcher := dispatch.New(buildChannels(cfg.Channels), cfg.Dispatch.TransitionCap)

	return cycle.New(coll, store, detector, thresholds, dispatcher, cfg.State.Retention, latest), nil
}

// buildChannels instantiates every configured notification channel.
func buildChannels(cfg config.ChannelsConfig) []dispatch.Channel {
	var out []dispatch.Channel
	if cfg.Email != nil {
		out = append(out, notify.NewEmail(*cfg.Email))
	}
	if cfg.Line != nil {
		out = append(out, notify.NewLine(*cfg.Line))
	}
	for _, wh := range cfg.Webhooks {
		out = append(out, notify.NewWebhook(wh))
	}
	if len(out) == 0 {
		slog.Warn("no notification channels configured — reports will not be delivered")
	}
	return out
}
