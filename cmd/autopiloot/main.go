package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"go.temporal.io/sdk/client"

	"github.com/raynmakers/autopiloot/internal/config"
	"github.com/raynmakers/autopiloot/internal/external"
	"github.com/raynmakers/autopiloot/internal/notify"
	"github.com/raynmakers/autopiloot/internal/orchestrator"
	"github.com/raynmakers/autopiloot/internal/store"
	"github.com/raynmakers/autopiloot/internal/temporal"
)

func configureLogger(logLevel string, useDev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if useDev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func acquireFlock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("flock: open %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("another autopiloot instance is running (lock: %s)", path)
	}
	f.Truncate(0)
	f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())
	return f, nil
}

func releaseFlock(f *os.File) {
	if f == nil {
		return
	}
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	name := f.Name()
	f.Close()
	os.Remove(name)
}

func main() {
	configPath := flag.String("config", "autopiloot.toml", "path to config file")
	once := flag.Bool("once", false, "run a single daily cycle then exit")
	dev := flag.Bool("dev", false, "use text log format (default is JSON)")
	stateDB := flag.String("state-db", "autopiloot.db", "path to the sqlite state database")
	lockFile := flag.String("lock-file", "/tmp/autopiloot.lock", "single-instance lock file path")
	temporalHostPort := flag.String("temporal-host-port", "127.0.0.1:7233", "Temporal frontend host:port")
	noTemporal := flag.Bool("no-temporal", false, "run the daily cycle in-process instead of through the Temporal worker")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("autopiloot starting", "config", *configPath)

	cfgManager, err := config.LoadManager(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	logger = configureLogger("info", *dev)
	slog.SetDefault(logger)

	lock, err := acquireFlock(*lockFile)
	if err != nil {
		logger.Error("failed to acquire lock", "error", err)
		os.Exit(1)
	}
	defer releaseFlock(lock)

	st, err := store.Open(*stateDB)
	if err != nil {
		logger.Error("failed to open store", "path", *stateDB, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	creds, err := config.ResolveCredentials()
	if err != nil {
		logger.Warn("one or more external service credentials are not configured; the corresponding backend falls back to the unconfigured stub", "error", err)
		creds = &config.Credentials{SlackBotToken: os.Getenv("SLACK_BOT_TOKEN")}
	}

	var notifier external.NotificationSink
	if cfg.Notifications.Slack.Channel != "" {
		notifier = notify.NewSlackSink(nil, creds.SlackBotToken, cfg.Notifications.Slack.Channel)
	}

	orch := orchestrator.New(orchestrator.Dependencies{
		ConfigManager: cfgManager,
		Store:         st,
		Channels:      external.UnconfiguredChannelSource{},
		Transcriber:   external.UnconfiguredTranscription{},
		Summarizer:    external.UnconfiguredSummarization{},
		Index:         external.UnconfiguredVectorIndex{},
		Notifier:      notifier,
		Logger:        logger.With("component", "orchestrator"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runOnce := func(ctx context.Context) {
		discovered, err := orch.PlanDailyRun(ctx)
		if err != nil {
			logger.Error("daily run: plan phase failed", "error", err)
			return
		}

		completed, failed := 0, 0
		toTranscribe, err := orch.ListVideosByStatus("discovered", 50)
		if err != nil {
			logger.Error("daily run: list discovered videos failed", "error", err)
		}
		for _, v := range toTranscribe {
			if err := orch.DispatchTranscriber(ctx, v.VideoID); err != nil {
				logger.Warn("daily run: transcribe dispatch failed", "video_id", v.VideoID, "error", err)
				failed++
			}
		}

		toSummarize, err := orch.ListVideosByStatus("transcribed", 50)
		if err != nil {
			logger.Error("daily run: list transcribed videos failed", "error", err)
		}
		for _, v := range toSummarize {
			if err := orch.DispatchSummarizer(ctx, v.VideoID); err != nil {
				logger.Warn("daily run: summarize dispatch failed", "video_id", v.VideoID, "error", err)
				failed++
				continue
			}
			completed++
		}

		summary, err := orch.EmitRunEvents(ctx, discovered, completed, failed)
		if err != nil {
			logger.Error("daily run: emit events failed", "error", err)
			return
		}
		logger.Info("daily run complete", "health_score", summary.HealthScore, "status_icon", summary.StatusIcon)
	}

	if *once {
		logger.Info("running single daily cycle (--once mode)")
		runOnce(ctx)
		logger.Info("single cycle complete, exiting")
		return
	}

	var temporalClient client.Client
	var stopWorker func()
	if !*noTemporal {
		stopWorker, err = temporal.StartWorker(*temporalHostPort, orch, logger.With("component", "temporal-worker"))
		if err != nil {
			logger.Error("failed to start temporal worker, falling back to in-process scheduling", "error", err)
			*noTemporal = true
		} else {
			defer stopWorker()
			temporalClient, err = client.Dial(client.Options{HostPort: *temporalHostPort})
			if err != nil {
				logger.Error("failed to dial temporal for trigger client, falling back to in-process scheduling", "error", err)
				*noTemporal = true
			} else {
				defer temporalClient.Close()
			}
		}
	}

	dailyCron := strings.TrimSpace(cfg.Orchestrator.DailyCron)
	if dailyCron == "" {
		dailyCron = "0 6 * * *"
	}

	c := cron.New()
	err = c.AddFunc(dailyCron, func() {
		runID := time.Now().UTC().Format("2006-01-02")
		if *noTemporal {
			logger.Info("cron tick: running daily cycle in-process", "run_id", runID)
			runOnce(ctx)
			return
		}
		logger.Info("cron tick: triggering daily run workflow", "run_id", runID)
		if err := temporal.TriggerDailyRun(ctx, temporalClient, "daily-run-"+runID, temporal.DailyRunRequest{}); err != nil {
			logger.Error("failed to trigger daily run workflow", "run_id", runID, "error", err)
		}
	})
	if err != nil {
		logger.Error("failed to schedule daily cron job", "cron", dailyCron, "error", err)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	logger.Info("autopiloot running", "daily_cron", dailyCron, "temporal_enabled", !*noTemporal)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownStart := time.Now()
	logger.Info("received signal, shutting down")
	cancel()
	logger.Info("autopiloot stopped", "shutdown_duration", time.Since(shutdownStart).String())
}
