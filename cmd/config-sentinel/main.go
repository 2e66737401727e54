package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/rfarias/config-sentinel/internal/config"
	"github.com/rfarias/config-sentinel/internal/coordinator"
	"github.com/rfarias/config-sentinel/internal/device"
	"github.com/rfarias/config-sentinel/internal/history"
	"github.com/rfarias/config-sentinel/internal/inventory"
	"github.com/rfarias/config-sentinel/internal/logging"
	"github.com/rfarias/config-sentinel/internal/metrics"
	"github.com/rfarias/config-sentinel/internal/notify"
	"github.com/rfarias/config-sentinel/internal/runlock"
	"github.com/rfarias/config-sentinel/internal/snapshot"
)

// Exit codes signal the external scheduler: 0 all devices succeeded,
// 1 at least one device failed, 2 the run could not start.
const (
	exitOK         = 0
	exitRunFailed  = 1
	exitStartError = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		startupLogger := logging.New("")
		startupLogger.Error().Err(err).Msg("invalid configuration")
		return exitStartError
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info().Msg("config-sentinel starting")

	targets, err := inventory.Targets(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build device list")
		return exitStartError
	}

	lock, err := runlock.Acquire(cfg.BackupDir)
	if err != nil {
		if errors.Is(err, runlock.ErrRunInProgress) {
			logger.Error().Str("root", cfg.BackupDir).Msg("another run is in progress, refusing to start")
		} else {
			logger.Error().Err(err).Msg("failed to acquire run lock")
		}
		return exitStartError
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn().Err(err).Msg("failed to release run lock")
		}
	}()

	session, err := device.NewSSHSession(logger, cfg.SSHKnownHosts, cfg.SSHInsecureSkipVerify,
		device.WithConnectTimeout(cfg.ConnectTimeout),
		device.WithCommandTimeout(cfg.CommandTimeout),
	)
	if err != nil {
		logger.Error().Err(err).Msg("failed to configure ssh sessions")
		return exitStartError
	}

	store := snapshot.NewStore(cfg.BackupDir, logger)

	var recorder history.Recorder
	if cfg.GitDisabled {
		recorder = history.NewNoop(logger, "history recording disabled")
	} else {
		recorder, err = history.NewGitRecorder(cfg.BackupDir, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to open history store")
			return exitStartError
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord := coordinator.New(logger, session, store, recorder, cfg.Command, cfg.MaxBackups,
		coordinator.WithConcurrency(cfg.Concurrency),
	)
	rep := coord.Run(ctx, targets)

	collectors := metrics.New()
	collectors.RecordReport(rep)

	if err := buildNotifier(logger, cfg).Send(ctx, rep); err != nil {
		logger.Error().Err(err).Msg("notification delivery failed")
		collectors.IncNotifyErrors()
	}

	if err := collectors.Push(cfg.PushgatewayURL); err != nil {
		logger.Warn().Err(err).Msg("metrics push failed")
	}

	if !rep.AllSucceeded() {
		return exitRunFailed
	}
	return exitOK
}

func buildNotifier(logger zerolog.Logger, cfg config.Config) notify.Notifier {
	if cfg.NotifyDryRun {
		return notify.NewDryRunNotifier(logger)
	}
	return notify.NewMultiNotifier(
		notify.NewTelegramNotifier(logger, cfg.TelegramBotToken, cfg.TelegramChatID),
		notify.NewSlackNotifier(logger, cfg.SlackWebhookURL),
	)
}
