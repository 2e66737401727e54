// Package coordinator drives one backup run across the configured fleet.
// Each device runs the capture, resolve, store, record pipeline inside an
// isolation boundary: a failure on one device never aborts the others.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rfarias/config-sentinel/internal/device"
	"github.com/rfarias/config-sentinel/internal/history"
	"github.com/rfarias/config-sentinel/internal/hostname"
	"github.com/rfarias/config-sentinel/internal/report"
	"github.com/rfarias/config-sentinel/internal/snapshot"
)

// Store is the snapshot persistence surface the coordinator needs.
type Store interface {
	Write(host, capturedText string, capturedAt time.Time) (snapshot.File, error)
	Rotate(host string, maxBackups int) ([]string, error)
}

// Coordinator owns the aggregate report for the duration of a run. Each
// pipeline returns an immutable result; the coordinator merges them in
// device iteration order, so workers share no mutable state.
type Coordinator struct {
	logger      zerolog.Logger
	capturer    device.Capturer
	store       Store
	recorder    history.Recorder
	command     string
	maxBackups  int
	concurrency int
	resolve     func(capturedText, fallback string) string
	now         func() time.Time
}

// Option customizes coordinator behavior.
type Option func(*Coordinator)

// WithConcurrency bounds how many device pipelines run in parallel.
// The default of 1 preserves strictly sequential processing.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithResolver overrides hostname resolution.
func WithResolver(resolve func(capturedText, fallback string) string) Option {
	return func(c *Coordinator) {
		c.resolve = resolve
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New constructs a Coordinator. command is the fleet-wide retrieval command;
// per-device inventory overrides take precedence.
func New(logger zerolog.Logger, capturer device.Capturer, store Store, recorder history.Recorder, command string, maxBackups int, opts ...Option) *Coordinator {
	c := &Coordinator{
		logger:      logger,
		capturer:    capturer,
		store:       store,
		recorder:    recorder,
		command:     command,
		maxBackups:  maxBackups,
		concurrency: 1,
		resolve:     hostname.Resolve,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the pipeline for every target and returns the aggregate
// report once all devices have been attempted. Individual failures are
// recorded, never propagated.
func (c *Coordinator) Run(ctx context.Context, targets []device.Target) report.AggregateReport {
	started := c.now()
	c.logger.Info().Int("devices", len(targets)).Msg("starting backup run")

	results := make([]report.RunResult, len(targets))

	workers := c.concurrency
	if workers > len(targets) {
		workers = len(targets)
	}

	if workers <= 1 {
		for i, target := range targets {
			results[i] = c.backupDevice(ctx, target)
		}
	} else {
		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for i, target := range targets {
			wg.Add(1)
			go func(i int, target device.Target) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[i] = c.backupDevice(ctx, target)
			}(i, target)
		}
		wg.Wait()
	}

	finished := c.now()
	rep := report.AggregateReport{
		Results:    results,
		Elapsed:    finished.Sub(started),
		FinishedAt: finished,
	}

	c.logger.Info().
		Int("devices", rep.Total()).
		Int("succeeded", rep.Succeeded()).
		Int("failed", rep.Failed()).
		Dur("elapsed", rep.Elapsed).
		Msg("backup run finished")

	return rep
}

func (c *Coordinator) backupDevice(ctx context.Context, target device.Target) report.RunResult {
	started := c.now()
	logger := c.logger.With().Str("device", target.Address).Logger()

	command := c.command
	if target.Command != "" {
		command = target.Command
	}

	captured, err := c.capturer.Capture(ctx, target, command)
	if err != nil {
		logger.Error().Err(err).Msg("capture failed")
		return report.RunResult{
			Address:       target.Address,
			Outcome:       report.OutcomeFailed,
			FailureReason: err.Error(),
			Elapsed:       c.now().Sub(started),
		}
	}

	host := c.resolve(captured.Text, target.Address)

	file, err := c.store.Write(host, captured.Text, captured.CapturedAt)
	if err != nil {
		logger.Error().Err(err).Str("host", host).Msg("snapshot write failed")
		return report.RunResult{
			Address:       target.Address,
			Hostname:      host,
			Outcome:       report.OutcomeFailed,
			FailureReason: err.Error(),
			Elapsed:       c.now().Sub(started),
		}
	}

	result := report.RunResult{
		Address:    target.Address,
		Hostname:   host,
		Outcome:    report.OutcomeSucceeded,
		File:       file.Name,
		SizeBytes:  file.SizeBytes,
		CapturedAt: captured.CapturedAt,
	}

	// The snapshot is durable from here on. History and rotation problems
	// degrade to warnings; they must not retroactively fail the device.
	if commitID, err := c.recorder.Record(ctx, host, file); err != nil {
		logger.Warn().Err(err).Msg("history recording failed; snapshot remains on disk")
		result.Outcome = report.OutcomePartial
		result.HistoryWarning = err.Error()
	} else {
		result.CommitID = string(commitID)
	}

	if _, err := c.store.Rotate(host, c.maxBackups); err != nil {
		logger.Warn().Err(err).Str("host", host).Msg("rotation failed")
	}

	result.Elapsed = c.now().Sub(started)
	logger.Info().
		Str("host", host).
		Str("file", file.Name).
		Int64("bytes", file.SizeBytes).
		Dur("elapsed", result.Elapsed).
		Msg("backup complete")

	return result
}
