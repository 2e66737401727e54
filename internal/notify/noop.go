package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rfarias/config-sentinel/internal/report"
)

// NoopNotifier drops reports.
type NoopNotifier struct {
	logger zerolog.Logger
	reason string
}

// NewNoop returns a notifier that logs once and does nothing thereafter.
func NewNoop(logger zerolog.Logger, reason string) *NoopNotifier {
	if reason != "" {
		logger.Info().Msg(reason)
	}
	return &NoopNotifier{logger: logger, reason: reason}
}

// Send implements Notifier.
func (n *NoopNotifier) Send(_ context.Context, _ report.AggregateReport) error {
	return nil
}
