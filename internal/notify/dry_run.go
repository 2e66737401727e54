package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rfarias/config-sentinel/internal/report"
)

// DryRunNotifier logs the rendered report without sending it.
type DryRunNotifier struct {
	logger zerolog.Logger
}

// NewDryRunNotifier returns a notifier that suppresses delivery and logs instead.
func NewDryRunNotifier(logger zerolog.Logger) *DryRunNotifier {
	return &DryRunNotifier{logger: logger}
}

// Send implements Notifier.
func (n *DryRunNotifier) Send(_ context.Context, rep report.AggregateReport) error {
	n.logger.Info().
		Int("devices", rep.Total()).
		Int("succeeded", rep.Succeeded()).
		Int("failed", rep.Failed()).
		Str("summary", report.Render(rep)).
		Msg("[DRY-RUN] Would notify")
	return nil
}
