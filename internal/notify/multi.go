package notify

import (
	"context"

	"github.com/rfarias/config-sentinel/internal/report"
)

// MultiNotifier fans out reports to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that dispatches to all provided notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	filtered := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier == nil {
			continue
		}
		filtered = append(filtered, notifier)
	}
	return &MultiNotifier{notifiers: filtered}
}

// Send implements Notifier. Every notifier is attempted; the first error is
// returned after all have run.
func (m *MultiNotifier) Send(ctx context.Context, rep report.AggregateReport) error {
	var firstErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, rep); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
