// Package notify delivers run reports to operator channels. Delivery is
// best-effort and strictly downstream of snapshot durability: a failed
// notification never reverses or retries completed backups.
package notify

import (
	"context"

	"github.com/rfarias/config-sentinel/internal/report"
)

// Notifier delivers one aggregate run report to an external channel.
type Notifier interface {
	Send(ctx context.Context, rep report.AggregateReport) error
}
