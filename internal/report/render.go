package report

import (
	"fmt"
	"strings"
)

const divider = "━━━━━━━━━━━━━━━━━━━━"

// Render produces the human-readable run summary delivered to the operator
// channel. Output is deterministic for a given report.
func Render(r AggregateReport) string {
	var b strings.Builder

	if r.AllSucceeded() {
		b.WriteString("✅ *BACKUP JOB - SUCCESS*\n")
	} else {
		b.WriteString("🔴 *BACKUP JOB - PARTIAL FAILURE*\n")
	}
	b.WriteString(divider + "\n")
	b.WriteString("📊 *Run Summary*\n")
	fmt.Fprintf(&b, "• Devices: `%d`\n", r.Total())
	fmt.Fprintf(&b, "• Succeeded: `%d`\n", r.Succeeded())
	fmt.Fprintf(&b, "• Failed: `%d`\n", r.Failed())
	fmt.Fprintf(&b, "• Duration: `%.2fs`\n", r.Elapsed.Seconds())
	fmt.Fprintf(&b, "• Finished: `%s`\n", r.FinishedAt.Format("02/01/2006 15:04:05"))

	if r.Succeeded() > 0 {
		b.WriteString("\n✅ *Completed Backups*\n")
		b.WriteString(divider + "\n")
		for _, result := range r.Results {
			if !result.Durable() {
				continue
			}
			fmt.Fprintf(&b, "🖥 *%s*\n", result.Hostname)
			fmt.Fprintf(&b, "  • File: `%s`\n", result.File)
			fmt.Fprintf(&b, "  • Size: `%.2f KB`\n", float64(result.SizeBytes)/1024)
			fmt.Fprintf(&b, "  • Time: `%.2fs`\n", result.Elapsed.Seconds())
			if result.Outcome == OutcomePartial {
				fmt.Fprintf(&b, "  • Warning: `history not recorded: %s`\n", result.HistoryWarning)
			}
		}
	}

	if r.Failed() > 0 {
		b.WriteString("\n❌ *Failures*\n")
		b.WriteString(divider + "\n")
		for _, result := range r.Results {
			if result.Durable() {
				continue
			}
			fmt.Fprintf(&b, "🖥 `%s`\n", result.Address)
			fmt.Fprintf(&b, "  • Error: `%s`\n", result.FailureReason)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
