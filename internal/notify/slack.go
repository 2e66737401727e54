package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/rfarias/config-sentinel/internal/report"
)

const (
	slackMaxBlocks = 50
	// header block + summary context block are always present
	slackReservedBlocks = 2
	slackMaxDevices     = slackMaxBlocks - slackReservedBlocks
)

// SlackNotifier posts run summaries to a Slack incoming webhook. It is a
// secondary channel next to Telegram; either or both may be configured.
type SlackNotifier struct {
	logger zerolog.Logger
	timing timingConfig
	poster *httpPoster
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(rateInterval time.Duration, rateBurst int, backoffInitial, backoffMax, backoffMaxElapsed time.Duration) SlackOption {
	return func(n *SlackNotifier) {
		n.timing.rateInterval = rateInterval
		n.timing.rateBurst = rateBurst
		n.timing.backoffInitial = backoffInitial
		n.timing.backoffMax = backoffMax
		n.timing.backoffMaxElapsed = backoffMaxElapsed
	}
}

// NewSlackNotifier creates a Slack notifier or a noop notifier when the
// webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; slack notifications disabled")
	}

	notifier := &SlackNotifier{
		logger: logger,
		timing: defaultTiming,
	}
	for _, opt := range opts {
		opt(notifier)
	}

	notifier.poster = newHTTPPoster(logger, "slack", webhookURL, "application/json", notifier.timing)

	return notifier
}

// Send implements Notifier.
func (n *SlackNotifier) Send(ctx context.Context, rep report.AggregateReport) error {
	if rep.Total() == 0 {
		return nil
	}
	if err := n.poster.waitForRateLimit(ctx); err != nil {
		return err
	}

	for _, message := range buildSlackMessages(rep) {
		payload, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("marshal slack payload: %w", err)
		}
		if err := n.poster.postWithRetry(ctx, payload); err != nil {
			return err
		}
	}

	n.logger.Debug().
		Int("devices", rep.Total()).
		Int("failed", rep.Failed()).
		Msg("slack notification sent")

	return nil
}

func buildSlackMessages(rep report.AggregateReport) []slack.WebhookMessage {
	total := len(rep.Results)
	chunkTotal := (total + slackMaxDevices - 1) / slackMaxDevices
	if chunkTotal < 1 {
		chunkTotal = 1
	}

	messages := make([]slack.WebhookMessage, 0, chunkTotal)
	for i := 0; i < total; i += slackMaxDevices {
		end := i + slackMaxDevices
		if end > total {
			end = total
		}
		partIndex := (i / slackMaxDevices) + 1
		messages = append(messages, buildSlackMessage(rep, rep.Results[i:end], partIndex, chunkTotal))
	}
	return messages
}

func buildSlackMessage(rep report.AggregateReport, results []report.RunResult, partIndex, partTotal int) slack.WebhookMessage {
	summary := fmt.Sprintf("Config backup: %d/%d devices succeeded", rep.Succeeded(), rep.Total())
	if partTotal > 1 {
		summary = fmt.Sprintf("%s (part %d/%d)", summary, partIndex, partTotal)
	}

	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))
	summaryContext := slack.NewContextBlock("",
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Failed: *%d*", rep.Failed()), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Duration: *%.2fs*", rep.Elapsed.Seconds()), false, false),
	)

	blocks := []slack.Block{header, summaryContext}
	for _, result := range results {
		blocks = append(blocks, buildDeviceBlock(result))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}

func buildDeviceBlock(result report.RunResult) slack.Block {
	if !result.Durable() {
		text := slack.NewTextBlockObject("mrkdwn",
			fmt.Sprintf(":red_circle: `%s` failed", result.Address), false, false)
		fields := []*slack.TextBlockObject{
			slack.NewTextBlockObject("mrkdwn", "*Error:*\n"+result.FailureReason, false, false),
		}
		return slack.NewSectionBlock(text, fields, nil)
	}

	text := slack.NewTextBlockObject("mrkdwn",
		fmt.Sprintf(":white_check_mark: *%s*", result.Hostname), false, false)
	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*File:*\n`%s`", result.File), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Size:*\n%.2f KB", float64(result.SizeBytes)/1024), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Time:*\n%.2fs", result.Elapsed.Seconds()), false, false),
	}
	if result.Outcome == report.OutcomePartial {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", "*Warning:*\nhistory not recorded", false, false))
	}
	return slack.NewSectionBlock(text, fields, nil)
}
