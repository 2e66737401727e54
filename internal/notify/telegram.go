package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rfarias/config-sentinel/internal/report"
)

const defaultTelegramAPIBase = "https://api.telegram.org"

// telegramMessage is the sendMessage payload for the bot API.
type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// TelegramNotifier delivers run summaries via the Telegram bot API.
type TelegramNotifier struct {
	logger zerolog.Logger
	chatID string
	timing timingConfig
	apiURL string
	poster *httpPoster
}

// TelegramOption customizes TelegramNotifier behavior.
type TelegramOption func(*TelegramNotifier)

// WithTelegramAPIBase overrides the bot API base URL (primarily for testing).
func WithTelegramAPIBase(base string) TelegramOption {
	return func(n *TelegramNotifier) {
		n.apiURL = base
	}
}

// WithTelegramTiming overrides timing parameters (primarily for testing).
func WithTelegramTiming(rateInterval time.Duration, rateBurst int, backoffInitial, backoffMax, backoffMaxElapsed time.Duration) TelegramOption {
	return func(n *TelegramNotifier) {
		n.timing.rateInterval = rateInterval
		n.timing.rateBurst = rateBurst
		n.timing.backoffInitial = backoffInitial
		n.timing.backoffMax = backoffMax
		n.timing.backoffMaxElapsed = backoffMaxElapsed
	}
}

// NewTelegramNotifier creates a Telegram notifier, or a noop notifier when
// the token or chat id is empty.
func NewTelegramNotifier(logger zerolog.Logger, botToken, chatID string, opts ...TelegramOption) Notifier {
	if botToken == "" || chatID == "" {
		return NewNoop(logger, "telegram credentials not configured; notifications disabled")
	}

	notifier := &TelegramNotifier{
		logger: logger,
		chatID: chatID,
		timing: defaultTiming,
		apiURL: defaultTelegramAPIBase,
	}
	for _, opt := range opts {
		opt(notifier)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", notifier.apiURL, botToken)
	notifier.poster = newHTTPPoster(logger, "telegram", url, "application/json", notifier.timing)

	return notifier
}

// Send implements Notifier.
func (n *TelegramNotifier) Send(ctx context.Context, rep report.AggregateReport) error {
	if rep.Total() == 0 {
		return nil
	}
	if err := n.poster.waitForRateLimit(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(telegramMessage{
		ChatID:    n.chatID,
		Text:      report.Render(rep),
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	if err := n.poster.postWithRetry(ctx, payload); err != nil {
		return err
	}

	n.logger.Debug().
		Int("devices", rep.Total()).
		Int("failed", rep.Failed()).
		Msg("telegram notification sent")

	return nil
}
