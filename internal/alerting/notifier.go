// Package alerting dispatches triggered price alerts to outbound channels.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification carries the context of one triggered alert.
type Notification struct {
	Commodity   string
	Condition   string
	TargetPrice decimal.Decimal
	LatestPrice decimal.Decimal
	TriggeredAt time.Time
}

// Notifier delivers alert notifications.
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram channel.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the rendered message via sendMessage.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Str("commodity", note.Commodity).
		Str("condition", note.Condition).
		Msg("alert dispatched via telegram")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Mandi Price Alert]\n")
	builder.WriteString(fmt.Sprintf("Commodity: %s\n", note.Commodity))
	builder.WriteString(fmt.Sprintf("Now %s target: latest ₹%s vs ₹%s\n", note.Condition, note.LatestPrice.StringFixed(2), note.TargetPrice.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("At: %s UTC\n", note.TriggeredAt.UTC().Format(time.RFC3339)))
	return builder.String()
}

// LogNotifier writes notifications to the structured log. It is the default
// channel when no outbound channel is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier builds a log-backed channel.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify records the alert at info level.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Info().
		Str("commodity", note.Commodity).
		Str("condition", note.Condition).
		Str("target_price", note.TargetPrice.String()).
		Str("latest_price", note.LatestPrice.String()).
		Msg("price alert triggered")
	return nil
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
