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

// Qualified is one address that newly entered the ranked set.
type Qualified struct {
	Addr       string
	WinRate    float64
	RoundCount int
	TotalPnL   decimal.Decimal
	Balance    decimal.Decimal
}

// Notification carries one watch cycle's newly ranked addresses.
type Notification struct {
	Cycle     time.Time
	Chain     string
	Token     string
	Qualified []Qualified
}

// Notifier delivers watch-cycle notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
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

// Notify renders and sends the message via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	if len(note.Qualified) == 0 {
		return nil
	}

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
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
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
		Time("cycle", note.Cycle).
		Str("token", note.Token).
		Int("qualified", len(note.Qualified)).
		Msg("alert sent (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[SmartFollow] newly ranked addresses\n")
	builder.WriteString(fmt.Sprintf("Cycle: %s UTC\n", note.Cycle.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Chain: %s\n", note.Chain))
	builder.WriteString(fmt.Sprintf("Token: %s\n", note.Token))
	for _, q := range note.Qualified {
		builder.WriteString(fmt.Sprintf("%s  win=%.0f%% rounds=%d pnl=%s bal=%s\n",
			q.Addr,
			q.WinRate*100,
			q.RoundCount,
			q.TotalPnL.StringFixed(2),
			q.Balance.StringFixed(3)))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
