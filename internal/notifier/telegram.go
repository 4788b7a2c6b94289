package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client

	// RetryInterval is the first wait of SendWithRetry.
	RetryInterval time.Duration

	logger *zap.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, logger *zap.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		APIBase:  defaultTelegramAPI,
		Client: &http.Client{
			Timeout:   35 * time.Second,
			Transport: transport,
		},
		RetryInterval: time.Second,
		logger:        logger,
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, method)
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message, retrying up to maxRetries times with
// exponential backoff starting at RetryInterval.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.RetryInterval
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		return t.Send(ctx, text)
	}
	notify := func(err error, wait time.Duration) {
		t.logger.Warn("telegram send failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxRetries+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	policy := backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(maxRetries))
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("all %d retries exhausted: %w", attempt, err)
	}
	return nil
}
