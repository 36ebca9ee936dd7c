package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Message is a raffle announcement ready for delivery. Silent messages skip
// the client-side notification sound; routine entry notices are sent silent,
// winner announcements are not.
type Message struct {
	Text   string
	Silent bool
}

// TelegramNotifier sends raffle announcements via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken   string
	ChatID     string
	MaxRetries int
	Client     *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
// maxRetries bounds the backoff loop in SendWithRetry.
func NewTelegramNotifier(botToken, chatID, proxyURL string, maxRetries int) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken:   botToken,
		ChatID:     chatID,
		MaxRetries: maxRetries,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// Send delivers a single message to the configured chat.
func (t *TelegramNotifier) Send(msg Message) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)
	payload := map[string]any{
		"chat_id":              t.ChatID,
		"text":                 msg.Text,
		"parse_mode":           "HTML",
		"disable_notification": msg.Silent,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := t.Client.Post(apiURL, "application/json", bytes.NewReader(body))
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

// SendWithRetry delivers a message with exponential backoff, up to
// MaxRetries extra attempts.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, msg Message) error {
	var lastErr error
	for i := 0; i <= t.MaxRetries; i++ {
		if err := t.Send(msg); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, t.MaxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", t.MaxRetries+1, lastErr)
}
