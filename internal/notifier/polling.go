package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Command is a chat command understood by the raffle bot.
type Command int

const (
	CmdUnknown Command = iota
	CmdStatus
	CmdWinner
	CmdDraw
)

// ParseCommand maps a chat message onto the command set. Telegram appends
// "@botname" to commands in group chats; that suffix is ignored.
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '@'); i >= 0 {
		text = text[:i]
	}
	switch strings.ToLower(text) {
	case "/status":
		return CmdStatus
	case "/winner":
		return CmdWinner
	case "/draw":
		return CmdDraw
	default:
		return CmdUnknown
	}
}

// CommandHandler resolves a command into a reply; an empty reply sends
// nothing.
type CommandHandler func(cmd Command) string

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

// StartPolling long-polls Telegram for raffle commands and dispatches them
// to the handler. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	client := &http.Client{Timeout: 35 * time.Second}

	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] Telegram polling stopped")
			return
		default:
		}

		updates, err := t.pollOnce(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[WARN] poll updates: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			cmd := ParseCommand(update.Message.Text)
			if cmd == CmdUnknown {
				t.reply("Available commands:\n• /status\n• /winner\n• /draw")
				continue
			}
			log.Printf("[INFO] received command: %s", strings.TrimSpace(update.Message.Text))
			t.reply(handler(cmd))
		}
	}
}

func (t *TelegramNotifier) pollOnce(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/getUpdates?offset=%d&timeout=30", t.BotToken, offset)
	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create polling request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read polling response: %w", err)
	}
	var result struct {
		OK     bool             `json:"ok"`
		Result []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode polling response: %w", err)
	}
	return result.Result, nil
}

func (t *TelegramNotifier) reply(text string) {
	if text == "" {
		return
	}
	if err := t.Send(Message{Text: text}); err != nil {
		log.Printf("[ERROR] send reply: %v", err)
	}
}
