package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pricecast/internal/logger"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(command string) string

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	log := logger.WithComponent("notifier")
	offset := 0
	client := &http.Client{Timeout: 35 * time.Second, Transport: t.Client.Transport}

	for {
		select {
		case <-ctx.Done():
			log.Info("telegram polling stopped")
			return
		default:
		}

		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnf("polling request failed: %v", err)
			sleepCtx(ctx, 5*time.Second)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			text := strings.TrimSpace(update.Message.Text)
			log.WithField("command", text).Info("received command")
			reply := handler(text)
			if reply != "" {
				if err := t.Send(ctx, reply); err != nil {
					log.Errorf("send reply: %v", err)
				}
			}
		}
	}
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=30", t.endpoint("getUpdates"), offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create polling request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
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
	if !result.OK {
		return nil, fmt.Errorf("telegram getUpdates not ok: status %d", resp.StatusCode)
	}
	return result.Result, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
