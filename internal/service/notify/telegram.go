package notify

import (
	"context"
	"fmt"

	drepo "TradePulse/internal/domain/repository"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

// Telegram delivers decision summaries through the Bot API. Delivery is
// fire-and-forget from the engine's point of view: failures are logged by
// callers, never propagated into an evaluation.
type Telegram struct {
	http   *xhttp.Client
	apiURL string
	token  string
	chatID string
	log    *logger.Logger
}

var _ drepo.Notifier = (*Telegram)(nil)

func NewTelegram(httpClient *xhttp.Client, apiURL, token, chatID string, log *logger.Logger) *Telegram {
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	return &Telegram{
		http:   httpClient,
		apiURL: apiURL,
		token:  token,
		chatID: chatID,
		log:    log,
	}
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts one text message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	var resp sendResponse
	err := t.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token),
		Body: map[string]string{
			"chat_id": t.chatID,
			"text":    text,
		},
	}, &resp)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram send: %s", resp.Description)
	}
	return nil
}

// NopNotifier swallows messages when notifications are disabled.
type NopNotifier struct{}

var _ drepo.Notifier = (*NopNotifier)(nil)

func (NopNotifier) Send(ctx context.Context, text string) error { return nil }
