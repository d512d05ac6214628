package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// WhatsAppTransport delivers plain-text messages through the WhatsApp bot's
// HTTP gateway.
type WhatsAppTransport struct {
	baseURL string
	client  *resty.Client
}

type whatsAppMessage struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// NewWhatsAppTransport builds a transport for the gateway at baseURL.
func NewWhatsAppTransport(baseURL string, timeout time.Duration) *WhatsAppTransport {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &WhatsAppTransport{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// SendMessage posts text to the chat identified by chatID.
func (w *WhatsAppTransport) SendMessage(ctx context.Context, chatID, text string) error {
	if w.baseURL == "" {
		return ErrTransportDisabled
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(whatsAppMessage{ChatID: chatID, Message: text}).
		Post(w.baseURL + "/send-message")
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("whatsapp send: gateway returned HTTP %d", resp.StatusCode())
	}
	return nil
}
