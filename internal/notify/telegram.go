package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrTransportDisabled is returned by a transport that has no credentials configured.
var ErrTransportDisabled = errors.New("notify: transport not configured")

// TelegramTransport sends messages through the Telegram Bot API. The bot
// handle is created on first use so an unreachable API never blocks startup.
type TelegramTransport struct {
	token    string
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// DefaultTelegramTimeout bounds one Bot API round trip when the caller
// supplies no client.
const DefaultTelegramTimeout = 10 * time.Second

// NewTelegramTransport builds a transport. An empty endpoint selects the public
// Bot API and a nil client gets DefaultTelegramTimeout.
func NewTelegramTransport(token, endpoint string, client *http.Client) *TelegramTransport {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTelegramTimeout}
	}
	return &TelegramTransport{token: token, endpoint: endpoint, client: client}
}

// SendMessage posts text as MarkdownV2 to chatID, threaded under replyTo when
// set. Numeric ids address a chat; anything else is taken as a channel username.
// It returns when ctx is done even if the Bot API has not answered.
func (t *TelegramTransport) SendMessage(ctx context.Context, chatID, text, replyTo string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.token == "" {
		return ErrTransportDisabled
	}
	msg, err := newTelegramMessage(chatID, text, replyTo)
	if err != nil {
		return err
	}

	// the bot client takes no context, so the call runs aside and is
	// abandoned on cancellation; the http client timeout ends it
	done := make(chan error, 1)
	go func() {
		bot, err := t.botAPI()
		if err != nil {
			done <- err
			return
		}
		if _, err := bot.Send(msg); err != nil {
			done <- fmt.Errorf("telegram send: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}

func newTelegramMessage(chatID, text, replyTo string) (tgbotapi.MessageConfig, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return tgbotapi.MessageConfig{}, errors.New("telegram chat id is empty")
	}
	var msg tgbotapi.MessageConfig
	if target, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(target, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if replyTo = strings.TrimSpace(replyTo); replyTo != "" {
		anchor, err := strconv.Atoi(replyTo)
		if err != nil {
			return tgbotapi.MessageConfig{}, fmt.Errorf("telegram message id %q: %w", replyTo, err)
		}
		msg.ReplyToMessageID = anchor
		msg.AllowSendingWithoutReply = true
	}
	return msg, nil
}

func (t *TelegramTransport) botAPI() (*tgbotapi.BotAPI, error) {
	if t.token == "" {
		return nil, ErrTransportDisabled
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	t.bot = bot
	return bot, nil
}

// EscapeMarkdown escapes every MarkdownV2 reserved character in s,
// including the backslash itself.
func EscapeMarkdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, strings.ReplaceAll(s, `\`, `\\`))
}
