package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TelegramSender is the Telegram side of the chat transports.
type TelegramSender interface {
	SendMessage(ctx context.Context, chatID, text, replyTo string) error
}

// WhatsAppSender is the WhatsApp side of the chat transports.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Notifier routes ticket messages to the chat platform the ticket came from.
type Notifier struct {
	telegram TelegramSender
	whatsapp WhatsAppSender
}

// NewNotifier builds a router over both transports.
func NewNotifier(telegram TelegramSender, whatsapp WhatsAppSender) *Notifier {
	return &Notifier{telegram: telegram, whatsapp: whatsapp}
}

// StatusChanged tells the reporter that the ticket moved to displayStatus.
func (n *Notifier) StatusChanged(ctx context.Context, ticket *domain.Ticket, displayStatus string) error {
	if isWhatsApp(ticket) {
		text := fmt.Sprintf("Status tiket %s telah diperbarui menjadi: %s", ticket.TicketCode, displayStatus)
		return n.whatsapp.SendMessage(ctx, ticket.ChatID, text)
	}
	text := fmt.Sprintf("*Update Tiket*\nStatus tiket %s telah diperbarui menjadi: *%s*",
		EscapeMarkdown(ticket.TicketCode), EscapeMarkdown(displayStatus))
	return n.telegram.SendMessage(ctx, ticket.ChatID, text, ticket.MessageID)
}

// Reply forwards a staff reply to the reporter.
func (n *Notifier) Reply(ctx context.Context, ticket *domain.Ticket, author, message string) error {
	if isWhatsApp(ticket) {
		text := fmt.Sprintf("Balasan untuk tiket %s dari %s:\n%s", ticket.TicketCode, author, message)
		return n.whatsapp.SendMessage(ctx, ticket.ChatID, text)
	}
	text := fmt.Sprintf("*Balasan tiket %s* dari %s:\n%s",
		EscapeMarkdown(ticket.TicketCode), EscapeMarkdown(author), EscapeMarkdown(message))
	return n.telegram.SendMessage(ctx, ticket.ChatID, text, ticket.MessageID)
}

// isWhatsApp selects the WhatsApp transport; every other platform value
// falls back to Telegram.
func isWhatsApp(ticket *domain.Ticket) bool {
	return strings.EqualFold(string(ticket.Platform), string(domain.PlatformWhatsApp))
}
