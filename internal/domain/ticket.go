package domain

import "time"

// Platform identifies the chat platform a ticket was filed from.
type Platform string

const (
	PlatformTelegram Platform = "Telegram"
	PlatformWhatsApp Platform = "WhatsApp"
)

// Ticket is the help-desk ticket aggregate filed by the chat bots.
type Ticket struct {
	ID           string
	TicketCode   string
	Status       TicketStatus
	Platform     Platform
	ChatID       string
	MessageID    string
	ReporterName string
	Description  string
	Category     string
	PIC          string
	Replies      []TicketReply
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
	// Version is incremented on every write and guards against lost updates.
	Version int64
}

// TicketReply is a staff reply delivered back to the reporter's chat.
type TicketReply struct {
	ID        string
	Author    string
	Message   string
	Delivered bool
	CreatedAt time.Time
}

// DisplayStatus returns the staff-facing label for the ticket status.
func (t *Ticket) DisplayStatus() string {
	return t.Status.DisplayLabel()
}
