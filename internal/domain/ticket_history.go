package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus TicketChangeType = "STATUS_CHANGE"
	ChangeTypePIC    TicketChangeType = "PIC_CHANGE"
	ChangeTypeReply  TicketChangeType = "REPLY_ADDED"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID         string
	TicketID   string
	ChangedBy  string
	ChangeType TicketChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
