package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketPICAssigned   EventType = "ticket_pic_assigned"
	EventTicketReplyAdded    EventType = "ticket_reply_added"
)

// AllEventTypes lists every event the services publish.
func AllEventTypes() []EventType {
	return []EventType{EventTicketStatusChanged, EventTicketPICAssigned, EventTicketReplyAdded}
}

// Actor identifies the dashboard user behind an event.
type Actor struct {
	SubjectID   string `json:"subject_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// ActorFromIdentity converts an authenticated identity.
func ActorFromIdentity(identity domain.Identity) Actor {
	return Actor{SubjectID: identity.SubjectID, DisplayName: identity.DisplayName}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TicketID   string    `json:"ticket_id"`
	TicketCode string    `json:"ticket_code"`
	Actor      Actor     `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus     domain.TicketStatus `json:"old_status"`
	NewStatus     domain.TicketStatus `json:"new_status"`
	DisplayStatus string              `json:"display_status"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
}

// TicketPICAssignedPayload payload.
type TicketPICAssignedPayload struct {
	OldPIC string `json:"old_pic,omitempty"`
	NewPIC string `json:"new_pic"`
}

// TicketReplyAddedPayload payload.
type TicketReplyAddedPayload struct {
	ReplyID     string `json:"reply_id"`
	Author      string `json:"author"`
	Delivered   bool   `json:"delivered"`
	BodyPreview string `json:"body_preview"`
}
