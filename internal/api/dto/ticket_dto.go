package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status" form:"status"`
}

// AssignPICRequest payload.
type AssignPICRequest struct {
	PIC string `json:"pic" form:"pic"`
}

// CreateReplyRequest payload.
type CreateReplyRequest struct {
	Message string `json:"message" form:"message"`
}

// TicketSummary is a row of the dashboard ticket table.
type TicketSummary struct {
	ID            string              `json:"id"`
	TicketCode    string              `json:"ticket_code"`
	Status        domain.TicketStatus `json:"status"`
	DisplayStatus string              `json:"display_status"`
	Platform      domain.Platform     `json:"platform"`
	ReporterName  string              `json:"reporter_name,omitempty"`
	Category      string              `json:"category,omitempty"`
	PIC           string              `json:"pic,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	CompletedAt   *time.Time          `json:"completed_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string          `json:"description,omitempty"`
	ChatID      string          `json:"chat_id"`
	MessageID   string          `json:"message_id,omitempty"`
	Replies     []ReplyResponse `json:"replies"`
}

// ReplyResponse is a staff reply on a ticket.
type ReplyResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	Delivered bool      `json:"delivered"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusUpdateResponse is returned after a status change.
type StatusUpdateResponse struct {
	Ticket        TicketDetailResponse `json:"ticket"`
	DisplayStatus string               `json:"display_status"`
	Notified      bool                 `json:"notified"`
}

// TicketListResponse is a page of tickets.
type TicketListResponse struct {
	Items    []TicketSummary `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// StatusCountResponse is one bar of the status chart.
type StatusCountResponse struct {
	Status        domain.TicketStatus `json:"status"`
	DisplayStatus string              `json:"display_status"`
	Count         int64               `json:"count"`
}

// TicketStatsResponse feeds the dashboard charts.
type TicketStatsResponse struct {
	Total    int64                 `json:"total"`
	ByStatus []StatusCountResponse `json:"by_status"`
}

// TicketHistoryResponse is an audit entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	ChangedBy  string                  `json:"changed_by"`
	OldValue   map[string]any          `json:"old_value"`
	NewValue   map[string]any          `json:"new_value"`
	CreatedAt  time.Time               `json:"created_at"`
}
