package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TicketService coordinates the dashboard's read paths and staff replies.
type TicketService struct {
	writer   ticketWriter
	notifier *NotificationService
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Notifier    *NotificationService
	Clock       clock.Clock
	Logger      *zap.Logger
}

// TicketListFilter describes dashboard listing filters. Statuses accept the
// same inputs as a status change, display labels included.
type TicketListFilter struct {
	Statuses []string
	Platform string
	PIC      string
	Search   string
	Page     int
	PageSize int
}

// TicketPage is one page of a ticket listing.
type TicketPage struct {
	Tickets  []domain.Ticket
	Total    int64
	Page     int
	PageSize int
}

// StatusCount is one bar of the status chart.
type StatusCount struct {
	Status        domain.TicketStatus
	DisplayStatus string
	Count         int64
}

// TicketStats summarises tickets per status.
type TicketStats struct {
	Total    int64
	ByStatus []StatusCount
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		writer:   newTicketWriter(deps.TicketRepo, deps.HistoryRepo, deps.Dispatcher, deps.Clock, deps.Logger),
		notifier: deps.Notifier,
	}
}

// ListTickets returns tickets newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) (*TicketPage, error) {
	repoFilter := repository.TicketFilter{}
	for _, raw := range filter.Statuses {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return nil, apperrors.NewInvalidStatus(raw, domain.AcceptedStatusInputs())
		}
		repoFilter.Statuses = append(repoFilter.Statuses, status)
	}
	if platform := strings.TrimSpace(filter.Platform); platform != "" {
		p := domain.Platform(platform)
		repoFilter.Platform = &p
	}
	if pic := strings.TrimSpace(filter.PIC); pic != "" {
		repoFilter.PIC = &pic
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		repoFilter.SearchTerm = &search
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	switch {
	case size <= 0:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}
	repoFilter.Limit = size
	repoFilter.Offset = (page - 1) * size

	tickets, total, err := s.writer.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &TicketPage{Tickets: tickets, Total: total, Page: page, PageSize: size}, nil
}

// GetTicket fetches a single ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.writer.load(ctx, ticketID)
}

// Stats counts tickets per status. Known statuses are always listed, in
// workflow order, even when empty.
func (s *TicketService) Stats(ctx context.Context) (*TicketStats, error) {
	counts, err := s.writer.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	stats := &TicketStats{}
	for _, status := range domain.Statuses() {
		n := counts[status]
		delete(counts, status)
		stats.Total += n
		stats.ByStatus = append(stats.ByStatus, StatusCount{Status: status, DisplayStatus: status.DisplayLabel(), Count: n})
	}
	// legacy values written by older bot versions
	for status, n := range counts {
		stats.Total += n
		stats.ByStatus = append(stats.ByStatus, StatusCount{Status: status, DisplayStatus: status.DisplayLabel(), Count: n})
	}
	return stats, nil
}

// AddReply delivers a staff reply to the reporter's chat and stores it on the
// ticket with its delivery outcome.
func (s *TicketService) AddReply(ctx context.Context, actor domain.Identity, ticketID, message string) (*domain.TicketReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewMissingField("message")
	}
	ticket, err := s.writer.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewTerminalState(ticket.TicketCode)
	}

	author := actor.DisplayName
	if author == "" {
		author = actor.SubjectID
	}
	reply := domain.TicketReply{
		ID:        uuid.NewString(),
		Author:    author,
		Message:   message,
		CreatedAt: s.writer.clock.Now(),
	}
	reply.Delivered = s.notifier.Reply(ctx, ticket, author, message)

	ticket.Replies = append(ticket.Replies, reply)
	if err := s.writer.save(ctx, ticket); err != nil {
		return nil, err
	}
	s.writer.record(ctx, actor, ticket.ID, domain.ChangeTypeReply, nil,
		map[string]any{"reply_id": reply.ID, "delivered": reply.Delivered})
	s.writer.publish(ctx, actor, ticket, events.EventTicketReplyAdded, events.TicketReplyAddedPayload{
		ReplyID:     reply.ID,
		Author:      author,
		Delivered:   reply.Delivered,
		BodyPreview: stringPreview(message, 120),
	})
	return &reply, nil
}

// ListHistory returns the audit trail of a ticket, oldest first.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	ticket, err := s.writer.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if s.writer.history == nil {
		return []domain.TicketHistory{}, nil
	}
	history, err := s.writer.history.ListByTicket(ctx, ticket.ID, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if history == nil {
		history = []domain.TicketHistory{}
	}
	return history, nil
}
