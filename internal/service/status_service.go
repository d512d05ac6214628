package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// StatusService applies staff-requested status changes to tickets.
type StatusService struct {
	writer   ticketWriter
	notifier *NotificationService
	metrics  *observability.Metrics
}

// StatusDependencies bundles collaborators for the status service.
type StatusDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Notifier    *NotificationService
	Clock       clock.Clock
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// StatusUpdateResult is the updated ticket with its staff-facing label.
type StatusUpdateResult struct {
	Ticket        *domain.Ticket
	DisplayStatus string
	// Notified is false when the chat message could not be delivered.
	Notified bool
}

// NewStatusService constructs the service.
func NewStatusService(deps StatusDependencies) *StatusService {
	return &StatusService{
		writer:   newTicketWriter(deps.TicketRepo, deps.HistoryRepo, deps.Dispatcher, deps.Clock, deps.Logger),
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
	}
}

// UpdateTicketStatus moves a ticket to requested, which may be any accepted
// alias in any letter case. Done tickets never change again, whatever is
// requested.
func (s *StatusService) UpdateTicketStatus(ctx context.Context, actor domain.Identity, ticketID, requested string) (*StatusUpdateResult, error) {
	if strings.TrimSpace(requested) == "" {
		return nil, apperrors.NewMissingField("status")
	}

	ticket, err := s.writer.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	// a done ticket refuses every request, recognised or not
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewTerminalState(ticket.TicketCode)
	}
	target, ok := domain.ParseStatus(requested)
	if !ok {
		return nil, apperrors.NewInvalidStatus(requested, domain.AcceptedStatusInputs())
	}

	previous := ticket.Status
	ticket.Status = target
	if target.IsTerminal() {
		completedAt := s.writer.clock.Now()
		ticket.CompletedAt = &completedAt
	} else {
		ticket.CompletedAt = nil
	}
	if err := s.writer.save(ctx, ticket); err != nil {
		return nil, err
	}
	s.metrics.RecordStatusChange(string(target))

	display := target.DisplayLabel()
	s.writer.record(ctx, actor, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": previous},
		map[string]any{"status": target, "display_status": display})
	s.writer.publish(ctx, actor, ticket, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		OldStatus:     previous,
		NewStatus:     target,
		DisplayStatus: display,
		CompletedAt:   ticket.CompletedAt,
	})
	s.writer.logger.Info("ticket status updated",
		zap.String("ticket_code", ticket.TicketCode),
		zap.String("from", string(previous)),
		zap.String("to", string(target)),
		zap.String("actor", actor.SubjectID))

	notified := s.notifier.StatusChanged(ctx, ticket, display)
	return &StatusUpdateResult{Ticket: ticket, DisplayStatus: display, Notified: notified}, nil
}
