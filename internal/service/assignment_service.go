package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AssignmentService handles person-in-charge reassignment.
type AssignmentService struct {
	writer ticketWriter
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Clock       clock.Clock
	Logger      *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		writer: newTicketWriter(deps.TicketRepo, deps.HistoryRepo, deps.Dispatcher, deps.Clock, deps.Logger),
	}
}

// AssignPIC sets the person in charge. Done tickets are frozen.
func (s *AssignmentService) AssignPIC(ctx context.Context, actor domain.Identity, ticketID, pic string) (*domain.Ticket, error) {
	pic = strings.TrimSpace(pic)
	if pic == "" {
		return nil, apperrors.NewMissingField("pic")
	}
	ticket, err := s.writer.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewTerminalState(ticket.TicketCode)
	}
	if ticket.PIC == pic {
		return ticket, nil
	}

	previous := ticket.PIC
	ticket.PIC = pic
	if err := s.writer.save(ctx, ticket); err != nil {
		return nil, err
	}
	s.writer.record(ctx, actor, ticket.ID, domain.ChangeTypePIC,
		map[string]any{"pic": previous},
		map[string]any{"pic": pic})
	s.writer.publish(ctx, actor, ticket, events.EventTicketPICAssigned, events.TicketPICAssignedPayload{
		OldPIC: previous,
		NewPIC: pic,
	})
	return ticket, nil
}
