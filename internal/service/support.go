package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ticketWriter holds what every ticket mutation needs: storage, audit
// trail and event publication.
type ticketWriter struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

func newTicketWriter(tickets repository.TicketRepository, history repository.TicketHistoryRepository, dispatcher events.Dispatcher, clk clock.Clock, logger *zap.Logger) ticketWriter {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return ticketWriter{tickets: tickets, history: history, dispatcher: dispatcher, clock: clk, logger: logger}
}

func (w ticketWriter) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, apperrors.NewMissingField("ticket_id")
	}
	ticket, err := w.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return ticket, nil
}

func (w ticketWriter) save(ctx context.Context, ticket *domain.Ticket) error {
	ticket.UpdatedAt = w.clock.Now()
	if err := w.tickets.Update(ctx, ticket); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
		case errors.Is(err, repository.ErrVersionConflict):
			return apperrors.NewConflict("ticket was changed by someone else, reload and retry",
				map[string]any{"ticket_id": ticket.ID})
		default:
			return apperrors.NewInternalError(err)
		}
	}
	return nil
}

// record stores an audit entry. The ticket write already happened, so a
// failure here is logged rather than returned.
func (w ticketWriter) record(ctx context.Context, actor domain.Identity, ticketID string, change domain.TicketChangeType, oldValue, newValue map[string]any) {
	if w.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:   ticketID,
		ChangedBy:  actor.SubjectID,
		ChangeType: change,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	if err := w.history.Create(ctx, entry); err != nil {
		w.logger.Warn("ticket history write failed",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(change)),
			zap.Error(err))
	}
}

func (w ticketWriter) publish(ctx context.Context, actor domain.Identity, ticket *domain.Ticket, eventType events.EventType, payload any) {
	if w.dispatcher == nil {
		return
	}
	_ = w.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TicketID:   ticket.ID,
		TicketCode: ticket.TicketCode,
		Actor:      events.ActorFromIdentity(actor),
		Timestamp:  w.clock.Now(),
		Payload:    payload,
	})
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
