package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// ChatNotifier delivers ticket messages to the reporter's chat.
type ChatNotifier interface {
	StatusChanged(ctx context.Context, ticket *domain.Ticket, displayStatus string) error
	Reply(ctx context.Context, ticket *domain.Ticket, author, message string) error
}

// NotificationService makes chat delivery best effort: failures are logged
// and counted, never returned to the caller.
type NotificationService struct {
	notifier ChatNotifier
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewNotificationService creates the service. A nil notifier disables delivery.
func NewNotificationService(notifier ChatNotifier, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifier: notifier, logger: logger, metrics: metrics}
}

// StatusChanged reports whether the reporter was told about the new status.
func (n *NotificationService) StatusChanged(ctx context.Context, ticket *domain.Ticket, displayStatus string) bool {
	if n == nil || n.notifier == nil {
		return false
	}
	return n.outcome(ticket, "status", n.notifier.StatusChanged(ctx, ticket, displayStatus))
}

// Reply reports whether the staff reply reached the reporter.
func (n *NotificationService) Reply(ctx context.Context, ticket *domain.Ticket, author, message string) bool {
	if n == nil || n.notifier == nil {
		return false
	}
	return n.outcome(ticket, "reply", n.notifier.Reply(ctx, ticket, author, message))
}

func (n *NotificationService) outcome(ticket *domain.Ticket, kind string, err error) bool {
	platform := string(ticket.Platform)
	if err != nil {
		n.metrics.RecordNotification(platform, "failed")
		n.logger.Warn("chat notification failed",
			zap.String("kind", kind),
			zap.String("ticket_code", ticket.TicketCode),
			zap.String("platform", platform),
			zap.String("chat_id", ticket.ChatID),
			zap.Error(err))
		return false
	}
	n.metrics.RecordNotification(platform, "delivered")
	n.logger.Debug("chat notification delivered",
		zap.String("kind", kind),
		zap.String("ticket_code", ticket.TicketCode),
		zap.String("platform", platform))
	return true
}
