package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

// StartEventForwarder subscribes sink to every ticket event. A nil sink
// leaves the dispatcher untouched.
func StartEventForwarder(dispatcher events.Dispatcher, sink events.EventHandler, logger *zap.Logger) {
	if dispatcher == nil || sink == nil {
		return
	}
	for _, eventType := range events.AllEventTypes() {
		dispatcher.Subscribe(eventType, sink)
	}
	logger.Info("event forwarder started", zap.Int("event_types", len(events.AllEventTypes())))
}
