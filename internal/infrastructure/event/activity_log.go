package event

import (
	"context"

	"github.com/nyumbani/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ActivityLogHandler records every domain event as a structured log line.
// Lease transitions, bill issuance and payment reconciliation all leave an
// audit trail without each service logging its own events.
type ActivityLogHandler struct {
	logger *zap.Logger
}

// NewActivityLogHandler creates a new activity log handler
func NewActivityLogHandler(logger *zap.Logger) *ActivityLogHandler {
	return &ActivityLogHandler{logger: logger.Named("activity")}
}

// Handle logs the event
func (h *ActivityLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// EventTypes returns an empty slice: the handler subscribes to all events.
func (h *ActivityLogHandler) EventTypes() []string {
	return nil
}
