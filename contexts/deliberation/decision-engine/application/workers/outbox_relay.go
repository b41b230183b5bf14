package workers

import (
	"context"
	"log/slog"
	"time"

	application "quorum/contexts/deliberation/decision-engine/application"
	"quorum/contexts/deliberation/decision-engine/ports"
)

// OutboxRelay publishes persisted outbox records to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows and marks each row
// published only after broker publish succeeds. It stops on the first failure
// so the retry loop can reprocess remaining rows safely.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("decision outbox list failed",
			"event", "decision_outbox_list_failed",
			"module", "deliberation/decision-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}
	for _, row := range pending {
		if err := r.Publisher.Publish(ctx, row.EventType, row.Payload); err != nil {
			logger.Error("decision outbox publish failed",
				"event", "decision_outbox_publish_failed",
				"module", "deliberation/decision-engine",
				"layer", "worker",
				"outbox_id", row.ID,
				"event_type", row.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.ID, now); err != nil {
			logger.Error("decision outbox mark published failed",
				"event", "decision_outbox_mark_published_failed",
				"module", "deliberation/decision-engine",
				"layer", "worker",
				"outbox_id", row.ID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("decision outbox relay cycle completed",
		"event", "decision_outbox_relay_completed",
		"module", "deliberation/decision-engine",
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}
