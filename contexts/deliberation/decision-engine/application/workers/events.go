package workers

import (
	"encoding/json"
	"time"

	"quorum/contexts/deliberation/decision-engine/ports"
)

// newDecisionEnvelope builds canonical envelopes for worker-produced events.
func newDecisionEnvelope(
	eventID string,
	eventType string,
	decisionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "decision-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "decision_id",
		PartitionKey:     decisionID,
		Data:             payload,
	}, nil
}
