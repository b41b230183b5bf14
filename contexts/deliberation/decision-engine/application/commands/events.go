package commands

import (
	"encoding/json"
	"time"

	"quorum/contexts/deliberation/decision-engine/ports"
)

func newDecisionEnvelope(
	eventID string,
	eventType string,
	decisionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Command-side events are partitioned by decision for stable ordering on
	// decision-scoped consumers.
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
