package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the versioned wire shape for decision events, matching the
// JSON schemas under contracts/events/v1. Consumers outside this repo
// import this package; keep it backward compatible.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// DecodeData unmarshals the event-specific payload into v.
func (e Envelope) DecodeData(v any) error {
	return json.Unmarshal(e.Data, v)
}
