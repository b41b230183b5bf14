package ports

import (
	"context"
	"encoding/json"
	"time"

	"quorum/contexts/deliberation/decision-engine/domain/entities"
)

// DecisionRepository owns decisions and their proposals.
type DecisionRepository interface {
	SaveDecision(ctx context.Context, decision entities.Decision) error
	GetDecision(ctx context.Context, decisionID string) (entities.Decision, error)
	// CloseDecision records the terminal result only while the decision is
	// still open. It reports false when a concurrent closure already won.
	CloseDecision(ctx context.Context, decisionID string, result entities.Result, closedAt time.Time) (bool, error)
	// ListOpenDecisions returns open decisions whose end time is at or before
	// the given instant; the deadline sweeper drives closures from it.
	ListOpenDecisions(ctx context.Context, deadline time.Time) ([]entities.Decision, error)

	SaveProposal(ctx context.Context, proposal entities.Proposal) error
	ListProposals(ctx context.Context, decisionID string) ([]entities.Proposal, error)
}

// LedgerRepository is the vote ledger: at most one live entry per
// (actor, decision, kind), clarification questions excepted. Save operations
// are atomic per-key upserts; last committed write wins.
type LedgerRepository interface {
	SaveBallot(ctx context.Context, entry entities.BallotEntry) error
	ListBallots(ctx context.Context, decisionID string) ([]entities.BallotEntry, error)

	SaveConsensusEntry(ctx context.Context, entry entities.ConsensusEntry) error
	ListConsensusEntries(ctx context.Context, decisionID string) ([]entities.ConsensusEntry, error)

	SaveMentionSet(ctx context.Context, set entities.MentionSet) error
	ListMentionSets(ctx context.Context, decisionID string) ([]entities.MentionSet, error)

	SaveOpinion(ctx context.Context, entry entities.OpinionEntry) error
	ListOpinions(ctx context.Context, decisionID string) ([]entities.OpinionEntry, error)

	SaveObjection(ctx context.Context, entry entities.ObjectionEntry) error
	GetObjection(ctx context.Context, decisionID string, actorID string) (entities.ObjectionEntry, bool, error)
	ListObjections(ctx context.Context, decisionID string) ([]entities.ObjectionEntry, error)

	AppendQuestion(ctx context.Context, question entities.ClarificationQuestion) error
	GetQuestion(ctx context.Context, questionID string) (entities.ClarificationQuestion, error)
	ListQuestions(ctx context.Context, decisionID string) ([]entities.ClarificationQuestion, error)
	// AnswerQuestion fills the answer exactly once; it reports false when the
	// question was already answered.
	AnswerQuestion(ctx context.Context, questionID string, answer string, answeredBy string, answeredAt time.Time) (bool, error)

	SaveConsentState(ctx context.Context, state entities.ConsentProposalState) error
	GetConsentState(ctx context.Context, decisionID string) (entities.ConsentProposalState, bool, error)
	// RecordAmendment writes the creator's one-shot amendment action with a
	// conditional write: it reports false when the action is already set.
	RecordAmendment(ctx context.Context, decisionID string, action entities.AmendmentAction, text string, actedAt time.Time) (bool, error)
}

// ParticipantRegistry is owned by the membership collaborator; the engine
// consumes it read-mostly. RegisterParticipant only serves public decisions
// which admit actors on first action.
type ParticipantRegistry interface {
	ListParticipants(ctx context.Context, decisionID string) ([]entities.Participant, error)
	GetParticipant(ctx context.Context, decisionID string, actorID string) (entities.Participant, bool, error)
	RegisterParticipant(ctx context.Context, participant entities.Participant) error
	// MarkActed flips the advisory has-acted flag; tabulation never reads it.
	MarkActed(ctx context.Context, decisionID string, actorID string) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope is the canonical event shape written to the outbox.
type EventEnvelope struct {
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

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxMessage struct {
	ID        string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}

// TallyCache is an optional read-side cache for computed tally snapshots.
// A nil cache is valid wiring; writers must invalidate on every upsert.
type TallyCache interface {
	GetTally(ctx context.Context, decisionID string) ([]byte, bool, error)
	PutTally(ctx context.Context, decisionID string, payload []byte) error
	InvalidateTally(ctx context.Context, decisionID string) error
}
