package entities

import "time"

// EntryKind discriminates ledger entries. Each (actor, decision, kind) pair
// holds at most one live entry, except clarification questions which are
// append-only.
type EntryKind string

const (
	EntryKindBallot    EntryKind = "ballot"
	EntryKindConsensus EntryKind = "consensus"
	EntryKindMention   EntryKind = "mention_set"
	EntryKindOpinion   EntryKind = "opinion"
	EntryKindObjection EntryKind = "objection"
)

// BallotEntry is a single-proposal choice in a plurality vote.
type BallotEntry struct {
	DecisionID string
	ActorID    string
	ProposalID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ConsensusValue string

const (
	ConsensusAgree    ConsensusValue = "agree"
	ConsensusDisagree ConsensusValue = "disagree"
)

type ConsensusEntry struct {
	DecisionID string
	ActorID    string
	Value      ConsensusValue
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MentionSet rates every proposal of a nuanced-vote decision with one mention
// from the decision's scale. Partial sets are rejected before they reach the
// ledger.
type MentionSet struct {
	DecisionID string
	ActorID    string
	Mentions   map[string]string // proposal id -> mention
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OpinionEntry struct {
	DecisionID string
	ActorID    string
	Text       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ObjectionStatus string

const (
	ObjectionStatusNone       ObjectionStatus = "no_objection"
	ObjectionStatusObjection  ObjectionStatus = "objection"
	ObjectionStatusNoPosition ObjectionStatus = "no_position"
)

// ObjectionEntry records a participant's position during the consent
// objections stage. Withdrawn marks a recorded retraction of an objection; the
// entry itself is never deleted.
type ObjectionEntry struct {
	DecisionID string
	ActorID    string
	Status     ObjectionStatus
	Reason     string
	Withdrawn  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Blocking reports whether the entry is a live veto.
func (o ObjectionEntry) Blocking() bool {
	return o.Status == ObjectionStatusObjection && !o.Withdrawn
}

// ClarificationQuestion is append-only: an actor may ask many questions. The
// answer is a one-time fill writable only by the decision's creator.
type ClarificationQuestion struct {
	QuestionID string
	DecisionID string
	ActorID    string
	Question   string
	Answer     *string
	AnsweredBy string
	AskedAt    time.Time
	AnsweredAt *time.Time
}

func (q ClarificationQuestion) Answered() bool {
	return q.Answer != nil
}

type AmendmentAction string

const (
	AmendmentActionAmended   AmendmentAction = "amended"
	AmendmentActionKept      AmendmentAction = "kept"
	AmendmentActionWithdrawn AmendmentAction = "withdrawn"
)

// ConsentProposalState tracks the proposal text of a consent decision and the
// creator's one-shot amendment action. Action is nil until the creator acts;
// the first write wins.
type ConsentProposalState struct {
	DecisionID  string
	InitialText string
	CurrentText string
	Action      *AmendmentAction
	ActedAt     *time.Time
}

func (s ConsentProposalState) Decided() bool {
	return s.Action != nil
}
