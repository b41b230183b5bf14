package entities

import "time"

type Protocol string

const (
	ProtocolMajority    Protocol = "majority"
	ProtocolConsensus   Protocol = "consensus"
	ProtocolNuancedVote Protocol = "nuanced_vote"
	ProtocolAdvice      Protocol = "advice_solicitation"
	ProtocolConsent     Protocol = "consent"
)

type DecisionStatus string

const (
	DecisionStatusDraft  DecisionStatus = "draft"
	DecisionStatusOpen   DecisionStatus = "open"
	DecisionStatusClosed DecisionStatus = "closed"
)

type VotingMode string

const (
	VotingModeInvited         VotingMode = "invited"
	VotingModePublicAnonymous VotingMode = "public_anonymous"
)

type Result string

const (
	ResultApproved  Result = "approved"
	ResultRejected  Result = "rejected"
	ResultBlocked   Result = "blocked"
	ResultWithdrawn Result = "withdrawn"
)

type StepMode string

const (
	StepModeDistinct StepMode = "distinct"
	StepModeMerged   StepMode = "merged"
)

// Decision is one run of a decision-making protocol. Result is non-nil if and
// only if Status is closed.
type Decision struct {
	DecisionID string
	CreatorID  string
	Title      string
	Protocol   Protocol
	Status     DecisionStatus
	VotingMode VotingMode
	StartsAt   *time.Time
	EndsAt     *time.Time
	Result     *Result

	// Conclusion is the creator's final advice-solicitation write-up, set
	// when the decision is validated.
	Conclusion *string

	// Nuanced-vote configuration. Scale is ordered most favorable first.
	MentionScale []string
	WinnerCount  int

	// Consent configuration.
	StepMode StepMode

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d Decision) IsOpen() bool {
	return d.Status == DecisionStatusOpen
}

func (d Decision) IsClosed() bool {
	return d.Status == DecisionStatusClosed
}

// DeadlineElapsed reports whether the decision's end time has passed. Advice
// decisions have no deadline and never elapse.
func (d Decision) DeadlineElapsed(now time.Time) bool {
	if d.EndsAt == nil {
		return false
	}
	return !now.UTC().Before(d.EndsAt.UTC())
}

// Proposal is one option under a majority or nuanced-vote decision. Proposals
// are frozen once the decision leaves draft.
type Proposal struct {
	ProposalID   string
	DecisionID   string
	Text         string
	DisplayOrder int
	CreatedAt    time.Time
}

// Participant is one eligible actor. HasActed is advisory and re-derived from
// the ledger on first submission; tabulation never reads it.
type Participant struct {
	DecisionID string
	ActorID    string
	External   bool
	Eligible   bool
	HasActed   bool
	AddedAt    time.Time
}
