package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "quorum/contexts/deliberation/decision-engine/application"
	"quorum/contexts/deliberation/decision-engine/domain/entities"
	domainerrors "quorum/contexts/deliberation/decision-engine/domain/errors"
	"quorum/contexts/deliberation/decision-engine/domain/stageclock"
	"quorum/contexts/deliberation/decision-engine/domain/tally"
	"quorum/contexts/deliberation/decision-engine/ports"
)

// SubmitBallotCommand casts or replaces a plurality ballot.
type SubmitBallotCommand struct {
	ActorID    string
	DecisionID string
	ProposalID string
}

// SubmitConsensusCommand casts or replaces an agree/disagree position.
type SubmitConsensusCommand struct {
	ActorID    string
	DecisionID string
	Value      entities.ConsensusValue
}

// SubmitMentionSetCommand rates every proposal of a nuanced-vote decision.
type SubmitMentionSetCommand struct {
	ActorID    string
	DecisionID string
	Mentions   map[string]string
}

// SubmitOpinionCommand submits free-text advice or a consent-stage opinion.
type SubmitOpinionCommand struct {
	ActorID    string
	DecisionID string
	Text       string
}

// SubmitObjectionCommand records a consent objections-stage position.
type SubmitObjectionCommand struct {
	ActorID    string
	DecisionID string
	Status     entities.ObjectionStatus
	Reason     string
}

// SubmissionUseCase is the ledger write path. Every operation takes the acting
// identity explicitly, enforces stage/status/eligibility before touching the
// ledger, and re-evaluates terminal state inside the same operation so two
// near-simultaneous submissions cannot both miss a closure.
type SubmissionUseCase struct {
	Decisions ports.DecisionRepository
	Ledger    ports.LedgerRepository
	Registry  ports.ParticipantRegistry
	Cache     ports.TallyCache
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// SubmitBallot upserts the actor's single live ballot and returns the updated
// plurality tally. Plurality never closes on its own; the deadline sweeper or
// an explicit withdrawal ends it.
func (uc SubmissionUseCase) SubmitBallot(ctx context.Context, cmd SubmitBallotCommand) (tally.PluralityTally, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	proposalID := strings.TrimSpace(cmd.ProposalID)
	if actorID == "" || strings.TrimSpace(cmd.DecisionID) == "" || proposalID == "" {
		return tally.PluralityTally{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	decision, err := uc.openDecision(ctx, cmd.DecisionID, entities.ProtocolMajority, now)
	if err != nil {
		return tally.PluralityTally{}, err
	}
	participant, err := uc.ensureParticipant(ctx, decision, actorID, now)
	if err != nil {
		logger.Warn("ballot rejected",
			"event", "decision_ballot_rejected",
			"module", "deliberation/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"actor_id", actorID,
			"error", err.Error(),
		)
		return tally.PluralityTally{}, err
	}

	proposals, err := uc.Decisions.ListProposals(ctx, decision.DecisionID)
	if err != nil {
		return tally.PluralityTally{}, err
	}
	if !proposalExists(proposals, proposalID) {
		return tally.PluralityTally{}, domainerrors.ErrProposalNotFound
	}

	if err := uc.Ledger.SaveBallot(ctx, entities.BallotEntry{
		DecisionID: decision.DecisionID,
		ActorID:    actorID,
		ProposalID: proposalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return tally.PluralityTally{}, err
	}
	uc.afterUpsert(ctx, decision, participant, "ballot.cast", map[string]any{
		"actor_id":    actorID,
		"proposal_id": proposalID,
	}, now)

	ballots, err := uc.Ledger.ListBallots(ctx, decision.DecisionID)
	if err != nil {
		return tally.PluralityTally{}, err
	}
	snapshot := tally.Plurality(proposals, ballots)
	logger.Info("ballot recorded",
		"event", "decision_ballot_recorded",
		"module", "deliberation/decision-engine",
		"layer", "application",
		"decision_id", decision.DecisionID,
		"actor_id", actorID,
		"proposal_id", proposalID,
		"total_ballots", snapshot.TotalBallots,
	)
	return snapshot, nil
}

// SubmitConsensusVote upserts an agree/disagree position and closes the
// decision as approved the instant unanimity across the full eligible set is
// detected. A disagree keeps the decision open.
func (uc SubmissionUseCase) SubmitConsensusVote(ctx context.Context, cmd SubmitConsensusCommand) (tally.ConsensusTally, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" || strings.TrimSpace(cmd.DecisionID) == "" {
		return tally.ConsensusTally{}, domainerrors.ErrInvalidInput
	}
	if cmd.Value != entities.ConsensusAgree && cmd.Value != entities.ConsensusDisagree {
		return tally.ConsensusTally{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	decision, err := uc.openDecision(ctx, cmd.DecisionID, entities.ProtocolConsensus, now)
	if err != nil {
		return tally.ConsensusTally{}, err
	}
	participant, err := uc.ensureParticipant(ctx, decision, actorID, now)
	if err != nil {
		return tally.ConsensusTally{}, err
	}

	if err := uc.Ledger.SaveConsensusEntry(ctx, entities.ConsensusEntry{
		DecisionID: decision.DecisionID,
		ActorID:    actorID,
		Value:      cmd.Value,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return tally.ConsensusTally{}, err
	}
	uc.afterUpsert(ctx, decision, participant, "consensus.cast", map[string]any{
		"actor_id": actorID,
		"value":    string(cmd.Value),
	}, now)

	eligible, err := uc.Registry.ListParticipants(ctx, decision.DecisionID)
	if err != nil {
		return tally.ConsensusTally{}, err
	}
	entries, err := uc.Ledger.ListConsensusEntries(ctx, decision.DecisionID)
	if err != nil {
		return tally.ConsensusTally{}, err
	}
	snapshot := tally.Consensus(eligible, entries)
	if snapshot.Unanimous {
		if err := uc.close(ctx, decision, entities.ResultApproved, "unanimity_reached", now); err != nil {
			return tally.ConsensusTally{}, err
		}
		logger.Info("consensus reached",
			"event", "decision_consensus_reached",
			"module", "deliberation/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"eligible", snapshot.TotalEligible,
		)
	}
	return snapshot, nil
}

// SubmitMentionSet ingests a complete mention set. Partial sets, unknown
// mentions, and ratings for foreign proposals are rejected before the ledger
// is touched.
func (uc SubmissionUseCase) SubmitMentionSet(ctx context.Context, cmd SubmitMentionSetCommand) (tally.JudgmentTally, error) {
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" || strings.TrimSpace(cmd.DecisionID) == "" || len(cmd.Mentions) == 0 {
		return tally.JudgmentTally{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	decision, err := uc.openDecision(ctx, cmd.DecisionID, entities.ProtocolNuancedVote, now)
	if err != nil {
		return tally.JudgmentTally{}, err
	}
	participant, err := uc.ensureParticipant(ctx, decision, actorID, now)
	if err != nil {
		return tally.JudgmentTally{}, err
	}

	proposals, err := uc.Decisions.ListProposals(ctx, decision.DecisionID)
	if err != nil {
		return tally.JudgmentTally{}, err
	}
	if err := validateMentionSet(decision, proposals, cmd.Mentions); err != nil {
		return tally.JudgmentTally{}, err
	}

	if err := uc.Ledger.SaveMentionSet(ctx, entities.MentionSet{
		DecisionID: decision.DecisionID,
		ActorID:    actorID,
		Mentions:   cmd.Mentions,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return tally.JudgmentTally{}, err
	}
	uc.afterUpsert(ctx, decision, participant, "mention_set.cast", map[string]any{
		"actor_id": actorID,
	}, now)

	sets, err := uc.Ledger.ListMentionSets(ctx, decision.DecisionID)
	if err != nil {
		return tally.JudgmentTally{}, err
	}
	return tally.MajorityJudgment(decision.MentionScale, proposals, sets, decision.WinnerCount), nil
}

// SubmitOpinion upserts free text: solicited advice for advice decisions, or
// a consent opinion while the avis (or merged clarifavis) window is open.
func (uc SubmissionUseCase) SubmitOpinion(ctx context.Context, cmd SubmitOpinionCommand) (tally.AdviceTally, error) {
	actorID := strings.TrimSpace(cmd.ActorID)
	text := strings.TrimSpace(cmd.Text)
	if actorID == "" || strings.TrimSpace(cmd.DecisionID) == "" || text == "" {
		return tally.AdviceTally{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	decision, err := uc.Decisions.GetDecision(ctx, strings.TrimSpace(cmd.DecisionID))
	if err != nil {
		return tally.AdviceTally{}, err
	}
	switch decision.Protocol {
	case entities.ProtocolAdvice:
		if !decision.IsOpen() {
			return tally.AdviceTally{}, domainerrors.ErrStageClosed
		}
		if actorID == decision.CreatorID {
			// The creator solicits advice; they do not give it.
			return tally.AdviceTally{}, domainerrors.ErrNotEligible
		}
	case entities.ProtocolConsent:
		stage, err := uc.consentStage(ctx, decision, now)
		if err != nil {
			return tally.AdviceTally{}, err
		}
		if !stage.Accepts(entities.EntryKindOpinion) {
			return tally.AdviceTally{}, domainerrors.ErrStageClosed
		}
	default:
		return tally.AdviceTally{}, domainerrors.ErrInvalidConfiguration
	}

	participant, err := uc.ensureParticipant(ctx, decision, actorID, now)
	if err != nil {
		return tally.AdviceTally{}, err
	}
	if err := uc.Ledger.SaveOpinion(ctx, entities.OpinionEntry{
		DecisionID: decision.DecisionID,
		ActorID:    actorID,
		Text:       text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return tally.AdviceTally{}, err
	}
	uc.afterUpsert(ctx, decision, participant, "opinion.submitted", map[string]any{
		"actor_id": actorID,
	}, now)

	if decision.Protocol != entities.ProtocolAdvice {
		return tally.AdviceTally{}, nil
	}
	eligible, err := uc.Registry.ListParticipants(ctx, decision.DecisionID)
	if err != nil {
		return tally.AdviceTally{}, err
	}
	opinions, err := uc.Ledger.ListOpinions(ctx, decision.DecisionID)
	if err != nil {
		return tally.AdviceTally{}, err
	}
	return tally.AdviceProgress(decision.CreatorID, eligible, opinions), nil
}

// SubmitObjection upserts an objections-stage position. A recorded objection
// is a hard veto: the decision closes as blocked in the same operation.
// Otherwise, once every eligible participant has a non-objection entry the
// decision closes as approved.
func (uc SubmissionUseCase) SubmitObjection(ctx context.Context, cmd SubmitObjectionCommand) (tally.ConsentResolution, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" || strings.TrimSpace(cmd.DecisionID) == "" {
		return tally.ConsentResolution{}, domainerrors.ErrInvalidInput
	}
	switch cmd.Status {
	case entities.ObjectionStatusNone, entities.ObjectionStatusObjection, entities.ObjectionStatusNoPosition:
	default:
		return tally.ConsentResolution{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	decision, err := uc.openDecision(ctx, cmd.DecisionID, entities.ProtocolConsent, now)
	if err != nil {
		return tally.ConsentResolution{}, err
	}
	stage, err := uc.consentStage(ctx, decision, now)
	if err != nil {
		return tally.ConsentResolution{}, err
	}
	if !stage.Accepts(entities.EntryKindObjection) {
		return tally.ConsentResolution{}, domainerrors.ErrStageClosed
	}
	participant, err := uc.ensureParticipant(ctx, decision, actorID, now)
	if err != nil {
		return tally.ConsentResolution{}, err
	}

	if err := uc.Ledger.SaveObjection(ctx, entities.ObjectionEntry{
		DecisionID: decision.DecisionID,
		ActorID:    actorID,
		Status:     cmd.Status,
		Reason:     strings.TrimSpace(cmd.Reason),
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return tally.ConsentResolution{}, err
	}
	uc.afterUpsert(ctx, decision, participant, "objection.recorded", map[string]any{
		"actor_id": actorID,
		"status":   string(cmd.Status),
	}, now)

	eligible, err := uc.Registry.ListParticipants(ctx, decision.DecisionID)
	if err != nil {
		return tally.ConsentResolution{}, err
	}
	objections, err := uc.Ledger.ListObjections(ctx, decision.DecisionID)
	if err != nil {
		return tally.ConsentResolution{}, err
	}
	resolution := tally.ResolveConsent(eligible, objections, false)
	switch {
	case resolution.Blocked:
		if err := uc.close(ctx, decision, entities.ResultBlocked, "objection_veto", now); err != nil {
			return tally.ConsentResolution{}, err
		}
		logger.Info("consent decision blocked",
			"event", "decision_consent_blocked",
			"module", "deliberation/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"actor_id", actorID,
		)
	case resolution.Approved:
		if err := uc.close(ctx, decision, entities.ResultApproved, "all_positions_recorded", now); err != nil {
			return tally.ConsentResolution{}, err
		}
	}
	return resolution, nil
}

// WithdrawObjection records the retraction of the actor's own objection as a
// distinct action; the entry itself is preserved. A veto closes the decision
// the moment it is recorded, so the retraction is also writable on a blocked
// decision. It annotates the ledger; the closure is never revisited.
func (uc SubmissionUseCase) WithdrawObjection(ctx context.Context, actorID string, decisionID string) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" || strings.TrimSpace(decisionID) == "" {
		return domainerrors.ErrInvalidInput
	}
	now := uc.now()
	decision, err := uc.Decisions.GetDecision(ctx, strings.TrimSpace(decisionID))
	if err != nil {
		return err
	}
	if decision.Protocol != entities.ProtocolConsent {
		return domainerrors.ErrInvalidConfiguration
	}
	blocked := decision.IsClosed() && decision.Result != nil && *decision.Result == entities.ResultBlocked
	if !blocked {
		stage, err := uc.consentStage(ctx, decision, now)
		if err != nil {
			return err
		}
		if !decision.IsOpen() || !stage.Accepts(entities.EntryKindObjection) {
			return domainerrors.ErrStageClosed
		}
	}
	entry, found, err := uc.Ledger.GetObjection(ctx, decision.DecisionID, actorID)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrObjectionNotFound
	}
	entry.Withdrawn = true
	entry.UpdatedAt = now
	if err := uc.Ledger.SaveObjection(ctx, entry); err != nil {
		return err
	}
	uc.invalidateTally(ctx, decision.DecisionID)
	uc.appendEvent(ctx, decision.DecisionID, "objection.withdrawn", map[string]any{
		"actor_id": actorID,
	}, now)
	return nil
}

func (uc SubmissionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

// openDecision loads and gates a decision for a ledger write: it must exist,
// carry the expected protocol, be open, and (deadline protocols) not have
// elapsed.
func (uc SubmissionUseCase) openDecision(
	ctx context.Context,
	decisionID string,
	protocol entities.Protocol,
	now time.Time,
) (entities.Decision, error) {
	decision, err := uc.Decisions.GetDecision(ctx, strings.TrimSpace(decisionID))
	if err != nil {
		return entities.Decision{}, err
	}
	if decision.Protocol != protocol {
		return entities.Decision{}, domainerrors.ErrInvalidConfiguration
	}
	if !decision.IsOpen() {
		return entities.Decision{}, domainerrors.ErrStageClosed
	}
	if decision.DeadlineElapsed(now) {
		return entities.Decision{}, domainerrors.ErrStageClosed
	}
	return decision, nil
}

// ensureParticipant enforces eligibility. Invited decisions require a registry
// entry; public decisions admit any authenticated actor and register them on
// first action.
func (uc SubmissionUseCase) ensureParticipant(
	ctx context.Context,
	decision entities.Decision,
	actorID string,
	now time.Time,
) (entities.Participant, error) {
	participant, found, err := uc.Registry.GetParticipant(ctx, decision.DecisionID, actorID)
	if err != nil {
		return entities.Participant{}, err
	}
	if found {
		if !participant.Eligible {
			return entities.Participant{}, domainerrors.ErrNotEligible
		}
		return participant, nil
	}
	if decision.VotingMode != entities.VotingModePublicAnonymous {
		return entities.Participant{}, domainerrors.ErrNotEligible
	}
	participant = entities.Participant{
		DecisionID: decision.DecisionID,
		ActorID:    actorID,
		Eligible:   true,
		AddedAt:    now,
	}
	if err := uc.Registry.RegisterParticipant(ctx, participant); err != nil {
		return entities.Participant{}, err
	}
	return participant, nil
}

func (uc SubmissionUseCase) consentStage(
	ctx context.Context,
	decision entities.Decision,
	now time.Time,
) (stageclock.Stage, error) {
	state, found, err := uc.Ledger.GetConsentState(ctx, decision.DecisionID)
	if err != nil {
		return stageclock.StageNotStarted, err
	}
	if !found {
		return stageclock.EffectiveStage(decision, nil, now), nil
	}
	return stageclock.EffectiveStage(decision, &state, now), nil
}

// afterUpsert handles the shared submission side effects: first-action
// participant flag, cache invalidation, and the ledger event. None of them
// affect tabulation, so failures are logged and swallowed.
func (uc SubmissionUseCase) afterUpsert(
	ctx context.Context,
	decision entities.Decision,
	participant entities.Participant,
	eventType string,
	data map[string]any,
	now time.Time,
) {
	logger := application.ResolveLogger(uc.Logger)
	if !participant.HasActed {
		if err := uc.Registry.MarkActed(ctx, decision.DecisionID, participant.ActorID); err != nil {
			logger.Warn("mark acted failed",
				"event", "decision_mark_acted_failed",
				"module", "deliberation/decision-engine",
				"layer", "application",
				"decision_id", decision.DecisionID,
				"actor_id", participant.ActorID,
				"error", err.Error(),
			)
		}
	}
	uc.invalidateTally(ctx, decision.DecisionID)
	uc.appendEvent(ctx, decision.DecisionID, eventType, data, now)
}

func (uc SubmissionUseCase) invalidateTally(ctx context.Context, decisionID string) {
	if uc.Cache == nil {
		return
	}
	if err := uc.Cache.InvalidateTally(ctx, decisionID); err != nil {
		application.ResolveLogger(uc.Logger).Warn("tally cache invalidation failed",
			"event", "decision_tally_cache_invalidate_failed",
			"module", "deliberation/decision-engine",
			"layer", "application",
			"decision_id", decisionID,
			"error", err.Error(),
		)
	}
}

func (uc SubmissionUseCase) appendEvent(
	ctx context.Context,
	decisionID string,
	eventType string,
	data map[string]any,
	occurredAt time.Time,
) {
	if uc.Outbox == nil {
		return
	}
	logger := application.ResolveLogger(uc.Logger)
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Warn("event id generation failed",
			"event", "decision_event_id_failed",
			"module", "deliberation/decision-engine",
			"layer", "application",
			"decision_id", decisionID,
			"error", err.Error(),
		)
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["decision_id"] = decisionID
	envelope, err := newDecisionEnvelope(eventID, eventType, decisionID, occurredAt, data)
	if err == nil {
		err = uc.Outbox.AppendOutbox(ctx, envelope)
	}
	if err != nil {
		logger.Warn("outbox append failed",
			"event", "decision_outbox_append_failed",
			"module", "deliberation/decision-engine",
			"layer", "application",
			"decision_id", decisionID,
			"event_type", eventType,
			"error", err.Error(),
		)
	}
}

// close records a terminal result under the conditional-write guard shared
// with the deadline sweeper. Losing the race is not an error: some concurrent
// operation already closed the decision.
func (uc SubmissionUseCase) close(
	ctx context.Context,
	decision entities.Decision,
	result entities.Result,
	cause string,
	now time.Time,
) error {
	won, err := uc.Decisions.CloseDecision(ctx, decision.DecisionID, result, now)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	uc.invalidateTally(ctx, decision.DecisionID)
	uc.appendEvent(ctx, decision.DecisionID, "decision.closed", map[string]any{
		"result": string(result),
		"cause":  cause,
	}, now)
	return nil
}

func proposalExists(proposals []entities.Proposal, proposalID string) bool {
	for _, proposal := range proposals {
		if proposal.ProposalID == proposalID {
			return true
		}
	}
	return false
}

func validateMentionSet(
	decision entities.Decision,
	proposals []entities.Proposal,
	mentions map[string]string,
) error {
	known := make(map[string]bool, len(decision.MentionScale))
	for _, mention := range decision.MentionScale {
		known[mention] = true
	}
	for proposalID, mention := range mentions {
		if !proposalExists(proposals, proposalID) {
			return domainerrors.ErrProposalNotFound
		}
		if !known[mention] {
			return domainerrors.ErrInvalidInput
		}
	}
	// All-or-nothing: every proposal must be rated.
	for _, proposal := range proposals {
		if _, ok := mentions[proposal.ProposalID]; !ok {
			return domainerrors.ErrIncompleteSubmission
		}
	}
	return nil
}
