package queries

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "quorum/contexts/deliberation/decision-engine/application"
	"quorum/contexts/deliberation/decision-engine/domain/entities"
	"quorum/contexts/deliberation/decision-engine/domain/stageclock"
	"quorum/contexts/deliberation/decision-engine/domain/tally"
	"quorum/contexts/deliberation/decision-engine/ports"
)

// TallySnapshot is the protocol-dispatched read model for one decision. Only
// the field matching the decision's protocol is populated.
type TallySnapshot struct {
	DecisionID string                   `json:"decision_id"`
	Protocol   entities.Protocol        `json:"protocol"`
	Status     entities.DecisionStatus  `json:"status"`
	Result     *entities.Result         `json:"result,omitempty"`
	Stage      stageclock.Stage         `json:"stage,omitempty"`
	Plurality  *tally.PluralityTally    `json:"plurality,omitempty"`
	Consensus  *tally.ConsensusTally    `json:"consensus,omitempty"`
	Judgment   *tally.JudgmentTally     `json:"judgment,omitempty"`
	Advice     *tally.AdviceTally       `json:"advice,omitempty"`
	Consent    *tally.ConsentResolution `json:"consent,omitempty"`
}

// TallyUseCase is the side-effect-free read path: tallies, current stage, and
// result computation. ComputeResult never persists a transition; the caller
// decides whether to record a closure.
type TallyUseCase struct {
	Decisions ports.DecisionRepository
	Ledger    ports.LedgerRepository
	Registry  ports.ParticipantRegistry
	Cache     ports.TallyCache
	Clock     ports.Clock
	Logger    *slog.Logger
}

func (uc TallyUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

// DecisionTally computes the current tally snapshot, serving from the cache
// when a fresh copy exists. Cache failures degrade to recomputation.
func (uc TallyUseCase) DecisionTally(ctx context.Context, decisionID string) (TallySnapshot, error) {
	logger := application.ResolveLogger(uc.Logger)
	decisionID = strings.TrimSpace(decisionID)

	if uc.Cache != nil {
		if payload, found, err := uc.Cache.GetTally(ctx, decisionID); err != nil {
			logger.Warn("tally cache read failed",
				"event", "decision_tally_cache_read_failed",
				"module", "deliberation/decision-engine",
				"layer", "application",
				"decision_id", decisionID,
				"error", err.Error(),
			)
		} else if found {
			var snapshot TallySnapshot
			if err := json.Unmarshal(payload, &snapshot); err == nil {
				return snapshot, nil
			}
		}
	}

	snapshot, err := uc.computeTally(ctx, decisionID)
	if err != nil {
		return TallySnapshot{}, err
	}
	if uc.Cache != nil {
		if payload, err := json.Marshal(snapshot); err == nil {
			if err := uc.Cache.PutTally(ctx, decisionID, payload); err != nil {
				logger.Warn("tally cache write failed",
					"event", "decision_tally_cache_write_failed",
					"module", "deliberation/decision-engine",
					"layer", "application",
					"decision_id", decisionID,
					"error", err.Error(),
				)
			}
		}
	}
	return snapshot, nil
}

func (uc TallyUseCase) computeTally(ctx context.Context, decisionID string) (TallySnapshot, error) {
	decision, err := uc.Decisions.GetDecision(ctx, decisionID)
	if err != nil {
		return TallySnapshot{}, err
	}
	snapshot := TallySnapshot{
		DecisionID: decision.DecisionID,
		Protocol:   decision.Protocol,
		Status:     decision.Status,
		Result:     decision.Result,
	}

	switch decision.Protocol {
	case entities.ProtocolMajority:
		proposals, err := uc.Decisions.ListProposals(ctx, decision.DecisionID)
		if err != nil {
			return TallySnapshot{}, err
		}
		ballots, err := uc.Ledger.ListBallots(ctx, decision.DecisionID)
		if err != nil {
			return TallySnapshot{}, err
		}
		result := tally.Plurality(proposals, ballots)
		snapshot.Plurality = &result

	case entities.ProtocolConsensus:
		eligible, err := uc.Registry.ListParticipants(ctx, decision.DecisionID)
		if err != nil {
			return TallySnapshot{}, err
		}
		entries, err := uc.Ledger.ListConsensusEntries(ctx, decision.DecisionID)
		if err != nil {
			return TallySnapshot{}, err
		}
		result := tally.Consensus(eligible, entries)
		snapshot.Consensus = &result

	case entities.ProtocolNuancedVote:
		proposals, err := uc.Decisions.ListProposals(ctx, decision.DecisionID)
		if err != nil {
			return TallySnapshot{}, err
		}
		sets, err := uc.Ledger.ListMentionSets(ctx, decision.DecisionID)
		if err != nil {
			return TallySnapshot{}, err
		}
		result := tally.MajorityJudgment(decision.MentionScale, proposals, sets, decision.WinnerCount)
		snapshot.Judgment = &result

	case entities.ProtocolAdvice:
		eligible, err := uc.Registry.ListParticipants(ctx, decision.DecisionID)
		if err != nil {
			return TallySnapshot{}, err
		}
		opinions, err := uc.Ledger.ListOpinions(ctx, decision.DecisionID)
		if err != nil {
			return TallySnapshot{}, err
		}
		result := tally.AdviceProgress(decision.CreatorID, eligible, opinions)
		snapshot.Advice = &result

	case entities.ProtocolConsent:
		now := uc.now()
		stage, err := uc.effectiveStage(ctx, decision, now)
		if err != nil {
			return TallySnapshot{}, err
		}
		snapshot.Stage = stage
		eligible, err := uc.Registry.ListParticipants(ctx, decision.DecisionID)
		if err != nil {
			return TallySnapshot{}, err
		}
		objections, err := uc.Ledger.ListObjections(ctx, decision.DecisionID)
		if err != nil {
			return TallySnapshot{}, err
		}
		windowElapsed := stageclock.ForDecision(decision).Current(now) == stageclock.StageTerminee
		result := tally.ResolveConsent(eligible, objections, windowElapsed)
		snapshot.Consent = &result
	}
	return snapshot, nil
}

// CurrentStage resolves the consent stage at an explicit instant.
func (uc TallyUseCase) CurrentStage(ctx context.Context, decisionID string, now time.Time) (stageclock.Stage, error) {
	decision, err := uc.Decisions.GetDecision(ctx, strings.TrimSpace(decisionID))
	if err != nil {
		return stageclock.StageNotStarted, err
	}
	if decision.Protocol != entities.ProtocolConsent {
		return stageclock.StageNotStarted, nil
	}
	return uc.effectiveStage(ctx, decision, now)
}

// ComputeResult evaluates the decision's terminal outcome at the current
// instant. The boolean reports whether a result is determined; callers decide
// whether to persist a closure. It is idempotent and safe to call repeatedly.
func (uc TallyUseCase) ComputeResult(ctx context.Context, decisionID string) (entities.Result, bool, error) {
	decision, err := uc.Decisions.GetDecision(ctx, strings.TrimSpace(decisionID))
	if err != nil {
		return "", false, err
	}
	return uc.resolve(ctx, decision, uc.now())
}

func (uc TallyUseCase) resolve(ctx context.Context, decision entities.Decision, now time.Time) (entities.Result, bool, error) {
	if decision.IsClosed() {
		if decision.Result == nil {
			return "", false, nil
		}
		return *decision.Result, true, nil
	}
	if !decision.IsOpen() {
		return "", false, nil
	}

	switch decision.Protocol {
	case entities.ProtocolMajority, entities.ProtocolNuancedVote:
		// Tallies can change while open; only the deadline determines closure.
		if decision.DeadlineElapsed(now) {
			return entities.ResultApproved, true, nil
		}
		return "", false, nil

	case entities.ProtocolConsensus:
		eligible, err := uc.Registry.ListParticipants(ctx, decision.DecisionID)
		if err != nil {
			return "", false, err
		}
		entries, err := uc.Ledger.ListConsensusEntries(ctx, decision.DecisionID)
		if err != nil {
			return "", false, err
		}
		if tally.Consensus(eligible, entries).Unanimous {
			return entities.ResultApproved, true, nil
		}
		if decision.DeadlineElapsed(now) {
			return entities.ResultRejected, true, nil
		}
		return "", false, nil

	case entities.ProtocolAdvice:
		// The tracker never resolves by itself; only the creator's explicit
		// conclusion or withdrawal closes an advice decision.
		return "", false, nil

	case entities.ProtocolConsent:
		state, found, err := uc.Ledger.GetConsentState(ctx, decision.DecisionID)
		if err != nil {
			return "", false, err
		}
		if found && state.Action != nil && *state.Action == entities.AmendmentActionWithdrawn {
			return entities.ResultWithdrawn, true, nil
		}
		eligible, err := uc.Registry.ListParticipants(ctx, decision.DecisionID)
		if err != nil {
			return "", false, err
		}
		objections, err := uc.Ledger.ListObjections(ctx, decision.DecisionID)
		if err != nil {
			return "", false, err
		}
		stage := stageclock.ForDecision(decision).Current(now)
		resolution := tally.ResolveConsent(eligible, objections, stage == stageclock.StageTerminee)
		switch {
		case resolution.Blocked:
			return entities.ResultBlocked, true, nil
		case resolution.Approved && (stage == stageclock.StageObjections || stage == stageclock.StageTerminee):
			return entities.ResultApproved, true, nil
		default:
			return "", false, nil
		}
	}
	return "", false, nil
}

func (uc TallyUseCase) effectiveStage(
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
