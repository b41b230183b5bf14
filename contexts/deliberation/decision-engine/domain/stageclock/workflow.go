package stageclock

import (
	"time"

	"quorum/contexts/deliberation/decision-engine/domain/entities"
)

// EffectiveStage layers participant actions on top of the clock windows. A
// closed decision or a recorded withdrawal is terminal regardless of the
// clock; a recorded amendment action (amended or kept) advances the
// amendements window to objections early. When the amendements window elapses
// without a creator action the clock alone moves the workflow to objections,
// which treats the proposal as implicitly kept.
func EffectiveStage(
	decision entities.Decision,
	state *entities.ConsentProposalState,
	now time.Time,
) Stage {
	if decision.IsClosed() {
		return StageTerminee
	}
	if !decision.IsOpen() {
		return StageNotStarted
	}
	stage := ForDecision(decision).Current(now)
	if state == nil || state.Action == nil {
		return stage
	}
	switch *state.Action {
	case entities.AmendmentActionWithdrawn:
		return StageTerminee
	default:
		if stage == StageAmendements {
			return StageObjections
		}
	}
	return stage
}

// Accepts reports whether a ledger entry kind is writable during a stage, per
// the consent stage-permission table. Clarification answers follow a wider
// window and are handled by the caller.
func (s Stage) Accepts(kind entities.EntryKind) bool {
	switch kind {
	case entities.EntryKindOpinion:
		return s == StageClarifAvis || s == StageAvis
	case entities.EntryKindObjection:
		return s == StageObjections
	default:
		return false
	}
}

// AcceptsQuestion reports whether participants may still ask clarification
// questions.
func (s Stage) AcceptsQuestion() bool {
	return s == StageClarifications || s == StageClarifAvis
}

// AcceptsAnswer reports whether the creator may still answer questions. Late
// answers remain possible through the avis and amendements windows.
func (s Stage) AcceptsAnswer() bool {
	switch s {
	case StageClarifications, StageClarifAvis, StageAvis, StageAmendements:
		return true
	default:
		return false
	}
}

// AcceptsAmendment reports whether the creator's one-shot amendment action is
// writable.
func (s Stage) AcceptsAmendment() bool {
	return s == StageAmendements
}
