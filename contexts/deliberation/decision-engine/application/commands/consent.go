package commands

import (
	"context"
	"strings"

	application "quorum/contexts/deliberation/decision-engine/application"
	"quorum/contexts/deliberation/decision-engine/domain/entities"
	domainerrors "quorum/contexts/deliberation/decision-engine/domain/errors"
	"quorum/contexts/deliberation/decision-engine/domain/stageclock"
)

// AskQuestionCommand opens a clarification question. Questions are append-only
// so one actor may ask many.
type AskQuestionCommand struct {
	ActorID    string
	DecisionID string
	Question   string
}

// AnswerQuestionCommand fills a question's answer exactly once, creator-only.
type AnswerQuestionCommand struct {
	ActorID    string
	DecisionID string
	QuestionID string
	Answer     string
}

// AmendProposalCommand is the creator's one-shot amendements-stage action.
// Text is only read for the amended action.
type AmendProposalCommand struct {
	ActorID    string
	DecisionID string
	Action     entities.AmendmentAction
	Text       string
}

// ConsentUseCase orchestrates the consent-specific workflow: clarification
// questions and the creator's amendements-stage decision. It reuses the
// submission gates (eligibility, stage permission, closure guard).
type ConsentUseCase struct {
	SubmissionUseCase
}

func (uc ConsentUseCase) AskQuestion(ctx context.Context, cmd AskQuestionCommand) (entities.ClarificationQuestion, error) {
	actorID := strings.TrimSpace(cmd.ActorID)
	question := strings.TrimSpace(cmd.Question)
	if actorID == "" || strings.TrimSpace(cmd.DecisionID) == "" || question == "" {
		return entities.ClarificationQuestion{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	decision, err := uc.openDecision(ctx, cmd.DecisionID, entities.ProtocolConsent, now)
	if err != nil {
		return entities.ClarificationQuestion{}, err
	}
	stage, err := uc.consentStage(ctx, decision, now)
	if err != nil {
		return entities.ClarificationQuestion{}, err
	}
	if !stage.AcceptsQuestion() {
		return entities.ClarificationQuestion{}, domainerrors.ErrStageClosed
	}
	participant, err := uc.ensureParticipant(ctx, decision, actorID, now)
	if err != nil {
		return entities.ClarificationQuestion{}, err
	}

	questionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.ClarificationQuestion{}, err
	}
	entry := entities.ClarificationQuestion{
		QuestionID: questionID,
		DecisionID: decision.DecisionID,
		ActorID:    actorID,
		Question:   question,
		AskedAt:    now,
	}
	if err := uc.Ledger.AppendQuestion(ctx, entry); err != nil {
		return entities.ClarificationQuestion{}, err
	}
	uc.afterUpsert(ctx, decision, participant, "question.asked", map[string]any{
		"actor_id":    actorID,
		"question_id": questionID,
	}, now)
	return entry, nil
}

// AnswerQuestion is creator-only regardless of participant status; the answer
// is a one-time fill.
func (uc ConsentUseCase) AnswerQuestion(ctx context.Context, cmd AnswerQuestionCommand) error {
	actorID := strings.TrimSpace(cmd.ActorID)
	answer := strings.TrimSpace(cmd.Answer)
	if actorID == "" || strings.TrimSpace(cmd.DecisionID) == "" || strings.TrimSpace(cmd.QuestionID) == "" || answer == "" {
		return domainerrors.ErrInvalidInput
	}

	now := uc.now()
	decision, err := uc.openDecision(ctx, cmd.DecisionID, entities.ProtocolConsent, now)
	if err != nil {
		return err
	}
	if decision.CreatorID != actorID {
		return domainerrors.ErrNotCreator
	}
	stage, err := uc.consentStage(ctx, decision, now)
	if err != nil {
		return err
	}
	if !stage.AcceptsAnswer() {
		return domainerrors.ErrStageClosed
	}
	question, err := uc.Ledger.GetQuestion(ctx, strings.TrimSpace(cmd.QuestionID))
	if err != nil {
		return err
	}
	if question.DecisionID != decision.DecisionID {
		return domainerrors.ErrQuestionNotFound
	}
	filled, err := uc.Ledger.AnswerQuestion(ctx, question.QuestionID, answer, actorID, now)
	if err != nil {
		return err
	}
	if !filled {
		return domainerrors.ErrAlreadyAnswered
	}
	uc.appendEvent(ctx, decision.DecisionID, "question.answered", map[string]any{
		"question_id": question.QuestionID,
		"answered_by": actorID,
	}, now)
	return nil
}

// DecideAmendment records the creator's single amendements-stage action under
// a first-write-wins conditional guard. Amended and kept both advance the
// workflow to objections; withdrawn closes the decision immediately,
// overriding the clock.
func (uc ConsentUseCase) DecideAmendment(ctx context.Context, cmd AmendProposalCommand) (entities.ConsentProposalState, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" || strings.TrimSpace(cmd.DecisionID) == "" {
		return entities.ConsentProposalState{}, domainerrors.ErrInvalidInput
	}
	switch cmd.Action {
	case entities.AmendmentActionAmended, entities.AmendmentActionKept, entities.AmendmentActionWithdrawn:
	default:
		return entities.ConsentProposalState{}, domainerrors.ErrInvalidInput
	}
	text := strings.TrimSpace(cmd.Text)
	if cmd.Action == entities.AmendmentActionAmended && text == "" {
		return entities.ConsentProposalState{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	decision, err := uc.openDecision(ctx, cmd.DecisionID, entities.ProtocolConsent, now)
	if err != nil {
		return entities.ConsentProposalState{}, err
	}
	if decision.CreatorID != actorID {
		return entities.ConsentProposalState{}, domainerrors.ErrNotCreator
	}
	state, found, err := uc.Ledger.GetConsentState(ctx, decision.DecisionID)
	if err != nil {
		return entities.ConsentProposalState{}, err
	}
	if found && state.Decided() {
		return entities.ConsentProposalState{}, domainerrors.ErrAlreadyDecided
	}
	clockStage := stageclock.ForDecision(decision).Current(now)
	if !clockStage.AcceptsAmendment() {
		return entities.ConsentProposalState{}, domainerrors.ErrStageClosed
	}

	if cmd.Action != entities.AmendmentActionAmended {
		text = state.CurrentText
	}
	recorded, err := uc.Ledger.RecordAmendment(ctx, decision.DecisionID, cmd.Action, text, now)
	if err != nil {
		return entities.ConsentProposalState{}, err
	}
	if !recorded {
		// A concurrent creator request won the conditional write.
		return entities.ConsentProposalState{}, domainerrors.ErrAlreadyDecided
	}
	uc.invalidateTally(ctx, decision.DecisionID)
	uc.appendEvent(ctx, decision.DecisionID, "proposal."+string(cmd.Action), map[string]any{
		"actor_id": actorID,
	}, now)

	if cmd.Action == entities.AmendmentActionWithdrawn {
		if err := uc.close(ctx, decision, entities.ResultWithdrawn, "creator_withdrawal", now); err != nil {
			return entities.ConsentProposalState{}, err
		}
	}
	logger.Info("amendment action recorded",
		"event", "decision_amendment_recorded",
		"module", "deliberation/decision-engine",
		"layer", "application",
		"decision_id", decision.DecisionID,
		"action", string(cmd.Action),
	)

	state, _, err = uc.Ledger.GetConsentState(ctx, decision.DecisionID)
	return state, err
}
