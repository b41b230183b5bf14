package queries

import (
	"context"
	"strings"

	"quorum/contexts/deliberation/decision-engine/domain/entities"
	domainerrors "quorum/contexts/deliberation/decision-engine/domain/errors"
)

// Questions lists a consent decision's clarification thread in ask order.
func (uc TallyUseCase) Questions(ctx context.Context, decisionID string) ([]entities.ClarificationQuestion, error) {
	return uc.Ledger.ListQuestions(ctx, strings.TrimSpace(decisionID))
}

// ProposalState returns a consent decision's proposal text and amendment
// action.
func (uc TallyUseCase) ProposalState(ctx context.Context, decisionID string) (entities.ConsentProposalState, error) {
	state, found, err := uc.Ledger.GetConsentState(ctx, strings.TrimSpace(decisionID))
	if err != nil {
		return entities.ConsentProposalState{}, err
	}
	if !found {
		return entities.ConsentProposalState{}, domainerrors.ErrDecisionNotFound
	}
	return state, nil
}

// Decision returns the decision record itself for read surfaces.
func (uc TallyUseCase) Decision(ctx context.Context, decisionID string) (entities.Decision, error) {
	return uc.Decisions.GetDecision(ctx, strings.TrimSpace(decisionID))
}
