package commands

import (
	"context"
	"strings"
	"time"

	application "quorum/contexts/deliberation/decision-engine/application"
	"quorum/contexts/deliberation/decision-engine/domain/entities"
	domainerrors "quorum/contexts/deliberation/decision-engine/domain/errors"
	"quorum/contexts/deliberation/decision-engine/domain/tally"
)

// CreateDecisionCommand drafts a new decision run.
type CreateDecisionCommand struct {
	CreatorID    string
	Title        string
	Protocol     entities.Protocol
	VotingMode   entities.VotingMode
	StartsAt     *time.Time
	EndsAt       *time.Time
	MentionScale []string
	WinnerCount  int
	StepMode     entities.StepMode
	ProposalText string // consent initial proposal text
}

// AddProposalCommand adds an option to a draft decision.
type AddProposalCommand struct {
	ActorID    string
	DecisionID string
	Text       string
}

// ConcludeAdviceCommand validates an advice decision with the creator's final
// conclusion.
type ConcludeAdviceCommand struct {
	ActorID    string
	DecisionID string
	Conclusion string
}

// LifecycleUseCase owns the draft → open → closed state machine. Closures run
// under the same conditional guard as submission-triggered ones.
type LifecycleUseCase struct {
	SubmissionUseCase
}

func (uc LifecycleUseCase) CreateDecision(ctx context.Context, cmd CreateDecisionCommand) (entities.Decision, error) {
	creatorID := strings.TrimSpace(cmd.CreatorID)
	title := strings.TrimSpace(cmd.Title)
	if creatorID == "" || title == "" {
		return entities.Decision{}, domainerrors.ErrInvalidInput
	}
	switch cmd.Protocol {
	case entities.ProtocolMajority, entities.ProtocolConsensus, entities.ProtocolNuancedVote,
		entities.ProtocolAdvice, entities.ProtocolConsent:
	default:
		return entities.Decision{}, domainerrors.ErrInvalidConfiguration
	}
	mode := cmd.VotingMode
	if mode == "" {
		mode = entities.VotingModeInvited
	}

	now := uc.now()
	decisionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Decision{}, err
	}
	decision := entities.Decision{
		DecisionID:   decisionID,
		CreatorID:    creatorID,
		Title:        title,
		Protocol:     cmd.Protocol,
		Status:       entities.DecisionStatusDraft,
		VotingMode:   mode,
		StartsAt:     cmd.StartsAt,
		EndsAt:       cmd.EndsAt,
		MentionScale: cmd.MentionScale,
		WinnerCount:  cmd.WinnerCount,
		StepMode:     cmd.StepMode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Decisions.SaveDecision(ctx, decision); err != nil {
		return entities.Decision{}, err
	}
	if cmd.Protocol == entities.ProtocolConsent {
		text := strings.TrimSpace(cmd.ProposalText)
		if err := uc.Ledger.SaveConsentState(ctx, entities.ConsentProposalState{
			DecisionID:  decisionID,
			InitialText: text,
			CurrentText: text,
		}); err != nil {
			return entities.Decision{}, err
		}
	}
	uc.appendEvent(ctx, decisionID, "decision.drafted", map[string]any{
		"protocol": string(cmd.Protocol),
	}, now)
	return decision, nil
}

// AddProposal attaches an option to a draft majority or nuanced-vote decision.
// Proposals are immutable once the decision opens.
func (uc LifecycleUseCase) AddProposal(ctx context.Context, cmd AddProposalCommand) (entities.Proposal, error) {
	actorID := strings.TrimSpace(cmd.ActorID)
	text := strings.TrimSpace(cmd.Text)
	if actorID == "" || strings.TrimSpace(cmd.DecisionID) == "" || text == "" {
		return entities.Proposal{}, domainerrors.ErrInvalidInput
	}
	decision, err := uc.Decisions.GetDecision(ctx, strings.TrimSpace(cmd.DecisionID))
	if err != nil {
		return entities.Proposal{}, err
	}
	if decision.CreatorID != actorID {
		return entities.Proposal{}, domainerrors.ErrNotCreator
	}
	if decision.Status != entities.DecisionStatusDraft {
		return entities.Proposal{}, domainerrors.ErrDecisionNotDraft
	}
	if decision.Protocol != entities.ProtocolMajority && decision.Protocol != entities.ProtocolNuancedVote {
		return entities.Proposal{}, domainerrors.ErrInvalidConfiguration
	}

	existing, err := uc.Decisions.ListProposals(ctx, decision.DecisionID)
	if err != nil {
		return entities.Proposal{}, err
	}
	proposalID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Proposal{}, err
	}
	proposal := entities.Proposal{
		ProposalID:   proposalID,
		DecisionID:   decision.DecisionID,
		Text:         text,
		DisplayOrder: len(existing) + 1,
		CreatedAt:    uc.now(),
	}
	if err := uc.Decisions.SaveProposal(ctx, proposal); err != nil {
		return entities.Proposal{}, err
	}
	return proposal, nil
}

// LaunchDecision validates configuration and moves a draft to open.
func (uc LifecycleUseCase) LaunchDecision(ctx context.Context, actorID string, decisionID string) (entities.Decision, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID = strings.TrimSpace(actorID)
	if actorID == "" || strings.TrimSpace(decisionID) == "" {
		return entities.Decision{}, domainerrors.ErrInvalidInput
	}
	decision, err := uc.Decisions.GetDecision(ctx, strings.TrimSpace(decisionID))
	if err != nil {
		return entities.Decision{}, err
	}
	if decision.CreatorID != actorID {
		return entities.Decision{}, domainerrors.ErrNotCreator
	}
	if decision.Status != entities.DecisionStatusDraft {
		return entities.Decision{}, domainerrors.ErrDecisionNotDraft
	}

	now := uc.now()
	proposals, err := uc.Decisions.ListProposals(ctx, decision.DecisionID)
	if err != nil {
		return entities.Decision{}, err
	}
	if decision.StartsAt == nil {
		decision.StartsAt = &now
	}
	if err := validateLaunch(decision, proposals); err != nil {
		logger.Warn("decision launch rejected",
			"event", "decision_launch_rejected",
			"module", "deliberation/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"error", err.Error(),
		)
		return entities.Decision{}, err
	}
	decision.Status = entities.DecisionStatusOpen
	decision.UpdatedAt = now
	if err := uc.Decisions.SaveDecision(ctx, decision); err != nil {
		return entities.Decision{}, err
	}
	uc.appendEvent(ctx, decision.DecisionID, "decision.opened", map[string]any{
		"protocol": string(decision.Protocol),
	}, now)
	logger.Info("decision opened",
		"event", "decision_opened",
		"module", "deliberation/decision-engine",
		"layer", "application",
		"decision_id", decision.DecisionID,
		"protocol", string(decision.Protocol),
	)
	return decision, nil
}

// WithdrawDecision is the creator's explicit termination for every protocol
// except consent, whose withdrawal runs through the amendements-stage action.
func (uc LifecycleUseCase) WithdrawDecision(ctx context.Context, actorID string, decisionID string) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" || strings.TrimSpace(decisionID) == "" {
		return domainerrors.ErrInvalidInput
	}
	decision, err := uc.Decisions.GetDecision(ctx, strings.TrimSpace(decisionID))
	if err != nil {
		return err
	}
	if decision.CreatorID != actorID {
		return domainerrors.ErrNotCreator
	}
	if decision.Protocol == entities.ProtocolConsent {
		return domainerrors.ErrInvalidConfiguration
	}
	if !decision.IsOpen() {
		return domainerrors.ErrDecisionNotOpen
	}
	return uc.close(ctx, decision, entities.ResultWithdrawn, "creator_withdrawal", uc.now())
}

// ConcludeAdvice writes the creator's final conclusion and approves the
// decision. It is rejected until every solicited opinion is in; the
// conditional close guard makes the conclusion a one-shot write.
func (uc LifecycleUseCase) ConcludeAdvice(ctx context.Context, cmd ConcludeAdviceCommand) error {
	actorID := strings.TrimSpace(cmd.ActorID)
	conclusion := strings.TrimSpace(cmd.Conclusion)
	if actorID == "" || strings.TrimSpace(cmd.DecisionID) == "" || conclusion == "" {
		return domainerrors.ErrInvalidInput
	}
	decision, err := uc.Decisions.GetDecision(ctx, strings.TrimSpace(cmd.DecisionID))
	if err != nil {
		return err
	}
	if decision.Protocol != entities.ProtocolAdvice {
		return domainerrors.ErrInvalidConfiguration
	}
	if decision.CreatorID != actorID {
		return domainerrors.ErrNotCreator
	}
	if decision.IsClosed() {
		return domainerrors.ErrAlreadyDecided
	}
	if !decision.IsOpen() {
		return domainerrors.ErrDecisionNotOpen
	}

	eligible, err := uc.Registry.ListParticipants(ctx, decision.DecisionID)
	if err != nil {
		return err
	}
	opinions, err := uc.Ledger.ListOpinions(ctx, decision.DecisionID)
	if err != nil {
		return err
	}
	progress := tally.AdviceProgress(decision.CreatorID, eligible, opinions)
	if !progress.AllReceived {
		return domainerrors.ErrAdviceIncomplete
	}

	now := uc.now()
	won, err := uc.Decisions.CloseDecision(ctx, decision.DecisionID, entities.ResultApproved, now)
	if err != nil {
		return err
	}
	if !won {
		return domainerrors.ErrAlreadyDecided
	}
	decision, err = uc.Decisions.GetDecision(ctx, decision.DecisionID)
	if err != nil {
		return err
	}
	decision.Conclusion = &conclusion
	decision.UpdatedAt = now
	if err := uc.Decisions.SaveDecision(ctx, decision); err != nil {
		return err
	}
	uc.invalidateTally(ctx, decision.DecisionID)
	uc.appendEvent(ctx, decision.DecisionID, "decision.closed", map[string]any{
		"result": string(entities.ResultApproved),
		"cause":  "advice_concluded",
	}, now)
	return nil
}

func validateLaunch(decision entities.Decision, proposals []entities.Proposal) error {
	switch decision.Protocol {
	case entities.ProtocolMajority:
		if len(proposals) < 2 {
			return domainerrors.ErrInvalidConfiguration
		}
	case entities.ProtocolNuancedVote:
		if len(proposals) < 2 || len(decision.MentionScale) < 2 {
			return domainerrors.ErrInvalidConfiguration
		}
		if decision.WinnerCount < 1 || decision.WinnerCount > len(proposals) {
			return domainerrors.ErrInvalidConfiguration
		}
	case entities.ProtocolConsent:
		if decision.EndsAt == nil {
			return domainerrors.ErrInvalidConfiguration
		}
		if decision.StepMode != entities.StepModeDistinct && decision.StepMode != entities.StepModeMerged {
			return domainerrors.ErrInvalidConfiguration
		}
		if decision.StartsAt == nil || !decision.EndsAt.After(*decision.StartsAt) {
			return domainerrors.ErrInvalidConfiguration
		}
	}
	return nil
}
