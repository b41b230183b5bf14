package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	decisionengine "quorum/contexts/deliberation/decision-engine"
	"quorum/contexts/deliberation/decision-engine/domain/entities"
	domainerrors "quorum/contexts/deliberation/decision-engine/domain/errors"
	"quorum/contexts/deliberation/decision-engine/domain/stageclock"
	httptransport "quorum/contexts/deliberation/decision-engine/transport/http"
)

// openConsentDecision drafts and launches a distinct-mode consent run over an
// eight hour window, so each stage spans two hours.
func openConsentDecision(t *testing.T, module decisionengine.Module, start time.Time, members ...string) string {
	t.Helper()
	ctx := context.Background()
	end := start.Add(8 * time.Hour)
	module.Store.SetNow(start)

	decision, err := module.Handler.CreateDecisionHandler(ctx, "creator-1", httptransport.CreateDecisionRequest{
		Title:        "new meeting cadence",
		Protocol:     string(entities.ProtocolConsent),
		StepMode:     string(entities.StepModeDistinct),
		StartsAt:     start.Format(time.RFC3339),
		EndsAt:       end.Format(time.RFC3339),
		ProposalText: "weekly sync moves to thursday",
	})
	if err != nil {
		t.Fatalf("create consent decision: %v", err)
	}
	registerVoters(t, module, decision.DecisionID, members...)
	if _, err := module.Handler.LaunchDecisionHandler(ctx, "creator-1", decision.DecisionID); err != nil {
		t.Fatalf("launch consent decision: %v", err)
	}
	return decision.DecisionID
}

func TestConsentLaunchRequiresScheduleAndStepMode(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()

	decision, err := module.Handler.CreateDecisionHandler(ctx, "creator-1", httptransport.CreateDecisionRequest{
		Title:        "unscheduled consent",
		Protocol:     string(entities.ProtocolConsent),
		ProposalText: "some proposal",
	})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}
	if _, err := module.Handler.LaunchDecisionHandler(ctx, "creator-1", decision.DecisionID); !errors.Is(err, domainerrors.ErrInvalidConfiguration) {
		t.Fatalf("consent without an end time must not launch, got %v", err)
	}
}

func TestConsentClarificationQuestions(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	decisionID := openConsentDecision(t, module, start, "member-1", "member-2")

	question, err := module.Handler.AskQuestionHandler(ctx, "member-1", decisionID, httptransport.AskQuestionRequest{Question: "does thursday include remote weeks?"})
	if err != nil {
		t.Fatalf("ask question: %v", err)
	}

	// Opinions belong to the avis stage, not clarifications.
	if _, err := module.Handler.SubmitOpinionHandler(ctx, "member-1", decisionID, httptransport.SubmitOpinionRequest{Text: "too early"}); !errors.Is(err, domainerrors.ErrStageClosed) {
		t.Fatalf("opinion during clarifications must be rejected, got %v", err)
	}

	if err := module.Handler.AnswerQuestionHandler(ctx, "member-2", decisionID, question.QuestionID, httptransport.AnswerQuestionRequest{Answer: "yes"}); !errors.Is(err, domainerrors.ErrNotCreator) {
		t.Fatalf("only the creator answers, got %v", err)
	}
	if err := module.Handler.AnswerQuestionHandler(ctx, "creator-1", decisionID, question.QuestionID, httptransport.AnswerQuestionRequest{Answer: "yes, every week"}); err != nil {
		t.Fatalf("answer question: %v", err)
	}
	if err := module.Handler.AnswerQuestionHandler(ctx, "creator-1", decisionID, question.QuestionID, httptransport.AnswerQuestionRequest{Answer: "actually no"}); !errors.Is(err, domainerrors.ErrAlreadyAnswered) {
		t.Fatalf("answers are one-shot, got %v", err)
	}

	listed, err := module.Handler.QuestionsHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(listed.Items) != 1 || !listed.Items[0].Answered || listed.Items[0].Answer != "yes, every week" {
		t.Fatalf("unexpected question list: %+v", listed.Items)
	}

	// Questions close once the avis stage opens.
	module.Store.SetNow(start.Add(2 * time.Hour))
	if _, err := module.Handler.AskQuestionHandler(ctx, "member-2", decisionID, httptransport.AskQuestionRequest{Question: "late question"}); !errors.Is(err, domainerrors.ErrStageClosed) {
		t.Fatalf("question after clarifications must be rejected, got %v", err)
	}
	if _, err := module.Handler.SubmitOpinionHandler(ctx, "member-1", decisionID, httptransport.SubmitOpinionRequest{Text: "thursday works"}); err != nil {
		t.Fatalf("opinion during avis: %v", err)
	}
}

func TestConsentAmendmentAdvancesToObjections(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	decisionID := openConsentDecision(t, module, start, "member-1", "member-2")

	// Amendment attempts before the amendements window are rejected.
	module.Store.SetNow(start.Add(2 * time.Hour))
	if _, err := module.Handler.AmendProposalHandler(ctx, "creator-1", decisionID, httptransport.AmendProposalRequest{Action: string(entities.AmendmentActionKept)}); !errors.Is(err, domainerrors.ErrStageClosed) {
		t.Fatalf("amendment during avis must be rejected, got %v", err)
	}

	module.Store.SetNow(start.Add(4 * time.Hour))
	if _, err := module.Handler.AmendProposalHandler(ctx, "member-1", decisionID, httptransport.AmendProposalRequest{Action: string(entities.AmendmentActionKept)}); !errors.Is(err, domainerrors.ErrNotCreator) {
		t.Fatalf("only the creator amends, got %v", err)
	}
	state, err := module.Handler.AmendProposalHandler(ctx, "creator-1", decisionID, httptransport.AmendProposalRequest{
		Action: string(entities.AmendmentActionAmended),
		Text:   "weekly sync moves to thursday, 30 minutes",
	})
	if err != nil {
		t.Fatalf("amend proposal: %v", err)
	}
	if state.CurrentText != "weekly sync moves to thursday, 30 minutes" || state.InitialText != "weekly sync moves to thursday" {
		t.Fatalf("unexpected proposal state: %+v", state)
	}
	if _, err := module.Handler.AmendProposalHandler(ctx, "creator-1", decisionID, httptransport.AmendProposalRequest{Action: string(entities.AmendmentActionKept)}); !errors.Is(err, domainerrors.ErrAlreadyDecided) {
		t.Fatalf("the amendment action is one-shot, got %v", err)
	}

	// The action advances the workflow: objections open before their window.
	stage, err := module.Handler.Tallies.CurrentStage(ctx, decisionID, module.Store.Now())
	if err != nil {
		t.Fatalf("current stage: %v", err)
	}
	if stage != stageclock.StageObjections {
		t.Fatalf("expected objections after the amendment action, got %s", stage)
	}
	if _, err := module.Handler.SubmitObjectionHandler(ctx, "member-1", decisionID, httptransport.SubmitObjectionRequest{Status: string(entities.ObjectionStatusNone)}); err != nil {
		t.Fatalf("objection entry after amendment: %v", err)
	}
}

func TestConsentWithdrawnActionClosesDecision(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	decisionID := openConsentDecision(t, module, start, "member-1")

	module.Store.SetNow(start.Add(4 * time.Hour))
	if _, err := module.Handler.AmendProposalHandler(ctx, "creator-1", decisionID, httptransport.AmendProposalRequest{Action: string(entities.AmendmentActionWithdrawn)}); err != nil {
		t.Fatalf("withdraw action: %v", err)
	}

	decision, err := module.Handler.GetDecisionHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if decision.Status != string(entities.DecisionStatusClosed) || decision.Result != string(entities.ResultWithdrawn) {
		t.Fatalf("expected closed withdrawn, got status=%s result=%s", decision.Status, decision.Result)
	}
}

func TestConsentObjectionVetoAndRetraction(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	decisionID := openConsentDecision(t, module, start, "member-1", "member-2")

	module.Store.SetNow(start.Add(6 * time.Hour))
	resolution, err := module.Handler.SubmitObjectionHandler(ctx, "member-1", decisionID, httptransport.SubmitObjectionRequest{
		Status: string(entities.ObjectionStatusObjection),
		Reason: "thursday clashes with support rotation",
	})
	if err != nil {
		t.Fatalf("submit objection: %v", err)
	}
	if !resolution.Blocked {
		t.Fatalf("a recorded objection is a veto, got %+v", resolution)
	}

	decision, err := module.Handler.GetDecisionHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if decision.Result != string(entities.ResultBlocked) {
		t.Fatalf("veto must close blocked, got %s", decision.Result)
	}

	// The retraction is recorded against the blocked decision; the closure
	// stands.
	if err := module.Handler.WithdrawObjectionHandler(ctx, "member-2", decisionID); !errors.Is(err, domainerrors.ErrObjectionNotFound) {
		t.Fatalf("retraction without an entry must fail, got %v", err)
	}
	if err := module.Handler.WithdrawObjectionHandler(ctx, "member-1", decisionID); err != nil {
		t.Fatalf("withdraw objection: %v", err)
	}
	entry, found, err := module.Store.GetObjection(ctx, decisionID, "member-1")
	if err != nil || !found {
		t.Fatalf("objection entry must survive retraction: found=%v err=%v", found, err)
	}
	if !entry.Withdrawn || entry.Blocking() {
		t.Fatalf("retracted entry must be marked withdrawn, got %+v", entry)
	}
	decision, err = module.Handler.GetDecisionHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("get decision after retraction: %v", err)
	}
	if decision.Result != string(entities.ResultBlocked) {
		t.Fatalf("retraction must not reopen the decision, got %s", decision.Result)
	}
}

func TestConsentApprovesWhenAllPositionsRecorded(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	decisionID := openConsentDecision(t, module, start, "member-1", "member-2")

	module.Store.SetNow(start.Add(6 * time.Hour))
	first, err := module.Handler.SubmitObjectionHandler(ctx, "member-1", decisionID, httptransport.SubmitObjectionRequest{Status: string(entities.ObjectionStatusNone)})
	if err != nil {
		t.Fatalf("first position: %v", err)
	}
	if first.Approved || first.Blocked {
		t.Fatalf("approval must wait for every participant, got %+v", first)
	}

	second, err := module.Handler.SubmitObjectionHandler(ctx, "member-2", decisionID, httptransport.SubmitObjectionRequest{Status: string(entities.ObjectionStatusNoPosition)})
	if err != nil {
		t.Fatalf("second position: %v", err)
	}
	if !second.Approved {
		t.Fatalf("all non-objection positions must approve, got %+v", second)
	}

	decision, err := module.Handler.GetDecisionHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if decision.Status != string(entities.DecisionStatusClosed) || decision.Result != string(entities.ResultApproved) {
		t.Fatalf("expected closed approved, got status=%s result=%s", decision.Status, decision.Result)
	}
}
