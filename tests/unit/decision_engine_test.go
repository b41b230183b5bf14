package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	decisionengine "quorum/contexts/deliberation/decision-engine"
	"quorum/contexts/deliberation/decision-engine/domain/entities"
	domainerrors "quorum/contexts/deliberation/decision-engine/domain/errors"
	httptransport "quorum/contexts/deliberation/decision-engine/transport/http"
)

func registerVoters(t *testing.T, module decisionengine.Module, decisionID string, actorIDs ...string) {
	t.Helper()
	for _, actorID := range actorIDs {
		err := module.Store.RegisterParticipant(context.Background(), entities.Participant{
			DecisionID: decisionID,
			ActorID:    actorID,
			Eligible:   true,
			AddedAt:    module.Store.Now(),
		})
		if err != nil {
			t.Fatalf("register participant %s: %v", actorID, err)
		}
	}
}

func openMajorityDecision(t *testing.T, module decisionengine.Module, voters ...string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	decision, err := module.Handler.CreateDecisionHandler(ctx, "creator-1", httptransport.CreateDecisionRequest{
		Title:    "team offsite location",
		Protocol: string(entities.ProtocolMajority),
	})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}

	proposalIDs := make([]string, 0, 2)
	for _, text := range []string{"mountains", "seaside"} {
		proposal, err := module.Handler.AddProposalHandler(ctx, "creator-1", decision.DecisionID, httptransport.AddProposalRequest{Text: text})
		if err != nil {
			t.Fatalf("add proposal %q: %v", text, err)
		}
		proposalIDs = append(proposalIDs, proposal.ProposalID)
	}

	registerVoters(t, module, decision.DecisionID, voters...)
	if _, err := module.Handler.LaunchDecisionHandler(ctx, "creator-1", decision.DecisionID); err != nil {
		t.Fatalf("launch decision: %v", err)
	}
	return decision.DecisionID, proposalIDs
}

func TestMajorityBallotFlowAndUpsert(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	decisionID, proposals := openMajorityDecision(t, module, "voter-1", "voter-2", "voter-3")

	if _, err := module.Handler.SubmitBallotHandler(ctx, "voter-1", decisionID, httptransport.SubmitBallotRequest{ProposalID: proposals[0]}); err != nil {
		t.Fatalf("first ballot: %v", err)
	}
	if _, err := module.Handler.SubmitBallotHandler(ctx, "voter-2", decisionID, httptransport.SubmitBallotRequest{ProposalID: proposals[1]}); err != nil {
		t.Fatalf("second ballot: %v", err)
	}

	// voter-1 changes their mind; the ledger must keep one live ballot.
	snapshot, err := module.Handler.SubmitBallotHandler(ctx, "voter-1", decisionID, httptransport.SubmitBallotRequest{ProposalID: proposals[1]})
	if err != nil {
		t.Fatalf("replacement ballot: %v", err)
	}
	if snapshot.TotalBallots != 2 {
		t.Fatalf("replacement must not add a ballot, got %d", snapshot.TotalBallots)
	}
	if len(snapshot.Winners) != 1 || snapshot.Winners[0] != proposals[1] {
		t.Fatalf("expected %s winning, got %v", proposals[1], snapshot.Winners)
	}

	// Plurality never closes on its own.
	decision, err := module.Handler.GetDecisionHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if decision.Status != string(entities.DecisionStatusOpen) {
		t.Fatalf("majority decision must stay open, got %s", decision.Status)
	}
}

func TestMajorityRejectsUnknownProposalAndForeignActor(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	decisionID, _ := openMajorityDecision(t, module, "voter-1")

	_, err := module.Handler.SubmitBallotHandler(ctx, "voter-1", decisionID, httptransport.SubmitBallotRequest{ProposalID: "no-such-proposal"})
	if !errors.Is(err, domainerrors.ErrProposalNotFound) {
		t.Fatalf("expected proposal not found, got %v", err)
	}

	_, err = module.Handler.SubmitBallotHandler(ctx, "stranger", decisionID, httptransport.SubmitBallotRequest{ProposalID: "ignored"})
	if !errors.Is(err, domainerrors.ErrNotEligible) {
		t.Fatalf("invited decision must reject unregistered actors, got %v", err)
	}
}

func TestMajorityLaunchRequiresTwoProposals(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()

	decision, err := module.Handler.CreateDecisionHandler(ctx, "creator-1", httptransport.CreateDecisionRequest{
		Title:    "undersized",
		Protocol: string(entities.ProtocolMajority),
	})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}
	if _, err := module.Handler.AddProposalHandler(ctx, "creator-1", decision.DecisionID, httptransport.AddProposalRequest{Text: "only option"}); err != nil {
		t.Fatalf("add proposal: %v", err)
	}
	if _, err := module.Handler.LaunchDecisionHandler(ctx, "creator-1", decision.DecisionID); !errors.Is(err, domainerrors.ErrInvalidConfiguration) {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
}

func TestConsensusClosesOnUnanimity(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()

	decision, err := module.Handler.CreateDecisionHandler(ctx, "creator-1", httptransport.CreateDecisionRequest{
		Title:    "adopt the proposal",
		Protocol: string(entities.ProtocolConsensus),
	})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}
	registerVoters(t, module, decision.DecisionID, "voter-1", "voter-2")
	if _, err := module.Handler.LaunchDecisionHandler(ctx, "creator-1", decision.DecisionID); err != nil {
		t.Fatalf("launch decision: %v", err)
	}

	first, err := module.Handler.SubmitConsensusHandler(ctx, "voter-1", decision.DecisionID, httptransport.SubmitConsensusRequest{Value: string(entities.ConsensusAgree)})
	if err != nil {
		t.Fatalf("first agree: %v", err)
	}
	if first.Unanimous {
		t.Fatal("unanimity must wait for every eligible participant")
	}

	second, err := module.Handler.SubmitConsensusHandler(ctx, "voter-2", decision.DecisionID, httptransport.SubmitConsensusRequest{Value: string(entities.ConsensusAgree)})
	if err != nil {
		t.Fatalf("second agree: %v", err)
	}
	if !second.Unanimous {
		t.Fatalf("expected unanimity, got %+v", second)
	}

	closed, err := module.Handler.GetDecisionHandler(ctx, decision.DecisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if closed.Status != string(entities.DecisionStatusClosed) || closed.Result != string(entities.ResultApproved) {
		t.Fatalf("unanimity must close approved, got status=%s result=%s", closed.Status, closed.Result)
	}

	// The ledger is frozen once the decision closes.
	if _, err := module.Handler.SubmitConsensusHandler(ctx, "voter-1", decision.DecisionID, httptransport.SubmitConsensusRequest{Value: string(entities.ConsensusDisagree)}); !errors.Is(err, domainerrors.ErrStageClosed) {
		t.Fatalf("closed decision must reject submissions, got %v", err)
	}
}

func TestConsensusDisagreeKeepsDecisionOpen(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()

	decision, err := module.Handler.CreateDecisionHandler(ctx, "creator-1", httptransport.CreateDecisionRequest{
		Title:    "contested proposal",
		Protocol: string(entities.ProtocolConsensus),
	})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}
	registerVoters(t, module, decision.DecisionID, "voter-1", "voter-2")
	if _, err := module.Handler.LaunchDecisionHandler(ctx, "creator-1", decision.DecisionID); err != nil {
		t.Fatalf("launch decision: %v", err)
	}

	if _, err := module.Handler.SubmitConsensusHandler(ctx, "voter-1", decision.DecisionID, httptransport.SubmitConsensusRequest{Value: string(entities.ConsensusAgree)}); err != nil {
		t.Fatalf("agree: %v", err)
	}
	if _, err := module.Handler.SubmitConsensusHandler(ctx, "voter-2", decision.DecisionID, httptransport.SubmitConsensusRequest{Value: string(entities.ConsensusDisagree)}); err != nil {
		t.Fatalf("disagree: %v", err)
	}

	open, err := module.Handler.GetDecisionHandler(ctx, decision.DecisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if open.Status != string(entities.DecisionStatusOpen) {
		t.Fatalf("a disagree must keep the decision open, got %s", open.Status)
	}
}

func TestNuancedVoteRequiresCompleteMentionSet(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()

	decision, err := module.Handler.CreateDecisionHandler(ctx, "creator-1", httptransport.CreateDecisionRequest{
		Title:        "pick the logo",
		Protocol:     string(entities.ProtocolNuancedVote),
		MentionScale: []string{"excellent", "good", "poor"},
		WinnerCount:  1,
	})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}
	var proposals []string
	for _, text := range []string{"logo a", "logo b"} {
		proposal, err := module.Handler.AddProposalHandler(ctx, "creator-1", decision.DecisionID, httptransport.AddProposalRequest{Text: text})
		if err != nil {
			t.Fatalf("add proposal: %v", err)
		}
		proposals = append(proposals, proposal.ProposalID)
	}
	registerVoters(t, module, decision.DecisionID, "voter-1", "voter-2")
	if _, err := module.Handler.LaunchDecisionHandler(ctx, "creator-1", decision.DecisionID); err != nil {
		t.Fatalf("launch decision: %v", err)
	}

	_, err = module.Handler.SubmitMentionSetHandler(ctx, "voter-1", decision.DecisionID, httptransport.SubmitMentionSetRequest{
		Mentions: map[string]string{proposals[0]: "good"},
	})
	if !errors.Is(err, domainerrors.ErrIncompleteSubmission) {
		t.Fatalf("partial set must be rejected, got %v", err)
	}

	_, err = module.Handler.SubmitMentionSetHandler(ctx, "voter-1", decision.DecisionID, httptransport.SubmitMentionSetRequest{
		Mentions: map[string]string{proposals[0]: "good", proposals[1]: "amazing"},
	})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("unknown mention must be rejected, got %v", err)
	}

	snapshot, err := module.Handler.SubmitMentionSetHandler(ctx, "voter-1", decision.DecisionID, httptransport.SubmitMentionSetRequest{
		Mentions: map[string]string{proposals[0]: "excellent", proposals[1]: "poor"},
	})
	if err != nil {
		t.Fatalf("complete set: %v", err)
	}
	if snapshot.TotalVoters != 1 {
		t.Fatalf("expected one voter, got %d", snapshot.TotalVoters)
	}
	if len(snapshot.Winners) != 1 || snapshot.Winners[0] != proposals[0] {
		t.Fatalf("expected %s winning, got %v", proposals[0], snapshot.Winners)
	}
}

func TestAdviceSolicitationConclusionGate(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()

	decision, err := module.Handler.CreateDecisionHandler(ctx, "creator-1", httptransport.CreateDecisionRequest{
		Title:    "should we migrate the queue",
		Protocol: string(entities.ProtocolAdvice),
	})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}
	registerVoters(t, module, decision.DecisionID, "creator-1", "advisor-1", "advisor-2")
	if _, err := module.Handler.LaunchDecisionHandler(ctx, "creator-1", decision.DecisionID); err != nil {
		t.Fatalf("launch decision: %v", err)
	}

	// Advice flows to the creator, not from them.
	if _, err := module.Handler.SubmitOpinionHandler(ctx, "creator-1", decision.DecisionID, httptransport.SubmitOpinionRequest{Text: "my own take"}); !errors.Is(err, domainerrors.ErrNotEligible) {
		t.Fatalf("creator opinion must be rejected, got %v", err)
	}

	progress, err := module.Handler.SubmitOpinionHandler(ctx, "advisor-1", decision.DecisionID, httptransport.SubmitOpinionRequest{Text: "yes, but carefully"})
	if err != nil {
		t.Fatalf("first opinion: %v", err)
	}
	if progress.AllReceived || progress.TotalSolicited != 2 {
		t.Fatalf("unexpected progress: %+v", progress)
	}

	err = module.Handler.ConcludeAdviceHandler(ctx, "creator-1", decision.DecisionID, httptransport.ConcludeAdviceRequest{Conclusion: "we migrate"})
	if !errors.Is(err, domainerrors.ErrAdviceIncomplete) {
		t.Fatalf("conclusion must wait for every opinion, got %v", err)
	}

	if _, err := module.Handler.SubmitOpinionHandler(ctx, "advisor-2", decision.DecisionID, httptransport.SubmitOpinionRequest{Text: "no objection"}); err != nil {
		t.Fatalf("second opinion: %v", err)
	}
	if err := module.Handler.ConcludeAdviceHandler(ctx, "creator-1", decision.DecisionID, httptransport.ConcludeAdviceRequest{Conclusion: "we migrate"}); err != nil {
		t.Fatalf("conclude: %v", err)
	}

	closed, err := module.Handler.GetDecisionHandler(ctx, decision.DecisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if closed.Result != string(entities.ResultApproved) || closed.Conclusion != "we migrate" {
		t.Fatalf("expected approved with conclusion, got %+v", closed)
	}

	// One-shot: a second conclusion cannot rewrite the record.
	err = module.Handler.ConcludeAdviceHandler(ctx, "creator-1", decision.DecisionID, httptransport.ConcludeAdviceRequest{Conclusion: "we do not"})
	if !errors.Is(err, domainerrors.ErrAlreadyDecided) {
		t.Fatalf("second conclusion must conflict, got %v", err)
	}
}

func TestPublicAnonymousModeAdmitsActorsOnFirstAction(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()

	decision, err := module.Handler.CreateDecisionHandler(ctx, "creator-1", httptransport.CreateDecisionRequest{
		Title:      "open poll",
		Protocol:   string(entities.ProtocolMajority),
		VotingMode: string(entities.VotingModePublicAnonymous),
	})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}
	var proposals []string
	for _, text := range []string{"option a", "option b"} {
		proposal, err := module.Handler.AddProposalHandler(ctx, "creator-1", decision.DecisionID, httptransport.AddProposalRequest{Text: text})
		if err != nil {
			t.Fatalf("add proposal: %v", err)
		}
		proposals = append(proposals, proposal.ProposalID)
	}
	if _, err := module.Handler.LaunchDecisionHandler(ctx, "creator-1", decision.DecisionID); err != nil {
		t.Fatalf("launch decision: %v", err)
	}

	if _, err := module.Handler.SubmitBallotHandler(ctx, "drive-by-voter", decision.DecisionID, httptransport.SubmitBallotRequest{ProposalID: proposals[0]}); err != nil {
		t.Fatalf("public decision must admit unknown actors, got %v", err)
	}

	participant, found, err := module.Store.GetParticipant(ctx, decision.DecisionID, "drive-by-voter")
	if err != nil || !found {
		t.Fatalf("actor must be registered on first action: found=%v err=%v", found, err)
	}
	if !participant.Eligible || !participant.HasActed {
		t.Fatalf("unexpected registered participant: %+v", participant)
	}
}

func TestWithdrawDecisionClosesWithdrawn(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	decisionID, _ := openMajorityDecision(t, module, "voter-1")

	if err := module.Handler.WithdrawDecisionHandler(ctx, "voter-1", decisionID); !errors.Is(err, domainerrors.ErrNotCreator) {
		t.Fatalf("only the creator withdraws, got %v", err)
	}
	if err := module.Handler.WithdrawDecisionHandler(ctx, "creator-1", decisionID); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	closed, err := module.Handler.GetDecisionHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if closed.Result != string(entities.ResultWithdrawn) {
		t.Fatalf("expected withdrawn, got %s", closed.Result)
	}
}

func TestSubmissionRejectedAfterDeadline(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	module.Store.SetNow(start)

	decision, err := module.Handler.CreateDecisionHandler(ctx, "creator-1", httptransport.CreateDecisionRequest{
		Title:    "time-boxed vote",
		Protocol: string(entities.ProtocolMajority),
		StartsAt: start.Format(time.RFC3339),
		EndsAt:   end.Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}
	var proposalID string
	for _, text := range []string{"a", "b"} {
		proposal, err := module.Handler.AddProposalHandler(ctx, "creator-1", decision.DecisionID, httptransport.AddProposalRequest{Text: text})
		if err != nil {
			t.Fatalf("add proposal: %v", err)
		}
		proposalID = proposal.ProposalID
	}
	registerVoters(t, module, decision.DecisionID, "voter-1")
	if _, err := module.Handler.LaunchDecisionHandler(ctx, "creator-1", decision.DecisionID); err != nil {
		t.Fatalf("launch decision: %v", err)
	}

	module.Store.SetNow(end.Add(time.Minute))
	_, err = module.Handler.SubmitBallotHandler(ctx, "voter-1", decision.DecisionID, httptransport.SubmitBallotRequest{ProposalID: proposalID})
	if !errors.Is(err, domainerrors.ErrStageClosed) {
		t.Fatalf("elapsed deadline must reject ballots, got %v", err)
	}
}
