package unit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	decisionengine "quorum/contexts/deliberation/decision-engine"
	"quorum/contexts/deliberation/decision-engine/application/workers"
	"quorum/contexts/deliberation/decision-engine/domain/entities"
	"quorum/contexts/deliberation/decision-engine/ports"
	httptransport "quorum/contexts/deliberation/decision-engine/transport/http"
	"quorum/internal/platform/messaging"
)

func openTimeBoxedDecision(t *testing.T, module decisionengine.Module, protocol entities.Protocol, start, end time.Time, voters ...string) string {
	t.Helper()
	ctx := context.Background()
	module.Store.SetNow(start)

	decision, err := module.Handler.CreateDecisionHandler(ctx, "creator-1", httptransport.CreateDecisionRequest{
		Title:    "time-boxed run",
		Protocol: string(protocol),
		StartsAt: start.Format(time.RFC3339),
		EndsAt:   end.Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("create decision: %v", err)
	}
	if protocol == entities.ProtocolMajority {
		for _, text := range []string{"option a", "option b"} {
			if _, err := module.Handler.AddProposalHandler(ctx, "creator-1", decision.DecisionID, httptransport.AddProposalRequest{Text: text}); err != nil {
				t.Fatalf("add proposal: %v", err)
			}
		}
	}
	registerVoters(t, module, decision.DecisionID, voters...)
	if _, err := module.Handler.LaunchDecisionHandler(ctx, "creator-1", decision.DecisionID); err != nil {
		t.Fatalf("launch decision: %v", err)
	}
	return decision.DecisionID
}

func findClosedEvent(t *testing.T, module decisionengine.Module, decisionID string) ports.EventEnvelope {
	t.Helper()
	pending, err := module.Store.ListPendingOutbox(context.Background(), 100)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	for _, row := range pending {
		if row.EventType != "decision.closed" {
			continue
		}
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &envelope); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if envelope.PartitionKey == decisionID {
			return envelope
		}
	}
	t.Fatalf("no decision.closed event for %s", decisionID)
	return ports.EventEnvelope{}
}

func TestSweeperClosesElapsedMajorityDecision(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	start := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	decisionID := openTimeBoxedDecision(t, module, entities.ProtocolMajority, start, end, "voter-1")

	// Before the deadline, the sweep leaves the decision alone.
	if err := module.Sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("early sweep: %v", err)
	}
	decision, err := module.Handler.GetDecisionHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if decision.Status != string(entities.DecisionStatusOpen) {
		t.Fatalf("early sweep must not close, got %s", decision.Status)
	}

	module.Store.SetNow(end.Add(time.Second))
	if err := module.Sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	decision, err = module.Handler.GetDecisionHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if decision.Status != string(entities.DecisionStatusClosed) || decision.Result != string(entities.ResultApproved) {
		t.Fatalf("expected closed approved, got status=%s result=%s", decision.Status, decision.Result)
	}

	envelope := findClosedEvent(t, module, decisionID)
	var payload struct {
		Cause  string `json:"cause"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatalf("decode event data: %v", err)
	}
	if payload.Cause != "deadline_elapsed" || payload.Result != string(entities.ResultApproved) {
		t.Fatalf("unexpected closure event payload: %+v", payload)
	}
}

func TestSweeperRejectsConsensusWithoutUnanimity(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	start := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	decisionID := openTimeBoxedDecision(t, module, entities.ProtocolConsensus, start, end, "voter-1", "voter-2")

	if _, err := module.Handler.SubmitConsensusHandler(ctx, "voter-1", decisionID, httptransport.SubmitConsensusRequest{Value: string(entities.ConsensusAgree)}); err != nil {
		t.Fatalf("agree: %v", err)
	}

	module.Store.SetNow(end.Add(time.Second))
	if err := module.Sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	decision, err := module.Handler.GetDecisionHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if decision.Result != string(entities.ResultRejected) {
		t.Fatalf("missing voices at the deadline must reject, got %s", decision.Result)
	}
}

func TestSweeperApprovesSilentConsentAfterWindow(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	start := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	decisionID := openConsentDecision(t, module, start, "member-1", "member-2")

	module.Store.SetNow(start.Add(6 * time.Hour))
	if _, err := module.Handler.SubmitObjectionHandler(ctx, "member-1", decisionID, httptransport.SubmitObjectionRequest{Status: string(entities.ObjectionStatusNone)}); err != nil {
		t.Fatalf("position: %v", err)
	}

	// member-2 stays silent; silence consents once the window closes.
	module.Store.SetNow(start.Add(8*time.Hour + time.Second))
	if err := module.Sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	decision, err := module.Handler.GetDecisionHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if decision.Result != string(entities.ResultApproved) {
		t.Fatalf("silent consent must approve after the window, got %s", decision.Result)
	}
}

func TestSweepIsIdempotentAgainstActorClosure(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	start := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	decisionID := openTimeBoxedDecision(t, module, entities.ProtocolMajority, start, end, "voter-1")

	if err := module.Handler.WithdrawDecisionHandler(ctx, "creator-1", decisionID); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	module.Store.SetNow(end.Add(time.Second))
	if err := module.Sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	decision, err := module.Handler.GetDecisionHandler(ctx, decisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if decision.Result != string(entities.ResultWithdrawn) {
		t.Fatalf("the sweep must not overwrite an actor closure, got %s", decision.Result)
	}
}

func TestOutboxRelayPublishesAndMarks(t *testing.T) {
	module := decisionengine.NewInMemoryModule(nil)
	ctx := context.Background()
	decisionID, _ := openMajorityDecision(t, module, "voter-1")

	pending, err := module.Store.ListPendingOutbox(ctx, 100)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(pending) == 0 {
		t.Fatalf("lifecycle actions must enqueue events for %s", decisionID)
	}

	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: messaging.NewBus(nil),
		Clock:     module.Store,
		BatchSize: 100,
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay: %v", err)
	}

	remaining, err := module.Store.ListPendingOutbox(ctx, 100)
	if err != nil {
		t.Fatalf("list outbox after relay: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("published rows must leave the pending set, got %d", len(remaining))
	}
}
