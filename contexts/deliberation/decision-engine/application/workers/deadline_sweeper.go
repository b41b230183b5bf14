package workers

import (
	"context"
	"log/slog"
	"time"

	application "quorum/contexts/deliberation/decision-engine/application"
	"quorum/contexts/deliberation/decision-engine/application/queries"
	"quorum/contexts/deliberation/decision-engine/ports"
)

// DeadlineSweeper closes open decisions whose outcome became determined by
// elapsed time rather than a participant action: plurality/nuanced deadlines,
// consensus deadlines, and consent schedules that ran out. It uses the same
// conditional close guard as actor-triggered closures, so a sweep and a
// last-second submission cannot both win.
type DeadlineSweeper struct {
	Decisions ports.DecisionRepository
	Tallies   queries.TallyUseCase
	Cache     ports.TallyCache
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// RunOnce evaluates every elapsed open decision and records determined
// results. It continues past per-decision failures so one bad row cannot
// stall the sweep.
func (s DeadlineSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}

	elapsed, err := s.Decisions.ListOpenDecisions(ctx, now)
	if err != nil {
		logger.Error("deadline sweep listing failed",
			"event", "decision_sweep_list_failed",
			"module", "deliberation/decision-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(elapsed) == 0 {
		return nil
	}

	for _, decision := range elapsed {
		result, determined, err := s.Tallies.ComputeResult(ctx, decision.DecisionID)
		if err != nil {
			logger.Error("deadline sweep evaluation failed",
				"event", "decision_sweep_evaluate_failed",
				"module", "deliberation/decision-engine",
				"layer", "worker",
				"decision_id", decision.DecisionID,
				"error", err.Error(),
			)
			continue
		}
		if !determined {
			continue
		}
		won, err := s.Decisions.CloseDecision(ctx, decision.DecisionID, result, now)
		if err != nil {
			logger.Error("deadline sweep close failed",
				"event", "decision_sweep_close_failed",
				"module", "deliberation/decision-engine",
				"layer", "worker",
				"decision_id", decision.DecisionID,
				"error", err.Error(),
			)
			continue
		}
		if !won {
			// An actor-triggered closure committed first.
			continue
		}
		s.invalidate(ctx, decision.DecisionID)
		s.emitClosed(ctx, decision.DecisionID, string(result), now)
		logger.Info("decision closed by deadline sweep",
			"event", "decision_sweep_closed",
			"module", "deliberation/decision-engine",
			"layer", "worker",
			"decision_id", decision.DecisionID,
			"result", string(result),
		)
	}
	return nil
}

func (s DeadlineSweeper) invalidate(ctx context.Context, decisionID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidateTally(ctx, decisionID); err != nil {
		application.ResolveLogger(s.Logger).Warn("sweep cache invalidation failed",
			"event", "decision_sweep_cache_invalidate_failed",
			"module", "deliberation/decision-engine",
			"layer", "worker",
			"decision_id", decisionID,
			"error", err.Error(),
		)
	}
}

func (s DeadlineSweeper) emitClosed(ctx context.Context, decisionID string, result string, now time.Time) {
	if s.Outbox == nil || s.IDGen == nil {
		return
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return
	}
	envelope, err := newDecisionEnvelope(eventID, "decision.closed", decisionID, now, map[string]any{
		"decision_id": decisionID,
		"result":      result,
		"cause":       "deadline_elapsed",
	})
	if err != nil {
		return
	}
	if err := s.Outbox.AppendOutbox(ctx, envelope); err != nil {
		application.ResolveLogger(s.Logger).Warn("sweep outbox append failed",
			"event", "decision_sweep_outbox_failed",
			"module", "deliberation/decision-engine",
			"layer", "worker",
			"decision_id", decisionID,
			"error", err.Error(),
		)
	}
}
