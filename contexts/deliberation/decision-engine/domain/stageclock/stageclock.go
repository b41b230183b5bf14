// Package stageclock computes the time windows of the consent protocol's
// stages. Everything here is a pure function of the decision schedule and an
// explicit instant, so callers and tests can evaluate arbitrary clock values
// without waiting.
package stageclock

import (
	"time"

	"quorum/contexts/deliberation/decision-engine/domain/entities"
)

type Stage string

const (
	StageClarifications Stage = "clarifications"
	StageClarifAvis     Stage = "clarifavis"
	StageAvis           Stage = "avis"
	StageAmendements    Stage = "amendements"
	StageObjections     Stage = "objections"
	StageTerminee       Stage = "terminee"

	// StageNotStarted is returned before the decision's start time.
	StageNotStarted Stage = "not_started"
)

// Window is one stage interval. Entries for the stage are accepted in
// [Start, End).
type Window struct {
	Stage Stage
	Start time.Time
	End   time.Time
}

// Schedule is the ordered, contiguous list of windows for one decision. The
// union of the windows exactly covers [start, end].
type Schedule struct {
	Windows []Window
}

func distinctOrder() []Stage {
	return []Stage{StageClarifications, StageAvis, StageAmendements, StageObjections}
}

func mergedOrder() []Stage {
	return []Stage{StageClarifAvis, StageAmendements, StageObjections}
}

// Compute splits [start, end] into equal-length contiguous windows, four for
// distinct mode and three for merged mode. Interior boundaries are rounded by
// integer division of the total duration; the last window absorbs the
// remainder so the schedule's end is always exactly the decision's end.
func Compute(start, end time.Time, mode entities.StepMode) Schedule {
	start = start.UTC()
	end = end.UTC()
	if !end.After(start) {
		return Schedule{}
	}

	order := distinctOrder()
	if mode == entities.StepModeMerged {
		order = mergedOrder()
	}

	total := end.Sub(start)
	step := total / time.Duration(len(order))
	windows := make([]Window, 0, len(order))
	cursor := start
	for i, stage := range order {
		windowEnd := cursor.Add(step)
		if i == len(order)-1 {
			windowEnd = end
		}
		windows = append(windows, Window{Stage: stage, Start: cursor, End: windowEnd})
		cursor = windowEnd
	}
	return Schedule{Windows: windows}
}

// Current returns the stage whose window contains now. It returns
// StageNotStarted before the first window and StageTerminee at or after the
// schedule's end. An empty schedule is treated as not started.
func (s Schedule) Current(now time.Time) Stage {
	if len(s.Windows) == 0 {
		return StageNotStarted
	}
	now = now.UTC()
	if now.Before(s.Windows[0].Start) {
		return StageNotStarted
	}
	last := s.Windows[len(s.Windows)-1]
	if !now.Before(last.End) {
		return StageTerminee
	}
	for _, w := range s.Windows {
		if !now.Before(w.Start) && now.Before(w.End) {
			return w.Stage
		}
	}
	return StageTerminee
}

// Window returns the window for a stage, if the schedule contains it.
func (s Schedule) Window(stage Stage) (Window, bool) {
	for _, w := range s.Windows {
		if w.Stage == stage {
			return w, true
		}
	}
	return Window{}, false
}

// ForDecision builds the schedule from a decision's own configuration. A
// decision without both start and end has no schedule (no stage is active).
func ForDecision(decision entities.Decision) Schedule {
	if decision.StartsAt == nil || decision.EndsAt == nil {
		return Schedule{}
	}
	return Compute(*decision.StartsAt, *decision.EndsAt, decision.StepMode)
}
