package tally

import "quorum/contexts/deliberation/decision-engine/domain/entities"

// ConsentResolution is the objections-stage outcome. Blocked is a hard veto:
// a single live objection resolves the decision the instant it is recorded.
type ConsentResolution struct {
	TotalEligible int
	Submitted     int
	Blocked       bool
	Approved      bool
}

// ResolveConsent evaluates the objections stage. Any live objection blocks
// eagerly. Otherwise the decision is approved once every eligible participant
// has submitted a non-objection entry, or once the objections window has
// elapsed. Neither blocked nor approved means the stage is still pending.
func ResolveConsent(
	eligible []entities.Participant,
	objections []entities.ObjectionEntry,
	windowElapsed bool,
) ConsentResolution {
	byActor := make(map[string]entities.ObjectionEntry, len(objections))
	for _, entry := range objections {
		byActor[entry.ActorID] = entry
	}

	result := ConsentResolution{}
	allSubmitted := true
	for _, participant := range eligible {
		if !participant.Eligible {
			continue
		}
		result.TotalEligible++
		entry, submitted := byActor[participant.ActorID]
		if !submitted {
			allSubmitted = false
			continue
		}
		result.Submitted++
		if entry.Blocking() {
			result.Blocked = true
		}
	}
	if result.Blocked {
		return result
	}
	if windowElapsed || (allSubmitted && result.TotalEligible > 0) {
		result.Approved = true
	}
	return result
}
