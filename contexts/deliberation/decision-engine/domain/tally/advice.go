package tally

import "quorum/contexts/deliberation/decision-engine/domain/entities"

// AdviceTally tracks advice-solicitation completion. It never produces a
// result on its own: AllReceived only unlocks the creator's explicit
// conclusion at the workflow boundary.
type AdviceTally struct {
	ReceivedCount  int
	TotalSolicited int
	AllReceived    bool
}

// AdviceProgress counts received opinions against the eligible participant
// set. The creator solicits the advice and is excluded from the denominator.
func AdviceProgress(
	creatorID string,
	eligible []entities.Participant,
	opinions []entities.OpinionEntry,
) AdviceTally {
	byActor := make(map[string]bool, len(opinions))
	for _, opinion := range opinions {
		byActor[opinion.ActorID] = true
	}

	result := AdviceTally{}
	for _, participant := range eligible {
		if !participant.Eligible || participant.ActorID == creatorID {
			continue
		}
		result.TotalSolicited++
		if byActor[participant.ActorID] {
			result.ReceivedCount++
		}
	}
	result.AllReceived = result.TotalSolicited > 0 && result.ReceivedCount == result.TotalSolicited
	return result
}
