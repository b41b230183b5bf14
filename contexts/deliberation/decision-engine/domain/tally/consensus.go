package tally

import "quorum/contexts/deliberation/decision-engine/domain/entities"

// ConsensusTally reports progress toward unanimity. Unanimous is true only
// when every eligible participant has an entry and every entry is agree; a
// single disagree keeps the decision open without rejecting it.
type ConsensusTally struct {
	TotalEligible int
	AgreeCount    int
	DisagreeCount int
	Unanimous     bool
}

func Consensus(eligible []entities.Participant, entries []entities.ConsensusEntry) ConsensusTally {
	byActor := make(map[string]entities.ConsensusValue, len(entries))
	for _, entry := range entries {
		byActor[entry.ActorID] = entry.Value
	}

	result := ConsensusTally{}
	allAgree := true
	for _, participant := range eligible {
		if !participant.Eligible {
			continue
		}
		result.TotalEligible++
		value, voted := byActor[participant.ActorID]
		switch {
		case !voted:
			allAgree = false
		case value == entities.ConsensusAgree:
			result.AgreeCount++
		default:
			result.DisagreeCount++
			allAgree = false
		}
	}
	result.Unanimous = allAgree && result.TotalEligible > 0 && result.AgreeCount == result.TotalEligible
	return result
}
