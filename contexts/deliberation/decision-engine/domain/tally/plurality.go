// Package tally holds the per-protocol tabulation algorithms. Every function
// is pure and synchronous over a ledger snapshot; none of them mutate state or
// close a decision on their own.
package tally

import "quorum/contexts/deliberation/decision-engine/domain/entities"

// ProposalCount is one row of a plurality tally.
type ProposalCount struct {
	ProposalID string
	Count      int
	Percent    float64
}

// PluralityTally is the plurality outcome snapshot. Winners holds every
// proposal tied for the maximum count; ties are never broken arbitrarily.
type PluralityTally struct {
	TotalBallots int
	Counts       []ProposalCount
	Winners      []string
}

// Plurality counts ballots per proposal. Proposals keep their display order in
// Counts. An empty ballot set yields zero counts and no winners.
func Plurality(proposals []entities.Proposal, ballots []entities.BallotEntry) PluralityTally {
	byProposal := make(map[string]int, len(proposals))
	for _, ballot := range ballots {
		byProposal[ballot.ProposalID]++
	}

	result := PluralityTally{TotalBallots: len(ballots)}
	max := 0
	for _, proposal := range proposals {
		count := byProposal[proposal.ProposalID]
		row := ProposalCount{ProposalID: proposal.ProposalID, Count: count}
		if result.TotalBallots > 0 {
			row.Percent = float64(count) * 100 / float64(result.TotalBallots)
		}
		result.Counts = append(result.Counts, row)
		if count > max {
			max = count
		}
	}
	if result.TotalBallots == 0 {
		return result
	}
	for _, row := range result.Counts {
		if row.Count == max {
			result.Winners = append(result.Winners, row.ProposalID)
		}
	}
	return result
}
