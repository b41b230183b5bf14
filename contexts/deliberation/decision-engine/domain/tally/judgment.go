package tally

import (
	"sort"

	"quorum/contexts/deliberation/decision-engine/domain/entities"
)

// ProposalJudgment is the majority-judgment outcome for one proposal. The
// scale index 0 is the most favorable mention, so a smaller MajorityIndex is a
// better collective judgment.
type ProposalJudgment struct {
	ProposalID      string
	Profile         map[string]int // mention -> count
	MajorityMention string
	MajorityIndex   int
	AboveShare      float64 // share strictly more favorable than the majority mention
	BelowShare      float64 // share strictly less favorable
	Votes           int
}

// JudgmentTally ranks proposals by majority mention. Rankings holds every
// proposal in rank order; Winners holds the top winnerCount plus any proposal
// tied at the cutoff, so it can exceed winnerCount.
type JudgmentTally struct {
	TotalVoters int
	Rankings    []ProposalJudgment
	Winners     []string
}

// MajorityJudgment computes the majority mention of every proposal across all
// complete mention sets and ranks proposals. The majority mention is the
// median of the sorted mention multiset; with an even vote count the less
// favorable of the two central values is used. Ties on the majority mention
// are broken by the above-share minus below-share margin; residual ties keep
// proposal display order.
func MajorityJudgment(
	scale []string,
	proposals []entities.Proposal,
	sets []entities.MentionSet,
	winnerCount int,
) JudgmentTally {
	scaleIndex := make(map[string]int, len(scale))
	for i, mention := range scale {
		scaleIndex[mention] = i
	}

	result := JudgmentTally{TotalVoters: len(sets)}
	for _, proposal := range proposals {
		judgment := judgeProposal(proposal.ProposalID, scale, scaleIndex, sets)
		result.Rankings = append(result.Rankings, judgment)
	}

	sort.SliceStable(result.Rankings, func(i, j int) bool {
		a, b := result.Rankings[i], result.Rankings[j]
		if a.Votes == 0 || b.Votes == 0 {
			return a.Votes > b.Votes
		}
		if a.MajorityIndex != b.MajorityIndex {
			return a.MajorityIndex < b.MajorityIndex
		}
		return a.AboveShare-a.BelowShare > b.AboveShare-b.BelowShare
	})

	if len(sets) == 0 || winnerCount <= 0 {
		return result
	}
	cutoff := winnerCount
	if cutoff > len(result.Rankings) {
		cutoff = len(result.Rankings)
	}
	last := result.Rankings[cutoff-1]
	for i, judgment := range result.Rankings {
		if i < cutoff || sameJudgmentRank(judgment, last) {
			result.Winners = append(result.Winners, judgment.ProposalID)
		}
	}
	return result
}

func sameJudgmentRank(a, b ProposalJudgment) bool {
	return a.Votes > 0 && b.Votes > 0 &&
		a.MajorityIndex == b.MajorityIndex &&
		a.AboveShare-a.BelowShare == b.AboveShare-b.BelowShare
}

func judgeProposal(
	proposalID string,
	scale []string,
	scaleIndex map[string]int,
	sets []entities.MentionSet,
) ProposalJudgment {
	judgment := ProposalJudgment{
		ProposalID: proposalID,
		Profile:    make(map[string]int, len(scale)),
	}

	var indexes []int
	for _, set := range sets {
		mention, ok := set.Mentions[proposalID]
		if !ok {
			continue
		}
		index, known := scaleIndex[mention]
		if !known {
			continue
		}
		judgment.Profile[mention]++
		indexes = append(indexes, index)
	}
	judgment.Votes = len(indexes)
	if judgment.Votes == 0 {
		judgment.MajorityIndex = len(scale)
		return judgment
	}

	// Sorted most favorable first; position n/2 is the exact median for odd
	// counts and the less favorable central value for even counts.
	sort.Ints(indexes)
	majority := indexes[len(indexes)/2]
	judgment.MajorityIndex = majority
	judgment.MajorityMention = scale[majority]

	above, below := 0, 0
	for _, index := range indexes {
		if index < majority {
			above++
		} else if index > majority {
			below++
		}
	}
	judgment.AboveShare = float64(above) / float64(judgment.Votes)
	judgment.BelowShare = float64(below) / float64(judgment.Votes)
	return judgment
}
