package tally

import (
	"testing"

	"quorum/contexts/deliberation/decision-engine/domain/entities"
)

func proposalsFixture(ids ...string) []entities.Proposal {
	proposals := make([]entities.Proposal, 0, len(ids))
	for i, id := range ids {
		proposals = append(proposals, entities.Proposal{
			ProposalID:   id,
			DisplayOrder: i + 1,
		})
	}
	return proposals
}

func participantsFixture(ids ...string) []entities.Participant {
	participants := make([]entities.Participant, 0, len(ids))
	for _, id := range ids {
		participants = append(participants, entities.Participant{ActorID: id, Eligible: true})
	}
	return participants
}

func TestPluralityCountsAndSingleWinner(t *testing.T) {
	proposals := proposalsFixture("p1", "p2", "p3")
	ballots := []entities.BallotEntry{
		{ActorID: "a", ProposalID: "p1"},
		{ActorID: "b", ProposalID: "p1"},
		{ActorID: "c", ProposalID: "p2"},
		{ActorID: "d", ProposalID: "p1"},
	}

	result := Plurality(proposals, ballots)
	if result.TotalBallots != 4 {
		t.Fatalf("expected 4 ballots, got %d", result.TotalBallots)
	}
	if len(result.Winners) != 1 || result.Winners[0] != "p1" {
		t.Fatalf("expected single winner p1, got %v", result.Winners)
	}
	if result.Counts[0].Count != 3 || result.Counts[0].Percent != 75 {
		t.Fatalf("unexpected leading count row: %+v", result.Counts[0])
	}
	if result.Counts[2].Count != 0 {
		t.Fatalf("unvoted proposal must still appear with zero count, got %+v", result.Counts[2])
	}
}

func TestPluralityTiesAreReportedNotBroken(t *testing.T) {
	proposals := proposalsFixture("p1", "p2")
	ballots := []entities.BallotEntry{
		{ActorID: "a", ProposalID: "p1"},
		{ActorID: "b", ProposalID: "p2"},
	}

	result := Plurality(proposals, ballots)
	if len(result.Winners) != 2 {
		t.Fatalf("tied proposals must all win, got %v", result.Winners)
	}
}

func TestPluralityEmptyBallotSetHasNoWinner(t *testing.T) {
	result := Plurality(proposalsFixture("p1", "p2"), nil)
	if result.TotalBallots != 0 || len(result.Winners) != 0 {
		t.Fatalf("empty ballot set must produce no winners, got %+v", result)
	}
}

func TestConsensusRequiresEveryEligibleVoice(t *testing.T) {
	eligible := participantsFixture("a", "b", "c")

	partial := Consensus(eligible, []entities.ConsensusEntry{
		{ActorID: "a", Value: entities.ConsensusAgree},
		{ActorID: "b", Value: entities.ConsensusAgree},
	})
	if partial.Unanimous {
		t.Fatal("missing entries must block unanimity")
	}

	full := Consensus(eligible, []entities.ConsensusEntry{
		{ActorID: "a", Value: entities.ConsensusAgree},
		{ActorID: "b", Value: entities.ConsensusAgree},
		{ActorID: "c", Value: entities.ConsensusAgree},
	})
	if !full.Unanimous || full.AgreeCount != 3 {
		t.Fatalf("expected unanimity, got %+v", full)
	}
}

func TestConsensusSingleDisagreeBlocksUnanimity(t *testing.T) {
	eligible := participantsFixture("a", "b")
	result := Consensus(eligible, []entities.ConsensusEntry{
		{ActorID: "a", Value: entities.ConsensusAgree},
		{ActorID: "b", Value: entities.ConsensusDisagree},
	})
	if result.Unanimous {
		t.Fatal("a disagree must block unanimity")
	}
	if result.DisagreeCount != 1 || result.AgreeCount != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
}

func TestConsensusEmptyEligibleSetIsNeverUnanimous(t *testing.T) {
	if result := Consensus(nil, nil); result.Unanimous {
		t.Fatal("an empty eligible set must not be unanimous")
	}
}

func TestConsensusLatestEntryPerActorWins(t *testing.T) {
	eligible := participantsFixture("a")
	// The ledger upserts per actor; a replayed list still keys by actor.
	result := Consensus(eligible, []entities.ConsensusEntry{
		{ActorID: "a", Value: entities.ConsensusDisagree},
		{ActorID: "a", Value: entities.ConsensusAgree},
	})
	if !result.Unanimous {
		t.Fatalf("replaced entry must count once with the final value, got %+v", result)
	}
}

func TestMajorityJudgmentOddCountPicksExactMedian(t *testing.T) {
	scale := []string{"excellent", "good", "poor"}
	proposals := proposalsFixture("p1")
	sets := []entities.MentionSet{
		{ActorID: "a", Mentions: map[string]string{"p1": "excellent"}},
		{ActorID: "b", Mentions: map[string]string{"p1": "good"}},
		{ActorID: "c", Mentions: map[string]string{"p1": "poor"}},
	}

	result := MajorityJudgment(scale, proposals, sets, 1)
	if result.Rankings[0].MajorityMention != "good" {
		t.Fatalf("expected median good, got %s", result.Rankings[0].MajorityMention)
	}
}

func TestMajorityJudgmentEvenCountPicksLessFavorableCentral(t *testing.T) {
	scale := []string{"excellent", "good", "poor"}
	proposals := proposalsFixture("p1")
	sets := []entities.MentionSet{
		{ActorID: "a", Mentions: map[string]string{"p1": "excellent"}},
		{ActorID: "b", Mentions: map[string]string{"p1": "good"}},
	}

	result := MajorityJudgment(scale, proposals, sets, 1)
	if result.Rankings[0].MajorityMention != "good" {
		t.Fatalf("even count must pick the less favorable central value, got %s", result.Rankings[0].MajorityMention)
	}
}

func TestMajorityJudgmentRanksByMajorityThenMargin(t *testing.T) {
	scale := []string{"excellent", "good", "fair", "poor"}
	proposals := proposalsFixture("p1", "p2", "p3")
	sets := []entities.MentionSet{
		{ActorID: "a", Mentions: map[string]string{"p1": "good", "p2": "good", "p3": "poor"}},
		{ActorID: "b", Mentions: map[string]string{"p1": "excellent", "p2": "fair", "p3": "poor"}},
		{ActorID: "c", Mentions: map[string]string{"p1": "good", "p2": "good", "p3": "fair"}},
	}

	result := MajorityJudgment(scale, proposals, sets, 1)
	// p1 and p2 share no majority mention: p1's median is good, p2's is good
	// too, so the above-minus-below margin must order p1 first.
	if result.Rankings[0].ProposalID != "p1" {
		t.Fatalf("expected p1 ranked first, got %s", result.Rankings[0].ProposalID)
	}
	if result.Rankings[2].ProposalID != "p3" {
		t.Fatalf("expected p3 ranked last, got %s", result.Rankings[2].ProposalID)
	}
	if len(result.Winners) != 1 || result.Winners[0] != "p1" {
		t.Fatalf("expected single winner p1, got %v", result.Winners)
	}
}

func TestMajorityJudgmentWinnersIncludeCutoffTies(t *testing.T) {
	scale := []string{"good", "poor"}
	proposals := proposalsFixture("p1", "p2", "p3")
	sets := []entities.MentionSet{
		{ActorID: "a", Mentions: map[string]string{"p1": "good", "p2": "good", "p3": "poor"}},
	}

	result := MajorityJudgment(scale, proposals, sets, 1)
	// p1 and p2 are indistinguishable; both must win at winnerCount 1.
	if len(result.Winners) != 2 {
		t.Fatalf("cutoff tie must widen the winner set, got %v", result.Winners)
	}
}

func TestMajorityJudgmentNoVotesNoWinners(t *testing.T) {
	result := MajorityJudgment([]string{"good", "poor"}, proposalsFixture("p1"), nil, 1)
	if len(result.Winners) != 0 {
		t.Fatalf("no mention sets must produce no winners, got %v", result.Winners)
	}
}

func TestAdviceProgressExcludesCreator(t *testing.T) {
	eligible := participantsFixture("creator", "a", "b")
	result := AdviceProgress("creator", eligible, []entities.OpinionEntry{
		{ActorID: "a", Text: "looks fine"},
	})
	if result.TotalSolicited != 2 {
		t.Fatalf("creator must not be solicited, got %d", result.TotalSolicited)
	}
	if result.AllReceived {
		t.Fatal("one missing opinion must block completion")
	}

	result = AdviceProgress("creator", eligible, []entities.OpinionEntry{
		{ActorID: "a", Text: "looks fine"},
		{ActorID: "b", Text: "ship it"},
	})
	if !result.AllReceived || result.ReceivedCount != 2 {
		t.Fatalf("expected completion, got %+v", result)
	}
}

func TestAdviceProgressEmptySolicitedSetNeverCompletes(t *testing.T) {
	result := AdviceProgress("creator", participantsFixture("creator"), nil)
	if result.AllReceived {
		t.Fatal("a decision with nobody solicited must not report completion")
	}
}

func TestResolveConsentObjectionBlocksEagerly(t *testing.T) {
	eligible := participantsFixture("a", "b", "c")
	result := ResolveConsent(eligible, []entities.ObjectionEntry{
		{ActorID: "a", Status: entities.ObjectionStatusObjection},
	}, false)
	if !result.Blocked {
		t.Fatal("a single objection must block")
	}
	if result.Approved {
		t.Fatal("a blocked resolution can never approve")
	}
}

func TestResolveConsentWithdrawnObjectionDoesNotBlock(t *testing.T) {
	eligible := participantsFixture("a", "b")
	result := ResolveConsent(eligible, []entities.ObjectionEntry{
		{ActorID: "a", Status: entities.ObjectionStatusObjection, Withdrawn: true},
		{ActorID: "b", Status: entities.ObjectionStatusNone},
	}, false)
	if result.Blocked {
		t.Fatal("a withdrawn objection is not a live veto")
	}
	if !result.Approved {
		t.Fatal("all non-objection entries must approve")
	}
}

func TestResolveConsentApprovesWhenAllSubmitted(t *testing.T) {
	eligible := participantsFixture("a", "b")
	result := ResolveConsent(eligible, []entities.ObjectionEntry{
		{ActorID: "a", Status: entities.ObjectionStatusNone},
		{ActorID: "b", Status: entities.ObjectionStatusNoPosition},
	}, false)
	if !result.Approved || result.Submitted != 2 {
		t.Fatalf("expected approval with 2 submissions, got %+v", result)
	}
}

func TestResolveConsentSilenceApprovesOnlyAfterWindow(t *testing.T) {
	eligible := participantsFixture("a", "b")
	pending := ResolveConsent(eligible, nil, false)
	if pending.Approved || pending.Blocked {
		t.Fatalf("pending stage must stay undetermined, got %+v", pending)
	}

	elapsed := ResolveConsent(eligible, nil, true)
	if !elapsed.Approved {
		t.Fatal("silence past the objections window is approval")
	}
}
