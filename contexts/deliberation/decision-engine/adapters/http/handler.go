package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"quorum/contexts/deliberation/decision-engine/application/commands"
	"quorum/contexts/deliberation/decision-engine/application/queries"
	"quorum/contexts/deliberation/decision-engine/domain/entities"
	domainerrors "quorum/contexts/deliberation/decision-engine/domain/errors"
	tallytypes "quorum/contexts/deliberation/decision-engine/domain/tally"
	httptransport "quorum/contexts/deliberation/decision-engine/transport/http"
)

// Handler is the transport-facing facade over the decision engine use cases.
// The platform HTTP server resolves the acting identity and decodes request
// bodies; the handler translates DTOs and delegates.
type Handler struct {
	Lifecycle   commands.LifecycleUseCase
	Submissions commands.SubmissionUseCase
	Consent     commands.ConsentUseCase
	Tallies     queries.TallyUseCase
	Logger      *slog.Logger
}

func (h Handler) CreateDecisionHandler(
	ctx context.Context,
	actorID string,
	req httptransport.CreateDecisionRequest,
) (httptransport.DecisionResponse, error) {
	startsAt, err := parseOptionalTime(req.StartsAt)
	if err != nil {
		return httptransport.DecisionResponse{}, domainerrors.ErrInvalidInput
	}
	endsAt, err := parseOptionalTime(req.EndsAt)
	if err != nil {
		return httptransport.DecisionResponse{}, domainerrors.ErrInvalidInput
	}
	decision, err := h.Lifecycle.CreateDecision(ctx, commands.CreateDecisionCommand{
		CreatorID:    actorID,
		Title:        req.Title,
		Protocol:     entities.Protocol(req.Protocol),
		VotingMode:   entities.VotingMode(req.VotingMode),
		StartsAt:     startsAt,
		EndsAt:       endsAt,
		MentionScale: req.MentionScale,
		WinnerCount:  req.WinnerCount,
		StepMode:     entities.StepMode(req.StepMode),
		ProposalText: req.ProposalText,
	})
	if err != nil {
		return httptransport.DecisionResponse{}, err
	}
	return mapDecision(decision), nil
}

func (h Handler) GetDecisionHandler(ctx context.Context, decisionID string) (httptransport.DecisionResponse, error) {
	decision, err := h.Tallies.Decision(ctx, decisionID)
	if err != nil {
		return httptransport.DecisionResponse{}, err
	}
	return mapDecision(decision), nil
}

func (h Handler) AddProposalHandler(
	ctx context.Context,
	actorID string,
	decisionID string,
	req httptransport.AddProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Lifecycle.AddProposal(ctx, commands.AddProposalCommand{
		ActorID:    actorID,
		DecisionID: decisionID,
		Text:       req.Text,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return httptransport.ProposalResponse{
		ProposalID:   proposal.ProposalID,
		DecisionID:   proposal.DecisionID,
		Text:         proposal.Text,
		DisplayOrder: proposal.DisplayOrder,
	}, nil
}

func (h Handler) LaunchDecisionHandler(ctx context.Context, actorID string, decisionID string) (httptransport.DecisionResponse, error) {
	decision, err := h.Lifecycle.LaunchDecision(ctx, actorID, decisionID)
	if err != nil {
		return httptransport.DecisionResponse{}, err
	}
	return mapDecision(decision), nil
}

func (h Handler) WithdrawDecisionHandler(ctx context.Context, actorID string, decisionID string) error {
	return h.Lifecycle.WithdrawDecision(ctx, actorID, decisionID)
}

func (h Handler) ConcludeAdviceHandler(
	ctx context.Context,
	actorID string,
	decisionID string,
	req httptransport.ConcludeAdviceRequest,
) error {
	return h.Lifecycle.ConcludeAdvice(ctx, commands.ConcludeAdviceCommand{
		ActorID:    actorID,
		DecisionID: decisionID,
		Conclusion: req.Conclusion,
	})
}

func (h Handler) SubmitBallotHandler(
	ctx context.Context,
	actorID string,
	decisionID string,
	req httptransport.SubmitBallotRequest,
) (httptransport.PluralityTallyResponse, error) {
	snapshot, err := h.Submissions.SubmitBallot(ctx, commands.SubmitBallotCommand{
		ActorID:    actorID,
		DecisionID: decisionID,
		ProposalID: req.ProposalID,
	})
	if err != nil {
		return httptransport.PluralityTallyResponse{}, err
	}
	return mapPlurality(snapshot), nil
}

func (h Handler) SubmitConsensusHandler(
	ctx context.Context,
	actorID string,
	decisionID string,
	req httptransport.SubmitConsensusRequest,
) (httptransport.ConsensusTallyResponse, error) {
	snapshot, err := h.Submissions.SubmitConsensusVote(ctx, commands.SubmitConsensusCommand{
		ActorID:    actorID,
		DecisionID: decisionID,
		Value:      entities.ConsensusValue(req.Value),
	})
	if err != nil {
		return httptransport.ConsensusTallyResponse{}, err
	}
	return httptransport.ConsensusTallyResponse{
		TotalEligible: snapshot.TotalEligible,
		AgreeCount:    snapshot.AgreeCount,
		DisagreeCount: snapshot.DisagreeCount,
		Unanimous:     snapshot.Unanimous,
	}, nil
}

func (h Handler) SubmitMentionSetHandler(
	ctx context.Context,
	actorID string,
	decisionID string,
	req httptransport.SubmitMentionSetRequest,
) (httptransport.JudgmentTallyResponse, error) {
	snapshot, err := h.Submissions.SubmitMentionSet(ctx, commands.SubmitMentionSetCommand{
		ActorID:    actorID,
		DecisionID: decisionID,
		Mentions:   req.Mentions,
	})
	if err != nil {
		return httptransport.JudgmentTallyResponse{}, err
	}
	return mapJudgment(snapshot), nil
}

func (h Handler) SubmitOpinionHandler(
	ctx context.Context,
	actorID string,
	decisionID string,
	req httptransport.SubmitOpinionRequest,
) (httptransport.AdviceTallyResponse, error) {
	snapshot, err := h.Submissions.SubmitOpinion(ctx, commands.SubmitOpinionCommand{
		ActorID:    actorID,
		DecisionID: decisionID,
		Text:       req.Text,
	})
	if err != nil {
		return httptransport.AdviceTallyResponse{}, err
	}
	return httptransport.AdviceTallyResponse{
		ReceivedCount:  snapshot.ReceivedCount,
		TotalSolicited: snapshot.TotalSolicited,
		AllReceived:    snapshot.AllReceived,
	}, nil
}

func (h Handler) SubmitObjectionHandler(
	ctx context.Context,
	actorID string,
	decisionID string,
	req httptransport.SubmitObjectionRequest,
) (httptransport.ConsentResolutionResponse, error) {
	resolution, err := h.Submissions.SubmitObjection(ctx, commands.SubmitObjectionCommand{
		ActorID:    actorID,
		DecisionID: decisionID,
		Status:     entities.ObjectionStatus(req.Status),
		Reason:     req.Reason,
	})
	if err != nil {
		return httptransport.ConsentResolutionResponse{}, err
	}
	return httptransport.ConsentResolutionResponse{
		TotalEligible: resolution.TotalEligible,
		Submitted:     resolution.Submitted,
		Blocked:       resolution.Blocked,
		Approved:      resolution.Approved,
	}, nil
}

func (h Handler) WithdrawObjectionHandler(ctx context.Context, actorID string, decisionID string) error {
	return h.Submissions.WithdrawObjection(ctx, actorID, decisionID)
}

func (h Handler) AskQuestionHandler(
	ctx context.Context,
	actorID string,
	decisionID string,
	req httptransport.AskQuestionRequest,
) (httptransport.QuestionResponse, error) {
	question, err := h.Consent.AskQuestion(ctx, commands.AskQuestionCommand{
		ActorID:    actorID,
		DecisionID: decisionID,
		Question:   req.Question,
	})
	if err != nil {
		return httptransport.QuestionResponse{}, err
	}
	return mapQuestion(question), nil
}

func (h Handler) AnswerQuestionHandler(
	ctx context.Context,
	actorID string,
	decisionID string,
	questionID string,
	req httptransport.AnswerQuestionRequest,
) error {
	return h.Consent.AnswerQuestion(ctx, commands.AnswerQuestionCommand{
		ActorID:    actorID,
		DecisionID: decisionID,
		QuestionID: questionID,
		Answer:     req.Answer,
	})
}

func (h Handler) AmendProposalHandler(
	ctx context.Context,
	actorID string,
	decisionID string,
	req httptransport.AmendProposalRequest,
) (httptransport.ProposalStateResponse, error) {
	state, err := h.Consent.DecideAmendment(ctx, commands.AmendProposalCommand{
		ActorID:    actorID,
		DecisionID: decisionID,
		Action:     entities.AmendmentAction(req.Action),
		Text:       req.Text,
	})
	if err != nil {
		return httptransport.ProposalStateResponse{}, err
	}
	return mapProposalState(state), nil
}

func (h Handler) QuestionsHandler(ctx context.Context, decisionID string) (httptransport.QuestionsResponse, error) {
	questions, err := h.Tallies.Questions(ctx, decisionID)
	if err != nil {
		return httptransport.QuestionsResponse{}, err
	}
	items := make([]httptransport.QuestionResponse, 0, len(questions))
	for _, question := range questions {
		items = append(items, mapQuestion(question))
	}
	return httptransport.QuestionsResponse{Items: items}, nil
}

func (h Handler) ProposalStateHandler(ctx context.Context, decisionID string) (httptransport.ProposalStateResponse, error) {
	state, err := h.Tallies.ProposalState(ctx, decisionID)
	if err != nil {
		return httptransport.ProposalStateResponse{}, err
	}
	return mapProposalState(state), nil
}

func (h Handler) TallyHandler(ctx context.Context, decisionID string) (httptransport.TallyResponse, error) {
	snapshot, err := h.Tallies.DecisionTally(ctx, decisionID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return mapTally(snapshot), nil
}

func (h Handler) StageHandler(ctx context.Context, decisionID string) (httptransport.StageResponse, error) {
	stage, err := h.Tallies.CurrentStage(ctx, decisionID, time.Now().UTC())
	if err != nil {
		return httptransport.StageResponse{}, err
	}
	return httptransport.StageResponse{
		DecisionID: decisionID,
		Stage:      string(stage),
	}, nil
}

func mapDecision(decision entities.Decision) httptransport.DecisionResponse {
	resp := httptransport.DecisionResponse{
		DecisionID:   decision.DecisionID,
		CreatorID:    decision.CreatorID,
		Title:        decision.Title,
		Protocol:     string(decision.Protocol),
		Status:       string(decision.Status),
		VotingMode:   string(decision.VotingMode),
		MentionScale: decision.MentionScale,
		WinnerCount:  decision.WinnerCount,
		StepMode:     string(decision.StepMode),
	}
	if decision.StartsAt != nil {
		resp.StartsAt = decision.StartsAt.UTC().Format(time.RFC3339)
	}
	if decision.EndsAt != nil {
		resp.EndsAt = decision.EndsAt.UTC().Format(time.RFC3339)
	}
	if decision.Result != nil {
		resp.Result = string(*decision.Result)
	}
	if decision.Conclusion != nil {
		resp.Conclusion = *decision.Conclusion
	}
	return resp
}

func mapQuestion(question entities.ClarificationQuestion) httptransport.QuestionResponse {
	resp := httptransport.QuestionResponse{
		QuestionID: question.QuestionID,
		DecisionID: question.DecisionID,
		ActorID:    question.ActorID,
		Question:   question.Question,
		AnsweredBy: question.AnsweredBy,
		Answered:   question.Answered(),
	}
	if question.Answer != nil {
		resp.Answer = *question.Answer
	}
	return resp
}

func mapProposalState(state entities.ConsentProposalState) httptransport.ProposalStateResponse {
	resp := httptransport.ProposalStateResponse{
		DecisionID:  state.DecisionID,
		InitialText: state.InitialText,
		CurrentText: state.CurrentText,
	}
	if state.Action != nil {
		resp.Action = string(*state.Action)
	}
	return resp
}

func mapPlurality(snapshot tallytypes.PluralityTally) httptransport.PluralityTallyResponse {
	counts := make([]httptransport.ProposalCountItem, 0, len(snapshot.Counts))
	for _, count := range snapshot.Counts {
		counts = append(counts, httptransport.ProposalCountItem{
			ProposalID: count.ProposalID,
			Count:      count.Count,
			Percent:    count.Percent,
		})
	}
	return httptransport.PluralityTallyResponse{
		TotalBallots: snapshot.TotalBallots,
		Counts:       counts,
		Winners:      snapshot.Winners,
	}
}

func mapJudgment(snapshot tallytypes.JudgmentTally) httptransport.JudgmentTallyResponse {
	rankings := make([]httptransport.ProposalJudgmentItem, 0, len(snapshot.Rankings))
	for _, ranking := range snapshot.Rankings {
		rankings = append(rankings, httptransport.ProposalJudgmentItem{
			ProposalID:      ranking.ProposalID,
			Profile:         ranking.Profile,
			MajorityMention: ranking.MajorityMention,
			AboveShare:      ranking.AboveShare,
			BelowShare:      ranking.BelowShare,
			Votes:           ranking.Votes,
		})
	}
	return httptransport.JudgmentTallyResponse{
		TotalVoters: snapshot.TotalVoters,
		Rankings:    rankings,
		Winners:     snapshot.Winners,
	}
}

func mapTally(snapshot queries.TallySnapshot) httptransport.TallyResponse {
	resp := httptransport.TallyResponse{
		DecisionID: snapshot.DecisionID,
		Protocol:   string(snapshot.Protocol),
		Status:     string(snapshot.Status),
		Stage:      string(snapshot.Stage),
	}
	if snapshot.Result != nil {
		resp.Result = string(*snapshot.Result)
	}
	if snapshot.Plurality != nil {
		plurality := mapPlurality(*snapshot.Plurality)
		resp.Plurality = &plurality
	}
	if snapshot.Consensus != nil {
		resp.Consensus = &httptransport.ConsensusTallyResponse{
			TotalEligible: snapshot.Consensus.TotalEligible,
			AgreeCount:    snapshot.Consensus.AgreeCount,
			DisagreeCount: snapshot.Consensus.DisagreeCount,
			Unanimous:     snapshot.Consensus.Unanimous,
		}
	}
	if snapshot.Judgment != nil {
		judgment := mapJudgment(*snapshot.Judgment)
		resp.Judgment = &judgment
	}
	if snapshot.Advice != nil {
		resp.Advice = &httptransport.AdviceTallyResponse{
			ReceivedCount:  snapshot.Advice.ReceivedCount,
			TotalSolicited: snapshot.Advice.TotalSolicited,
			AllReceived:    snapshot.Advice.AllReceived,
		}
	}
	if snapshot.Consent != nil {
		resp.Consent = &httptransport.ConsentResolutionResponse{
			TotalEligible: snapshot.Consent.TotalEligible,
			Submitted:     snapshot.Consent.Submitted,
			Blocked:       snapshot.Consent.Blocked,
			Approved:      snapshot.Consent.Approved,
		}
	}
	return resp
}

func parseOptionalTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	utc := at.UTC()
	return &utc, nil
}
