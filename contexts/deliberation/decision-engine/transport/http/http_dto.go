package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateDecisionRequest struct {
	Title        string   `json:"title"`
	Protocol     string   `json:"protocol"`
	VotingMode   string   `json:"voting_mode,omitempty"`
	StartsAt     string   `json:"starts_at,omitempty"`
	EndsAt       string   `json:"ends_at,omitempty"`
	MentionScale []string `json:"mention_scale,omitempty"`
	WinnerCount  int      `json:"winner_count,omitempty"`
	StepMode     string   `json:"step_mode,omitempty"`
	ProposalText string   `json:"proposal_text,omitempty"`
}

type DecisionResponse struct {
	DecisionID   string   `json:"decision_id"`
	CreatorID    string   `json:"creator_id"`
	Title        string   `json:"title"`
	Protocol     string   `json:"protocol"`
	Status       string   `json:"status"`
	VotingMode   string   `json:"voting_mode"`
	StartsAt     string   `json:"starts_at,omitempty"`
	EndsAt       string   `json:"ends_at,omitempty"`
	Result       string   `json:"result,omitempty"`
	Conclusion   string   `json:"conclusion,omitempty"`
	MentionScale []string `json:"mention_scale,omitempty"`
	WinnerCount  int      `json:"winner_count,omitempty"`
	StepMode     string   `json:"step_mode,omitempty"`
}

type AddProposalRequest struct {
	Text string `json:"text"`
}

type ProposalResponse struct {
	ProposalID   string `json:"proposal_id"`
	DecisionID   string `json:"decision_id"`
	Text         string `json:"text"`
	DisplayOrder int    `json:"display_order"`
}

type SubmitBallotRequest struct {
	ProposalID string `json:"proposal_id"`
}

type SubmitConsensusRequest struct {
	Value string `json:"value"`
}

type SubmitMentionSetRequest struct {
	Mentions map[string]string `json:"mentions"`
}

type SubmitOpinionRequest struct {
	Text string `json:"text"`
}

type SubmitObjectionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type AskQuestionRequest struct {
	Question string `json:"question"`
}

type AnswerQuestionRequest struct {
	Answer string `json:"answer"`
}

type AmendProposalRequest struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
}

type ConcludeAdviceRequest struct {
	Conclusion string `json:"conclusion"`
}

type QuestionResponse struct {
	QuestionID string `json:"question_id"`
	DecisionID string `json:"decision_id"`
	ActorID    string `json:"actor_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer,omitempty"`
	AnsweredBy string `json:"answered_by,omitempty"`
	Answered   bool   `json:"answered"`
}

type QuestionsResponse struct {
	Items []QuestionResponse `json:"items"`
}

type ProposalStateResponse struct {
	DecisionID  string `json:"decision_id"`
	InitialText string `json:"initial_text"`
	CurrentText string `json:"current_text"`
	Action      string `json:"action,omitempty"`
}

type ProposalCountItem struct {
	ProposalID string  `json:"proposal_id"`
	Count      int     `json:"count"`
	Percent    float64 `json:"percent"`
}

type PluralityTallyResponse struct {
	TotalBallots int                 `json:"total_ballots"`
	Counts       []ProposalCountItem `json:"counts"`
	Winners      []string            `json:"winners"`
}

type ConsensusTallyResponse struct {
	TotalEligible int  `json:"total_eligible"`
	AgreeCount    int  `json:"agree_count"`
	DisagreeCount int  `json:"disagree_count"`
	Unanimous     bool `json:"unanimous"`
}

type ProposalJudgmentItem struct {
	ProposalID      string         `json:"proposal_id"`
	Profile         map[string]int `json:"profile"`
	MajorityMention string         `json:"majority_mention"`
	AboveShare      float64        `json:"above_share"`
	BelowShare      float64        `json:"below_share"`
	Votes           int            `json:"votes"`
}

type JudgmentTallyResponse struct {
	TotalVoters int                    `json:"total_voters"`
	Rankings    []ProposalJudgmentItem `json:"rankings"`
	Winners     []string               `json:"winners"`
}

type AdviceTallyResponse struct {
	ReceivedCount  int  `json:"received_count"`
	TotalSolicited int  `json:"total_solicited"`
	AllReceived    bool `json:"all_received"`
}

type ConsentResolutionResponse struct {
	TotalEligible int  `json:"total_eligible"`
	Submitted     int  `json:"submitted"`
	Blocked       bool `json:"blocked"`
	Approved      bool `json:"approved"`
}

type TallyResponse struct {
	DecisionID string                     `json:"decision_id"`
	Protocol   string                     `json:"protocol"`
	Status     string                     `json:"status"`
	Result     string                     `json:"result,omitempty"`
	Stage      string                     `json:"stage,omitempty"`
	Plurality  *PluralityTallyResponse    `json:"plurality,omitempty"`
	Consensus  *ConsensusTallyResponse    `json:"consensus,omitempty"`
	Judgment   *JudgmentTallyResponse     `json:"judgment,omitempty"`
	Advice     *AdviceTallyResponse       `json:"advice,omitempty"`
	Consent    *ConsentResolutionResponse `json:"consent,omitempty"`
}

type StageResponse struct {
	DecisionID string `json:"decision_id"`
	Stage      string `json:"stage"`
}
