package postgresadapter

import (
	"encoding/json"
	"time"

	"quorum/contexts/deliberation/decision-engine/domain/entities"
)

type decisionModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	CreatorID    string     `gorm:"column:creator_id;not null"`
	Title        string     `gorm:"column:title;not null"`
	Protocol     string     `gorm:"column:protocol;not null"`
	Status       string     `gorm:"column:status;not null"`
	VotingMode   string     `gorm:"column:voting_mode;not null"`
	StartsAt     *time.Time `gorm:"column:starts_at"`
	EndsAt       *time.Time `gorm:"column:ends_at"`
	Result       *string    `gorm:"column:result"`
	Conclusion   *string    `gorm:"column:conclusion"`
	MentionScale []byte     `gorm:"column:mention_scale;type:jsonb"`
	WinnerCount  int        `gorm:"column:winner_count;not null;default:0"`
	StepMode     string     `gorm:"column:step_mode"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null"`
}

func (decisionModel) TableName() string { return "deliberation_decisions" }

func decisionModelFromEntity(decision entities.Decision) (decisionModel, error) {
	row := decisionModel{
		ID:          decision.DecisionID,
		CreatorID:   decision.CreatorID,
		Title:       decision.Title,
		Protocol:    string(decision.Protocol),
		Status:      string(decision.Status),
		VotingMode:  string(decision.VotingMode),
		Conclusion:  decision.Conclusion,
		WinnerCount: decision.WinnerCount,
		StepMode:    string(decision.StepMode),
		CreatedAt:   decision.CreatedAt.UTC(),
		UpdatedAt:   decision.UpdatedAt.UTC(),
	}
	if decision.StartsAt != nil {
		at := decision.StartsAt.UTC()
		row.StartsAt = &at
	}
	if decision.EndsAt != nil {
		at := decision.EndsAt.UTC()
		row.EndsAt = &at
	}
	if decision.Result != nil {
		result := string(*decision.Result)
		row.Result = &result
	}
	if len(decision.MentionScale) > 0 {
		scale, err := json.Marshal(decision.MentionScale)
		if err != nil {
			return decisionModel{}, err
		}
		row.MentionScale = scale
	}
	return row, nil
}

func (m decisionModel) toEntity() (entities.Decision, error) {
	decision := entities.Decision{
		DecisionID:  m.ID,
		CreatorID:   m.CreatorID,
		Title:       m.Title,
		Protocol:    entities.Protocol(m.Protocol),
		Status:      entities.DecisionStatus(m.Status),
		VotingMode:  entities.VotingMode(m.VotingMode),
		StartsAt:    m.StartsAt,
		EndsAt:      m.EndsAt,
		Conclusion:  m.Conclusion,
		WinnerCount: m.WinnerCount,
		StepMode:    entities.StepMode(m.StepMode),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Result != nil {
		result := entities.Result(*m.Result)
		decision.Result = &result
	}
	if len(m.MentionScale) > 0 {
		if err := json.Unmarshal(m.MentionScale, &decision.MentionScale); err != nil {
			return entities.Decision{}, err
		}
	}
	return decision, nil
}

type proposalModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	DecisionID   string    `gorm:"column:decision_id;not null;index"`
	Text         string    `gorm:"column:text;not null"`
	DisplayOrder int       `gorm:"column:display_order;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (proposalModel) TableName() string { return "deliberation_proposals" }

type participantModel struct {
	DecisionID string    `gorm:"column:decision_id;primaryKey"`
	ActorID    string    `gorm:"column:actor_id;primaryKey"`
	External   bool      `gorm:"column:external;not null;default:false"`
	Eligible   bool      `gorm:"column:eligible;not null;default:true"`
	HasActed   bool      `gorm:"column:has_acted;not null;default:false"`
	AddedAt    time.Time `gorm:"column:added_at;not null"`
}

func (participantModel) TableName() string { return "deliberation_participants" }

func (m participantModel) toEntity() entities.Participant {
	return entities.Participant{
		DecisionID: m.DecisionID,
		ActorID:    m.ActorID,
		External:   m.External,
		Eligible:   m.Eligible,
		HasActed:   m.HasActed,
		AddedAt:    m.AddedAt,
	}
}

type ballotModel struct {
	DecisionID string    `gorm:"column:decision_id;primaryKey"`
	ActorID    string    `gorm:"column:actor_id;primaryKey"`
	ProposalID string    `gorm:"column:proposal_id;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (ballotModel) TableName() string { return "deliberation_ballots" }

type consensusModel struct {
	DecisionID string    `gorm:"column:decision_id;primaryKey"`
	ActorID    string    `gorm:"column:actor_id;primaryKey"`
	Value      string    `gorm:"column:value;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (consensusModel) TableName() string { return "deliberation_consensus_entries" }

type mentionSetModel struct {
	DecisionID string    `gorm:"column:decision_id;primaryKey"`
	ActorID    string    `gorm:"column:actor_id;primaryKey"`
	Mentions   []byte    `gorm:"column:mentions;type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (mentionSetModel) TableName() string { return "deliberation_mention_sets" }

type opinionModel struct {
	DecisionID string    `gorm:"column:decision_id;primaryKey"`
	ActorID    string    `gorm:"column:actor_id;primaryKey"`
	Text       string    `gorm:"column:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (opinionModel) TableName() string { return "deliberation_opinions" }

type objectionModel struct {
	DecisionID string    `gorm:"column:decision_id;primaryKey"`
	ActorID    string    `gorm:"column:actor_id;primaryKey"`
	Status     string    `gorm:"column:status;not null"`
	Reason     string    `gorm:"column:reason"`
	Withdrawn  bool      `gorm:"column:withdrawn;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (objectionModel) TableName() string { return "deliberation_objections" }

func (m objectionModel) toEntity() entities.ObjectionEntry {
	return entities.ObjectionEntry{
		DecisionID: m.DecisionID,
		ActorID:    m.ActorID,
		Status:     entities.ObjectionStatus(m.Status),
		Reason:     m.Reason,
		Withdrawn:  m.Withdrawn,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

type questionModel struct {
	ID         string     `gorm:"column:id;primaryKey"`
	DecisionID string     `gorm:"column:decision_id;not null;index"`
	ActorID    string     `gorm:"column:actor_id;not null"`
	Question   string     `gorm:"column:question;not null"`
	Answer     *string    `gorm:"column:answer"`
	AnsweredBy string     `gorm:"column:answered_by"`
	AskedAt    time.Time  `gorm:"column:asked_at;not null"`
	AnsweredAt *time.Time `gorm:"column:answered_at"`
}

func (questionModel) TableName() string { return "deliberation_clarification_questions" }

func (m questionModel) toEntity() entities.ClarificationQuestion {
	return entities.ClarificationQuestion{
		QuestionID: m.ID,
		DecisionID: m.DecisionID,
		ActorID:    m.ActorID,
		Question:   m.Question,
		Answer:     m.Answer,
		AnsweredBy: m.AnsweredBy,
		AskedAt:    m.AskedAt,
		AnsweredAt: m.AnsweredAt,
	}
}

type consentStateModel struct {
	DecisionID  string     `gorm:"column:decision_id;primaryKey"`
	InitialText string     `gorm:"column:initial_text;not null"`
	CurrentText string     `gorm:"column:current_text;not null"`
	Action      *string    `gorm:"column:action"`
	ActedAt     *time.Time `gorm:"column:acted_at"`
}

func (consentStateModel) TableName() string { return "deliberation_consent_states" }

func (m consentStateModel) toEntity() entities.ConsentProposalState {
	state := entities.ConsentProposalState{
		DecisionID:  m.DecisionID,
		InitialText: m.InitialText,
		CurrentText: m.CurrentText,
		ActedAt:     m.ActedAt,
	}
	if m.Action != nil {
		action := entities.AmendmentAction(*m.Action)
		state.Action = &action
	}
	return state
}

type outboxModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	EventType   string     `gorm:"column:event_type;not null"`
	Payload     []byte     `gorm:"column:payload;type:jsonb;not null"`
	Status      string     `gorm:"column:status;not null;default:pending"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "deliberation_outbox" }

// Models returns the gorm models this repository persists, in migration order.
func Models() []any {
	return []any{
		&decisionModel{},
		&proposalModel{},
		&participantModel{},
		&ballotModel{},
		&consensusModel{},
		&mentionSetModel{},
		&opinionModel{},
		&objectionModel{},
		&questionModel{},
		&consentStateModel{},
		&outboxModel{},
	}
}
