package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quorum/contexts/deliberation/decision-engine/domain/entities"
	domainerrors "quorum/contexts/deliberation/decision-engine/domain/errors"
	"quorum/contexts/deliberation/decision-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository implements the decision, ledger, registry, and outbox ports on
// postgres. Upserts rely on ON CONFLICT over the entry's identity key so two
// concurrent submissions by the same actor serialize at the database.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// --- DecisionRepository ---

func (r *Repository) SaveDecision(ctx context.Context, decision entities.Decision) error {
	row, err := decisionModelFromEntity(decision)
	if err != nil {
		return err
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"title":         row.Title,
			"status":        row.Status,
			"voting_mode":   row.VotingMode,
			"starts_at":     row.StartsAt,
			"ends_at":       row.EndsAt,
			"result":        row.Result,
			"conclusion":    row.Conclusion,
			"mention_scale": row.MentionScale,
			"winner_count":  row.WinnerCount,
			"step_mode":     row.StepMode,
			"updated_at":    row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("decision_repo_save_decision_failed", create.Error,
			"decision_id", strings.TrimSpace(decision.DecisionID),
		)
	}
	return nil
}

func (r *Repository) GetDecision(ctx context.Context, decisionID string) (entities.Decision, error) {
	var row decisionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(decisionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Decision{}, domainerrors.ErrDecisionNotFound
		}
		return entities.Decision{}, r.logError("decision_repo_get_decision_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	return row.toEntity()
}

// CloseDecision is the conditional terminal write: it only commits while the
// row is still open, so concurrent closers and the deadline sweeper cannot
// both win.
func (r *Repository) CloseDecision(
	ctx context.Context,
	decisionID string,
	result entities.Result,
	closedAt time.Time,
) (bool, error) {
	update := r.db.WithContext(ctx).
		Model(&decisionModel{}).
		Where("id = ?", strings.TrimSpace(decisionID)).
		Where("status = ?", string(entities.DecisionStatusOpen)).
		Updates(map[string]any{
			"status":     string(entities.DecisionStatusClosed),
			"result":     string(result),
			"updated_at": closedAt.UTC(),
		})
	if update.Error != nil {
		return false, r.logError("decision_repo_close_decision_failed", update.Error,
			"decision_id", strings.TrimSpace(decisionID),
			"result", string(result),
		)
	}
	return update.RowsAffected > 0, nil
}

func (r *Repository) ListOpenDecisions(ctx context.Context, deadline time.Time) ([]entities.Decision, error) {
	var rows []decisionModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.DecisionStatusOpen)).
		Where("ends_at IS NOT NULL AND ends_at <= ?", deadline.UTC()).
		Order("ends_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_open_failed", err)
	}
	items := make([]entities.Decision, 0, len(rows))
	for _, row := range rows {
		decision, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, decision)
	}
	return items, nil
}

func (r *Repository) SaveProposal(ctx context.Context, proposal entities.Proposal) error {
	row := proposalModel{
		ID:           strings.TrimSpace(proposal.ProposalID),
		DecisionID:   strings.TrimSpace(proposal.DecisionID),
		Text:         proposal.Text,
		DisplayOrder: proposal.DisplayOrder,
		CreatedAt:    proposal.CreatedAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"text":          row.Text,
			"display_order": row.DisplayOrder,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("decision_repo_save_proposal_failed", create.Error,
			"proposal_id", row.ID,
			"decision_id", row.DecisionID,
		)
	}
	return nil
}

func (r *Repository) ListProposals(ctx context.Context, decisionID string) ([]entities.Proposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Order("display_order ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_proposals_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Proposal{
			ProposalID:   row.ID,
			DecisionID:   row.DecisionID,
			Text:         row.Text,
			DisplayOrder: row.DisplayOrder,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

// --- ParticipantRegistry ---

func (r *Repository) RegisterParticipant(ctx context.Context, participant entities.Participant) error {
	row := participantModel{
		DecisionID: strings.TrimSpace(participant.DecisionID),
		ActorID:    strings.TrimSpace(participant.ActorID),
		External:   participant.External,
		Eligible:   participant.Eligible,
		HasActed:   participant.HasActed,
		AddedAt:    participant.AddedAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "decision_id"}, {Name: "actor_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"external": row.External,
			"eligible": row.Eligible,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("decision_repo_register_participant_failed", create.Error,
			"decision_id", row.DecisionID,
			"actor_id", row.ActorID,
		)
	}
	return nil
}

func (r *Repository) GetParticipant(ctx context.Context, decisionID string, actorID string) (entities.Participant, bool, error) {
	var row participantModel
	err := r.db.WithContext(ctx).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Where("actor_id = ?", strings.TrimSpace(actorID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Participant{}, false, nil
		}
		return entities.Participant{}, false, r.logError("decision_repo_get_participant_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
			"actor_id", strings.TrimSpace(actorID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListParticipants(ctx context.Context, decisionID string) ([]entities.Participant, error) {
	var rows []participantModel
	if err := r.db.WithContext(ctx).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Order("actor_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_participants_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	items := make([]entities.Participant, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) MarkActed(ctx context.Context, decisionID string, actorID string) error {
	update := r.db.WithContext(ctx).
		Model(&participantModel{}).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Where("actor_id = ?", strings.TrimSpace(actorID)).
		Update("has_acted", true)
	if update.Error != nil {
		return r.logError("decision_repo_mark_acted_failed", update.Error,
			"decision_id", strings.TrimSpace(decisionID),
			"actor_id", strings.TrimSpace(actorID),
		)
	}
	return nil
}

// --- LedgerRepository ---

func (r *Repository) SaveBallot(ctx context.Context, entry entities.BallotEntry) error {
	row := ballotModel{
		DecisionID: strings.TrimSpace(entry.DecisionID),
		ActorID:    strings.TrimSpace(entry.ActorID),
		ProposalID: strings.TrimSpace(entry.ProposalID),
		CreatedAt:  entry.CreatedAt.UTC(),
		UpdatedAt:  entry.UpdatedAt.UTC(),
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "decision_id"}, {Name: "actor_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"proposal_id": row.ProposalID,
			"updated_at":  row.UpdatedAt,
		}),
	}).Create(&row)
	if tx.Error != nil {
		return r.logError("decision_repo_save_ballot_failed", tx.Error,
			"decision_id", row.DecisionID,
			"actor_id", row.ActorID,
		)
	}
	return nil
}

func (r *Repository) ListBallots(ctx context.Context, decisionID string) ([]entities.BallotEntry, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_ballots_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	items := make([]entities.BallotEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.BallotEntry{
			DecisionID: row.DecisionID,
			ActorID:    row.ActorID,
			ProposalID: row.ProposalID,
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
		})
	}
	return items, nil
}

func (r *Repository) SaveConsensusEntry(ctx context.Context, entry entities.ConsensusEntry) error {
	row := consensusModel{
		DecisionID: strings.TrimSpace(entry.DecisionID),
		ActorID:    strings.TrimSpace(entry.ActorID),
		Value:      string(entry.Value),
		CreatedAt:  entry.CreatedAt.UTC(),
		UpdatedAt:  entry.UpdatedAt.UTC(),
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "decision_id"}, {Name: "actor_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if tx.Error != nil {
		return r.logError("decision_repo_save_consensus_failed", tx.Error,
			"decision_id", row.DecisionID,
			"actor_id", row.ActorID,
		)
	}
	return nil
}

func (r *Repository) ListConsensusEntries(ctx context.Context, decisionID string) ([]entities.ConsensusEntry, error) {
	var rows []consensusModel
	if err := r.db.WithContext(ctx).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_consensus_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	items := make([]entities.ConsensusEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.ConsensusEntry{
			DecisionID: row.DecisionID,
			ActorID:    row.ActorID,
			Value:      entities.ConsensusValue(row.Value),
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
		})
	}
	return items, nil
}

func (r *Repository) SaveMentionSet(ctx context.Context, set entities.MentionSet) error {
	payload, err := json.Marshal(set.Mentions)
	if err != nil {
		return err
	}
	row := mentionSetModel{
		DecisionID: strings.TrimSpace(set.DecisionID),
		ActorID:    strings.TrimSpace(set.ActorID),
		Mentions:   payload,
		CreatedAt:  set.CreatedAt.UTC(),
		UpdatedAt:  set.UpdatedAt.UTC(),
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "decision_id"}, {Name: "actor_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"mentions":   row.Mentions,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if tx.Error != nil {
		return r.logError("decision_repo_save_mention_set_failed", tx.Error,
			"decision_id", row.DecisionID,
			"actor_id", row.ActorID,
		)
	}
	return nil
}

func (r *Repository) ListMentionSets(ctx context.Context, decisionID string) ([]entities.MentionSet, error) {
	var rows []mentionSetModel
	if err := r.db.WithContext(ctx).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_mention_sets_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	items := make([]entities.MentionSet, 0, len(rows))
	for _, row := range rows {
		var mentions map[string]string
		if err := json.Unmarshal(row.Mentions, &mentions); err != nil {
			return nil, r.logError("decision_repo_decode_mention_set_failed", err,
				"decision_id", row.DecisionID,
				"actor_id", row.ActorID,
			)
		}
		items = append(items, entities.MentionSet{
			DecisionID: row.DecisionID,
			ActorID:    row.ActorID,
			Mentions:   mentions,
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
		})
	}
	return items, nil
}

func (r *Repository) SaveOpinion(ctx context.Context, entry entities.OpinionEntry) error {
	row := opinionModel{
		DecisionID: strings.TrimSpace(entry.DecisionID),
		ActorID:    strings.TrimSpace(entry.ActorID),
		Text:       entry.Text,
		CreatedAt:  entry.CreatedAt.UTC(),
		UpdatedAt:  entry.UpdatedAt.UTC(),
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "decision_id"}, {Name: "actor_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"text":       row.Text,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if tx.Error != nil {
		return r.logError("decision_repo_save_opinion_failed", tx.Error,
			"decision_id", row.DecisionID,
			"actor_id", row.ActorID,
		)
	}
	return nil
}

func (r *Repository) ListOpinions(ctx context.Context, decisionID string) ([]entities.OpinionEntry, error) {
	var rows []opinionModel
	if err := r.db.WithContext(ctx).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_opinions_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	items := make([]entities.OpinionEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.OpinionEntry{
			DecisionID: row.DecisionID,
			ActorID:    row.ActorID,
			Text:       row.Text,
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
		})
	}
	return items, nil
}

func (r *Repository) SaveObjection(ctx context.Context, entry entities.ObjectionEntry) error {
	row := objectionModel{
		DecisionID: strings.TrimSpace(entry.DecisionID),
		ActorID:    strings.TrimSpace(entry.ActorID),
		Status:     string(entry.Status),
		Reason:     entry.Reason,
		Withdrawn:  entry.Withdrawn,
		CreatedAt:  entry.CreatedAt.UTC(),
		UpdatedAt:  entry.UpdatedAt.UTC(),
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "decision_id"}, {Name: "actor_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":     row.Status,
			"reason":     row.Reason,
			"withdrawn":  row.Withdrawn,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if tx.Error != nil {
		return r.logError("decision_repo_save_objection_failed", tx.Error,
			"decision_id", row.DecisionID,
			"actor_id", row.ActorID,
		)
	}
	return nil
}

func (r *Repository) GetObjection(ctx context.Context, decisionID string, actorID string) (entities.ObjectionEntry, bool, error) {
	var row objectionModel
	err := r.db.WithContext(ctx).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Where("actor_id = ?", strings.TrimSpace(actorID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ObjectionEntry{}, false, nil
		}
		return entities.ObjectionEntry{}, false, r.logError("decision_repo_get_objection_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
			"actor_id", strings.TrimSpace(actorID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListObjections(ctx context.Context, decisionID string) ([]entities.ObjectionEntry, error) {
	var rows []objectionModel
	if err := r.db.WithContext(ctx).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_objections_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	items := make([]entities.ObjectionEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendQuestion(ctx context.Context, question entities.ClarificationQuestion) error {
	row := questionModel{
		ID:         strings.TrimSpace(question.QuestionID),
		DecisionID: strings.TrimSpace(question.DecisionID),
		ActorID:    strings.TrimSpace(question.ActorID),
		Question:   question.Question,
		AskedAt:    question.AskedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("decision_repo_append_question_failed", err,
			"question_id", row.ID,
			"decision_id", row.DecisionID,
		)
	}
	return nil
}

func (r *Repository) GetQuestion(ctx context.Context, questionID string) (entities.ClarificationQuestion, error) {
	var row questionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(questionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ClarificationQuestion{}, domainerrors.ErrQuestionNotFound
		}
		return entities.ClarificationQuestion{}, r.logError("decision_repo_get_question_failed", err,
			"question_id", strings.TrimSpace(questionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListQuestions(ctx context.Context, decisionID string) ([]entities.ClarificationQuestion, error) {
	var rows []questionModel
	if err := r.db.WithContext(ctx).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Order("asked_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_questions_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	items := make([]entities.ClarificationQuestion, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// AnswerQuestion fills the answer only while it is still null; RowsAffected
// reports whether this writer won the one-time fill.
func (r *Repository) AnswerQuestion(
	ctx context.Context,
	questionID string,
	answer string,
	answeredBy string,
	answeredAt time.Time,
) (bool, error) {
	update := r.db.WithContext(ctx).
		Model(&questionModel{}).
		Where("id = ?", strings.TrimSpace(questionID)).
		Where("answer IS NULL").
		Updates(map[string]any{
			"answer":      answer,
			"answered_by": answeredBy,
			"answered_at": answeredAt.UTC(),
		})
	if update.Error != nil {
		return false, r.logError("decision_repo_answer_question_failed", update.Error,
			"question_id", strings.TrimSpace(questionID),
		)
	}
	return update.RowsAffected > 0, nil
}

func (r *Repository) SaveConsentState(ctx context.Context, state entities.ConsentProposalState) error {
	row := consentStateModel{
		DecisionID:  strings.TrimSpace(state.DecisionID),
		InitialText: state.InitialText,
		CurrentText: state.CurrentText,
	}
	if state.Action != nil {
		action := string(*state.Action)
		row.Action = &action
	}
	if state.ActedAt != nil {
		at := state.ActedAt.UTC()
		row.ActedAt = &at
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "decision_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"initial_text": row.InitialText,
			"current_text": row.CurrentText,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("decision_repo_save_consent_state_failed", create.Error,
			"decision_id", row.DecisionID,
		)
	}
	return nil
}

func (r *Repository) GetConsentState(ctx context.Context, decisionID string) (entities.ConsentProposalState, bool, error) {
	var row consentStateModel
	err := r.db.WithContext(ctx).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ConsentProposalState{}, false, nil
		}
		return entities.ConsentProposalState{}, false, r.logError("decision_repo_get_consent_state_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	return row.toEntity(), true, nil
}

// RecordAmendment is the one-shot creator action: the update only applies
// while action is still null, so the first write wins and every later attempt
// reports a conflict to the caller.
func (r *Repository) RecordAmendment(
	ctx context.Context,
	decisionID string,
	action entities.AmendmentAction,
	text string,
	actedAt time.Time,
) (bool, error) {
	updates := map[string]any{
		"action":   string(action),
		"acted_at": actedAt.UTC(),
	}
	if action == entities.AmendmentActionAmended {
		updates["current_text"] = text
	}
	update := r.db.WithContext(ctx).
		Model(&consentStateModel{}).
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Where("action IS NULL").
		Updates(updates)
	if update.Error != nil {
		return false, r.logError("decision_repo_record_amendment_failed", update.Error,
			"decision_id", strings.TrimSpace(decisionID),
			"action", string(action),
		)
	}
	return update.RowsAffected > 0, nil
}

// --- OutboxWriter / OutboxRepository ---

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("decision_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}
	row := outboxModel{
		ID:        strings.TrimSpace(envelope.EventID),
		EventType: strings.TrimSpace(envelope.EventType),
		Payload:   payload,
		Status:    outboxStatusPending,
		CreatedAt: envelope.OccurredAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return r.logError("decision_repo_append_outbox_failed", err,
			"event_id", row.ID,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("decision_repo_list_pending_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			ID:        row.ID,
			EventType: row.EventType,
			Payload:   row.Payload,
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		}).Error; err != nil {
		return r.logError("decision_repo_mark_outbox_published_failed", err,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "deliberation/decision-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("decision repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
