package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"quorum/contexts/deliberation/decision-engine/domain/entities"
	domainerrors "quorum/contexts/deliberation/decision-engine/domain/errors"
	"quorum/contexts/deliberation/decision-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter behind every engine port. It backs tests and
// local development; mutex-guarded maps stand in for the storage engine's
// per-key atomic writes.
type Store struct {
	mu sync.RWMutex

	decisions     map[string]entities.Decision
	proposals     map[string]entities.Proposal
	participants  map[string]entities.Participant
	ballots       map[string]entities.BallotEntry
	consensus     map[string]entities.ConsensusEntry
	mentionSets   map[string]entities.MentionSet
	opinions      map[string]entities.OpinionEntry
	objections    map[string]entities.ObjectionEntry
	questions     map[string]entities.ClarificationQuestion
	consentStates map[string]entities.ConsentProposalState
	outbox        map[string]outboxRecord
	tallies       map[string][]byte

	nowOverride *time.Time
}

func NewStore() *Store {
	return &Store{
		decisions:     make(map[string]entities.Decision),
		proposals:     make(map[string]entities.Proposal),
		participants:  make(map[string]entities.Participant),
		ballots:       make(map[string]entities.BallotEntry),
		consensus:     make(map[string]entities.ConsensusEntry),
		mentionSets:   make(map[string]entities.MentionSet),
		opinions:      make(map[string]entities.OpinionEntry),
		objections:    make(map[string]entities.ObjectionEntry),
		questions:     make(map[string]entities.ClarificationQuestion),
		consentStates: make(map[string]entities.ConsentProposalState),
		outbox:        make(map[string]outboxRecord),
		tallies:       make(map[string][]byte),
	}
}

func ledgerKey(decisionID, actorID string) string {
	return strings.TrimSpace(decisionID) + "|" + strings.TrimSpace(actorID)
}

// SetNow pins the store's clock for deterministic stage and deadline tests.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pinned := now.UTC()
	s.nowOverride = &pinned
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.nowOverride != nil {
		return *s.nowOverride
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// --- DecisionRepository ---

func (s *Store) SaveDecision(_ context.Context, decision entities.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[strings.TrimSpace(decision.DecisionID)] = decision
	return nil
}

func (s *Store) GetDecision(_ context.Context, decisionID string) (entities.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	decision, ok := s.decisions[strings.TrimSpace(decisionID)]
	if !ok {
		return entities.Decision{}, domainerrors.ErrDecisionNotFound
	}
	return decision, nil
}

func (s *Store) CloseDecision(
	_ context.Context,
	decisionID string,
	result entities.Result,
	closedAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	decision, ok := s.decisions[strings.TrimSpace(decisionID)]
	if !ok {
		return false, domainerrors.ErrDecisionNotFound
	}
	if decision.Status != entities.DecisionStatusOpen {
		return false, nil
	}
	decision.Status = entities.DecisionStatusClosed
	decision.Result = &result
	decision.UpdatedAt = closedAt.UTC()
	s.decisions[decision.DecisionID] = decision
	return true, nil
}

func (s *Store) ListOpenDecisions(_ context.Context, deadline time.Time) ([]entities.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.Decision
	for _, decision := range s.decisions {
		if decision.Status != entities.DecisionStatusOpen || decision.EndsAt == nil {
			continue
		}
		if !decision.EndsAt.UTC().After(deadline.UTC()) {
			items = append(items, decision)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].DecisionID < items[j].DecisionID })
	return items, nil
}

func (s *Store) SaveProposal(_ context.Context, proposal entities.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[strings.TrimSpace(proposal.ProposalID)] = proposal
	return nil
}

func (s *Store) ListProposals(_ context.Context, decisionID string) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.Proposal
	for _, proposal := range s.proposals {
		if proposal.DecisionID == strings.TrimSpace(decisionID) {
			items = append(items, proposal)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].DisplayOrder < items[j].DisplayOrder })
	return items, nil
}

// --- ParticipantRegistry ---

func (s *Store) RegisterParticipant(_ context.Context, participant entities.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey(participant.DecisionID, participant.ActorID)
	if existing, ok := s.participants[key]; ok {
		// One record per (decision, actor): keep the original registration.
		participant.HasActed = existing.HasActed
		participant.AddedAt = existing.AddedAt
	}
	s.participants[key] = participant
	return nil
}

func (s *Store) GetParticipant(_ context.Context, decisionID string, actorID string) (entities.Participant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.participants[ledgerKey(decisionID, actorID)]
	return participant, ok, nil
}

func (s *Store) ListParticipants(_ context.Context, decisionID string) ([]entities.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.Participant
	for _, participant := range s.participants {
		if participant.DecisionID == strings.TrimSpace(decisionID) {
			items = append(items, participant)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ActorID < items[j].ActorID })
	return items, nil
}

func (s *Store) MarkActed(_ context.Context, decisionID string, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey(decisionID, actorID)
	participant, ok := s.participants[key]
	if !ok {
		return domainerrors.ErrNotEligible
	}
	participant.HasActed = true
	s.participants[key] = participant
	return nil
}

// --- LedgerRepository ---

func (s *Store) SaveBallot(_ context.Context, entry entities.BallotEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey(entry.DecisionID, entry.ActorID)
	if existing, ok := s.ballots[key]; ok {
		entry.CreatedAt = existing.CreatedAt
	}
	s.ballots[key] = entry
	return nil
}

func (s *Store) ListBallots(_ context.Context, decisionID string) ([]entities.BallotEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.BallotEntry
	for _, entry := range s.ballots {
		if entry.DecisionID == strings.TrimSpace(decisionID) {
			items = append(items, entry)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ActorID < items[j].ActorID })
	return items, nil
}

func (s *Store) SaveConsensusEntry(_ context.Context, entry entities.ConsensusEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey(entry.DecisionID, entry.ActorID)
	if existing, ok := s.consensus[key]; ok {
		entry.CreatedAt = existing.CreatedAt
	}
	s.consensus[key] = entry
	return nil
}

func (s *Store) ListConsensusEntries(_ context.Context, decisionID string) ([]entities.ConsensusEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.ConsensusEntry
	for _, entry := range s.consensus {
		if entry.DecisionID == strings.TrimSpace(decisionID) {
			items = append(items, entry)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ActorID < items[j].ActorID })
	return items, nil
}

func (s *Store) SaveMentionSet(_ context.Context, set entities.MentionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey(set.DecisionID, set.ActorID)
	if existing, ok := s.mentionSets[key]; ok {
		set.CreatedAt = existing.CreatedAt
	}
	s.mentionSets[key] = set
	return nil
}

func (s *Store) ListMentionSets(_ context.Context, decisionID string) ([]entities.MentionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.MentionSet
	for _, set := range s.mentionSets {
		if set.DecisionID == strings.TrimSpace(decisionID) {
			items = append(items, set)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ActorID < items[j].ActorID })
	return items, nil
}

func (s *Store) SaveOpinion(_ context.Context, entry entities.OpinionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey(entry.DecisionID, entry.ActorID)
	if existing, ok := s.opinions[key]; ok {
		entry.CreatedAt = existing.CreatedAt
	}
	s.opinions[key] = entry
	return nil
}

func (s *Store) ListOpinions(_ context.Context, decisionID string) ([]entities.OpinionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.OpinionEntry
	for _, entry := range s.opinions {
		if entry.DecisionID == strings.TrimSpace(decisionID) {
			items = append(items, entry)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ActorID < items[j].ActorID })
	return items, nil
}

func (s *Store) SaveObjection(_ context.Context, entry entities.ObjectionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey(entry.DecisionID, entry.ActorID)
	if existing, ok := s.objections[key]; ok {
		entry.CreatedAt = existing.CreatedAt
	}
	s.objections[key] = entry
	return nil
}

func (s *Store) GetObjection(_ context.Context, decisionID string, actorID string) (entities.ObjectionEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.objections[ledgerKey(decisionID, actorID)]
	return entry, ok, nil
}

func (s *Store) ListObjections(_ context.Context, decisionID string) ([]entities.ObjectionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.ObjectionEntry
	for _, entry := range s.objections {
		if entry.DecisionID == strings.TrimSpace(decisionID) {
			items = append(items, entry)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ActorID < items[j].ActorID })
	return items, nil
}

func (s *Store) AppendQuestion(_ context.Context, question entities.ClarificationQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[strings.TrimSpace(question.QuestionID)] = question
	return nil
}

func (s *Store) GetQuestion(_ context.Context, questionID string) (entities.ClarificationQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[strings.TrimSpace(questionID)]
	if !ok {
		return entities.ClarificationQuestion{}, domainerrors.ErrQuestionNotFound
	}
	return question, nil
}

func (s *Store) ListQuestions(_ context.Context, decisionID string) ([]entities.ClarificationQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.ClarificationQuestion
	for _, question := range s.questions {
		if question.DecisionID == strings.TrimSpace(decisionID) {
			items = append(items, question)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AskedAt.Before(items[j].AskedAt) })
	return items, nil
}

func (s *Store) AnswerQuestion(
	_ context.Context,
	questionID string,
	answer string,
	answeredBy string,
	answeredAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	question, ok := s.questions[strings.TrimSpace(questionID)]
	if !ok {
		return false, domainerrors.ErrQuestionNotFound
	}
	if question.Answer != nil {
		return false, nil
	}
	at := answeredAt.UTC()
	question.Answer = &answer
	question.AnsweredBy = answeredBy
	question.AnsweredAt = &at
	s.questions[question.QuestionID] = question
	return true, nil
}

func (s *Store) SaveConsentState(_ context.Context, state entities.ConsentProposalState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consentStates[strings.TrimSpace(state.DecisionID)] = state
	return nil
}

func (s *Store) GetConsentState(_ context.Context, decisionID string) (entities.ConsentProposalState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.consentStates[strings.TrimSpace(decisionID)]
	return state, ok, nil
}

func (s *Store) RecordAmendment(
	_ context.Context,
	decisionID string,
	action entities.AmendmentAction,
	text string,
	actedAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.consentStates[strings.TrimSpace(decisionID)]
	if !ok {
		return false, domainerrors.ErrDecisionNotFound
	}
	if state.Action != nil {
		return false, nil
	}
	at := actedAt.UTC()
	state.Action = &action
	state.ActedAt = &at
	if action == entities.AmendmentActionAmended {
		state.CurrentText = text
	}
	s.consentStates[state.DecisionID] = state
	return true, nil
}

// --- OutboxWriter / OutboxRepository ---

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(envelope.EventID)
	if id == "" {
		id = uuid.NewString()
	}
	s.outbox[id] = outboxRecord{
		message: ports.OutboxMessage{
			ID:        id,
			EventType: envelope.EventType,
			Payload:   payload,
			CreatedAt: envelope.OccurredAt.UTC(),
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []ports.OutboxMessage
	for _, record := range s.outbox {
		if !record.published {
			items = append(items, record.message)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return nil
	}
	record.published = true
	s.outbox[outboxID] = record
	return nil
}

// --- TallyCache ---

func (s *Store) GetTally(_ context.Context, decisionID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.tallies[strings.TrimSpace(decisionID)]
	return payload, ok, nil
}

func (s *Store) PutTally(_ context.Context, decisionID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tallies[strings.TrimSpace(decisionID)] = payload
	return nil
}

func (s *Store) InvalidateTally(_ context.Context, decisionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tallies, strings.TrimSpace(decisionID))
	return nil
}
