package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	decisionerrors "quorum/contexts/deliberation/decision-engine/domain/errors"
	decisionhttp "quorum/contexts/deliberation/decision-engine/transport/http"
)

func (s *Server) registerDecisionRoutes() {
	s.mux.HandleFunc("POST /api/decisions/v1/decisions", s.handleCreateDecision)
	s.mux.HandleFunc("GET /api/decisions/v1/decisions/{decision_id}", s.handleGetDecision)
	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/proposals", s.handleAddProposal)
	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/launch", s.handleLaunchDecision)
	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/withdraw", s.handleWithdrawDecision)
	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/conclude", s.handleConcludeAdvice)

	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/ballot", s.handleSubmitBallot)
	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/consensus", s.handleSubmitConsensus)
	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/mentions", s.handleSubmitMentionSet)
	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/opinion", s.handleSubmitOpinion)
	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/objection", s.handleSubmitObjection)
	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/objection/withdraw", s.handleWithdrawObjection)

	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/questions", s.handleAskQuestion)
	s.mux.HandleFunc("GET /api/decisions/v1/decisions/{decision_id}/questions", s.handleListQuestions)
	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/questions/{question_id}/answer", s.handleAnswerQuestion)
	s.mux.HandleFunc("POST /api/decisions/v1/decisions/{decision_id}/amendment", s.handleAmendProposal)
	s.mux.HandleFunc("GET /api/decisions/v1/decisions/{decision_id}/proposal-state", s.handleProposalState)

	s.mux.HandleFunc("GET /api/decisions/v1/decisions/{decision_id}/tally", s.handleTally)
	s.mux.HandleFunc("GET /api/decisions/v1/decisions/{decision_id}/stage", s.handleStage)
}

func (s *Server) handleCreateDecision(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.resolveActor(r, "")
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	var req decisionhttp.CreateDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecisionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.Title = s.sanitize(req.Title)
	req.ProposalText = s.sanitize(req.ProposalText)

	resp, err := s.decisions.Handler.CreateDecisionHandler(r.Context(), actorID, req)
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	resp, err := s.decisions.Handler.GetDecisionHandler(r.Context(), r.PathValue("decision_id"))
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddProposal(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	var req decisionhttp.AddProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecisionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.Text = s.sanitize(req.Text)

	resp, err := s.decisions.Handler.AddProposalHandler(r.Context(), actorID, decisionID, req)
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleLaunchDecision(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	resp, err := s.decisions.Handler.LaunchDecisionHandler(r.Context(), actorID, decisionID)
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawDecision(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	if err := s.decisions.Handler.WithdrawDecisionHandler(r.Context(), actorID, decisionID); err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConcludeAdvice(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	var req decisionhttp.ConcludeAdviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecisionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.Conclusion = s.sanitize(req.Conclusion)

	if err := s.decisions.Handler.ConcludeAdviceHandler(r.Context(), actorID, decisionID, req); err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitBallot(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	var req decisionhttp.SubmitBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecisionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.decisions.Handler.SubmitBallotHandler(r.Context(), actorID, decisionID, req)
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitConsensus(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	var req decisionhttp.SubmitConsensusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecisionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.decisions.Handler.SubmitConsensusHandler(r.Context(), actorID, decisionID, req)
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitMentionSet(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	var req decisionhttp.SubmitMentionSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecisionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.decisions.Handler.SubmitMentionSetHandler(r.Context(), actorID, decisionID, req)
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitOpinion(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	var req decisionhttp.SubmitOpinionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecisionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.Text = s.sanitize(req.Text)

	resp, err := s.decisions.Handler.SubmitOpinionHandler(r.Context(), actorID, decisionID, req)
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitObjection(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	var req decisionhttp.SubmitObjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecisionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.Reason = s.sanitize(req.Reason)

	resp, err := s.decisions.Handler.SubmitObjectionHandler(r.Context(), actorID, decisionID, req)
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawObjection(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	if err := s.decisions.Handler.WithdrawObjectionHandler(r.Context(), actorID, decisionID); err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAskQuestion(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	var req decisionhttp.AskQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecisionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.Question = s.sanitize(req.Question)

	resp, err := s.decisions.Handler.AskQuestionHandler(r.Context(), actorID, decisionID, req)
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.decisions.Handler.QuestionsHandler(r.Context(), r.PathValue("decision_id"))
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnswerQuestion(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	var req decisionhttp.AnswerQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecisionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.Answer = s.sanitize(req.Answer)

	err := s.decisions.Handler.AnswerQuestionHandler(
		r.Context(),
		actorID,
		decisionID,
		r.PathValue("question_id"),
		req,
	)
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAmendProposal(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	actorID, ok := s.resolveActor(r, decisionID)
	if !ok {
		writeDecisionError(w, http.StatusUnauthorized, "missing_actor", "X-User-Id header or bearer token is required")
		return
	}
	var req decisionhttp.AmendProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecisionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.Text = s.sanitize(req.Text)

	resp, err := s.decisions.Handler.AmendProposalHandler(r.Context(), actorID, decisionID, req)
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProposalState(w http.ResponseWriter, r *http.Request) {
	resp, err := s.decisions.Handler.ProposalStateHandler(r.Context(), r.PathValue("decision_id"))
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	resp, err := s.decisions.Handler.TallyHandler(r.Context(), r.PathValue("decision_id"))
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	resp, err := s.decisions.Handler.StageHandler(r.Context(), r.PathValue("decision_id"))
	if err != nil {
		writeDecisionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeDecisionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, decisionerrors.ErrDecisionNotFound):
		writeDecisionError(w, http.StatusNotFound, "decision_not_found", err.Error())
	case errors.Is(err, decisionerrors.ErrProposalNotFound):
		writeDecisionError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, decisionerrors.ErrQuestionNotFound):
		writeDecisionError(w, http.StatusNotFound, "question_not_found", err.Error())
	case errors.Is(err, decisionerrors.ErrObjectionNotFound):
		writeDecisionError(w, http.StatusNotFound, "objection_not_found", err.Error())
	case errors.Is(err, decisionerrors.ErrNotEligible):
		writeDecisionError(w, http.StatusForbidden, "not_eligible", err.Error())
	case errors.Is(err, decisionerrors.ErrNotCreator):
		writeDecisionError(w, http.StatusForbidden, "not_creator", err.Error())
	case errors.Is(err, decisionerrors.ErrStageClosed):
		writeDecisionError(w, http.StatusConflict, "stage_closed", err.Error())
	case errors.Is(err, decisionerrors.ErrAlreadyDecided):
		writeDecisionError(w, http.StatusConflict, "already_decided", err.Error())
	case errors.Is(err, decisionerrors.ErrAlreadyAnswered):
		writeDecisionError(w, http.StatusConflict, "already_answered", err.Error())
	case errors.Is(err, decisionerrors.ErrConflict):
		writeDecisionError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, decisionerrors.ErrDecisionNotDraft):
		writeDecisionError(w, http.StatusConflict, "decision_not_draft", err.Error())
	case errors.Is(err, decisionerrors.ErrDecisionNotOpen):
		writeDecisionError(w, http.StatusConflict, "decision_not_open", err.Error())
	case errors.Is(err, decisionerrors.ErrAdviceIncomplete):
		writeDecisionError(w, http.StatusConflict, "advice_incomplete", err.Error())
	case errors.Is(err, decisionerrors.ErrIncompleteSubmission):
		writeDecisionError(w, http.StatusUnprocessableEntity, "incomplete_submission", err.Error())
	case errors.Is(err, decisionerrors.ErrInvalidConfiguration):
		writeDecisionError(w, http.StatusUnprocessableEntity, "invalid_configuration", err.Error())
	case errors.Is(err, decisionerrors.ErrInvalidInput):
		writeDecisionError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writeDecisionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeDecisionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, decisionhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
