package errors

import "errors"

var (
	ErrDecisionNotFound     = errors.New("decision not found")
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrQuestionNotFound     = errors.New("clarification question not found")
	ErrObjectionNotFound    = errors.New("objection entry not found")
	ErrNotEligible          = errors.New("actor is not an eligible participant")
	ErrNotCreator           = errors.New("operation is reserved to the decision creator")
	ErrStageClosed          = errors.New("entry kind is not permitted in the current stage or status")
	ErrIncompleteSubmission = errors.New("mention set must rate every proposal")
	ErrAlreadyDecided       = errors.New("one-shot field has already been written")
	ErrAlreadyAnswered      = errors.New("clarification question is already answered")
	ErrInvalidConfiguration = errors.New("invalid decision configuration")
	ErrInvalidInput         = errors.New("invalid submission input")
	ErrDecisionNotDraft     = errors.New("decision is not in draft")
	ErrDecisionNotOpen      = errors.New("decision is not open")
	ErrAdviceIncomplete     = errors.New("advice conclusion requires all solicited opinions")
	ErrConflict             = errors.New("concurrent write conflict")
)
