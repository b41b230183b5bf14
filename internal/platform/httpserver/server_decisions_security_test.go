package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	decisionengine "quorum/contexts/deliberation/decision-engine"
	"quorum/internal/platform/token"
)

func newTestServer() *Server {
	return New(
		decisionengine.NewInMemoryModule(nil),
		token.NewIssuer("unit-test-secret", time.Hour),
		nil,
		":0",
	)
}

func createOpenDecision(t *testing.T, server *Server) string {
	t.Helper()
	body := []byte(`{"title":"pick a venue","protocol":"majority","voting_mode":"public_anonymous"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/decisions/v1/decisions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "creator-sec-1")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create decision: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created struct {
		DecisionID string `json:"decision_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	for _, text := range []string{"venue a", "venue b"} {
		proposalBody := []byte(fmt.Sprintf(`{"text":%q}`, text))
		proposalReq := httptest.NewRequest(http.MethodPost, "/api/decisions/v1/decisions/"+created.DecisionID+"/proposals", bytes.NewReader(proposalBody))
		proposalReq.Header.Set("Content-Type", "application/json")
		proposalReq.Header.Set("X-User-Id", "creator-sec-1")
		proposalRR := httptest.NewRecorder()
		server.mux.ServeHTTP(proposalRR, proposalReq)
		if proposalRR.Code != http.StatusCreated {
			t.Fatalf("add proposal: expected 201, got %d body=%s", proposalRR.Code, proposalRR.Body.String())
		}
	}

	launchReq := httptest.NewRequest(http.MethodPost, "/api/decisions/v1/decisions/"+created.DecisionID+"/launch", nil)
	launchReq.Header.Set("X-User-Id", "creator-sec-1")
	launchRR := httptest.NewRecorder()
	server.mux.ServeHTTP(launchRR, launchReq)
	if launchRR.Code != http.StatusOK {
		t.Fatalf("launch: expected 200, got %d body=%s", launchRR.Code, launchRR.Body.String())
	}
	return created.DecisionID
}

func TestDecisionCreateRequiresActorIdentity(t *testing.T) {
	server := newTestServer()
	body := []byte(`{"title":"anonymous draft","protocol":"majority"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/decisions/v1/decisions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDecisionCreateRejectsMalformedBody(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/decisions/v1/decisions", bytes.NewReader([]byte(`{"title":`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "creator-sec-1")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDecisionCreateStripsMarkupFromTitle(t *testing.T) {
	server := newTestServer()
	body := []byte(`{"title":"<b>team</b> offsite","protocol":"majority"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/decisions/v1/decisions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "creator-sec-1")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Title != "team offsite" {
		t.Fatalf("markup must be stripped, got %q", created.Title)
	}
}

func TestDecisionBallotAcceptsScopedBearerToken(t *testing.T) {
	server := newTestServer()
	decisionID := createOpenDecision(t, server)

	signed, err := server.tokens.Issue("external-sec-1", decisionID, time.Now().UTC())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	tallyReq := httptest.NewRequest(http.MethodGet, "/api/decisions/v1/decisions/"+decisionID+"/tally", nil)
	tallyRR := httptest.NewRecorder()
	server.mux.ServeHTTP(tallyRR, tallyReq)
	if tallyRR.Code != http.StatusOK {
		t.Fatalf("tally read: expected 200, got %d body=%s", tallyRR.Code, tallyRR.Body.String())
	}
	var tally struct {
		Plurality struct {
			Counts []struct {
				ProposalID string `json:"proposal_id"`
			} `json:"counts"`
		} `json:"plurality"`
	}
	if err := json.Unmarshal(tallyRR.Body.Bytes(), &tally); err != nil {
		t.Fatalf("decode tally: %v", err)
	}
	if len(tally.Plurality.Counts) == 0 {
		t.Fatalf("expected proposal rows in tally, got %s", tallyRR.Body.String())
	}

	ballotBody := []byte(fmt.Sprintf(`{"proposal_id":%q}`, tally.Plurality.Counts[0].ProposalID))
	req := httptest.NewRequest(http.MethodPost, "/api/decisions/v1/decisions/"+decisionID+"/ballot", bytes.NewReader(ballotBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signed)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDecisionBallotRejectsTokenScopedToAnotherDecision(t *testing.T) {
	server := newTestServer()
	decisionID := createOpenDecision(t, server)

	signed, err := server.tokens.Issue("external-sec-2", "some-other-decision", time.Now().UTC())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/decisions/v1/decisions/"+decisionID+"/ballot", bytes.NewReader([]byte(`{"proposal_id":"p-1"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signed)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDecisionBallotRejectsForgedToken(t *testing.T) {
	server := newTestServer()
	decisionID := createOpenDecision(t, server)

	forger := token.NewIssuer("wrong-secret", time.Hour)
	signed, err := forger.Issue("attacker-1", decisionID, time.Now().UTC())
	if err != nil {
		t.Fatalf("issue forged token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/decisions/v1/decisions/"+decisionID+"/ballot", bytes.NewReader([]byte(`{"proposal_id":"p-1"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signed)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDecisionWithdrawForbiddenForNonCreator(t *testing.T) {
	server := newTestServer()
	decisionID := createOpenDecision(t, server)

	req := httptest.NewRequest(http.MethodPost, "/api/decisions/v1/decisions/"+decisionID+"/withdraw", nil)
	req.Header.Set("X-User-Id", "someone-else")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}
