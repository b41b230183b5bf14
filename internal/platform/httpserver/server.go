package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	decisionengine "quorum/contexts/deliberation/decision-engine"
	"quorum/internal/platform/token"

	"github.com/microcosm-cc/bluemonday"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "quorum/internal/platform/httpserver/docs"
)

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	decisions decisionengine.Module
	tokens    *token.Issuer
	sanitizer *bluemonday.Policy
}

func New(
	decisions decisionengine.Module,
	tokens *token.Issuer,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		decisions: decisions,
		tokens:    tokens,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.registerDecisionRoutes()
}

// resolveActor extracts the acting identity: platform users arrive with an
// X-User-Id set by the gateway, external participants with a signed bearer
// token scoped to one decision.
func (s *Server) resolveActor(r *http.Request, decisionID string) (string, bool) {
	if userID := strings.TrimSpace(r.Header.Get("X-User-Id")); userID != "" {
		return userID, true
	}
	bearer := r.Header.Get("Authorization")
	if s.tokens == nil || !s.tokens.Enabled() || !strings.HasPrefix(bearer, "Bearer ") {
		return "", false
	}
	actorID, scopedDecision, err := s.tokens.Verify(strings.TrimPrefix(bearer, "Bearer "))
	if err != nil {
		return "", false
	}
	if scopedDecision != "" && decisionID != "" && scopedDecision != decisionID {
		return "", false
	}
	return actorID, true
}

// sanitize strips markup from participant-supplied free text before it
// reaches the ledger.
func (s *Server) sanitize(text string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
