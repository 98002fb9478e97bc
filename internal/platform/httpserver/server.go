package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	electionledger "electionledger/contexts/governance/election-ledger"
	graphqladapter "electionledger/contexts/governance/election-ledger/adapters/graphql"
	domainerrors "electionledger/contexts/governance/election-ledger/domain/errors"
	electionhttp "electionledger/contexts/governance/election-ledger/transport/http"
	_ "electionledger/internal/platform/httpserver/docs"

	"github.com/graphql-go/handler"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	ledger  electionledger.Module
	metrics http.Handler
	graphql http.Handler
	http    *http.Server
}

func New(
	ledgerModule electionledger.Module,
	metricsHandler http.Handler,
	logger *slog.Logger,
	addr string,
) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	schema, err := graphqladapter.NewSchema(ledgerModule.Handler)
	if err != nil {
		return nil, err
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		ledger:  ledgerModule,
		metrics: metricsHandler,
		graphql: handler.New(&handler.Config{
			Schema: &schema,
			Pretty: true,
		}),
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down",
		"event", "http_server_shutdown",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	s.mux.HandleFunc("/graphql", s.handleGraphQL)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /v1/ledger/init", s.handleInitLedger)
	s.mux.HandleFunc("POST /v1/elections", s.handleCreateElection)
	s.mux.HandleFunc("GET /v1/elections", s.handleListElections)
	s.mux.HandleFunc("GET /v1/elections/{election_id}", s.handleGetElection)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/candidates", s.handleAddCandidate)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/candidates", s.handleListCandidates)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/votes", s.handleVote)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/voters", s.handleListVoters)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/candidates/{candidate_id}/voters", s.handleListCandidateVoters)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/results", s.handleResults)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/audit", s.handleAudit)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	ctx := graphqladapter.WithCaller(r.Context(), r.Header.Get("X-User-Id"))
	s.graphql.ServeHTTP(w, r.WithContext(ctx))
}

func (s *Server) handleInitLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req electionhttp.InitLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.InitLedgerHandler(r.Context(), req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	s.logger.Info("election ledger initialized over http",
		"event", "election_ledger_init_http",
		"module", "governance/election-ledger",
		"layer", "transport",
		"caller_id", userID,
	)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req electionhttp.CreateElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.CreateElectionHandler(r.Context(), userID, req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListElections(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.ListElectionsHandler(r.Context())
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.GetElectionHandler(r.Context(), electionID)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}
	var req electionhttp.AddCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.AddCandidateHandler(r.Context(), userID, electionID, req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.CandidatesHandler(r.Context(), electionID)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}
	var req electionhttp.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.VoteHandler(r.Context(), userID, electionID, req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListVoters(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}
	candidateID := strings.TrimSpace(r.URL.Query().Get("candidate_id"))
	resp, err := s.ledger.Handler.VotersHandler(r.Context(), electionID, candidateID)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCandidateVoters(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}
	candidateID := strings.TrimSpace(r.PathValue("candidate_id"))
	resp, err := s.ledger.Handler.VotersHandler(r.Context(), electionID, candidateID)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.ResultsHandler(r.Context(), electionID)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.AuditHandler(r.Context(), electionID)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeElectionError(w, http.StatusUnauthorized, "missing_caller", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func pathElectionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	electionID, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("election_id")), 10, 64)
	if err != nil || electionID < 0 {
		writeElectionError(w, http.StatusBadRequest, "invalid_election_id", "election_id must be a non-negative integer")
		return 0, false
	}
	return electionID, true
}

func writeElectionDomainError(w http.ResponseWriter, err error) {
	code := domainerrors.Code(err)
	switch {
	case errors.Is(err, domainerrors.ErrRollbackFailed),
		errors.Is(err, domainerrors.ErrInconsistentLedger):
		writeElectionError(w, http.StatusInternalServerError, code, err.Error())
	case errors.Is(err, domainerrors.ErrMissingCaller):
		writeElectionError(w, http.StatusUnauthorized, code, err.Error())
	case errors.Is(err, domainerrors.ErrForbidden):
		writeElectionError(w, http.StatusForbidden, code, err.Error())
	case errors.Is(err, domainerrors.ErrElectionNotFound),
		errors.Is(err, domainerrors.ErrCandidateNotFound):
		writeElectionError(w, http.StatusNotFound, code, err.Error())
	case errors.Is(err, domainerrors.ErrInvalidElectionInput),
		errors.Is(err, domainerrors.ErrInvalidWindow),
		errors.Is(err, domainerrors.ErrInvalidCandidateInput):
		writeElectionError(w, http.StatusBadRequest, code, err.Error())
	case errors.Is(err, domainerrors.ErrNotInitialized),
		errors.Is(err, domainerrors.ErrAlreadyInitialized),
		errors.Is(err, domainerrors.ErrElectionNotOpenForRegistration),
		errors.Is(err, domainerrors.ErrElectionNotActive),
		errors.Is(err, domainerrors.ErrDuplicateCandidate),
		errors.Is(err, domainerrors.ErrDuplicateVote):
		writeElectionError(w, http.StatusConflict, code, err.Error())
	default:
		writeElectionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeElectionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, electionhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
