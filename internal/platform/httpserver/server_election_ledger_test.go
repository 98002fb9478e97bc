package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	electionledger "electionledger/contexts/governance/election-ledger"
	electionhttp "electionledger/contexts/governance/election-ledger/transport/http"
	"electionledger/internal/platform/metrics"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	server, err := New(electionledger.NewInMemoryModule(nil), metrics.NewPrometheus().Handler(), nil, "")
	if err != nil {
		t.Fatalf("build server: %v", err)
	}
	return server
}

func doJSON(t *testing.T, server *Server, method string, path string, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		payload = raw
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) electionhttp.ErrorResponse {
	t.Helper()
	var resp electionhttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return resp
}

// openElection initializes the ledger and creates an election that is active
// right now with alice.test and bob.test registered.
func openElection(t *testing.T, server *Server) {
	t.Helper()
	if rr := doJSON(t, server, http.MethodPost, "/v1/ledger/init", "admin.test", electionhttp.InitLedgerRequest{Admins: []string{"admin.test"}}); rr.Code != http.StatusCreated {
		t.Fatalf("init: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	now := time.Now()
	rr := doJSON(t, server, http.MethodPost, "/v1/elections", "admin.test", electionhttp.CreateElectionRequest{
		Name:       "Board",
		StartsAtMS: now.Add(-time.Minute).UnixMilli(),
		EndsAtMS:   now.Add(time.Hour).UnixMilli(),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created electionhttp.CreateElectionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if created.ElectionID != 0 {
		t.Fatalf("expected first election id 0, got %d", created.ElectionID)
	}
	for _, candidate := range []string{"alice.test", "bob.test"} {
		rr := doJSON(t, server, http.MethodPost, "/v1/elections/0/candidates", "admin.test", electionhttp.AddCandidateRequest{AccountID: candidate})
		if rr.Code != http.StatusCreated {
			t.Fatalf("add %s: expected 201, got %d body=%s", candidate, rr.Code, rr.Body.String())
		}
	}
}

func TestElectionLedgerVoteFlow(t *testing.T) {
	server := newTestServer(t)
	openElection(t, server)

	if rr := doJSON(t, server, http.MethodPost, "/v1/elections/0/votes", "voter-1", electionhttp.VoteRequest{CandidateID: "alice.test"}); rr.Code != http.StatusCreated {
		t.Fatalf("vote: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr := doJSON(t, server, http.MethodPost, "/v1/elections/0/votes", "voter-1", electionhttp.VoteRequest{CandidateID: "bob.test"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("second vote: expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := decodeError(t, rr).Code; code != "duplicate_vote" {
		t.Fatalf("expected duplicate_vote, got %s", code)
	}

	rr = doJSON(t, server, http.MethodGet, "/v1/elections/0/results", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("results: expected 200, got %d", rr.Code)
	}
	var results electionhttp.ResultsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if results.TotalVotes != 1 || results.Status != "active" {
		t.Fatalf("unexpected results %+v", results)
	}

	rr = doJSON(t, server, http.MethodGet, "/v1/elections/0/candidates/alice.test/voters", "", nil)
	var voters electionhttp.VotersResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &voters); err != nil {
		t.Fatalf("decode voters: %v", err)
	}
	if len(voters.Items) != 1 || voters.Items[0].AccountID != "voter-1" {
		t.Fatalf("unexpected voters %+v", voters)
	}

	rr = doJSON(t, server, http.MethodGet, "/v1/elections/0/audit", "", nil)
	var audit electionhttp.AuditResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &audit); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if !audit.Consistent {
		t.Fatalf("expected consistent audit, got %+v", audit)
	}
}

func TestElectionLedgerErrorStatuses(t *testing.T) {
	server := newTestServer(t)

	rr := doJSON(t, server, http.MethodPost, "/v1/elections", "admin.test", electionhttp.CreateElectionRequest{
		Name:       "Early",
		StartsAtMS: 1_000,
		EndsAtMS:   2_000,
	})
	if rr.Code != http.StatusConflict || decodeError(t, rr).Code != "ledger_not_initialized" {
		t.Fatalf("expected 409 ledger_not_initialized, got %d body=%s", rr.Code, rr.Body.String())
	}

	openElection(t, server)

	cases := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		status int
		code   string
	}{
		{"missing caller", http.MethodPost, "/v1/elections/0/votes", "", electionhttp.VoteRequest{CandidateID: "alice.test"}, http.StatusUnauthorized, "missing_caller"},
		{"bad election id", http.MethodGet, "/v1/elections/abc", "", nil, http.StatusBadRequest, "invalid_election_id"},
		{"unknown election", http.MethodGet, "/v1/elections/42", "", nil, http.StatusNotFound, "election_not_found"},
		{"unknown candidate", http.MethodPost, "/v1/elections/0/votes", "voter-2", electionhttp.VoteRequest{CandidateID: "carol.test"}, http.StatusNotFound, "candidate_not_found"},
		{"non admin", http.MethodPost, "/v1/elections/0/candidates", "mallory.test", electionhttp.AddCandidateRequest{AccountID: "carol.test"}, http.StatusForbidden, "forbidden"},
		{"duplicate candidate", http.MethodPost, "/v1/elections/0/candidates", "admin.test", electionhttp.AddCandidateRequest{AccountID: "bob.test"}, http.StatusConflict, "duplicate_candidate"},
		{"second init", http.MethodPost, "/v1/ledger/init", "admin.test", electionhttp.InitLedgerRequest{}, http.StatusConflict, "ledger_already_initialized"},
		{"init without caller", http.MethodPost, "/v1/ledger/init", "", electionhttp.InitLedgerRequest{Admins: []string{"mallory.test"}}, http.StatusUnauthorized, "missing_caller"},
		{"start beyond year 9999", http.MethodPost, "/v1/elections", "admin.test", electionhttp.CreateElectionRequest{Name: "x", StartsAtMS: 300_000_000_000_000, EndsAtMS: 300_000_000_001_000}, http.StatusBadRequest, "invalid_election_input"},
		{"empty window", http.MethodPost, "/v1/elections", "admin.test", electionhttp.CreateElectionRequest{Name: "x", StartsAtMS: 5_000, EndsAtMS: 5_000}, http.StatusBadRequest, "invalid_window"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, server, tc.method, tc.path, tc.user, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rr.Code, rr.Body.String())
			}
			if code := decodeError(t, rr).Code; code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, code)
			}
		})
	}
}

func TestElectionLedgerRejectsMalformedJSON(t *testing.T) {
	server := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/elections", strings.NewReader("{"))
	req.Header.Set("X-User-Id", "admin.test")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestElectionLedgerGraphQL(t *testing.T) {
	server := newTestServer(t)
	openElection(t, server)

	post := func(userID string, query string) map[string]any {
		body, _ := json.Marshal(map[string]string{"query": query})
		req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if userID != "" {
			req.Header.Set("X-User-Id", userID)
		}
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)
		var out map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode graphql body %q: %v", rr.Body.String(), err)
		}
		return out
	}

	out := post("voter-9", `mutation { vote(electionId: 0, candidateId: "bob.test") { account_id voted_candidate_account_id } }`)
	if errs, ok := out["errors"]; ok {
		t.Fatalf("vote mutation failed: %v", errs)
	}
	data := out["data"].(map[string]any)["vote"].(map[string]any)
	if data["account_id"] != "voter-9" || data["voted_candidate_account_id"] != "bob.test" {
		t.Fatalf("unexpected vote payload %v", data)
	}

	out = post("", `{ results(electionId: 0) { total_votes candidates { account_id total_votes } } }`)
	if errs, ok := out["errors"]; ok {
		t.Fatalf("results query failed: %v", errs)
	}
	results := out["data"].(map[string]any)["results"].(map[string]any)
	if results["total_votes"].(float64) != 1 {
		t.Fatalf("unexpected results %v", results)
	}

	out = post("voter-9", `mutation { vote(electionId: 0, candidateId: "alice.test") { account_id } }`)
	errs, ok := out["errors"].([]any)
	if !ok || len(errs) == 0 {
		t.Fatalf("expected duplicate vote error, got %v", out)
	}
	message := errs[0].(map[string]any)["message"].(string)
	if !strings.HasPrefix(message, "duplicate_vote") {
		t.Fatalf("expected duplicate_vote prefix, got %q", message)
	}
}

func TestElectionLedgerGraphQLErrorsLeaveDataNull(t *testing.T) {
	server := newTestServer(t)
	openElection(t, server)

	post := func(userID string, query string) (map[string]any, []string) {
		body, _ := json.Marshal(map[string]string{"query": query})
		req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if userID != "" {
			req.Header.Set("X-User-Id", userID)
		}
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)
		var out struct {
			Data   map[string]any `json:"data"`
			Errors []struct {
				Message string `json:"message"`
			} `json:"errors"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode graphql body %q: %v", rr.Body.String(), err)
		}
		messages := make([]string, 0, len(out.Errors))
		for _, item := range out.Errors {
			messages = append(messages, item.Message)
		}
		return out.Data, messages
	}

	data, messages := post("", `{ election(electionId: 42) { id } results(electionId: 42) { election_id } }`)
	if len(messages) != 2 {
		t.Fatalf("expected two errors, got %v", messages)
	}
	for _, message := range messages {
		if !strings.HasPrefix(message, "election_not_found") {
			t.Fatalf("expected election_not_found prefix, got %q", message)
		}
	}
	if data["election"] != nil || data["results"] != nil {
		t.Fatalf("expected null fields for unknown election, got %v", data)
	}

	data, messages = post("admin.test", `mutation { addCandidate(electionId: 42, accountId: "carol.test") { account_id } }`)
	if len(messages) != 1 || !strings.HasPrefix(messages[0], "election_not_found") || data["addCandidate"] != nil {
		t.Fatalf("expected null addCandidate with election_not_found, got data=%v errors=%v", data, messages)
	}

	data, messages = post("admin.test", `mutation { initLedger(admins: ["admin.test"]) { admins } }`)
	if len(messages) != 1 || !strings.HasPrefix(messages[0], "ledger_already_initialized") || data["initLedger"] != nil {
		t.Fatalf("expected null initLedger with ledger_already_initialized, got data=%v errors=%v", data, messages)
	}
	_, messages = post("", `mutation { initLedger(admins: ["mallory.test"]) { admins } }`)
	if len(messages) != 1 || !strings.HasPrefix(messages[0], "missing_caller") {
		t.Fatalf("expected missing_caller for anonymous init, got %v", messages)
	}

	for _, window := range []string{
		`startsAtMs: 1e300, endsAtMs: 1000`,
		`startsAtMs: 1000.5, endsAtMs: 5000`,
		`startsAtMs: 1000, endsAtMs: 300000000000000`,
	} {
		data, messages = post("admin.test", `mutation { createElection(name: "X", `+window+`) }`)
		if len(messages) != 1 || !strings.HasPrefix(messages[0], "invalid_election_input") {
			t.Fatalf("%s: expected invalid_election_input, got %v", window, messages)
		}
		if data["createElection"] != nil {
			t.Fatalf("%s: expected null createElection, got %v", window, data)
		}
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	server := newTestServer(t)
	if rr := doJSON(t, server, http.MethodGet, "/health", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rr.Code)
	}
	rr := doJSON(t, server, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected go collector output in metrics body")
	}
}
