package http

// Instants cross the wire as Unix milliseconds.

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type InitLedgerRequest struct {
	Admins []string `json:"admins"`
}

type LedgerStateResponse struct {
	Admins          []string `json:"admins"`
	NextElectionID  int64    `json:"next_election_id"`
	InitializedAtMS int64    `json:"initialized_at_ms"`
}

type CreateElectionRequest struct {
	Name       string `json:"name"`
	StartsAtMS int64  `json:"starts_at_ms"`
	EndsAtMS   int64  `json:"ends_at_ms"`
}

type CreateElectionResponse struct {
	ElectionID int64 `json:"election_id"`
}

type AddCandidateRequest struct {
	AccountID string `json:"account_id"`
}

type VoteRequest struct {
	CandidateID string `json:"candidate_id"`
}

type CandidateDTO struct {
	AccountID  string `json:"account_id"`
	TotalVotes int    `json:"total_votes"`
}

type VoterDTO struct {
	AccountID               string `json:"account_id"`
	VotedCandidateAccountID string `json:"voted_candidate_account_id"`
	VotedAtMS               int64  `json:"voted_at_ms"`
}

type ElectionResponse struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	StartsAtMS  int64          `json:"starts_at_ms"`
	EndsAtMS    int64          `json:"ends_at_ms"`
	Candidates  []CandidateDTO `json:"candidates"`
	Voters      []string       `json:"voters"`
	TotalVotes  int            `json:"total_votes"`
	Status      string         `json:"status"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAtMS int64          `json:"created_at_ms"`
}

type ListElectionsResponse struct {
	Items []ElectionResponse `json:"items"`
}

type CandidatesResponse struct {
	ElectionID int64          `json:"election_id"`
	Items      []CandidateDTO `json:"items"`
}

type VotersResponse struct {
	ElectionID  int64      `json:"election_id"`
	CandidateID string     `json:"candidate_id,omitempty"`
	Items       []VoterDTO `json:"items"`
}

type VoteResponse struct {
	ElectionID int64    `json:"election_id"`
	Voter      VoterDTO `json:"voter"`
}

type CandidateResultDTO struct {
	AccountID  string  `json:"account_id"`
	TotalVotes int     `json:"total_votes"`
	Percentage float64 `json:"percentage"`
}

type ResultsResponse struct {
	ElectionID int64                `json:"election_id"`
	Name       string               `json:"name"`
	Status     string               `json:"status"`
	TotalVotes int                  `json:"total_votes"`
	Candidates []CandidateResultDTO `json:"candidates"`
}

type AuditResponse struct {
	ElectionID int64    `json:"election_id"`
	Consistent bool     `json:"consistent"`
	Violations []string `json:"violations"`
}
