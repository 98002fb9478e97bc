package errors

import "errors"

var (
	ErrNotInitialized                 = errors.New("election ledger is not initialized")
	ErrAlreadyInitialized             = errors.New("election ledger is already initialized")
	ErrMissingCaller                  = errors.New("caller identity is required")
	ErrForbidden                      = errors.New("caller is not an election admin")
	ErrInvalidElectionInput           = errors.New("invalid election input")
	ErrInvalidWindow                  = errors.New("election must start before it ends")
	ErrInvalidCandidateInput          = errors.New("invalid candidate input")
	ErrElectionNotFound               = errors.New("election not found")
	ErrCandidateNotFound              = errors.New("candidate not found")
	ErrElectionNotOpenForRegistration = errors.New("election is not open for candidate registration")
	ErrElectionNotActive              = errors.New("election is not active")
	ErrDuplicateCandidate             = errors.New("candidate already registered")
	ErrDuplicateVote                  = errors.New("caller already voted in this election")
	ErrInconsistentLedger             = errors.New("election ledger views are inconsistent")
	ErrRollbackFailed                 = errors.New("election ledger rollback failed")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrRollbackFailed, "rollback_failed"},
	{ErrInconsistentLedger, "ledger_inconsistent"},
	{ErrNotInitialized, "ledger_not_initialized"},
	{ErrAlreadyInitialized, "ledger_already_initialized"},
	{ErrMissingCaller, "missing_caller"},
	{ErrForbidden, "forbidden"},
	{ErrInvalidElectionInput, "invalid_election_input"},
	{ErrInvalidWindow, "invalid_window"},
	{ErrInvalidCandidateInput, "invalid_candidate_input"},
	{ErrElectionNotFound, "election_not_found"},
	{ErrCandidateNotFound, "candidate_not_found"},
	{ErrElectionNotOpenForRegistration, "election_not_open_for_registration"},
	{ErrElectionNotActive, "election_not_active"},
	{ErrDuplicateCandidate, "duplicate_candidate"},
	{ErrDuplicateVote, "duplicate_vote"},
}

// Code returns a stable snake_case identifier for err. Rollback failures win
// over the cause they wrap.
func Code(err error) string {
	if err == nil {
		return "ok"
	}
	for _, item := range codes {
		if errors.Is(err, item.err) {
			return item.code
		}
	}
	return "internal_error"
}
