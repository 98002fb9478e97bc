package entities

import (
	"fmt"
	"strings"
	"time"
)

// LedgerState replaces process globals: the admin list and the next election
// id live in one record written alongside every election creation.
type LedgerState struct {
	Admins         []string
	NextElectionID int64
	InitializedAt  time.Time
}

// IsAdmin reports whether accountID may administer elections. An empty admin
// list leaves administration open.
func (s LedgerState) IsAdmin(accountID string) bool {
	if len(s.Admins) == 0 {
		return true
	}
	accountID = strings.TrimSpace(accountID)
	for _, admin := range s.Admins {
		if admin == accountID {
			return true
		}
	}
	return false
}

// NormalizeAdmins trims, drops blanks and removes duplicates, keeping order.
func NormalizeAdmins(admins []string) []string {
	seen := make(map[string]struct{}, len(admins))
	out := make([]string, 0, len(admins))
	for _, admin := range admins {
		admin = strings.TrimSpace(admin)
		if admin == "" {
			continue
		}
		if _, ok := seen[admin]; ok {
			continue
		}
		seen[admin] = struct{}{}
		out = append(out, admin)
	}
	return out
}

type CandidateResult struct {
	AccountID  string
	TotalVotes int
	Percentage float64
}

type ElectionResults struct {
	ElectionID int64
	Name       string
	Status     ElectionStatus
	TotalVotes int
	Candidates []CandidateResult
}

type AuditReport struct {
	ElectionID int64
	Consistent bool
	Violations []string
}

// CheckConsistency compares the registry view against both ledgers and
// returns one message per broken rule.
func CheckConsistency(election Election, candidates []Candidate, voters []Voter) []string {
	var violations []string
	add := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if !election.StartsAt.Before(election.EndsAt) {
		add("election window is empty: starts_at %s, ends_at %s",
			election.StartsAt.Format(time.RFC3339Nano), election.EndsAt.Format(time.RFC3339Nano))
	}
	if election.TotalVotes < 0 {
		add("total votes is negative: %d", election.TotalVotes)
	}
	if election.TotalVotes != len(election.Voters) {
		add("total votes %d does not match voter list length %d", election.TotalVotes, len(election.Voters))
	}
	embeddedSum := 0
	for _, candidate := range election.Candidates {
		embeddedSum += candidate.TotalVotes
	}
	if election.TotalVotes != embeddedSum {
		add("total votes %d does not match candidate tally sum %d", election.TotalVotes, embeddedSum)
	}

	if len(election.Candidates) != len(candidates) {
		add("embedded candidate count %d does not match ledger count %d", len(election.Candidates), len(candidates))
	} else {
		for i := range candidates {
			if election.Candidates[i] != candidates[i] {
				add("candidate %d differs: embedded %s=%d, ledger %s=%d", i,
					election.Candidates[i].AccountID, election.Candidates[i].TotalVotes,
					candidates[i].AccountID, candidates[i].TotalVotes)
			}
		}
	}

	seenCandidates := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if _, ok := seenCandidates[candidate.AccountID]; ok {
			add("candidate %s registered more than once", candidate.AccountID)
		}
		seenCandidates[candidate.AccountID] = struct{}{}
	}

	if len(voters) != len(election.Voters) {
		add("voter ledger length %d does not match election voter list length %d", len(voters), len(election.Voters))
	}
	seenVoters := make(map[string]struct{}, len(voters))
	perCandidate := make(map[string]int, len(candidates))
	for i, voter := range voters {
		if _, ok := seenVoters[voter.AccountID]; ok {
			add("voter %s voted more than once", voter.AccountID)
		}
		seenVoters[voter.AccountID] = struct{}{}
		if _, ok := seenCandidates[voter.VotedCandidateAccountID]; !ok {
			add("voter %s references unknown candidate %s", voter.AccountID, voter.VotedCandidateAccountID)
		}
		if i < len(election.Voters) && election.Voters[i] != voter.AccountID {
			add("voter %d differs: election %s, ledger %s", i, election.Voters[i], voter.AccountID)
		}
		perCandidate[voter.VotedCandidateAccountID]++
	}
	for _, candidate := range candidates {
		if perCandidate[candidate.AccountID] != candidate.TotalVotes {
			add("candidate %s tally %d does not match %d recorded voters",
				candidate.AccountID, candidate.TotalVotes, perCandidate[candidate.AccountID])
		}
	}
	return violations
}
