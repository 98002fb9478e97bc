package entities

import (
	"strings"
	"time"
)

type ElectionStatus string

const (
	ElectionStatusScheduled ElectionStatus = "scheduled"
	ElectionStatusActive    ElectionStatus = "active"
	ElectionStatusEnded     ElectionStatus = "ended"
)

// Election is the registry view of a ballot. Candidates and Voters are
// denormalized copies of the candidate and voter ledgers.
type Election struct {
	ID         int64
	Name       string
	StartsAt   time.Time
	EndsAt     time.Time
	Candidates []Candidate
	Voters     []string
	TotalVotes int
	CreatedBy  string
	CreatedAt  time.Time
}

type Candidate struct {
	AccountID  string
	TotalVotes int
}

type Voter struct {
	AccountID               string
	VotedCandidateAccountID string
	VotedAt                 time.Time
}

// IsActive reports whether votes are accepted at now. Both boundaries are
// excluded.
// Election instants must fall in years 1 through 9999, the range a stored
// timestamp can represent.
const (
	MinInstantYear = 1
	MaxInstantYear = 9999
)

func ValidInstant(t time.Time) bool {
	year := t.UTC().Year()
	return !t.IsZero() && year >= MinInstantYear && year <= MaxInstantYear
}

func (e Election) IsActive(now time.Time) bool {
	return e.StartsAt.Before(now) && now.Before(e.EndsAt)
}

// AcceptsRegistration reports whether candidates may register at now, which
// must fall within [StartsAt, EndsAt).
func (e Election) AcceptsRegistration(now time.Time) bool {
	return !now.Before(e.StartsAt) && now.Before(e.EndsAt)
}

func (e Election) Status(now time.Time) ElectionStatus {
	switch {
	case !now.After(e.StartsAt):
		return ElectionStatusScheduled
	case now.Before(e.EndsAt):
		return ElectionStatusActive
	default:
		return ElectionStatusEnded
	}
}

func (e Election) HasVoter(accountID string) bool {
	accountID = strings.TrimSpace(accountID)
	for _, voter := range e.Voters {
		if voter == accountID {
			return true
		}
	}
	return false
}

func (e Election) CandidateIndex(accountID string) int {
	return FindCandidate(e.Candidates, accountID)
}

// Clone copies the slices so staged mutations never alias stored state.
func (e Election) Clone() Election {
	out := e
	out.Candidates = append([]Candidate(nil), e.Candidates...)
	out.Voters = append([]string(nil), e.Voters...)
	return out
}

func FindCandidate(candidates []Candidate, accountID string) int {
	accountID = strings.TrimSpace(accountID)
	for i, candidate := range candidates {
		if candidate.AccountID == accountID {
			return i
		}
	}
	return -1
}

// Share returns votes/total, or 0 when nothing has been cast yet.
func Share(votes int, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(votes) / float64(total)
}
