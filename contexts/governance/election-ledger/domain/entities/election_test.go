package entities

import (
	"strings"
	"testing"
	"time"
)

var (
	opens  = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	closes = opens.Add(24 * time.Hour)
)

func TestElectionWindows(t *testing.T) {
	election := Election{StartsAt: opens, EndsAt: closes}
	cases := []struct {
		name       string
		at         time.Time
		active     bool
		register   bool
		wantStatus ElectionStatus
	}{
		{"before start", opens.Add(-time.Millisecond), false, false, ElectionStatusScheduled},
		{"at start", opens, false, true, ElectionStatusScheduled},
		{"inside", opens.Add(time.Hour), true, true, ElectionStatusActive},
		{"at end", closes, false, false, ElectionStatusEnded},
		{"after end", closes.Add(time.Millisecond), false, false, ElectionStatusEnded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := election.IsActive(tc.at); got != tc.active {
				t.Fatalf("IsActive=%v, want %v", got, tc.active)
			}
			if got := election.AcceptsRegistration(tc.at); got != tc.register {
				t.Fatalf("AcceptsRegistration=%v, want %v", got, tc.register)
			}
			if got := election.Status(tc.at); got != tc.wantStatus {
				t.Fatalf("Status=%s, want %s", got, tc.wantStatus)
			}
		})
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	election := Election{Candidates: []Candidate{{AccountID: "a"}}, Voters: []string{"v"}}
	clone := election.Clone()
	clone.Candidates[0].TotalVotes = 5
	clone.Voters[0] = "w"
	if election.Candidates[0].TotalVotes != 0 || election.Voters[0] != "v" {
		t.Fatalf("clone aliased the original: %+v", election)
	}
}

func TestShare(t *testing.T) {
	if Share(3, 0) != 0 {
		t.Fatalf("expected zero share with no votes")
	}
	if Share(1, 4) != 0.25 {
		t.Fatalf("expected 0.25")
	}
}

func TestAdminsAndNormalization(t *testing.T) {
	admins := NormalizeAdmins([]string{" root.test ", "", "ops.test", "root.test"})
	if len(admins) != 2 || admins[0] != "root.test" || admins[1] != "ops.test" {
		t.Fatalf("unexpected admins %v", admins)
	}
	state := LedgerState{Admins: admins}
	if !state.IsAdmin(" ops.test") || state.IsAdmin("guest.test") {
		t.Fatalf("unexpected admin decisions")
	}
	if !(LedgerState{}).IsAdmin("anyone") {
		t.Fatalf("empty admin list leaves administration open")
	}
}

func consistentFixture() (Election, []Candidate, []Voter) {
	candidates := []Candidate{{AccountID: "alice", TotalVotes: 2}, {AccountID: "bob", TotalVotes: 1}}
	voters := []Voter{
		{AccountID: "v1", VotedCandidateAccountID: "alice"},
		{AccountID: "v2", VotedCandidateAccountID: "bob"},
		{AccountID: "v3", VotedCandidateAccountID: "alice"},
	}
	election := Election{
		StartsAt:   opens,
		EndsAt:     closes,
		Candidates: append([]Candidate(nil), candidates...),
		Voters:     []string{"v1", "v2", "v3"},
		TotalVotes: 3,
	}
	return election, candidates, voters
}

func TestCheckConsistency(t *testing.T) {
	election, candidates, voters := consistentFixture()
	if violations := CheckConsistency(election, candidates, voters); len(violations) != 0 {
		t.Fatalf("expected consistent fixture, got %v", violations)
	}

	cases := []struct {
		name   string
		mutate func(*Election, *[]Candidate, *[]Voter)
		want   string
	}{
		{"total drift", func(e *Election, _ *[]Candidate, _ *[]Voter) { e.TotalVotes = 4 }, "voter list length"},
		{"ledger tally drift", func(_ *Election, c *[]Candidate, _ *[]Voter) { (*c)[1].TotalVotes = 2 }, "candidate 1 differs"},
		{"double vote", func(e *Election, _ *[]Candidate, v *[]Voter) {
			(*v)[2].AccountID = "v1"
			e.Voters[2] = "v1"
		}, "voted more than once"},
		{"unknown candidate", func(_ *Election, _ *[]Candidate, v *[]Voter) { (*v)[1].VotedCandidateAccountID = "carol" }, "unknown candidate carol"},
		{"empty window", func(e *Election, _ *[]Candidate, _ *[]Voter) { e.EndsAt = e.StartsAt }, "window is empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			election, candidates, voters := consistentFixture()
			tc.mutate(&election, &candidates, &voters)
			violations := CheckConsistency(election, candidates, voters)
			if !strings.Contains(strings.Join(violations, "\n"), tc.want) {
				t.Fatalf("expected violation containing %q, got %v", tc.want, violations)
			}
		})
	}
}

func TestValidInstant(t *testing.T) {
	cases := []struct {
		at   time.Time
		want bool
	}{
		{time.Time{}, false},
		{time.Date(1, 1, 1, 0, 0, 1, 0, time.UTC), true},
		{time.Date(0, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC), true},
		{time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{opens, true},
	}
	for _, tc := range cases {
		if got := ValidInstant(tc.at); got != tc.want {
			t.Fatalf("ValidInstant(%s) = %v, want %v", tc.at, got, tc.want)
		}
	}
}
