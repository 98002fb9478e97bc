package ledger

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"electionledger/contexts/governance/election-ledger/domain/entities"
)

// Stored JSON shapes. Entities never carry tags, so the persisted layout is
// owned here.

type stateRecord struct {
	Admins         []string  `json:"admins"`
	NextElectionID int64     `json:"next_election_id"`
	InitializedAt  time.Time `json:"initialized_at"`
}

type electionRecord struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	StartsAt   time.Time         `json:"starts_at"`
	EndsAt     time.Time         `json:"ends_at"`
	Candidates []candidateRecord `json:"candidates"`
	Voters     []string          `json:"voters"`
	TotalVotes int               `json:"total_votes"`
	CreatedBy  string            `json:"created_by,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type candidateRecord struct {
	AccountID  string `json:"account_id"`
	TotalVotes int    `json:"total_votes"`
}

type voterRecord struct {
	AccountID               string    `json:"account_id"`
	VotedCandidateAccountID string    `json:"voted_candidate_account_id"`
	VotedAt                 time.Time `json:"voted_at"`
}

type outboxRecord struct {
	OutboxID     string          `json:"outbox_id"`
	EventType    string          `json:"event_type"`
	PartitionKey string          `json:"partition_key"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	PublishedAt  *time.Time      `json:"published_at,omitempty"`
}

// ElectionKey renders the storage key for an election id.
func ElectionKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseElectionKey is the inverse of ElectionKey.
func ParseElectionKey(key string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

func stateFromRecord(row stateRecord) entities.LedgerState {
	return entities.LedgerState{
		Admins:         append([]string(nil), row.Admins...),
		NextElectionID: row.NextElectionID,
		InitializedAt:  row.InitializedAt.UTC(),
	}
}

func stateToRecord(state entities.LedgerState) stateRecord {
	admins := state.Admins
	if admins == nil {
		admins = []string{}
	}
	return stateRecord{
		Admins:         admins,
		NextElectionID: state.NextElectionID,
		InitializedAt:  state.InitializedAt.UTC(),
	}
}

func electionFromRecord(row electionRecord) entities.Election {
	return entities.Election{
		ID:         row.ID,
		Name:       row.Name,
		StartsAt:   row.StartsAt.UTC(),
		EndsAt:     row.EndsAt.UTC(),
		Candidates: candidatesFromRecords(row.Candidates),
		Voters:     append([]string{}, row.Voters...),
		TotalVotes: row.TotalVotes,
		CreatedBy:  row.CreatedBy,
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

func electionToRecord(election entities.Election) electionRecord {
	voters := append([]string{}, election.Voters...)
	return electionRecord{
		ID:         election.ID,
		Name:       election.Name,
		StartsAt:   election.StartsAt.UTC(),
		EndsAt:     election.EndsAt.UTC(),
		Candidates: candidatesToRecords(election.Candidates),
		Voters:     voters,
		TotalVotes: election.TotalVotes,
		CreatedBy:  election.CreatedBy,
		CreatedAt:  election.CreatedAt.UTC(),
	}
}

func candidatesFromRecords(rows []candidateRecord) []entities.Candidate {
	items := make([]entities.Candidate, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Candidate{AccountID: row.AccountID, TotalVotes: row.TotalVotes})
	}
	return items
}

func candidatesToRecords(items []entities.Candidate) []candidateRecord {
	rows := make([]candidateRecord, 0, len(items))
	for _, item := range items {
		rows = append(rows, candidateRecord{AccountID: item.AccountID, TotalVotes: item.TotalVotes})
	}
	return rows
}

func votersFromRecords(rows []voterRecord) []entities.Voter {
	items := make([]entities.Voter, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Voter{
			AccountID:               row.AccountID,
			VotedCandidateAccountID: row.VotedCandidateAccountID,
			VotedAt:                 row.VotedAt.UTC(),
		})
	}
	return items
}

func votersToRecords(items []entities.Voter) []voterRecord {
	rows := make([]voterRecord, 0, len(items))
	for _, item := range items {
		rows = append(rows, voterRecord{
			AccountID:               item.AccountID,
			VotedCandidateAccountID: item.VotedCandidateAccountID,
			VotedAt:                 item.VotedAt.UTC(),
		})
	}
	return rows
}
