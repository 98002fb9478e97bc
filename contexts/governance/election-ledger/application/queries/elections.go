package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "electionledger/contexts/governance/election-ledger/application"
	"electionledger/contexts/governance/election-ledger/application/ledger"
	"electionledger/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionledger/contexts/governance/election-ledger/domain/errors"
	"electionledger/contexts/governance/election-ledger/ports"
)

// ElectionQueries reads committed ledger state without taking the write
// serializer.
type ElectionQueries struct {
	Records ports.RecordStore
	Clock   ports.Clock
	Logger  *slog.Logger
}

func (q ElectionQueries) reader() ledger.Reader {
	return ledger.Reader{Records: q.Records}
}

func (q ElectionQueries) GetElection(ctx context.Context, electionID int64) (entities.Election, error) {
	election, found, err := q.reader().Election(ctx, electionID)
	if err != nil {
		return entities.Election{}, q.logError("election_query_get_failed", err, "election_id", electionID)
	}
	if !found {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (q ElectionQueries) ListElections(ctx context.Context) ([]entities.Election, error) {
	items, err := q.reader().Elections(ctx)
	if err != nil {
		return nil, q.logError("election_query_list_failed", err)
	}
	return items, nil
}

func (q ElectionQueries) CandidatesByElection(ctx context.Context, electionID int64) ([]entities.Candidate, error) {
	candidates, found, err := q.reader().Candidates(ctx, electionID)
	if err != nil {
		return nil, q.logError("election_query_candidates_failed", err, "election_id", electionID)
	}
	if !found {
		return nil, domainerrors.ErrElectionNotFound
	}
	return candidates, nil
}

func (q ElectionQueries) VotersByElection(ctx context.Context, electionID int64) ([]entities.Voter, error) {
	voters, found, err := q.reader().Voters(ctx, electionID)
	if err != nil {
		return nil, q.logError("election_query_voters_failed", err, "election_id", electionID)
	}
	if !found {
		return nil, domainerrors.ErrElectionNotFound
	}
	return voters, nil
}

// VotersByElectionAndCandidate keeps ledger order. An unknown candidate yields
// an empty list.
func (q ElectionQueries) VotersByElectionAndCandidate(
	ctx context.Context,
	electionID int64,
	candidateID string,
) ([]entities.Voter, error) {
	voters, err := q.VotersByElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	candidateID = strings.TrimSpace(candidateID)
	filtered := make([]entities.Voter, 0, len(voters))
	for _, voter := range voters {
		if voter.VotedCandidateAccountID == candidateID {
			filtered = append(filtered, voter)
		}
	}
	return filtered, nil
}

// Results derives each candidate's share from the registry view.
func (q ElectionQueries) Results(ctx context.Context, electionID int64) (entities.ElectionResults, error) {
	election, err := q.GetElection(ctx, electionID)
	if err != nil {
		return entities.ElectionResults{}, err
	}
	items := make([]entities.CandidateResult, 0, len(election.Candidates))
	for _, candidate := range election.Candidates {
		items = append(items, entities.CandidateResult{
			AccountID:  candidate.AccountID,
			TotalVotes: candidate.TotalVotes,
			Percentage: entities.Share(candidate.TotalVotes, election.TotalVotes),
		})
	}
	return entities.ElectionResults{
		ElectionID: election.ID,
		Name:       election.Name,
		Status:     election.Status(q.now()),
		TotalVotes: election.TotalVotes,
		Candidates: items,
	}, nil
}

// Audit cross-checks the registry, candidate ledger and voter ledger of one
// election, all read from the same snapshot.
func (q ElectionQueries) Audit(ctx context.Context, electionID int64) (entities.AuditReport, error) {
	logger := application.ResolveLogger(q.Logger)
	snapshot, found, err := q.reader().Snapshot(ctx, electionID)
	if err != nil {
		return entities.AuditReport{}, q.logError("election_query_audit_failed", err, "election_id", electionID)
	}
	if !found {
		return entities.AuditReport{}, domainerrors.ErrElectionNotFound
	}

	violations := entities.CheckConsistency(snapshot.Election, snapshot.Candidates, snapshot.Voters)
	if !snapshot.CandidatesFound {
		violations = append([]string{"candidate ledger missing"}, violations...)
	}
	if !snapshot.VotersFound {
		violations = append([]string{"voter ledger missing"}, violations...)
	}
	report := entities.AuditReport{
		ElectionID: electionID,
		Consistent: len(violations) == 0,
		Violations: violations,
	}
	if !report.Consistent {
		logger.Warn("election audit found violations",
			"event", "election_audit_violations",
			"module", "governance/election-ledger",
			"layer", "application",
			"election_id", electionID,
			"violation_count", len(violations),
		)
	}
	return report, nil
}

func (q ElectionQueries) now() time.Time {
	if q.Clock == nil {
		return time.Now().UTC()
	}
	return q.Clock.Now().UTC()
}

func (q ElectionQueries) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/election-ledger",
		"layer", "application",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	application.ResolveLogger(q.Logger).Error("election query failed", fields...)
	return err
}
