package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"electionledger/contexts/governance/election-ledger/application/commands"
	"electionledger/contexts/governance/election-ledger/application/queries"
	"electionledger/contexts/governance/election-ledger/domain/entities"
	"electionledger/contexts/governance/election-ledger/ports"
	httptransport "electionledger/contexts/governance/election-ledger/transport/http"
)

type Handler struct {
	Elections commands.ElectionUseCase
	Queries   queries.ElectionQueries
	Clock     ports.Clock
	Logger    *slog.Logger
}

func (h Handler) InitLedgerHandler(ctx context.Context, req httptransport.InitLedgerRequest) (httptransport.LedgerStateResponse, error) {
	state, err := h.Elections.InitLedger(ctx, commands.InitLedgerCommand{Admins: req.Admins})
	if err != nil {
		return httptransport.LedgerStateResponse{}, err
	}
	return httptransport.LedgerStateResponse{
		Admins:          append([]string{}, state.Admins...),
		NextElectionID:  state.NextElectionID,
		InitializedAtMS: state.InitializedAt.UnixMilli(),
	}, nil
}

func (h Handler) CreateElectionHandler(
	ctx context.Context,
	userID string,
	req httptransport.CreateElectionRequest,
) (httptransport.CreateElectionResponse, error) {
	election, err := h.Elections.CreateElection(ctx, commands.CreateElectionCommand{
		CallerID: userID,
		Name:     req.Name,
		StartsAt: fromMillis(req.StartsAtMS),
		EndsAt:   fromMillis(req.EndsAtMS),
	})
	if err != nil {
		return httptransport.CreateElectionResponse{}, err
	}
	return httptransport.CreateElectionResponse{ElectionID: election.ID}, nil
}

func (h Handler) AddCandidateHandler(
	ctx context.Context,
	userID string,
	electionID int64,
	req httptransport.AddCandidateRequest,
) (httptransport.CandidateDTO, error) {
	candidate, err := h.Elections.AddCandidate(ctx, commands.AddCandidateCommand{
		CallerID:    userID,
		ElectionID:  electionID,
		CandidateID: req.AccountID,
	})
	if err != nil {
		return httptransport.CandidateDTO{}, err
	}
	return mapCandidate(candidate), nil
}

func (h Handler) VoteHandler(
	ctx context.Context,
	userID string,
	electionID int64,
	req httptransport.VoteRequest,
) (httptransport.VoteResponse, error) {
	voter, err := h.Elections.Vote(ctx, commands.VoteCommand{
		CallerID:    userID,
		ElectionID:  electionID,
		CandidateID: req.CandidateID,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		ElectionID: electionID,
		Voter:      mapVoter(voter),
	}, nil
}

func (h Handler) GetElectionHandler(ctx context.Context, electionID int64) (httptransport.ElectionResponse, error) {
	election, err := h.Queries.GetElection(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election, h.now()), nil
}

func (h Handler) ListElectionsHandler(ctx context.Context) (httptransport.ListElectionsResponse, error) {
	items, err := h.Queries.ListElections(ctx)
	if err != nil {
		return httptransport.ListElectionsResponse{}, err
	}
	now := h.now()
	out := make([]httptransport.ElectionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapElection(item, now))
	}
	return httptransport.ListElectionsResponse{Items: out}, nil
}

func (h Handler) CandidatesHandler(ctx context.Context, electionID int64) (httptransport.CandidatesResponse, error) {
	items, err := h.Queries.CandidatesByElection(ctx, electionID)
	if err != nil {
		return httptransport.CandidatesResponse{}, err
	}
	return httptransport.CandidatesResponse{
		ElectionID: electionID,
		Items:      mapCandidates(items),
	}, nil
}

// VotersHandler lists every voter, or only the voters of candidateID when it
// is set.
func (h Handler) VotersHandler(ctx context.Context, electionID int64, candidateID string) (httptransport.VotersResponse, error) {
	var (
		items []entities.Voter
		err   error
	)
	if candidateID == "" {
		items, err = h.Queries.VotersByElection(ctx, electionID)
	} else {
		items, err = h.Queries.VotersByElectionAndCandidate(ctx, electionID, candidateID)
	}
	if err != nil {
		return httptransport.VotersResponse{}, err
	}
	out := make([]httptransport.VoterDTO, 0, len(items))
	for _, item := range items {
		out = append(out, mapVoter(item))
	}
	return httptransport.VotersResponse{
		ElectionID:  electionID,
		CandidateID: candidateID,
		Items:       out,
	}, nil
}

func (h Handler) ResultsHandler(ctx context.Context, electionID int64) (httptransport.ResultsResponse, error) {
	results, err := h.Queries.Results(ctx, electionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	items := make([]httptransport.CandidateResultDTO, 0, len(results.Candidates))
	for _, item := range results.Candidates {
		items = append(items, httptransport.CandidateResultDTO{
			AccountID:  item.AccountID,
			TotalVotes: item.TotalVotes,
			Percentage: item.Percentage,
		})
	}
	return httptransport.ResultsResponse{
		ElectionID: results.ElectionID,
		Name:       results.Name,
		Status:     string(results.Status),
		TotalVotes: results.TotalVotes,
		Candidates: items,
	}, nil
}

func (h Handler) AuditHandler(ctx context.Context, electionID int64) (httptransport.AuditResponse, error) {
	report, err := h.Queries.Audit(ctx, electionID)
	if err != nil {
		return httptransport.AuditResponse{}, err
	}
	violations := report.Violations
	if violations == nil {
		violations = []string{}
	}
	return httptransport.AuditResponse{
		ElectionID: report.ElectionID,
		Consistent: report.Consistent,
		Violations: violations,
	}, nil
}

func (h Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock.Now().UTC()
}

// fromMillis keeps zero as the zero time so missing fields fail validation.
func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func mapElection(election entities.Election, now time.Time) httptransport.ElectionResponse {
	return httptransport.ElectionResponse{
		ID:          election.ID,
		Name:        election.Name,
		StartsAtMS:  election.StartsAt.UnixMilli(),
		EndsAtMS:    election.EndsAt.UnixMilli(),
		Candidates:  mapCandidates(election.Candidates),
		Voters:      append([]string{}, election.Voters...),
		TotalVotes:  election.TotalVotes,
		Status:      string(election.Status(now)),
		CreatedBy:   election.CreatedBy,
		CreatedAtMS: election.CreatedAt.UnixMilli(),
	}
}

func mapCandidates(items []entities.Candidate) []httptransport.CandidateDTO {
	out := make([]httptransport.CandidateDTO, 0, len(items))
	for _, item := range items {
		out = append(out, mapCandidate(item))
	}
	return out
}

func mapCandidate(item entities.Candidate) httptransport.CandidateDTO {
	return httptransport.CandidateDTO{
		AccountID:  item.AccountID,
		TotalVotes: item.TotalVotes,
	}
}

func mapVoter(item entities.Voter) httptransport.VoterDTO {
	return httptransport.VoterDTO{
		AccountID:               item.AccountID,
		VotedCandidateAccountID: item.VotedCandidateAccountID,
		VotedAtMS:               item.VotedAt.UnixMilli(),
	}
}
