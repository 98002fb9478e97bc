package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	application "electionledger/contexts/governance/election-ledger/application"
	"electionledger/contexts/governance/election-ledger/application/ledger"
	"electionledger/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionledger/contexts/governance/election-ledger/domain/errors"
	"electionledger/contexts/governance/election-ledger/ports"
)

type InitLedgerCommand struct {
	Admins []string
}

type CreateElectionCommand struct {
	CallerID string
	Name     string
	StartsAt time.Time
	EndsAt   time.Time
}

type AddCandidateCommand struct {
	CallerID    string
	ElectionID  int64
	CandidateID string
}

type VoteCommand struct {
	CallerID    string
	ElectionID  int64
	CandidateID string
}

var defaultSerializer sync.Mutex

// ElectionUseCase is the only writer of the election ledger. Each operation
// runs under Serializer, reads through a unit of work, and commits every
// affected view plus its outbox event in one batch.
type ElectionUseCase struct {
	Records    ports.RecordStore
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Metrics    ports.Metrics
	Serializer sync.Locker
	Logger     *slog.Logger
}

// InitLedger creates the ledger state record with the admin list and an
// election id counter at zero. A ledger that already has a state record is
// refused with ErrAlreadyInitialized.
func (uc ElectionUseCase) InitLedger(ctx context.Context, cmd InitLedgerCommand) (entities.LedgerState, error) {
	logger := application.ResolveLogger(uc.Logger)
	unlock := uc.lock()
	defer unlock()

	uow := ledger.Begin(uc.Records)
	if _, found, err := uow.State(ctx); err != nil {
		return entities.LedgerState{}, uc.fail(logger, "init_ledger", err)
	} else if found {
		return entities.LedgerState{}, uc.fail(logger, "init_ledger", domainerrors.ErrAlreadyInitialized)
	}

	now := uc.now()
	state := entities.LedgerState{
		Admins:         entities.NormalizeAdmins(cmd.Admins),
		NextElectionID: 0,
		InitializedAt:  now,
	}
	if err := uow.PutState(state); err != nil {
		return entities.LedgerState{}, uc.fail(logger, "init_ledger", err)
	}
	if err := uc.appendEvent(ctx, uow, EventLedgerInitialized, "ledger", ports.StateKey, now, map[string]any{
		"admins":            state.Admins,
		"initialized_at_ms": now.UnixMilli(),
	}); err != nil {
		return entities.LedgerState{}, uc.fail(logger, "init_ledger", err)
	}
	if err := uow.Commit(ctx); err != nil {
		return entities.LedgerState{}, uc.fail(logger, "init_ledger", err)
	}

	uc.observe("init_ledger", nil)
	logger.Info("election ledger initialized",
		"event", "election_ledger_initialized",
		"module", "governance/election-ledger",
		"layer", "application",
		"admin_count", len(state.Admins),
	)
	return state, nil
}

// CreateElection allocates the next sequential id and opens empty candidate
// and voter ledgers for it.
func (uc ElectionUseCase) CreateElection(ctx context.Context, cmd CreateElectionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	callerID := strings.TrimSpace(cmd.CallerID)
	name := strings.TrimSpace(cmd.Name)
	logger.Info("election create processing started",
		"event", "election_create_started",
		"module", "governance/election-ledger",
		"layer", "application",
		"caller_id", callerID,
		"name", name,
	)
	if callerID == "" {
		return entities.Election{}, uc.fail(logger, "create_election", domainerrors.ErrMissingCaller)
	}
	if name == "" || !entities.ValidInstant(cmd.StartsAt) || !entities.ValidInstant(cmd.EndsAt) {
		return entities.Election{}, uc.fail(logger, "create_election", domainerrors.ErrInvalidElectionInput,
			"caller_id", callerID,
		)
	}
	if !cmd.StartsAt.Before(cmd.EndsAt) {
		return entities.Election{}, uc.fail(logger, "create_election", domainerrors.ErrInvalidWindow,
			"caller_id", callerID,
			"starts_at", cmd.StartsAt.UTC(),
			"ends_at", cmd.EndsAt.UTC(),
		)
	}

	unlock := uc.lock()
	defer unlock()

	uow := ledger.Begin(uc.Records)
	state, err := uc.requireAdmin(ctx, uow, callerID)
	if err != nil {
		return entities.Election{}, uc.fail(logger, "create_election", err, "caller_id", callerID)
	}

	now := uc.now()
	election := entities.Election{
		ID:         state.NextElectionID,
		Name:       name,
		StartsAt:   cmd.StartsAt.UTC(),
		EndsAt:     cmd.EndsAt.UTC(),
		Candidates: []entities.Candidate{},
		Voters:     []string{},
		TotalVotes: 0,
		CreatedBy:  callerID,
		CreatedAt:  now,
	}
	if _, exists, err := uow.Election(ctx, election.ID); err != nil {
		return entities.Election{}, uc.fail(logger, "create_election", err)
	} else if exists {
		// the counter only moves forward inside this batch, so a stored id
		// means the state record was rewritten out of band
		return entities.Election{}, uc.fail(logger, "create_election", domainerrors.ErrInconsistentLedger,
			"election_id", election.ID,
		)
	}
	state.NextElectionID++

	if err := uow.PutState(state); err != nil {
		return entities.Election{}, uc.fail(logger, "create_election", err)
	}
	if err := uow.PutElection(election); err != nil {
		return entities.Election{}, uc.fail(logger, "create_election", err)
	}
	if err := uow.PutCandidates(election.ID, []entities.Candidate{}); err != nil {
		return entities.Election{}, uc.fail(logger, "create_election", err)
	}
	if err := uow.PutVoters(election.ID, []entities.Voter{}); err != nil {
		return entities.Election{}, uc.fail(logger, "create_election", err)
	}
	if err := uc.appendEvent(ctx, uow, EventElectionCreated, "election_id", ledger.ElectionKey(election.ID), now, map[string]any{
		"election_id":  election.ID,
		"name":         election.Name,
		"starts_at_ms": election.StartsAt.UnixMilli(),
		"ends_at_ms":   election.EndsAt.UnixMilli(),
		"created_by":   callerID,
	}); err != nil {
		return entities.Election{}, uc.fail(logger, "create_election", err)
	}
	if err := uow.Commit(ctx); err != nil {
		return entities.Election{}, uc.fail(logger, "create_election", err, "election_id", election.ID)
	}

	uc.observe("create_election", nil)
	logger.Info("election created",
		"event", "election_created",
		"module", "governance/election-ledger",
		"layer", "application",
		"election_id", election.ID,
		"caller_id", callerID,
	)
	return election, nil
}

// AddCandidate registers candidateID while the election accepts
// registrations. The candidate is appended to the ledger and the embedded
// list together.
func (uc ElectionUseCase) AddCandidate(ctx context.Context, cmd AddCandidateCommand) (entities.Candidate, error) {
	logger := application.ResolveLogger(uc.Logger)
	callerID := strings.TrimSpace(cmd.CallerID)
	candidateID := strings.TrimSpace(cmd.CandidateID)
	if callerID == "" {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", domainerrors.ErrMissingCaller,
			"election_id", cmd.ElectionID,
		)
	}

	unlock := uc.lock()
	defer unlock()

	uow := ledger.Begin(uc.Records)
	if _, err := uc.requireAdmin(ctx, uow, callerID); err != nil {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", err,
			"election_id", cmd.ElectionID,
			"caller_id", callerID,
		)
	}

	election, found, err := uow.Election(ctx, cmd.ElectionID)
	if err != nil {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", err, "election_id", cmd.ElectionID)
	}
	if !found {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", domainerrors.ErrElectionNotFound,
			"election_id", cmd.ElectionID,
		)
	}
	now := uc.now()
	if !election.AcceptsRegistration(now) {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", domainerrors.ErrElectionNotOpenForRegistration,
			"election_id", election.ID,
			"status", string(election.Status(now)),
		)
	}
	if candidateID == "" {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", domainerrors.ErrInvalidCandidateInput,
			"election_id", election.ID,
		)
	}

	candidates, found, err := uow.Candidates(ctx, election.ID)
	if err != nil {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", err, "election_id", election.ID)
	}
	if !found {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", domainerrors.ErrInconsistentLedger,
			"election_id", election.ID,
			"reason", "candidate ledger missing",
		)
	}
	if entities.FindCandidate(candidates, candidateID) >= 0 || election.CandidateIndex(candidateID) >= 0 {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", domainerrors.ErrDuplicateCandidate,
			"election_id", election.ID,
			"candidate_id", candidateID,
		)
	}

	candidate := entities.Candidate{AccountID: candidateID, TotalVotes: 0}
	election = election.Clone()
	election.Candidates = append(election.Candidates, candidate)
	candidates = append(candidates, candidate)
	if !sameCandidates(election.Candidates, candidates) {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", domainerrors.ErrInconsistentLedger,
			"election_id", election.ID,
			"reason", "candidate views diverged",
		)
	}

	if err := uow.PutElection(election); err != nil {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", err)
	}
	if err := uow.PutCandidates(election.ID, candidates); err != nil {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", err)
	}
	if err := uc.appendEvent(ctx, uow, EventElectionCandidateRegistered, "election_id", ledger.ElectionKey(election.ID), now, map[string]any{
		"election_id":   election.ID,
		"candidate_id":  candidateID,
		"registered_by": callerID,
	}); err != nil {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", err)
	}
	if err := uow.Commit(ctx); err != nil {
		return entities.Candidate{}, uc.fail(logger, "add_candidate", err,
			"election_id", election.ID,
			"candidate_id", candidateID,
		)
	}

	uc.observe("add_candidate", nil)
	logger.Info("candidate registered",
		"event", "election_candidate_registered",
		"module", "governance/election-ledger",
		"layer", "application",
		"election_id", election.ID,
		"candidate_id", candidateID,
		"caller_id", callerID,
	)
	return candidate, nil
}

// Vote records the caller's single ballot. Checks run in a fixed order:
// election existence, active window, prior ballot, candidate existence. The
// registry, both candidate copies and the voter ledger change together or not
// at all.
func (uc ElectionUseCase) Vote(ctx context.Context, cmd VoteCommand) (entities.Voter, error) {
	logger := application.ResolveLogger(uc.Logger)
	callerID := strings.TrimSpace(cmd.CallerID)
	candidateID := strings.TrimSpace(cmd.CandidateID)
	logger.Info("vote processing started",
		"event", "election_vote_started",
		"module", "governance/election-ledger",
		"layer", "application",
		"election_id", cmd.ElectionID,
		"caller_id", callerID,
		"candidate_id", candidateID,
	)
	if callerID == "" {
		return entities.Voter{}, uc.fail(logger, "vote", domainerrors.ErrMissingCaller, "election_id", cmd.ElectionID)
	}

	unlock := uc.lock()
	defer unlock()

	uow := ledger.Begin(uc.Records)
	if _, found, err := uow.State(ctx); err != nil {
		return entities.Voter{}, uc.fail(logger, "vote", err)
	} else if !found {
		return entities.Voter{}, uc.fail(logger, "vote", domainerrors.ErrNotInitialized)
	}

	election, found, err := uow.Election(ctx, cmd.ElectionID)
	if err != nil {
		return entities.Voter{}, uc.fail(logger, "vote", err, "election_id", cmd.ElectionID)
	}
	if !found {
		return entities.Voter{}, uc.fail(logger, "vote", domainerrors.ErrElectionNotFound, "election_id", cmd.ElectionID)
	}
	now := uc.now()
	if !election.IsActive(now) {
		return entities.Voter{}, uc.fail(logger, "vote", domainerrors.ErrElectionNotActive,
			"election_id", election.ID,
			"status", string(election.Status(now)),
		)
	}
	if election.HasVoter(callerID) {
		return entities.Voter{}, uc.fail(logger, "vote", domainerrors.ErrDuplicateVote,
			"election_id", election.ID,
			"caller_id", callerID,
		)
	}

	candidates, found, err := uow.Candidates(ctx, election.ID)
	if err != nil {
		return entities.Voter{}, uc.fail(logger, "vote", err, "election_id", election.ID)
	}
	if !found {
		return entities.Voter{}, uc.fail(logger, "vote", domainerrors.ErrInconsistentLedger,
			"election_id", election.ID,
			"reason", "candidate ledger missing",
		)
	}
	ledgerIndex := entities.FindCandidate(candidates, candidateID)
	if candidateID == "" || ledgerIndex < 0 {
		return entities.Voter{}, uc.fail(logger, "vote", domainerrors.ErrCandidateNotFound,
			"election_id", election.ID,
			"candidate_id", candidateID,
		)
	}
	embeddedIndex := election.CandidateIndex(candidateID)
	if embeddedIndex < 0 {
		return entities.Voter{}, uc.fail(logger, "vote", domainerrors.ErrInconsistentLedger,
			"election_id", election.ID,
			"candidate_id", candidateID,
			"reason", "candidate missing from election",
		)
	}
	voters, found, err := uow.Voters(ctx, election.ID)
	if err != nil {
		return entities.Voter{}, uc.fail(logger, "vote", err, "election_id", election.ID)
	}
	if !found {
		return entities.Voter{}, uc.fail(logger, "vote", domainerrors.ErrInconsistentLedger,
			"election_id", election.ID,
			"reason", "voter ledger missing",
		)
	}

	voter := entities.Voter{
		AccountID:               callerID,
		VotedCandidateAccountID: candidateID,
		VotedAt:                 now,
	}
	election = election.Clone()
	election.Voters = append(election.Voters, callerID)
	election.TotalVotes++
	election.Candidates[embeddedIndex].TotalVotes++
	candidates[ledgerIndex].TotalVotes++
	voters = append(voters, voter)
	if election.Candidates[embeddedIndex] != candidates[ledgerIndex] {
		return entities.Voter{}, uc.fail(logger, "vote", domainerrors.ErrInconsistentLedger,
			"election_id", election.ID,
			"candidate_id", candidateID,
			"embedded_votes", election.Candidates[embeddedIndex].TotalVotes,
			"ledger_votes", candidates[ledgerIndex].TotalVotes,
		)
	}

	if err := uow.PutElection(election); err != nil {
		return entities.Voter{}, uc.fail(logger, "vote", err)
	}
	if err := uow.PutCandidates(election.ID, candidates); err != nil {
		return entities.Voter{}, uc.fail(logger, "vote", err)
	}
	if err := uow.PutVoters(election.ID, voters); err != nil {
		return entities.Voter{}, uc.fail(logger, "vote", err)
	}
	if err := uc.appendEvent(ctx, uow, EventElectionVoteCast, "election_id", ledger.ElectionKey(election.ID), now, map[string]any{
		"election_id":  election.ID,
		"candidate_id": candidateID,
		"voter_id":     callerID,
		"voted_at_ms":  now.UnixMilli(),
		"total_votes":  election.TotalVotes,
	}); err != nil {
		return entities.Voter{}, uc.fail(logger, "vote", err)
	}
	if err := uow.Commit(ctx); err != nil {
		return entities.Voter{}, uc.fail(logger, "vote", err,
			"election_id", election.ID,
			"candidate_id", candidateID,
		)
	}

	uc.observe("vote", nil)
	logger.Info("vote recorded",
		"event", "election_vote_recorded",
		"module", "governance/election-ledger",
		"layer", "application",
		"election_id", election.ID,
		"candidate_id", candidateID,
		"caller_id", callerID,
		"total_votes", election.TotalVotes,
	)
	return voter, nil
}

func (uc ElectionUseCase) requireAdmin(ctx context.Context, uow *ledger.UnitOfWork, callerID string) (entities.LedgerState, error) {
	state, found, err := uow.State(ctx)
	if err != nil {
		return entities.LedgerState{}, err
	}
	if !found {
		return entities.LedgerState{}, domainerrors.ErrNotInitialized
	}
	if !state.IsAdmin(callerID) {
		return entities.LedgerState{}, domainerrors.ErrForbidden
	}
	return state, nil
}

func (uc ElectionUseCase) appendEvent(
	ctx context.Context,
	uow *ledger.UnitOfWork,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) error {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newLedgerEnvelope(eventID, eventType, partitionKeyPath, partitionKey, occurredAt, data)
	if err != nil {
		return err
	}
	return uow.AppendEvent(envelope)
}

func (uc ElectionUseCase) lock() func() {
	locker := uc.Serializer
	if locker == nil {
		locker = &defaultSerializer
	}
	locker.Lock()
	return locker.Unlock
}

func (uc ElectionUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func (uc ElectionUseCase) observe(operation string, err error) {
	if uc.Metrics != nil {
		uc.Metrics.ObserveOperation(operation, domainerrors.Code(err))
	}
}

// fail records the outcome and logs it. Rule violations log at warn;
// storage and consistency failures log at error.
func (uc ElectionUseCase) fail(logger *slog.Logger, operation string, err error, attrs ...any) error {
	uc.observe(operation, err)
	code := domainerrors.Code(err)
	fields := make([]any, 0, len(attrs)+10)
	fields = append(fields,
		"event", "election_"+operation+"_failed",
		"module", "governance/election-ledger",
		"layer", "application",
		"code", code,
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	if isRuleViolation(err) {
		logger.Warn("election ledger operation rejected", fields...)
	} else {
		logger.Error("election ledger operation failed", fields...)
	}
	return err
}

func isRuleViolation(err error) bool {
	if errors.Is(err, domainerrors.ErrInconsistentLedger) || errors.Is(err, domainerrors.ErrRollbackFailed) {
		return false
	}
	return domainerrors.Code(err) != "internal_error"
}

func sameCandidates(left []entities.Candidate, right []entities.Candidate) bool {
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}
	return true
}
