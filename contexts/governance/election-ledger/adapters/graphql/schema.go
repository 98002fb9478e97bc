package graphqladapter

import (
	"context"
	"fmt"
	"math"
	"strings"

	httpadapter "electionledger/contexts/governance/election-ledger/adapters/http"
	domainerrors "electionledger/contexts/governance/election-ledger/domain/errors"
	httptransport "electionledger/contexts/governance/election-ledger/transport/http"

	"github.com/graphql-go/graphql"
)

type callerKey struct{}

// WithCaller attaches the authenticated caller id to ctx for mutations.
func WithCaller(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, callerKey{}, strings.TrimSpace(callerID))
}

func callerFrom(ctx context.Context) string {
	value, _ := ctx.Value(callerKey{}).(string)
	return value
}

// Field names mirror the JSON transport so the default resolver reads the
// DTO tags directly. Millisecond instants exceed Int's 32 bits and travel as
// Float.
var candidateType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Candidate",
	Fields: graphql.Fields{
		"account_id":  &graphql.Field{Type: graphql.String},
		"total_votes": &graphql.Field{Type: graphql.Int},
	},
})

var voterType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Voter",
	Fields: graphql.Fields{
		"account_id":                 &graphql.Field{Type: graphql.String},
		"voted_candidate_account_id": &graphql.Field{Type: graphql.String},
		"voted_at_ms":                &graphql.Field{Type: graphql.Float},
	},
})

var electionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Election",
	Fields: graphql.Fields{
		"id":            &graphql.Field{Type: graphql.Int},
		"name":          &graphql.Field{Type: graphql.String},
		"starts_at_ms":  &graphql.Field{Type: graphql.Float},
		"ends_at_ms":    &graphql.Field{Type: graphql.Float},
		"candidates":    &graphql.Field{Type: graphql.NewList(candidateType)},
		"voters":        &graphql.Field{Type: graphql.NewList(graphql.String)},
		"total_votes":   &graphql.Field{Type: graphql.Int},
		"status":        &graphql.Field{Type: graphql.String},
		"created_by":    &graphql.Field{Type: graphql.String},
		"created_at_ms": &graphql.Field{Type: graphql.Float},
	},
})

var candidateResultType = graphql.NewObject(graphql.ObjectConfig{
	Name: "CandidateResult",
	Fields: graphql.Fields{
		"account_id":  &graphql.Field{Type: graphql.String},
		"total_votes": &graphql.Field{Type: graphql.Int},
		"percentage":  &graphql.Field{Type: graphql.Float},
	},
})

var resultsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ElectionResults",
	Fields: graphql.Fields{
		"election_id": &graphql.Field{Type: graphql.Int},
		"name":        &graphql.Field{Type: graphql.String},
		"status":      &graphql.Field{Type: graphql.String},
		"total_votes": &graphql.Field{Type: graphql.Int},
		"candidates":  &graphql.Field{Type: graphql.NewList(candidateResultType)},
	},
})

var ledgerStateType = graphql.NewObject(graphql.ObjectConfig{
	Name: "LedgerState",
	Fields: graphql.Fields{
		"admins":            &graphql.Field{Type: graphql.NewList(graphql.String)},
		"next_election_id":  &graphql.Field{Type: graphql.Int},
		"initialized_at_ms": &graphql.Field{Type: graphql.Float},
	},
})

// NewSchema builds the GraphQL surface over the same handler the REST routes
// use.
func NewSchema(h httpadapter.Handler) (graphql.Schema, error) {
	electionIDArg := graphql.FieldConfigArgument{
		"electionId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"election": &graphql.Field{
				Type: electionType,
				Args: electionIDArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					resp, err := h.GetElectionHandler(p.Context, electionID(p))
					if err != nil {
						return nil, wrapError(err)
					}
					return resp, nil
				},
			},
			"elections": &graphql.Field{
				Type: graphql.NewList(electionType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					resp, err := h.ListElectionsHandler(p.Context)
					if err != nil {
						return nil, wrapError(err)
					}
					return resp.Items, nil
				},
			},
			"candidates": &graphql.Field{
				Type: graphql.NewList(candidateType),
				Args: electionIDArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					resp, err := h.CandidatesHandler(p.Context, electionID(p))
					if err != nil {
						return nil, wrapError(err)
					}
					return resp.Items, nil
				},
			},
			"voters": &graphql.Field{
				Type: graphql.NewList(voterType),
				Args: graphql.FieldConfigArgument{
					"electionId":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"candidateId": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					candidateID, _ := p.Args["candidateId"].(string)
					resp, err := h.VotersHandler(p.Context, electionID(p), strings.TrimSpace(candidateID))
					if err != nil {
						return nil, wrapError(err)
					}
					return resp.Items, nil
				},
			},
			"results": &graphql.Field{
				Type: resultsType,
				Args: electionIDArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					resp, err := h.ResultsHandler(p.Context, electionID(p))
					if err != nil {
						return nil, wrapError(err)
					}
					return resp, nil
				},
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"initLedger": &graphql.Field{
				Type: ledgerStateType,
				Args: graphql.FieldConfigArgument{
					"admins": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if callerFrom(p.Context) == "" {
						return nil, wrapError(domainerrors.ErrMissingCaller)
					}
					raw, _ := p.Args["admins"].([]interface{})
					admins := make([]string, 0, len(raw))
					for _, item := range raw {
						if value, ok := item.(string); ok {
							admins = append(admins, value)
						}
					}
					resp, err := h.InitLedgerHandler(p.Context, httptransport.InitLedgerRequest{Admins: admins})
					if err != nil {
						return nil, wrapError(err)
					}
					return resp, nil
				},
			},
			"createElection": &graphql.Field{
				Type: graphql.Int,
				Args: graphql.FieldConfigArgument{
					"name":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"startsAtMs": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"endsAtMs":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					name, _ := p.Args["name"].(string)
					startsAt, startsOK := millisArg(p, "startsAtMs")
					endsAt, endsOK := millisArg(p, "endsAtMs")
					if !startsOK || !endsOK {
						return nil, wrapError(domainerrors.ErrInvalidElectionInput)
					}
					resp, err := h.CreateElectionHandler(p.Context, callerFrom(p.Context), httptransport.CreateElectionRequest{
						Name:       name,
						StartsAtMS: startsAt,
						EndsAtMS:   endsAt,
					})
					if err != nil {
						return nil, wrapError(err)
					}
					return resp.ElectionID, nil
				},
			},
			"addCandidate": &graphql.Field{
				Type: candidateType,
				Args: graphql.FieldConfigArgument{
					"electionId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"accountId":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					accountID, _ := p.Args["accountId"].(string)
					resp, err := h.AddCandidateHandler(p.Context, callerFrom(p.Context), electionID(p), httptransport.AddCandidateRequest{
						AccountID: accountID,
					})
					if err != nil {
						return nil, wrapError(err)
					}
					return resp, nil
				},
			},
			"vote": &graphql.Field{
				Type: voterType,
				Args: graphql.FieldConfigArgument{
					"electionId":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"candidateId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					candidateID, _ := p.Args["candidateId"].(string)
					resp, err := h.VoteHandler(p.Context, callerFrom(p.Context), electionID(p), httptransport.VoteRequest{
						CandidateID: candidateID,
					})
					if err != nil {
						return nil, wrapError(err)
					}
					return resp.Voter, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}

// maxInstantMillis is 9999-12-31T23:59:59.999Z in Unix milliseconds.
const maxInstantMillis = 253402300799999

// millisArg narrows a Float argument to whole Unix milliseconds. Fractional,
// non-finite and out-of-range values are rejected.
func millisArg(p graphql.ResolveParams, name string) (int64, bool) {
	value, ok := p.Args[name].(float64)
	if !ok || math.Trunc(value) != value || math.Abs(value) > maxInstantMillis {
		return 0, false
	}
	return int64(value), true
}

func electionID(p graphql.ResolveParams) int64 {
	value, _ := p.Args["electionId"].(int)
	return int64(value)
}

// wrapError prefixes the stable error code so GraphQL clients can branch on
// it without parsing prose.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", domainerrors.Code(err), err)
}
