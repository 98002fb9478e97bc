package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperationCountsByOutcome(t *testing.T) {
	p := NewPrometheus()
	p.ObserveOperation("vote", "ok")
	p.ObserveOperation("vote", "ok")
	p.ObserveOperation("vote", "duplicate_vote")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.operations.WithLabelValues("vote", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.operations.WithLabelValues("vote", "duplicate_vote")))

	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `election_ledger_operations_total{operation="vote",outcome="ok"} 2`)
}

func TestInstancesDoNotShareRegistries(t *testing.T) {
	first := NewPrometheus()
	second := NewPrometheus()
	first.ObserveOperation("create_election", "ok")

	assert.NotSame(t, first.Registry(), second.Registry())
	assert.Equal(t, 0.0, testutil.ToFloat64(second.operations.WithLabelValues("create_election", "ok")))
}
