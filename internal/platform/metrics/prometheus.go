package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counts ledger operations by outcome code on a private registry
// so tests can build as many instances as they need.
type Prometheus struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "election_ledger_operations_total",
		Help: "Election ledger mutations by operation and outcome code",
	}, []string{"operation", "outcome"})
	registry.MustRegister(
		operations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Prometheus{
		registry:   registry,
		operations: operations,
	}
}

func (p *Prometheus) ObserveOperation(operation string, outcome string) {
	p.operations.WithLabelValues(operation, outcome).Inc()
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
