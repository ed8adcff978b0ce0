package progress

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mirrors a Progress snapshot into Prometheus gauges, one set per
// phase, each time Observe is called, without the scheduler's own
// merge/display loop depending on Prometheus at all. Purely observational:
// nothing reads the gauges back. No role in this repository creates a
// Metrics or calls Observe, so the /metrics endpoint served by main does
// not carry these gauges.
type Metrics struct {
	numExamples  *prometheus.GaugeVec
	nnzW         *prometheus.GaugeVec
	nnzV         *prometheus.GaugeVec
	objective    *prometheus.GaugeVec
	auc          *prometheus.GaugeVec
	clampedGrads *prometheus.GaugeVec
}

// NewMetrics registers the gauge vectors against reg (pass
// prometheus.DefaultRegisterer for the global registry).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	labels := []string{"phase"}
	return &Metrics{
		numExamples: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "psengine", Name: "num_examples_total", Help: "Cumulative examples processed.",
		}, labels),
		nnzW: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "psengine", Name: "nnz_w", Help: "Non-zero linear weight count.",
		}, labels),
		nnzV: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "psengine", Name: "nnz_v", Help: "Non-zero factorization weight count.",
		}, labels),
		objective: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "psengine", Name: "objective_avg", Help: "Average objective (logloss) this interval.",
		}, labels),
		auc: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "psengine", Name: "auc_avg", Help: "Average AUC this interval.",
		}, labels),
		clampedGrads: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "psengine", Name: "clamped_gradients_total", Help: "Non-finite gradients clamped to zero.",
		}, labels),
	}
}

// Observe updates the gauges for phase from a merged Progress snapshot.
func (m *Metrics) Observe(phase string, total Progress) {
	m.numExamples.WithLabelValues(phase).Set(float64(total.NumExamples))
	m.nnzW.WithLabelValues(phase).Set(float64(total.NnzW))
	m.nnzV.WithLabelValues(phase).Set(float64(total.NnzV))
	m.clampedGrads.WithLabelValues(phase).Set(float64(total.ClampedGrads))
	if total.NumExamples > 0 {
		m.objective.WithLabelValues(phase).Set(total.ObjectiveSum / float64(total.NumExamples))
	}
	if total.MinibatchCount > 0 {
		m.auc.WithLabelValues(phase).Set(total.AUCSum / float64(total.MinibatchCount))
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
