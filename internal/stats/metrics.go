package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gensuite/internal/chromosome"
)

// knownAlgorithms bounds the algorithm label; anything else is "unknown".
var knownAlgorithms = map[string]bool{
	"random":           true,
	"random_test_case": true,
	"whole_suite":      true,
	"mosa":             true,
	"mio":              true,
}

func sanitizeAlgorithm(name string) string {
	if knownAlgorithms[name] {
		return name
	}
	return "unknown"
}

// Metrics holds the search collectors registered on one registry. Create
// it once per process and derive a RunMetrics observer per search.
type Metrics struct {
	iterations *prometheus.CounterVec
	runs       *prometheus.CounterVec
	coverage   *prometheus.GaugeVec
	fitness    *prometheus.GaugeVec
	size       *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "gensuite"
	}
	factory := promauto.With(reg)
	labels := []string{"algorithm", "subject"}
	return &Metrics{
		iterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "iterations_total",
			Help:      "Total search iterations by algorithm and subject",
		}, labels),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "runs_total",
			Help:      "Total finished searches by algorithm and subject",
		}, labels),
		coverage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "coverage_ratio",
			Help:      "Coverage of the current best suite",
		}, labels),
		fitness: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "fitness",
			Help:      "Fitness of the current best suite, lower is better",
		}, labels),
		size: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "suite_size",
			Help:      "Number of test cases in the current best suite",
		}, labels),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Wall time of finished searches",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, labels),
	}
}

// ForRun returns an observer reporting one search under the given labels.
func (m *Metrics) ForRun(algorithm, subject string) *RunMetrics {
	labels := prometheus.Labels{"algorithm": sanitizeAlgorithm(algorithm), "subject": subject}
	return &RunMetrics{
		iterations: m.iterations.With(labels),
		runs:       m.runs.With(labels),
		coverage:   m.coverage.With(labels),
		fitness:    m.fitness.With(labels),
		size:       m.size.With(labels),
		duration:   m.duration.With(labels),
		now:        time.Now,
	}
}

type RunMetrics struct {
	iterations prometheus.Counter
	runs       prometheus.Counter
	coverage   prometheus.Gauge
	fitness    prometheus.Gauge
	size       prometheus.Gauge
	duration   prometheus.Observer
	now        func() time.Time
	start      time.Time
}

func (r *RunMetrics) BeforeSearchStart(start time.Time) { r.start = start }

func (r *RunMetrics) BeforeFirstSearchIteration(initial *chromosome.TestSuiteChromosome) {
	r.record(initial)
}

func (r *RunMetrics) AfterSearchIteration(best *chromosome.TestSuiteChromosome) {
	r.iterations.Inc()
	r.record(best)
}

func (r *RunMetrics) AfterSearchFinish() {
	r.runs.Inc()
	r.duration.Observe(r.now().Sub(r.start).Seconds())
}

func (r *RunMetrics) record(suite *chromosome.TestSuiteChromosome) {
	r.coverage.Set(suite.Coverage())
	r.fitness.Set(suite.Fitness())
	r.size.Set(float64(suite.Size()))
}
