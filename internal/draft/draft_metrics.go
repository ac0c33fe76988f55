package draft

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the draft pipeline.
type Metrics struct {
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	RiskScore          prometheus.Histogram
	DangerHits         prometheus.Histogram
	DraftsTotal        *prometheus.CounterVec
	SubmitsTotal       prometheus.Counter
	DecisionsTotal     *prometheus.CounterVec
	TriageTotal        *prometheus.CounterVec
	TriageConfidence   prometheus.Histogram
	DistributionsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns draft pipeline metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GenerationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_generations_total",
			Help: "Total generation jobs by strategy source and final status.",
		}, []string{"source", "status"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_generation_duration_seconds",
			Help:    "Duration of generation jobs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}, []string{"source"}),
		RiskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_risk_score",
			Help:    "Computed risk score per generated draft.",
			Buckets: prometheus.LinearBuckets(0, 20, 8), // 0 .. 140
		}),
		DangerHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_danger_hits",
			Help:    "Danger-word hits per scanned notice.",
			Buckets: prometheus.LinearBuckets(0, 1, 8), // 0 .. 7
		}),
		DraftsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_drafts_total",
			Help: "Total draft versions created by editor kind.",
		}, []string{"editor"}),
		SubmitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_draft_submits_total",
			Help: "Total drafts submitted for review.",
		}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_draft_decisions_total",
			Help: "Total approval decisions by outcome.",
		}, []string{"decision"}),
		TriageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_triage_evaluations_total",
			Help: "Total triage evaluations by outcome.",
		}, []string{"outcome"}),
		TriageConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_triage_confidence",
			Help:    "Composite confidence per triage evaluation.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0 .. 1
		}),
		DistributionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_distributions_total",
			Help: "Total distribution attempts by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.GenerationsTotal,
		m.GenerationDuration,
		m.RiskScore,
		m.DangerHits,
		m.DraftsTotal,
		m.SubmitsTotal,
		m.DecisionsTotal,
		m.TriageTotal,
		m.TriageConfidence,
		m.DistributionsTotal,
	)

	return m
}
