package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcomes recorded by TurnsTotal.
const (
	OutcomeOK          = "ok"
	OutcomeEngineError = "engine_error"
)

var (
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minidxo",
			Name:      "turns_total",
			Help:      "Completed conversation turns by outcome.",
		},
		[]string{"outcome"},
	)

	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minidxo",
			Name:      "knowledge_lookups_total",
			Help:      "Knowledge lookups by the provenance of the returned evidence.",
		},
		[]string{"provenance"},
	)

	EngineCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "minidxo",
			Name:      "engine_calls_total",
			Help:      "Reasoning engine calls by caller and result.",
		},
		[]string{"caller", "result"},
	)

	ConsensusRounds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "minidxo",
			Name:      "consensus_rounds",
			Help:      "Challenge/checklist rounds executed per panel run.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		},
	)

	TurnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "minidxo",
			Name:      "turn_duration_seconds",
			Help:      "Wall time of a full conversation turn.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)
)

// RegisterMetrics registers every collector on reg. Registering twice on the
// same registry returns the AlreadyRegistered error from prometheus.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		TurnsTotal,
		LookupsTotal,
		EngineCallsTotal,
		ConsensusRounds,
		TurnDuration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// EngineCall records one reasoning engine call.
func EngineCall(caller string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	EngineCallsTotal.WithLabelValues(caller, result).Inc()
}
