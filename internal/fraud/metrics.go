package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_assessments_total",
			Help: "Total number of lead fraud assessments by risk level",
		},
		[]string{"risk_level"},
	)

	alertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_alerts_total",
			Help: "Total number of fraud alerts raised by alert level",
		},
		[]string{"alert_level"},
	)

	assessmentCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fraud_assessment_cache_hits_total",
			Help: "Assessments served from the fingerprint cache",
		},
	)

	assessmentScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fraud_assessment_score",
			Help:    "Distribution of total fraud scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

func recordAssessment(result FraudDetectionResult) {
	assessmentsTotal.WithLabelValues(string(result.FraudScore.RiskLevel)).Inc()
	assessmentScore.Observe(float64(result.FraudScore.TotalScore))
}

func recordAlert(level RiskLevel) {
	alertsTotal.WithLabelValues(string(level)).Inc()
}
