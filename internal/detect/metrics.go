package detect

import "github.com/prometheus/client_golang/prometheus"

// Prometheus detection metrics.
var (
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropsense_detect_evaluations_total",
			Help: "Total readings evaluated, by scoring method.",
		},
		[]string{"method"},
	)
	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropsense_detect_anomalies_total",
			Help: "Total anomalies recorded, by type and severity.",
		},
		[]string{"anomaly_type", "severity"},
	)
	modelTrainedTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cropsense_detect_model_trained_timestamp_seconds",
			Help: "Unix time of the last successful model training.",
		},
	)
	trainSamples = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cropsense_detect_train_samples",
			Help: "Number of feature rows used by the last training run.",
		},
	)
)

func init() {
	prometheus.MustRegister(evaluationsTotal)
	prometheus.MustRegister(anomaliesTotal)
	prometheus.MustRegister(modelTrainedTimestamp)
	prometheus.MustRegister(trainSamples)
}
