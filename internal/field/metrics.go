package field

import "github.com/prometheus/client_golang/prometheus"

// Prometheus telemetry metrics.
var (
	readingsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropsense_field_readings_ingested_total",
			Help: "Total sensor readings ingested, by sensor type and source.",
		},
		[]string{"sensor_type", "source"},
	)
	readingsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropsense_field_readings_rejected_total",
			Help: "Total sensor readings rejected at ingest, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(readingsIngested)
	prometheus.MustRegister(readingsRejected)
}
