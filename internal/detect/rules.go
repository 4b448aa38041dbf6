package detect

import (
	"fmt"

	"github.com/verdantio/cropsense/pkg/agro"
)

const (
	methodRules  = "rules"
	methodForest = "isolation_forest"
)

// ruleConfidence is assigned to threshold breaches. Physically impossible
// readings get full confidence instead.
const ruleConfidence = 0.9

// malfunction flags readings no healthy sensor can produce: an unknown
// sensor type or a value outside the physical range. These never reach the
// model.
func malfunction(r agro.SensorReading) (agro.Verdict, bool) {
	if agro.ValidSensorType(r.SensorType) && agro.InBounds(r.SensorType, r.Value) {
		return agro.Verdict{}, false
	}
	return agro.Verdict{
		IsAnomaly:   true,
		Confidence:  1.0,
		AnomalyType: agro.AnomalySensorMalfunction,
		Severity:    agro.SeverityHigh,
		Method:      methodRules,
		Explanation: fmt.Sprintf("reading %.2f is outside the physical range for %s sensors", r.Value, r.SensorType),
	}, true
}

// thresholdBreach labels a reading that crossed a critical threshold for its
// sensor type. The second return is false when the value sits inside the
// critical band or no thresholds are configured.
func thresholdBreach(r agro.SensorReading, th agro.Thresholds, haveThresholds bool) (agro.AnomalyType, agro.Severity, string, bool) {
	if !haveThresholds {
		return "", "", "", false
	}

	if r.Value < th.CriticalLow {
		var t agro.AnomalyType
		var sev agro.Severity
		switch r.SensorType {
		case agro.SensorMoisture:
			t, sev = agro.AnomalyIrrigationFailure, agro.SeverityHigh
		case agro.SensorTemperature:
			t, sev = agro.AnomalyColdStress, agro.SeverityMedium
		default:
			t, sev = agro.AnomalyDryStress, agro.SeverityMedium
		}
		return t, sev, fmt.Sprintf("%s %.2f below critical threshold %.2f", r.SensorType, r.Value, th.CriticalLow), true
	}

	if r.Value > th.CriticalHigh {
		var t agro.AnomalyType
		var sev agro.Severity
		switch r.SensorType {
		case agro.SensorTemperature:
			t, sev = agro.AnomalyHeatStress, agro.SeverityHigh
		case agro.SensorHumidity:
			t, sev = agro.AnomalyExcessMoisture, agro.SeverityMedium
		default:
			// Moisture above its critical ceiling reads as a stuck or
			// flooded probe rather than irrigation excess.
			t, sev = agro.AnomalySensorMalfunction, agro.SeverityLow
		}
		return t, sev, fmt.Sprintf("%s %.2f above critical threshold %.2f", r.SensorType, r.Value, th.CriticalHigh), true
	}

	return "", "", "", false
}

// classify applies the full rule set to a reading. It is the fallback path
// for when no trained model is available. The second return is false when no
// rule matches.
func classify(r agro.SensorReading, th agro.Thresholds, haveThresholds bool) (agro.Verdict, bool) {
	if v, bad := malfunction(r); bad {
		return v, true
	}
	t, sev, why, breached := thresholdBreach(r, th, haveThresholds)
	if !breached {
		return agro.Verdict{}, false
	}
	return agro.Verdict{
		IsAnomaly:   true,
		Confidence:  ruleConfidence,
		AnomalyType: t,
		Severity:    sev,
		Method:      methodRules,
		Explanation: why,
	}, true
}
