package detect

import (
	"testing"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
)

func TestClassify(t *testing.T) {
	defaults := agro.DefaultThresholds()
	ts := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		sensorType agro.SensorType
		value      float64
		wantMatch  bool
		wantType   agro.AnomalyType
		wantSev    agro.Severity
		wantConf   float64
	}{
		{
			name:       "moisture below critical is irrigation failure",
			sensorType: agro.SensorMoisture,
			value:      20,
			wantMatch:  true,
			wantType:   agro.AnomalyIrrigationFailure,
			wantSev:    agro.SeverityHigh,
			wantConf:   ruleConfidence,
		},
		{
			name:       "temperature above critical is heat stress",
			sensorType: agro.SensorTemperature,
			value:      38,
			wantMatch:  true,
			wantType:   agro.AnomalyHeatStress,
			wantSev:    agro.SeverityHigh,
			wantConf:   ruleConfidence,
		},
		{
			name:       "temperature below critical is cold stress",
			sensorType: agro.SensorTemperature,
			value:      5,
			wantMatch:  true,
			wantType:   agro.AnomalyColdStress,
			wantSev:    agro.SeverityMedium,
			wantConf:   ruleConfidence,
		},
		{
			name:       "humidity below critical is dry stress",
			sensorType: agro.SensorHumidity,
			value:      20,
			wantMatch:  true,
			wantType:   agro.AnomalyDryStress,
			wantSev:    agro.SeverityMedium,
			wantConf:   ruleConfidence,
		},
		{
			name:       "humidity above critical is excess moisture",
			sensorType: agro.SensorHumidity,
			value:      90,
			wantMatch:  true,
			wantType:   agro.AnomalyExcessMoisture,
			wantSev:    agro.SeverityMedium,
			wantConf:   ruleConfidence,
		},
		{
			name:       "moisture above critical reads as sensor malfunction",
			sensorType: agro.SensorMoisture,
			value:      90,
			wantMatch:  true,
			wantType:   agro.AnomalySensorMalfunction,
			wantSev:    agro.SeverityLow,
			wantConf:   ruleConfidence,
		},
		{
			name:       "moisture out of physical range",
			sensorType: agro.SensorMoisture,
			value:      110,
			wantMatch:  true,
			wantType:   agro.AnomalySensorMalfunction,
			wantSev:    agro.SeverityHigh,
			wantConf:   1.0,
		},
		{
			name:       "temperature below physical range",
			sensorType: agro.SensorTemperature,
			value:      -30,
			wantMatch:  true,
			wantType:   agro.AnomalySensorMalfunction,
			wantSev:    agro.SeverityHigh,
			wantConf:   1.0,
		},
		{
			name:       "humidity in normal range matches nothing",
			sensorType: agro.SensorHumidity,
			value:      50,
			wantMatch:  false,
		},
		{
			name:       "moisture in normal range matches nothing",
			sensorType: agro.SensorMoisture,
			value:      60,
			wantMatch:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := agro.SensorReading{
				PlotID:     "plot-1",
				SensorType: tt.sensorType,
				Value:      tt.value,
				Timestamp:  ts,
			}
			th, ok := defaults[tt.sensorType]

			v, matched := classify(r, th, ok)
			if matched != tt.wantMatch {
				t.Fatalf("matched = %v, want %v", matched, tt.wantMatch)
			}
			if !tt.wantMatch {
				return
			}
			if !v.IsAnomaly {
				t.Error("IsAnomaly = false, want true")
			}
			if v.AnomalyType != tt.wantType {
				t.Errorf("AnomalyType = %q, want %q", v.AnomalyType, tt.wantType)
			}
			if v.Severity != tt.wantSev {
				t.Errorf("Severity = %q, want %q", v.Severity, tt.wantSev)
			}
			if v.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", v.Confidence, tt.wantConf)
			}
			if v.Method != methodRules {
				t.Errorf("Method = %q, want %q", v.Method, methodRules)
			}
			if v.Explanation == "" {
				t.Error("Explanation is empty")
			}
		})
	}
}

func TestClassify_UnknownSensorType(t *testing.T) {
	r := agro.SensorReading{
		PlotID:     "plot-1",
		SensorType: agro.SensorType("ph"),
		Value:      7,
		Timestamp:  time.Now(),
	}
	v, matched := classify(r, agro.Thresholds{}, false)
	if !matched {
		t.Fatal("unknown sensor type should match as malfunction")
	}
	if v.AnomalyType != agro.AnomalySensorMalfunction {
		t.Errorf("AnomalyType = %q, want %q", v.AnomalyType, agro.AnomalySensorMalfunction)
	}
	if v.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", v.Confidence)
	}
}
