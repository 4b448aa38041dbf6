package detect

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/verdantio/cropsense/internal/detect/iforest"
	"github.com/verdantio/cropsense/pkg/agro"
)

// model is a fully trained detector: the fitted scaler, the forest, and the
// score offset separating anomalies from normal readings. Exported fields
// round-trip through JSON for persistence.
type model struct {
	Scaler    *iforest.Scaler `json:"scaler"`
	Forest    *iforest.Forest `json:"forest"`
	Offset    float64         `json:"offset"`
	Samples   int             `json:"samples"`
	TrainedAt time.Time       `json:"trained_at"`
}

// Detector trains and applies the isolation forest. Reads go through an
// atomic pointer so scoring never blocks behind a training run; Train itself
// is serialized.
type Detector struct {
	cfg     DetectConfig
	current atomic.Pointer[model]
	trainMu sync.Mutex
}

// NewDetector creates an untrained detector.
func NewDetector(cfg DetectConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Trained reports whether a model is loaded and ready to score.
func (d *Detector) Trained() bool {
	return d.current.Load() != nil
}

// TrainedAt returns when the current model was fitted, or the zero time.
func (d *Detector) TrainedAt() time.Time {
	if m := d.current.Load(); m != nil {
		return m.TrainedAt
	}
	return time.Time{}
}

// Train fits a new model on the given readings and swaps it in atomically.
// Returns ErrInsufficientData when fewer than the configured minimum of
// feature rows can be derived.
func (d *Detector) Train(readings []agro.SensorReading) (*agro.TrainSummary, error) {
	d.trainMu.Lock()
	defer d.trainMu.Unlock()

	matrix := featureMatrix(readings)
	if len(matrix) < d.cfg.MinTrainSamples {
		return nil, ErrInsufficientData
	}

	scaler := iforest.FitScaler(matrix)
	scaled := scaler.TransformAll(matrix)

	rng := rand.New(rand.NewSource(d.cfg.Seed))
	forest := iforest.Fit(scaled, d.cfg.Trees, d.cfg.SubsampleSize, rng)

	// Score the training set the way scoring works at prediction time:
	// negated forest scores, so more negative means more anomalous. The
	// offset is the contamination quantile; anything below it is flagged.
	scores := make([]float64, len(scaled))
	for i, row := range scaled {
		scores[i] = -forest.Score(row)
	}
	offset := quantile(scores, d.cfg.Contamination)

	m := &model{
		Scaler:    scaler,
		Forest:    forest,
		Offset:    offset,
		Samples:   len(matrix),
		TrainedAt: time.Now().UTC(),
	}
	d.current.Store(m)

	flagged := 0
	for _, s := range scores {
		if s < offset {
			flagged++
		}
	}
	mean := meanOf(scores)
	return &agro.TrainSummary{
		Samples:          len(matrix),
		Features:         numFeatures,
		AnomaliesFlagged: flagged,
		AnomalyRate:      float64(flagged) / float64(len(matrix)),
		ScoreMean:        mean,
		ScoreStd:         stdOf(scores, mean),
		TrainedAt:        m.TrainedAt,
	}, nil
}

// Score evaluates one feature row against the current model. The returned
// score is negative with lower values more anomalous; anomalous is true
// when the score falls below the trained offset.
func (d *Detector) Score(features []float64) (score float64, anomalous bool, err error) {
	m := d.current.Load()
	if m == nil {
		return 0, false, ErrNotTrained
	}
	score = -m.Forest.Score(m.Scaler.Transform(features))
	return score, score < m.Offset, nil
}

// Restore installs a previously persisted model.
func (d *Detector) Restore(m *model) {
	d.current.Store(m)
}

// snapshot returns the current model for persistence.
func (d *Detector) snapshot() *model {
	return d.current.Load()
}

// confidence maps a model score to a 0..1 confidence. Scores are negative,
// so the negation lands in (0, 1) for any realistic forest output.
func confidence(score float64) float64 {
	c := -score
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// quantile returns the q-th quantile of vals using linear interpolation
// between order statistics.
func quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
