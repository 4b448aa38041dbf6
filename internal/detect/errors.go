package detect

import "errors"

var (
	// ErrInsufficientData is returned by Train when fewer usable readings
	// are available than the configured minimum.
	ErrInsufficientData = errors.New("detect: insufficient training data")

	// ErrNotTrained is returned when a model score is requested before any
	// training run has completed.
	ErrNotTrained = errors.New("detect: model not trained")
)
