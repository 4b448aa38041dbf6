package iforest

import "math"

// Scaler standardizes feature vectors to zero mean and unit variance,
// using statistics captured from the training set. Exported fields make
// the fitted state part of the persisted model.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and population standard deviation.
// Columns with zero spread get a std of 1 so transforming them is a no-op
// shift rather than a division by zero.
func FitScaler(data [][]float64) *Scaler {
	if len(data) == 0 {
		return &Scaler{}
	}
	cols := len(data[0])
	s := &Scaler{
		Mean: make([]float64, cols),
		Std:  make([]float64, cols),
	}
	for c := 0; c < cols; c++ {
		var sum float64
		for _, row := range data {
			sum += row[c]
		}
		mean := sum / float64(len(data))
		var sq float64
		for _, row := range data {
			d := row[c] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(len(data)))
		if std == 0 {
			std = 1
		}
		s.Mean[c] = mean
		s.Std[c] = std
	}
	return s
}

// Transform returns a standardized copy of x.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if i < len(s.Mean) {
			out[i] = (v - s.Mean[i]) / s.Std[i]
		} else {
			out[i] = v
		}
	}
	return out
}

// TransformAll standardizes every row of data.
func (s *Scaler) TransformAll(data [][]float64) [][]float64 {
	out := make([][]float64, len(data))
	for i, row := range data {
		out[i] = s.Transform(row)
	}
	return out
}
