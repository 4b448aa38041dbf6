package iforest

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"
)

func cluster(rng *rand.Rand, n int, center []float64, spread float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, len(center))
		for j, c := range center {
			row[j] = c + rng.NormFloat64()*spread
		}
		out[i] = row
	}
	return out
}

func TestFit_separates_outlier_from_cluster(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := cluster(rng, 300, []float64{0, 0}, 1)

	f := Fit(data, 100, 256, rand.New(rand.NewSource(42)))
	if f == nil {
		t.Fatal("Fit returned nil")
	}

	inlier := f.Score([]float64{0.1, -0.2})
	outlier := f.Score([]float64{12, 12})
	if outlier <= inlier {
		t.Fatalf("outlier score %.4f not greater than inlier score %.4f", outlier, inlier)
	}
	if outlier < 0.6 {
		t.Errorf("outlier score %.4f unexpectedly low", outlier)
	}
}

func TestFit_deterministic_for_fixed_seed(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := cluster(rng, 200, []float64{5, 5, 5}, 2)

	f1 := Fit(data, 50, 128, rand.New(rand.NewSource(42)))
	f2 := Fit(data, 50, 128, rand.New(rand.NewSource(42)))

	probe := []float64{5.5, 4.2, 6.1}
	if s1, s2 := f1.Score(probe), f2.Score(probe); s1 != s2 {
		t.Fatalf("same seed gave different scores: %v vs %v", s1, s2)
	}
}

func TestFit_empty_and_invalid_input(t *testing.T) {
	if Fit(nil, 10, 32, rand.New(rand.NewSource(1))) != nil {
		t.Error("expected nil forest for empty data")
	}
	if Fit([][]float64{{1}}, 0, 32, rand.New(rand.NewSource(1))) != nil {
		t.Error("expected nil forest for zero trees")
	}
}

func TestFit_constant_data(t *testing.T) {
	data := make([][]float64, 60)
	for i := range data {
		data[i] = []float64{3, 3}
	}
	f := Fit(data, 20, 32, rand.New(rand.NewSource(9)))
	s := f.Score([]float64{3, 3})
	if math.IsNaN(s) || math.IsInf(s, 0) {
		t.Fatalf("score on constant data is not finite: %v", s)
	}
}

func TestForest_json_roundtrip_preserves_scores(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := cluster(rng, 150, []float64{10, -10}, 1.5)
	f := Fit(data, 30, 64, rand.New(rand.NewSource(42)))

	raw, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Forest
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	probe := []float64{10.4, -9.6}
	if a, b := f.Score(probe), restored.Score(probe); a != b {
		t.Fatalf("restored forest scores differ: %v vs %v", a, b)
	}
}

func TestAvgPathLength(t *testing.T) {
	if got := avgPathLength(1); got != 0 {
		t.Errorf("c(1) = %v, want 0", got)
	}
	// c(2) = 2*(ln(1)+gamma) - 1 = 2*gamma - 1
	want := 2*eulerMascheroni - 1
	if got := avgPathLength(2); math.Abs(got-want) > 1e-9 {
		t.Errorf("c(2) = %v, want %v", got, want)
	}
	if avgPathLength(256) <= avgPathLength(16) {
		t.Error("c(n) should grow with n")
	}
}

func TestScaler_standardizes(t *testing.T) {
	data := [][]float64{{1, 10}, {2, 20}, {3, 30}}
	s := FitScaler(data)

	got := s.Transform([]float64{2, 20})
	for i, v := range got {
		if math.Abs(v) > 1e-9 {
			t.Errorf("mean row column %d = %v, want 0", i, v)
		}
	}

	scaled := s.TransformAll(data)
	for c := 0; c < 2; c++ {
		var sum, sq float64
		for _, row := range scaled {
			sum += row[c]
		}
		mean := sum / float64(len(scaled))
		for _, row := range scaled {
			d := row[c] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(len(scaled)))
		if math.Abs(mean) > 1e-9 || math.Abs(std-1) > 1e-9 {
			t.Errorf("column %d: mean=%v std=%v after scaling", c, mean, std)
		}
	}
}

func TestScaler_zero_variance_column(t *testing.T) {
	data := [][]float64{{5, 1}, {5, 2}, {5, 3}}
	s := FitScaler(data)
	got := s.Transform([]float64{5, 2})
	if got[0] != 0 {
		t.Errorf("constant column should transform to 0, got %v", got[0])
	}
}
