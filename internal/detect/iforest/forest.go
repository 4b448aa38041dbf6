// Package iforest implements an isolation forest for unsupervised anomaly
// scoring. Trees isolate points by recursive random splits; anomalous points
// need fewer splits to isolate, giving them shorter average path lengths.
package iforest

import (
	"math"
	"math/rand"
)

const eulerMascheroni = 0.5772156649

// Node is one node of an isolation tree. Exported fields allow the trained
// ensemble to round-trip through JSON for model persistence. A node with no
// children is a leaf holding the size of the sample that reached it.
type Node struct {
	Feature int     `json:"f,omitempty"`
	Split   float64 `json:"s,omitempty"`
	Left    *Node   `json:"l,omitempty"`
	Right   *Node   `json:"r,omitempty"`
	Size    int     `json:"n,omitempty"`
}

func (n *Node) leaf() bool { return n.Left == nil && n.Right == nil }

// Forest is a trained isolation forest.
type Forest struct {
	Trees       []*Node `json:"trees"`
	SampleSize  int     `json:"sample_size"`
	NumFeatures int     `json:"num_features"`
}

// Fit builds an isolation forest from row-major data. Each tree is grown on
// a random subsample (without replacement) of at most sampleSize rows, to a
// depth of ceil(log2(sampleSize)). The rng drives subsampling and split
// selection; a fixed seed yields an identical ensemble.
func Fit(data [][]float64, trees, sampleSize int, rng *rand.Rand) *Forest {
	if len(data) == 0 || trees <= 0 {
		return nil
	}
	if sampleSize <= 0 || sampleSize > len(data) {
		sampleSize = len(data)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	f := &Forest{
		Trees:       make([]*Node, 0, trees),
		SampleSize:  sampleSize,
		NumFeatures: len(data[0]),
	}
	for i := 0; i < trees; i++ {
		sample := subsample(data, sampleSize, rng)
		f.Trees = append(f.Trees, buildTree(sample, 0, maxDepth, rng))
	}
	return f
}

// Score returns the anomaly score of x in (0, 1]. Scores near 1 indicate
// points isolated quickly (anomalous); scores around 0.5 or below indicate
// points embedded in the bulk of the training data.
func (f *Forest) Score(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var total float64
	for _, root := range f.Trees {
		total += pathLength(x, root, 0)
	}
	avg := total / float64(len(f.Trees))
	denom := avgPathLength(float64(f.SampleSize))
	if denom == 0 {
		return 0
	}
	return math.Pow(2, -avg/denom)
}

func subsample(data [][]float64, n int, rng *rand.Rand) [][]float64 {
	if n >= len(data) {
		return data
	}
	idx := rng.Perm(len(data))[:n]
	out := make([][]float64, n)
	for i, j := range idx {
		out[i] = data[j]
	}
	return out
}

func buildTree(sample [][]float64, depth, maxDepth int, rng *rand.Rand) *Node {
	if depth >= maxDepth || len(sample) <= 1 {
		return &Node{Size: len(sample)}
	}

	// Candidate features are those with spread in this sample.
	cols := len(sample[0])
	candidates := make([]int, 0, cols)
	for c := 0; c < cols; c++ {
		lo, hi := columnRange(sample, c)
		if hi > lo {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return &Node{Size: len(sample)}
	}

	feature := candidates[rng.Intn(len(candidates))]
	lo, hi := columnRange(sample, feature)
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range sample {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &Node{Size: len(sample)}
	}

	return &Node{
		Feature: feature,
		Split:   split,
		Left:    buildTree(left, depth+1, maxDepth, rng),
		Right:   buildTree(right, depth+1, maxDepth, rng),
	}
}

func columnRange(sample [][]float64, col int) (lo, hi float64) {
	lo, hi = sample[0][col], sample[0][col]
	for _, row := range sample[1:] {
		v := row[col]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// pathLength walks x down the tree, adding the expected remaining depth
// adjustment at leaves that hold more than one training point.
func pathLength(x []float64, n *Node, depth float64) float64 {
	if n.leaf() {
		return depth + avgPathLength(float64(n.Size))
	}
	if n.Feature < len(x) && x[n.Feature] < n.Split {
		return pathLength(x, n.Left, depth+1)
	}
	return pathLength(x, n.Right, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search in a tree of n points: 2*H(n-1) - 2*(n-1)/n.
func avgPathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+eulerMascheroni) - 2*(n-1)/n
}
