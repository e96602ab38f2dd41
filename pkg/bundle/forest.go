package bundle

import "math"

const eulerGamma = 0.5772156649015329

// Tree is one isolation tree in sklearn's flattened array layout: node i
// is a leaf when ChildrenLeft[i] < 0.
type Tree struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	NodeSamples   []int     `json:"n_node_samples"`
}

// IsolationForest scores rows by average isolation path length. The score
// has sklearn decision_function polarity: lower is more anomalous, and the
// predicted label is -1 when the score drops below zero.
type IsolationForest struct {
	Trees      []Tree  `json:"trees"`
	MaxSamples int     `json:"max_samples"`
	Offset     float64 `json:"offset"`
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// BST search over n samples.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}

// pathLength walks one tree for one row, crediting leaves with the
// average depth of the samples they still held at training time.
func (t *Tree) pathLength(row []float64) float64 {
	node := 0
	depth := 0.0

	for t.ChildrenLeft[node] >= 0 {
		if row[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}

		depth++
	}

	return depth + averagePathLength(t.NodeSamples[node])
}

// Score returns the continuous anomaly score per row. Equivalent to
// sklearn's decision_function: -2^(-E[h(x)]/c(psi)) - offset.
func (f *IsolationForest) Score(rows [][]float64) []float64 {
	scores := make([]float64, len(rows))
	norm := averagePathLength(f.MaxSamples)

	for i, row := range rows {
		var total float64
		for ti := range f.Trees {
			total += f.Trees[ti].pathLength(row)
		}

		mean := total / float64(len(f.Trees))
		scores[i] = -math.Pow(2, -mean/norm) - f.Offset
	}

	return scores
}

// Predict returns -1 for anomalous rows and 1 for normal ones.
func (f *IsolationForest) Predict(rows [][]float64) []int {
	labels := make([]int, len(rows))

	for i, score := range f.Score(rows) {
		if score < 0 {
			labels[i] = -1
		} else {
			labels[i] = 1
		}
	}

	return labels
}

// validate checks the flattened arrays are mutually consistent before the
// forest is ever walked.
func (f *IsolationForest) validate(featureCount int) error {
	if len(f.Trees) == 0 || f.MaxSamples <= 0 {
		return ErrMalformedTree
	}

	for ti := range f.Trees {
		t := &f.Trees[ti]

		n := len(t.ChildrenLeft)
		if n == 0 || len(t.ChildrenRight) != n || len(t.Feature) != n ||
			len(t.Threshold) != n || len(t.NodeSamples) != n {
			return ErrMalformedTree
		}

		for i := 0; i < n; i++ {
			left, right := t.ChildrenLeft[i], t.ChildrenRight[i]

			if left >= n || right >= n {
				return ErrMalformedTree
			}

			if left < 0 {
				// A leaf has neither child.
				if right >= 0 {
					return ErrMalformedTree
				}

				continue
			}

			// Children must point strictly forward in the flattened
			// layout or pathLength could walk a cycle forever.
			if left <= i || right <= i {
				return ErrMalformedTree
			}

			if t.Feature[i] < 0 || t.Feature[i] >= featureCount {
				return ErrFeatureIndexOutOfBand
			}
		}
	}

	return nil
}
