package pipeline

import "math"

// rollingWindow is a fixed-size trailing window over one pump's series.
// NaN slots occupy window positions but never count as observations, so
// min-periods semantics match the training pipeline.
type rollingWindow struct {
	size   int
	values []float64
	index  int
	count  int
	sum    float64
	obs    int
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{
		size:   size,
		values: make([]float64, size),
	}
}

// Add pushes a value, evicting the oldest once the window is full.
func (w *rollingWindow) Add(value float64) {
	if w.count == w.size {
		old := w.values[w.index]
		if !math.IsNaN(old) {
			w.sum -= old
			w.obs--
		}
	} else {
		w.count++
	}

	w.values[w.index] = value
	w.index = (w.index + 1) % w.size

	if !math.IsNaN(value) {
		w.sum += value
		w.obs++
	}
}

// Observed is the number of non-NaN values currently in the window.
func (w *rollingWindow) Observed() int {
	return w.obs
}

// Mean returns the trailing mean of observed values, NaN when empty.
func (w *rollingWindow) Mean() float64 {
	if w.obs == 0 {
		return math.NaN()
	}

	return w.sum / float64(w.obs)
}

// Std returns the trailing sample standard deviation. Fewer than two
// observations yield exactly 0, never NaN.
func (w *rollingWindow) Std() float64 {
	if w.obs < 2 {
		return 0
	}

	mean := w.sum / float64(w.obs)

	var variance float64

	for i := 0; i < w.count; i++ {
		v := w.values[i]
		if math.IsNaN(v) {
			continue
		}

		diff := v - mean
		variance += diff * diff
	}

	variance /= float64(w.obs - 1)

	return math.Sqrt(variance)
}
