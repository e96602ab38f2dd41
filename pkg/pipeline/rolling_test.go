package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollingWindowMean(t *testing.T) {
	w := newRollingWindow(3)

	assert.True(t, math.IsNaN(w.Mean()), "empty window has no mean")

	w.Add(2)
	assert.InDelta(t, 2.0, w.Mean(), 1e-12)

	w.Add(4)
	w.Add(6)
	assert.InDelta(t, 4.0, w.Mean(), 1e-12)

	// Evicts the 2, window becomes {4, 6, 8}.
	w.Add(8)
	assert.InDelta(t, 6.0, w.Mean(), 1e-12)
}

func TestRollingWindowStdSampleVariance(t *testing.T) {
	w := newRollingWindow(5)

	w.Add(2)
	w.Add(4)
	w.Add(4)
	w.Add(4)
	w.Add(6)

	// Sample std of {2,4,4,4,6} = sqrt(8/4).
	assert.InDelta(t, math.Sqrt(2), w.Std(), 1e-12)
}

func TestRollingWindowStdUnderTwoObservations(t *testing.T) {
	w := newRollingWindow(5)

	assert.Zero(t, w.Std())

	w.Add(10)
	assert.Zero(t, w.Std(), "one observation yields 0, not NaN")

	w.Add(math.NaN())
	assert.Zero(t, w.Std(), "NaN does not count as a second observation")

	w.Add(20)
	assert.InDelta(t, math.Sqrt(50), w.Std(), 1e-12)
}

func TestRollingWindowSkipsNaN(t *testing.T) {
	w := newRollingWindow(3)

	w.Add(math.NaN())
	w.Add(3)
	w.Add(math.NaN())

	assert.Equal(t, 1, w.Observed())
	assert.InDelta(t, 3.0, w.Mean(), 1e-12)

	// Pushes the first NaN out; the 3 stays in the window.
	w.Add(9)
	assert.Equal(t, 2, w.Observed())
	assert.InDelta(t, 6.0, w.Mean(), 1e-12)
}

func TestRollingWindowNaNEviction(t *testing.T) {
	w := newRollingWindow(2)

	w.Add(5)
	w.Add(math.NaN())
	// Evicts the 5; only NaN and 7 remain in window positions.
	w.Add(7)

	assert.Equal(t, 1, w.Observed())
	assert.InDelta(t, 7.0, w.Mean(), 1e-12)
}
