package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwelling79/pumpwatch/pkg/config"
)

func newTestSynthesizer(t *testing.T, strategy string) *ReasonSynthesizer {
	t.Helper()

	cfg := testPipelineConfig()
	cfg.ReasonStrategy = strategy

	return NewReasonSynthesizer(&cfg, NewResolver(&cfg))
}

func TestSynthesizerFindsConductivityColumn(t *testing.T) {
	s := newTestSynthesizer(t, config.ReasonStrategyThresholds)
	assert.Equal(t, "Conductivity_12", s.condFeature)
}

func TestThresholdsPressureAndCurrent(t *testing.T) {
	s := newTestSynthesizer(t, config.ReasonStrategyThresholds)
	ctx := &ReasonContext{condMedian: math.NaN()}

	row := newTestRow(101, time.Now())
	row.PressureDevPct = 0.5
	row.CurrentDevPct = -0.4

	reason := s.Explain(row, ctx)
	assert.Contains(t, reason, "Pressure significantly higher")
	assert.Contains(t, reason, "Current draw lower")
}

func TestThresholdsBelowCutoffFallsBack(t *testing.T) {
	s := newTestSynthesizer(t, config.ReasonStrategyThresholds)
	ctx := &ReasonContext{condMedian: math.NaN()}

	row := newTestRow(101, time.Now())
	row.PressureDevPct = 0.2
	row.CurrentDevPct = -0.1

	assert.Equal(t, fallbackReason, s.Explain(row, ctx))
}

func TestThresholdsFlowAgainstRecentMean(t *testing.T) {
	s := newTestSynthesizer(t, config.ReasonStrategyThresholds)
	ctx := &ReasonContext{condMedian: math.NaN()}

	row := newTestRow(101, time.Now())
	row.FlowRollMean = 10
	row.FlowRate = 6

	assert.Contains(t, s.Explain(row, ctx), "Flow rate has dropped")

	row.FlowRate = 14
	assert.Contains(t, s.Explain(row, ctx), "Flow rate is spiking")

	// A zero recent mean disables the flow check entirely.
	row.FlowRollMean = 0
	assert.Equal(t, fallbackReason, s.Explain(row, ctx))
}

func TestThresholdsConductivitySpike(t *testing.T) {
	s := newTestSynthesizer(t, config.ReasonStrategyThresholds)
	ctx := &ReasonContext{condMedian: 2.0}

	row := newTestRow(101, time.Now())
	row.Sensors["Conductivity_12"] = 3.0

	assert.Contains(t, s.Explain(row, ctx), "Conductivity higher than typical")

	row.Sensors["Conductivity_12"] = 2.5
	assert.Equal(t, fallbackReason, s.Explain(row, ctx))
}

func TestThresholdsJoinsMultipleReasons(t *testing.T) {
	s := newTestSynthesizer(t, config.ReasonStrategyThresholds)
	ctx := &ReasonContext{condMedian: 2.0}

	row := newTestRow(101, time.Now())
	row.PressureDevPct = -0.5
	row.FlowRollMean = 10
	row.FlowRate = 5
	row.Sensors["Conductivity_12"] = 5

	reason := s.Explain(row, ctx)
	assert.Contains(t, reason, "Pressure significantly lower than typical baseline. Flow rate has dropped")
	assert.Contains(t, reason, "Conductivity higher than typical")
}

func TestZScorePicksLargestDeviation(t *testing.T) {
	s := newTestSynthesizer(t, config.ReasonStrategyZScore)

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	var rows []*FeatureRow
	for i := 0; i < 10; i++ {
		row := newTestRow(101, base.Add(time.Duration(i)*time.Minute))
		row.Pressure = 100
		row.OutputCurrent = 50
		row.FlowRate = 10
		row.Frequency = 60
		rows = append(rows, row)
	}

	outlier := newTestRow(101, base.Add(10*time.Minute))
	outlier.Pressure = 100
	outlier.OutputCurrent = 90
	outlier.FlowRate = 10
	outlier.Frequency = 60
	rows = append(rows, outlier)

	ctx := s.PopulationStats(rows)
	require.NotNil(t, ctx)

	assert.Equal(t, "Current draw is well above the usual level for this pump.",
		s.Explain(outlier, ctx))
}

func TestZScoreDirection(t *testing.T) {
	s := newTestSynthesizer(t, config.ReasonStrategyZScore)

	ctx := &ReasonContext{
		means: map[string]float64{FeatPressure: 100, FeatOutputCurrent: 50, FeatFlowRate: 10, FeatFrequency: 60},
		stds:  map[string]float64{FeatPressure: 5, FeatOutputCurrent: 5, FeatFlowRate: 1, FeatFrequency: 1},
	}

	row := newTestRow(101, time.Now())
	row.Pressure = 60
	row.OutputCurrent = 50
	row.FlowRate = 10
	row.Frequency = 60

	assert.Equal(t, "Pressure is running well below its usual level for this pump.",
		s.Explain(row, ctx))
}

func TestZScoreTieResolvesToFirstInOrder(t *testing.T) {
	s := newTestSynthesizer(t, config.ReasonStrategyZScore)

	// Identical |z| everywhere: Pressure wins by order.
	ctx := &ReasonContext{
		means: map[string]float64{FeatPressure: 0, FeatOutputCurrent: 0, FeatFlowRate: 0, FeatFrequency: 0},
		stds:  map[string]float64{FeatPressure: 1, FeatOutputCurrent: 1, FeatFlowRate: 1, FeatFrequency: 1},
	}

	row := newTestRow(101, time.Now())
	row.Pressure = 2
	row.OutputCurrent = 2
	row.FlowRate = 2
	row.Frequency = 2

	assert.Equal(t, "Pressure is running well above its usual level for this pump.",
		s.Explain(row, ctx))
}

func TestPopulationStatsConstantFeatureGetsUnitStd(t *testing.T) {
	s := newTestSynthesizer(t, config.ReasonStrategyZScore)

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	var rows []*FeatureRow
	for i := 0; i < 5; i++ {
		row := newTestRow(101, base.Add(time.Duration(i)*time.Minute))
		row.Frequency = 60
		rows = append(rows, row)
	}

	ctx := s.PopulationStats(rows)
	assert.InDelta(t, 60.0, ctx.means[FeatFrequency], 1e-12)
	assert.InDelta(t, 1.0, ctx.stds[FeatFrequency], 1e-12)
}

func TestPopulationStatsConductivityMedianSkipsNaN(t *testing.T) {
	s := newTestSynthesizer(t, config.ReasonStrategyThresholds)

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	values := []float64{1, 2, math.NaN(), 3}

	var rows []*FeatureRow
	for i, v := range values {
		row := newTestRow(101, base.Add(time.Duration(i)*time.Minute))
		row.Sensors["Conductivity_12"] = v
		rows = append(rows, row)
	}

	ctx := s.PopulationStats(rows)
	assert.InDelta(t, 2.0, ctx.condMedian, 1e-12)
}
