package pipeline

import (
	"math"
	"strings"

	"github.com/mwelling79/pumpwatch/pkg/config"
)

const fallbackReason = "Model flagged this point as anomalous based on combined sensor patterns."

// Deviation-percentage and ratio cut points for the threshold strategy.
const (
	devPctThreshold = 0.35
	flowDropRatio   = 0.7
	flowSpikeRatio  = 1.3
	condSpikeRatio  = 1.3
)

// zScoreOrder is the fixed, ordered set of explanation features the
// z-score strategy inspects. Ties on |z| resolve to the first in order.
var zScoreOrder = []string{FeatPressure, FeatOutputCurrent, FeatFlowRate, FeatFrequency}

// zScoreTemplates is keyed by feature then direction of deviation.
var zScoreTemplates = map[string][2]string{
	FeatPressure: {
		"Pressure is running well below its usual level for this pump.",
		"Pressure is running well above its usual level for this pump.",
	},
	FeatOutputCurrent: {
		"Current draw is well below the usual level for this pump.",
		"Current draw is well above the usual level for this pump.",
	},
	FeatFlowRate: {
		"Flow rate is well below the usual level for this pump.",
		"Flow rate is well above the usual level for this pump.",
	},
	FeatFrequency: {
		"Drive frequency is well below its usual operating point.",
		"Drive frequency is well above its usual operating point.",
	},
}

// ReasonContext carries the population summary statistics one batch of
// explanations shares: the conductivity median for the threshold strategy
// and per-feature mean/std for the z-score strategy.
type ReasonContext struct {
	condMedian float64
	means      map[string]float64
	stds       map[string]float64
}

// ReasonSynthesizer renders a deterministic natural-language explanation
// for one anomalous row.
type ReasonSynthesizer struct {
	strategy    string
	condFeature string
}

// NewReasonSynthesizer builds a synthesizer from configuration. The
// conductivity column, when the site has one, is the first configured
// sensor feature named Conductivity*.
func NewReasonSynthesizer(cfg *config.PipelineConfig, resolver *Resolver) *ReasonSynthesizer {
	s := &ReasonSynthesizer{strategy: cfg.ReasonStrategy}

	for _, feature := range resolver.SensorFeatures() {
		if strings.HasPrefix(feature, "Conductivity") {
			s.condFeature = feature
			break
		}
	}

	return s
}

// PopulationStats summarizes the full scored population once per batch.
func (s *ReasonSynthesizer) PopulationStats(rows []*FeatureRow) *ReasonContext {
	ctx := &ReasonContext{
		condMedian: math.NaN(),
		means:      make(map[string]float64, len(zScoreOrder)),
		stds:       make(map[string]float64, len(zScoreOrder)),
	}

	if len(rows) == 0 {
		return ctx
	}

	if s.condFeature != "" {
		values := make([]float64, 0, len(rows))

		for _, row := range rows {
			if v, ok := row.Sensors[s.condFeature]; ok && !math.IsNaN(v) {
				values = append(values, v)
			}
		}

		ctx.condMedian = quantile(values, 0.5)
	}

	for _, feature := range zScoreOrder {
		mean, std := meanStd(rows, feature)
		ctx.means[feature] = mean
		ctx.stds[feature] = std
	}

	return ctx
}

// meanStd is the population mean and standard deviation of one feature. A
// zero or undefined std is replaced by 1.0 so z-scores stay finite.
func meanStd(rows []*FeatureRow, feature string) (mean, std float64) {
	var sum float64

	for _, row := range rows {
		v, _ := row.Value(feature)
		sum += v
	}

	mean = sum / float64(len(rows))

	var variance float64

	for _, row := range rows {
		v, _ := row.Value(feature)
		diff := v - mean
		variance += diff * diff
	}

	std = math.Sqrt(variance / float64(len(rows)))
	if std == 0 || math.IsNaN(std) {
		std = 1.0
	}

	return mean, std
}

// Explain renders the reason for one anomalous row.
func (s *ReasonSynthesizer) Explain(row *FeatureRow, ctx *ReasonContext) string {
	if s.strategy == config.ReasonStrategyZScore {
		return s.explainZScore(row, ctx)
	}

	return s.explainThresholds(row, ctx)
}

// explainThresholds walks the threshold conditions in priority order and
// appends every one that fires, space-joined.
func (s *ReasonSynthesizer) explainThresholds(row *FeatureRow, ctx *ReasonContext) string {
	var reasons []string

	if !math.IsNaN(row.PressureDevPct) {
		if row.PressureDevPct > devPctThreshold {
			reasons = append(reasons, "Pressure significantly higher than typical baseline.")
		} else if row.PressureDevPct < -devPctThreshold {
			reasons = append(reasons, "Pressure significantly lower than typical baseline.")
		}
	}

	if !math.IsNaN(row.CurrentDevPct) {
		if row.CurrentDevPct > devPctThreshold {
			reasons = append(reasons, "Current draw higher than expected for this pump.")
		} else if row.CurrentDevPct < -devPctThreshold {
			reasons = append(reasons, "Current draw lower than expected for this pump.")
		}
	}

	if row.FlowRollMean != 0 && !math.IsNaN(row.FlowRollMean) && !math.IsInf(row.FlowRollMean, 0) {
		if row.FlowRate < flowDropRatio*row.FlowRollMean {
			reasons = append(reasons, "Flow rate has dropped compared to recent history.")
		} else if row.FlowRate > flowSpikeRatio*row.FlowRollMean {
			reasons = append(reasons, "Flow rate is spiking compared to recent history.")
		}
	}

	if s.condFeature != "" && !math.IsNaN(ctx.condMedian) && ctx.condMedian > 0 {
		if cond, ok := row.Sensors[s.condFeature]; ok && !math.IsNaN(cond) && cond > condSpikeRatio*ctx.condMedian {
			reasons = append(reasons, "Conductivity higher than typical for this pump.")
		}
	}

	if len(reasons) == 0 {
		return fallbackReason
	}

	return strings.Join(reasons, " ")
}

// explainZScore picks the single feature deviating furthest from the
// population in standard deviations and renders its template.
func (s *ReasonSynthesizer) explainZScore(row *FeatureRow, ctx *ReasonContext) string {
	bestFeature := ""
	bestZ := 0.0
	bestAbs := math.Inf(-1)

	for _, feature := range zScoreOrder {
		v, _ := row.Value(feature)
		z := (v - ctx.means[feature]) / ctx.stds[feature]

		if abs := math.Abs(z); abs > bestAbs {
			bestAbs = abs
			bestZ = z
			bestFeature = feature
		}
	}

	if bestFeature == "" {
		return fallbackReason
	}

	templates := zScoreTemplates[bestFeature]
	if bestZ >= 0 {
		return templates[1]
	}

	return templates[0]
}
