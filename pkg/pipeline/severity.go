package pipeline

import (
	"math"
	"sort"

	"github.com/mwelling79/pumpwatch/pkg/config"
	"github.com/mwelling79/pumpwatch/pkg/models"
)

// Quantizer converts continuous anomaly scores into ordinal severities
// using empirical quantiles of the scored population.
type Quantizer struct {
	highQuantile   float64
	mediumQuantile float64
	policy         string
}

// NewQuantizer builds a quantizer from configuration.
func NewQuantizer(cfg *config.PipelineConfig) *Quantizer {
	return &Quantizer{
		highQuantile:   cfg.HighQuantile,
		mediumQuantile: cfg.MediumQuantile,
		policy:         cfg.SeverityPolicy,
	}
}

// quantile computes the linear-interpolation quantile of values. The
// input need not be sorted; ties resolve through the stable sort.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sorted := append([]float64(nil), values...)
	sort.Stable(sort.Float64Slice(sorted))

	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))

	if lo == hi {
		return sorted[lo]
	}

	frac := pos - float64(lo)

	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// CutPoints returns the HIGH and MEDIUM score boundaries for the given
// population. Which population applies depends on the configured policy:
// all scored rows, or the anomalous rows only. ok is false for an empty
// population, in which case severity is undefined for the batch.
func (z *Quantizer) CutPoints(allScores, anomalyScores []float64) (high, medium float64, ok bool) {
	population := anomalyScores
	if z.policy == config.SeverityPolicyPopulation {
		population = allScores
	}

	if len(population) == 0 {
		return 0, 0, false
	}

	return quantile(population, z.highQuantile), quantile(population, z.mediumQuantile), true
}

// Map assigns the ordinal severity for one score given the cut points.
func (*Quantizer) Map(score, high, medium float64) models.Severity {
	switch {
	case score <= high:
		return models.SeverityHigh
	case score <= medium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
