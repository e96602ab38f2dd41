package pipeline

import (
	"math"
	"sync"
	"time"

	"github.com/mwelling79/pumpwatch/pkg/config"
)

// Engineered and raw feature column names. These must match the names the
// models were trained against byte for byte.
const (
	FeatFrequency       = "Frequency"
	FeatOutputCurrent   = "OutputCurrent"
	FeatOutputVoltage   = "OutputVoltage"
	FeatPressure        = "Pressure"
	FeatIGBTTemperature = "IGBTTemperature"
	FeatFlowRate        = "FlowRate"

	FeatPressureDev    = "pressure_dev"
	FeatCurrentDev     = "current_dev"
	FeatPressureDevPct = "pressure_dev_pct"
	FeatCurrentDevPct  = "current_dev_pct"

	FeatPressureRollMean = "Pressure_roll_mean_5"
	FeatPressureRollStd  = "Pressure_roll_std_5"
	FeatCurrentRollMean  = "OutputCurrent_roll_mean_5"
	FeatCurrentRollStd   = "OutputCurrent_roll_std_5"
	FeatFlowRollMean     = "FlowRate_roll_mean_5"
	FeatFlowRollStd      = "FlowRate_roll_std_5"
)

// builtinFeatures is every column the aligner and rolling engine produce
// regardless of sensor configuration.
var builtinFeatures = []string{
	FeatFrequency, FeatOutputCurrent, FeatOutputVoltage, FeatPressure,
	FeatIGBTTemperature, FeatFlowRate,
	FeatPressureDev, FeatCurrentDev, FeatPressureDevPct, FeatCurrentDevPct,
	FeatPressureRollMean, FeatPressureRollStd,
	FeatCurrentRollMean, FeatCurrentRollStd,
	FeatFlowRollMean, FeatFlowRollStd,
}

// ProducibleFeatures returns the full feature-name set the aligned schema
// can fill for the given configuration. Model bundles are validated
// against this set at load time.
func ProducibleFeatures(cfg *config.PipelineConfig) map[string]bool {
	set := make(map[string]bool, len(builtinFeatures)+len(cfg.Sensors))

	for _, name := range builtinFeatures {
		set[name] = true
	}

	for _, s := range cfg.Sensors {
		if s.Feature != "" {
			set[s.Feature] = true
		}
	}

	return set
}

// FeatureRow is one aligned (pumpID, bucket) row: raw telemetry, the
// engineered rolling/deviation features, and the pivoted sensor values.
// Missing values are NaN until the fill pass resolves them.
type FeatureRow struct {
	PumpID    int64
	PumpName  string
	Bucket    time.Time
	Timestamp time.Time

	Frequency       float64
	OutputCurrent   float64
	OutputVoltage   float64
	Pressure        float64
	IGBTTemperature float64
	FlowRate        float64

	PressureDev    float64
	CurrentDev     float64
	PressureDevPct float64
	CurrentDevPct  float64

	PressureRollMean float64
	PressureRollStd  float64
	CurrentRollMean  float64
	CurrentRollStd   float64
	FlowRollMean     float64
	FlowRollStd      float64

	Sensors map[string]float64
}

// Value looks a feature up by its column name. Bundles are validated at
// load time against ProducibleFeatures, so a miss here means a sensor
// column the configuration names but this row never saw; the caller
// treats that as zero after the fill pass.
func (r *FeatureRow) Value(name string) (float64, bool) {
	switch name {
	case FeatFrequency:
		return r.Frequency, true
	case FeatOutputCurrent:
		return r.OutputCurrent, true
	case FeatOutputVoltage:
		return r.OutputVoltage, true
	case FeatPressure:
		return r.Pressure, true
	case FeatIGBTTemperature:
		return r.IGBTTemperature, true
	case FeatFlowRate:
		return r.FlowRate, true
	case FeatPressureDev:
		return r.PressureDev, true
	case FeatCurrentDev:
		return r.CurrentDev, true
	case FeatPressureDevPct:
		return r.PressureDevPct, true
	case FeatCurrentDevPct:
		return r.CurrentDevPct, true
	case FeatPressureRollMean:
		return r.PressureRollMean, true
	case FeatPressureRollStd:
		return r.PressureRollStd, true
	case FeatCurrentRollMean:
		return r.CurrentRollMean, true
	case FeatCurrentRollStd:
		return r.CurrentRollStd, true
	case FeatFlowRollMean:
		return r.FlowRollMean, true
	case FeatFlowRollStd:
		return r.FlowRollStd, true
	default:
		v, ok := r.Sensors[name]
		return v, ok
	}
}

// Engine computes the rolling-window features. Partitioning comes first:
// windows never cross pump boundaries, and every computation is causal.
type Engine struct {
	baselineWindow int
	baselineMinObs int
	shortWindow    int
	shortMinObs    int
}

// NewEngine builds a rolling feature engine from configuration.
func NewEngine(cfg *config.PipelineConfig) *Engine {
	return &Engine{
		baselineWindow: cfg.BaselineWindow,
		baselineMinObs: cfg.BaselineMinObs,
		shortWindow:    cfg.ShortWindow,
		shortMinObs:    cfg.ShortMinObs,
	}
}

// Compute fills the engineered columns in place. rows must be ordered
// (pumpID, bucket) ascending; pump partitions run concurrently.
func (e *Engine) Compute(rows []*FeatureRow) {
	var wg sync.WaitGroup

	for _, partition := range partitionByPump(rows) {
		wg.Add(1)

		go func(series []*FeatureRow) {
			defer wg.Done()
			e.computePartition(series)
		}(partition)
	}

	wg.Wait()
}

func (e *Engine) computePartition(series []*FeatureRow) {
	baselinePressure := newRollingWindow(e.baselineWindow)
	baselineCurrent := newRollingWindow(e.baselineWindow)
	shortPressure := newRollingWindow(e.shortWindow)
	shortCurrent := newRollingWindow(e.shortWindow)
	shortFlow := newRollingWindow(e.shortWindow)

	for _, row := range series {
		baselinePressure.Add(row.Pressure)
		baselineCurrent.Add(row.OutputCurrent)
		shortPressure.Add(row.Pressure)
		shortCurrent.Add(row.OutputCurrent)
		shortFlow.Add(row.FlowRate)

		row.PressureDev, row.PressureDevPct = deviation(row.Pressure, baselinePressure, e.baselineMinObs)
		row.CurrentDev, row.CurrentDevPct = deviation(row.OutputCurrent, baselineCurrent, e.baselineMinObs)

		row.PressureRollMean = guardedMean(shortPressure, e.shortMinObs)
		row.PressureRollStd = shortPressure.Std()
		row.CurrentRollMean = guardedMean(shortCurrent, e.shortMinObs)
		row.CurrentRollStd = shortCurrent.Std()
		row.FlowRollMean = guardedMean(shortFlow, e.shortMinObs)
		row.FlowRollStd = shortFlow.Std()
	}
}

// deviation computes value - baseline and its percentage. Before the
// window has seen its minimum observations the baseline is undefined, and
// a baseline of exactly zero leaves the percentage undefined rather than
// dividing by zero.
func deviation(value float64, w *rollingWindow, minObs int) (dev, devPct float64) {
	if w.Observed() < minObs {
		return math.NaN(), math.NaN()
	}

	baseline := w.Mean()
	dev = value - baseline

	if baseline == 0 {
		return dev, math.NaN()
	}

	return dev, dev / baseline
}

func guardedMean(w *rollingWindow, minObs int) float64 {
	if w.Observed() < minObs {
		return math.NaN()
	}

	return w.Mean()
}

// partitionByPump splits rows into per-pump slices, preserving order.
// rows are already sorted by pump then bucket.
func partitionByPump(rows []*FeatureRow) [][]*FeatureRow {
	var partitions [][]*FeatureRow

	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].PumpID != rows[start].PumpID {
			partitions = append(partitions, rows[start:i])
			start = i
		}
	}

	return partitions
}
