package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/mwelling79/pumpwatch/pkg/config"
	"github.com/mwelling79/pumpwatch/pkg/models"
)

// bucketKey is the join key of the aligned series. At most one aligned
// row exists per key.
type bucketKey struct {
	pumpID int64
	bucket int64
}

// Aligner floors every reading onto the bucket grid and merges the three
// streams into one row per (pumpID, bucketStart). Telemetry is the anchor
// stream: buckets without a telemetry row are dropped, while empty sensor
// or flow streams only leave NaN columns for the fill pass.
type Aligner struct {
	resolver  *Resolver
	bucket    time.Duration
	tolerance time.Duration
	features  []string
}

// NewAligner builds an aligner from configuration.
func NewAligner(cfg *config.PipelineConfig, resolver *Resolver) *Aligner {
	return &Aligner{
		resolver:  resolver,
		bucket:    time.Duration(cfg.BucketSize),
		tolerance: time.Duration(cfg.AsofTolerance),
		features:  resolver.SensorFeatures(),
	}
}

func (a *Aligner) bucketOf(ts time.Time) time.Time {
	return ts.Truncate(a.bucket)
}

// BuildRows anchors the aligned series on telemetry and left-joins the
// bucket-mean flow rate. Multiple telemetry samples in one bucket collapse
// to the last in timestamp order; returned rows are sorted (pump, bucket).
func (a *Aligner) BuildRows(telemetry []models.PumpReading, flows []models.FlowReading) []*FeatureRow {
	flowMeans := a.aggregateFlow(flows)

	byKey := make(map[bucketKey]*FeatureRow)

	var rows []*FeatureRow

	for i := range telemetry {
		r := &telemetry[i]
		if !a.resolver.Allowed(r.PumpID) {
			continue
		}

		bucket := a.bucketOf(r.Timestamp)
		key := bucketKey{pumpID: r.PumpID, bucket: bucket.UnixNano()}

		row, exists := byKey[key]
		if !exists {
			row = &FeatureRow{
				PumpID:  r.PumpID,
				Bucket:  bucket,
				Sensors: make(map[string]float64, len(a.features)),
			}
			byKey[key] = row
			rows = append(rows, row)
		}

		// Last sample in the bucket wins; input arrives ascending.
		row.PumpName = r.Name
		row.Timestamp = r.Timestamp
		row.Frequency = r.Frequency
		row.OutputCurrent = r.OutputCurrent
		row.OutputVoltage = r.OutputVoltage
		row.Pressure = r.Pressure
		row.IGBTTemperature = r.IGBTTemperature

		if mean, ok := flowMeans[key]; ok {
			row.FlowRate = mean
		} else {
			row.FlowRate = math.NaN()
		}

		if !exists {
			row.PressureDev = math.NaN()
			row.CurrentDev = math.NaN()
			row.PressureDevPct = math.NaN()
			row.CurrentDevPct = math.NaN()
			row.PressureRollMean = math.NaN()
			row.PressureRollStd = math.NaN()
			row.CurrentRollMean = math.NaN()
			row.CurrentRollStd = math.NaN()
			row.FlowRollMean = math.NaN()
			row.FlowRollStd = math.NaN()
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].PumpID != rows[j].PumpID {
			return rows[i].PumpID < rows[j].PumpID
		}

		return rows[i].Bucket.Before(rows[j].Bucket)
	})

	return rows
}

// aggregateFlow maps flow readings onto pumps and takes the mean of all
// readings landing in the same bucket.
func (a *Aligner) aggregateFlow(flows []models.FlowReading) map[bucketKey]float64 {
	type acc struct {
		sum   float64
		count int
	}

	sums := make(map[bucketKey]*acc)

	for i := range flows {
		f := &flows[i]

		pumpID, ok := a.resolver.PumpForFlowMeter(f.FlowMeterID)
		if !ok {
			continue
		}

		key := bucketKey{pumpID: pumpID, bucket: a.bucketOf(f.Timestamp).UnixNano()}

		entry, exists := sums[key]
		if !exists {
			entry = &acc{}
			sums[key] = entry
		}

		entry.sum += f.FlowRate
		entry.count++
	}

	means := make(map[bucketKey]float64, len(sums))
	for key, entry := range sums {
		means[key] = entry.sum / float64(entry.count)
	}

	return means
}

// JoinSensors pivots sensor readings onto the aligned rows. The default
// mode joins on bucket equality, keeping the last reading per bucket in
// stream order. When no flow meters are configured the series is sparser,
// and the join falls back to nearest-timestamp within the tolerance.
// Either way every configured feature column exists afterward, NaN where
// nothing matched.
func (a *Aligner) JoinSensors(rows []*FeatureRow, sensors []models.SensorReading) {
	if len(a.resolver.FlowMeterIDs()) == 0 {
		a.joinSensorsNearest(rows, sensors)
		return
	}

	pivot := make(map[bucketKey]map[string]float64)

	for i := range sensors {
		s := &sensors[i]

		pumpID, ok := a.resolver.PumpForSensor(s.SensorID)
		if !ok {
			continue
		}

		feature, ok := a.resolver.FeatureForSensor(s.SensorID)
		if !ok {
			continue
		}

		key := bucketKey{pumpID: pumpID, bucket: a.bucketOf(s.Timestamp).UnixNano()}

		cell, exists := pivot[key]
		if !exists {
			cell = make(map[string]float64)
			pivot[key] = cell
		}

		// Readings arrive ascending; overwriting keeps the last one.
		cell[feature] = s.Value
	}

	for _, row := range rows {
		key := bucketKey{pumpID: row.PumpID, bucket: row.Bucket.UnixNano()}
		cell := pivot[key]

		for _, feature := range a.features {
			if v, ok := cell[feature]; ok {
				row.Sensors[feature] = v
			} else {
				row.Sensors[feature] = math.NaN()
			}
		}
	}
}

type sensorPoint struct {
	ts    time.Time
	value float64
}

type seriesKey struct {
	pumpID  int64
	feature string
}

func (a *Aligner) joinSensorsNearest(rows []*FeatureRow, sensors []models.SensorReading) {
	series := make(map[seriesKey][]sensorPoint)

	for i := range sensors {
		s := &sensors[i]

		pumpID, ok := a.resolver.PumpForSensor(s.SensorID)
		if !ok {
			continue
		}

		feature, ok := a.resolver.FeatureForSensor(s.SensorID)
		if !ok {
			continue
		}

		key := seriesKey{pumpID: pumpID, feature: feature}
		series[key] = append(series[key], sensorPoint{ts: s.Timestamp, value: s.Value})
	}

	for _, row := range rows {
		for _, feature := range a.features {
			points := series[seriesKey{pumpID: row.PumpID, feature: feature}]
			row.Sensors[feature] = nearestWithin(points, row.Bucket, a.tolerance)
		}
	}
}

// nearestWithin finds the reading closest to ts within the tolerance on
// either side; the earlier point wins an exact tie. Returns NaN when no
// point qualifies.
func nearestWithin(points []sensorPoint, ts time.Time, tolerance time.Duration) float64 {
	if len(points) == 0 {
		return math.NaN()
	}

	// First point at or after ts.
	idx := sort.Search(len(points), func(i int) bool {
		return !points[i].ts.Before(ts)
	})

	best := math.NaN()
	bestDiff := tolerance + 1

	if idx < len(points) {
		if diff := points[idx].ts.Sub(ts); diff <= tolerance {
			best = points[idx].value
			bestDiff = diff
		}
	}

	if idx > 0 {
		if diff := ts.Sub(points[idx-1].ts); diff <= tolerance && diff <= bestDiff {
			best = points[idx-1].value
		}
	}

	return best
}

// column addresses one feature column across rows so the fill passes can
// sweep any column the same way.
type column struct {
	get func(*FeatureRow) float64
	set func(*FeatureRow, float64)
}

func fixedColumns() []column {
	return []column{
		{func(r *FeatureRow) float64 { return r.Frequency }, func(r *FeatureRow, v float64) { r.Frequency = v }},
		{func(r *FeatureRow) float64 { return r.OutputCurrent }, func(r *FeatureRow, v float64) { r.OutputCurrent = v }},
		{func(r *FeatureRow) float64 { return r.OutputVoltage }, func(r *FeatureRow, v float64) { r.OutputVoltage = v }},
		{func(r *FeatureRow) float64 { return r.Pressure }, func(r *FeatureRow, v float64) { r.Pressure = v }},
		{func(r *FeatureRow) float64 { return r.IGBTTemperature }, func(r *FeatureRow, v float64) { r.IGBTTemperature = v }},
		{func(r *FeatureRow) float64 { return r.FlowRate }, func(r *FeatureRow, v float64) { r.FlowRate = v }},
	}
}

func engineeredColumns() []column {
	return []column{
		{func(r *FeatureRow) float64 { return r.PressureDev }, func(r *FeatureRow, v float64) { r.PressureDev = v }},
		{func(r *FeatureRow) float64 { return r.CurrentDev }, func(r *FeatureRow, v float64) { r.CurrentDev = v }},
		{func(r *FeatureRow) float64 { return r.PressureDevPct }, func(r *FeatureRow, v float64) { r.PressureDevPct = v }},
		{func(r *FeatureRow) float64 { return r.CurrentDevPct }, func(r *FeatureRow, v float64) { r.CurrentDevPct = v }},
		{func(r *FeatureRow) float64 { return r.PressureRollMean }, func(r *FeatureRow, v float64) { r.PressureRollMean = v }},
		{func(r *FeatureRow) float64 { return r.PressureRollStd }, func(r *FeatureRow, v float64) { r.PressureRollStd = v }},
		{func(r *FeatureRow) float64 { return r.CurrentRollMean }, func(r *FeatureRow, v float64) { r.CurrentRollMean = v }},
		{func(r *FeatureRow) float64 { return r.CurrentRollStd }, func(r *FeatureRow, v float64) { r.CurrentRollStd = v }},
		{func(r *FeatureRow) float64 { return r.FlowRollMean }, func(r *FeatureRow, v float64) { r.FlowRollMean = v }},
		{func(r *FeatureRow) float64 { return r.FlowRollStd }, func(r *FeatureRow, v float64) { r.FlowRollStd = v }},
	}
}

func sensorColumn(name string) column {
	return column{
		get: func(r *FeatureRow) float64 { return r.Sensors[name] },
		set: func(r *FeatureRow, v float64) { r.Sensors[name] = v },
	}
}

// fillForwardBackward applies forward fill then backward fill column-wise
// over the whole aligned frame, exactly as the training pipeline did.
func fillForwardBackward(rows []*FeatureRow, cols []column) {
	for _, col := range cols {
		last := math.NaN()

		for _, row := range rows {
			if v := col.get(row); math.IsNaN(v) {
				if !math.IsNaN(last) {
					col.set(row, last)
				}
			} else {
				last = v
			}
		}

		next := math.NaN()

		for i := len(rows) - 1; i >= 0; i-- {
			if v := col.get(rows[i]); math.IsNaN(v) {
				if !math.IsNaN(next) {
					col.set(rows[i], next)
				}
			} else {
				next = v
			}
		}
	}
}

// fillZero resolves anything still missing to zero, the final fill stage.
func fillZero(rows []*FeatureRow, cols []column) {
	for _, col := range cols {
		for _, row := range rows {
			if math.IsNaN(col.get(row)) {
				col.set(row, 0)
			}
		}
	}
}

// FillTelemetry is the first fill stage, run before the rolling engine:
// forward then backward fill over telemetry and flow, then flow gaps that
// survive both (a fully empty flow stream) become zero.
func (a *Aligner) FillTelemetry(rows []*FeatureRow) {
	cols := fixedColumns()
	fillForwardBackward(rows, cols)
	fillZero(rows, cols[len(cols)-1:]) // FlowRate only
}

// FillAll is the final fill stage, run after the sensor join: forward,
// backward, then zero across every feature column.
func (a *Aligner) FillAll(rows []*FeatureRow) {
	cols := fixedColumns()
	cols = append(cols, engineeredColumns()...)

	for _, feature := range a.features {
		cols = append(cols, sensorColumn(feature))
	}

	fillForwardBackward(rows, cols)
	fillZero(rows, cols)
}
