// Package pipeline pkg/pipeline/pipeline.go implements the batch anomaly
// pipeline: stream fetch, bucket alignment, rolling features, per-pump
// model dispatch, severity quantization, and reason synthesis.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mwelling79/pumpwatch/pkg/bundle"
	"github.com/mwelling79/pumpwatch/pkg/config"
	"github.com/mwelling79/pumpwatch/pkg/db"
	"github.com/mwelling79/pumpwatch/pkg/metrics"
	"github.com/mwelling79/pumpwatch/pkg/models"
)

// PumpPipeline wires the pipeline stages over a store and a loaded model
// bundle. Everything it holds is read-only after construction, so one
// instance serves concurrent invocations.
type PumpPipeline struct {
	store    db.Service
	bundle   *bundle.Bundle
	cfg      config.PipelineConfig
	resolver *Resolver
	aligner  *Aligner
	engine   *Engine
	quant    *Quantizer
	reasons  *ReasonSynthesizer
}

// New constructs the pipeline. The bundle must already be validated
// against ProducibleFeatures for the same configuration.
func New(store db.Service, b *bundle.Bundle, cfg config.PipelineConfig) *PumpPipeline {
	resolver := NewResolver(&cfg)

	return &PumpPipeline{
		store:    store,
		bundle:   b,
		cfg:      cfg,
		resolver: resolver,
		aligner:  NewAligner(&cfg, resolver),
		engine:   NewEngine(&cfg),
		quant:    NewQuantizer(&cfg),
		reasons:  NewReasonSynthesizer(&cfg, resolver),
	}
}

// scoredRow pairs an aligned row with its model output.
type scoredRow struct {
	row   *FeatureRow
	label int
	score float64
}

// DetectAnomalies runs one full forward pass and returns the ranked feed.
func (p *PumpPipeline) DetectAnomalies(ctx context.Context, rowLimit int) ([]models.AnomalyRecord, error) {
	start := time.Now()

	records, err := p.detect(ctx, rowLimit)

	status := "ok"
	if err != nil {
		status = "error"
	}

	metrics.PipelineRunsTotal.WithLabelValues(status).Inc()
	metrics.PipelineDurationSeconds.Observe(time.Since(start).Seconds())

	return records, err
}

func (p *PumpPipeline) detect(ctx context.Context, rowLimit int) ([]models.AnomalyRecord, error) {
	if rowLimit <= 0 {
		rowLimit = p.cfg.RowLimit
	}

	telemetry, sensors, flows, err := p.fetchStreams(ctx, rowLimit)
	if err != nil {
		return nil, err
	}

	if len(telemetry) == 0 {
		return []models.AnomalyRecord{}, nil
	}

	rows := p.aligner.BuildRows(telemetry, flows)
	p.aligner.FillTelemetry(rows)
	p.engine.Compute(rows)
	p.aligner.JoinSensors(rows, sensors)
	p.aligner.FillAll(rows)

	scored := p.scorePumps(rows)
	if len(scored) == 0 {
		return []models.AnomalyRecord{}, nil
	}

	return p.assemble(scored), nil
}

// fetchStreams issues the three stream reads concurrently and waits for
// all of them before alignment. Store errors propagate unchanged; the
// pipeline never retries.
func (p *PumpPipeline) fetchStreams(ctx context.Context, rowLimit int) (
	telemetry []models.PumpReading, sensors []models.SensorReading, flows []models.FlowReading, err error) {
	window := db.TimeWindow{Start: p.cfg.WindowStart}

	var (
		wg                               sync.WaitGroup
		telemetryErr, sensorErr, flowErr error
	)

	wg.Add(3)

	go func() {
		defer wg.Done()
		telemetry, telemetryErr = p.store.GetPumpTelemetry(ctx, window, p.resolver.AllowedPumps(), rowLimit)
	}()

	go func() {
		defer wg.Done()
		sensors, sensorErr = p.store.GetSensorLogs(ctx, window, p.resolver.SensorIDs())
	}()

	go func() {
		defer wg.Done()
		flows, flowErr = p.store.GetFlowLogs(ctx, window, p.resolver.FlowMeterIDs())
	}()

	wg.Wait()

	switch {
	case telemetryErr != nil:
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrTelemetryFetch, telemetryErr)
	case sensorErr != nil:
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrSensorFetch, sensorErr)
	case flowErr != nil:
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrFlowFetch, flowErr)
	}

	return telemetry, sensors, flows, nil
}

// scorePumps dispatches each pump's rows to its own scaler+scorer pair.
// Pumps without a trained model contribute nothing; pump partitions score
// concurrently and merge under the mutex.
func (p *PumpPipeline) scorePumps(rows []*FeatureRow) []scoredRow {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		scored []scoredRow
	)

	for _, partition := range partitionByPump(rows) {
		model, ok := p.bundle.Model(partition[0].PumpID)
		if !ok {
			continue
		}

		wg.Add(1)

		go func(series []*FeatureRow, model *bundle.PumpModel) {
			defer wg.Done()

			matrix := p.featureMatrix(series)
			scaledMatrix := model.Scaler.Transform(matrix)
			labels := model.Scorer.Predict(scaledMatrix)
			scores := model.Scorer.Score(scaledMatrix)

			batch := make([]scoredRow, len(series))
			for i, row := range series {
				batch[i] = scoredRow{row: row, label: labels[i], score: scores[i]}
			}

			mu.Lock()
			scored = append(scored, batch...)
			mu.Unlock()
		}(partition, model)
	}

	wg.Wait()

	return scored
}

// featureMatrix lays rows out in the bundle's declared feature order.
// Order membership was validated at bundle load, so a miss can only be a
// sensor column this batch never observed; the fill policy makes that 0.
func (p *PumpPipeline) featureMatrix(series []*FeatureRow) [][]float64 {
	matrix := make([][]float64, len(series))

	for i, row := range series {
		vec := make([]float64, len(p.bundle.FeatureOrder))

		for j, name := range p.bundle.FeatureOrder {
			v, ok := row.Value(name)
			if !ok {
				v = 0
			}

			vec[j] = v
		}

		matrix[i] = vec
	}

	return matrix
}

// assemble keeps the anomalous rows, sorts the merged set, then computes
// severity once over it and renders reasons. Severity and ordering are
// deliberately computed after all pumps merge, not per pump.
func (p *PumpPipeline) assemble(scored []scoredRow) []models.AnomalyRecord {
	allScores := make([]float64, len(scored))
	allRows := make([]*FeatureRow, len(scored))

	var anomalies []scoredRow

	for i, s := range scored {
		allScores[i] = s.score
		allRows[i] = s.row

		if s.label == -1 {
			anomalies = append(anomalies, s)
		}
	}

	if len(anomalies) == 0 {
		return []models.AnomalyRecord{}
	}

	// Newest first; most anomalous (lowest score) first within a
	// timestamp. Pump id breaks remaining ties so the feed does not
	// depend on the concurrent merge order of the scoring goroutines.
	sort.SliceStable(anomalies, func(i, j int) bool {
		ti, tj := anomalies[i].row.Timestamp, anomalies[j].row.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}

		if anomalies[i].score != anomalies[j].score {
			return anomalies[i].score < anomalies[j].score
		}

		return anomalies[i].row.PumpID < anomalies[j].row.PumpID
	})

	anomalyScores := make([]float64, len(anomalies))
	for i, a := range anomalies {
		anomalyScores[i] = a.score
	}

	high, medium, ok := p.quant.CutPoints(allScores, anomalyScores)
	if !ok {
		return []models.AnomalyRecord{}
	}

	reasonCtx := p.reasons.PopulationStats(allRows)

	perPump := make(map[int64]int)
	records := make([]models.AnomalyRecord, 0, len(anomalies))

	for _, a := range anomalies {
		row := a.row

		record := models.AnomalyRecord{
			PumpID:    row.PumpID,
			PumpName:  row.PumpName,
			Timestamp: row.Timestamp,

			Frequency: row.Frequency,
			Voltage:   row.OutputVoltage,
			Current:   row.OutputCurrent,
			Pressure:  row.Pressure,

			Score:    a.score,
			Severity: p.quant.Map(a.score, high, medium),
			Reason:   p.reasons.Explain(row, reasonCtx),
		}

		if p.reasons.condFeature != "" {
			record.Conductivity = row.Sensors[p.reasons.condFeature]
		}

		records = append(records, record)
		perPump[row.PumpID]++
	}

	for pumpID, n := range perPump {
		metrics.AnomaliesDetectedTotal.WithLabelValues(strconv.FormatInt(pumpID, 10)).Add(float64(n))
	}

	log.Printf("pipeline: %d scored rows, %d anomalies across %d pumps",
		len(scored), len(records), len(perPump))

	return records
}
