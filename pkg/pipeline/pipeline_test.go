package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mwelling79/pumpwatch/pkg/bundle"
	"github.com/mwelling79/pumpwatch/pkg/db"
	"github.com/mwelling79/pumpwatch/pkg/models"
)

// testBundle is a single-feature bundle whose one isolation tree sends
// Pressure readings above 300 to a depth-1 leaf, scoring them negative.
const testBundle = `{
  "features": ["Pressure"],
  "models": {
    "101": {
      "scaler": {"mean": [0], "scale": [1]},
      "forest": {
        "trees": [{
          "children_left": [1, -1, -1],
          "children_right": [2, -1, -1],
          "feature": [0, -2, -2],
          "threshold": [300, 0, 0],
          "n_node_samples": [256, 255, 1]
        }],
        "max_samples": 256,
        "offset": -0.7
      }
    }
  }
}`

func loadTestBundle(t *testing.T) *bundle.Bundle {
	t.Helper()

	cfg := testPipelineConfig()
	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte(testBundle), 0o600))

	b, err := bundle.Load(path, ProducibleFeatures(&cfg))
	require.NoError(t, err)

	return b
}

func steadyTelemetry(pumpID int64, start time.Time, n int, spikes map[int]float64) []models.PumpReading {
	readings := make([]models.PumpReading, n)

	for i := 0; i < n; i++ {
		pressure := 100.0
		if v, ok := spikes[i]; ok {
			pressure = v
		}

		readings[i] = telemetryAt(pumpID, start.Add(time.Duration(i)*time.Minute), pressure)
	}

	return readings
}

func TestDetectAnomaliesFlagsPressureSpike(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	telemetry := steadyTelemetry(101, start, 40, map[int]float64{20: 500})

	mockDB := db.NewMockService(ctrl)
	mockDB.EXPECT().GetPumpTelemetry(gomock.Any(), gomock.Any(), gomock.Any(), 1000).Return(telemetry, nil)
	mockDB.EXPECT().GetSensorLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	mockDB.EXPECT().GetFlowLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	p := New(mockDB, loadTestBundle(t), testPipelineConfig())

	records, err := p.DetectAnomalies(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, int64(101), rec.PumpID)
	assert.Equal(t, "P-TEST", rec.PumpName)
	assert.Equal(t, start.Add(20*time.Minute), rec.Timestamp)
	assert.InDelta(t, 500.0, rec.Pressure, 1e-12)
	assert.Negative(t, rec.Score)
	assert.Equal(t, models.SeverityHigh, rec.Severity, "the sole anomaly sits at every quantile")
	assert.Contains(t, rec.Reason, "Pressure significantly higher")
}

func TestDetectAnomaliesSkipsPumpsWithoutModels(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	telemetry := steadyTelemetry(101, start, 40, map[int]float64{20: 500})
	telemetry = append(telemetry, steadyTelemetry(102, start, 40, map[int]float64{10: 600, 30: 600})...)

	mockDB := db.NewMockService(ctrl)
	mockDB.EXPECT().GetPumpTelemetry(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(telemetry, nil)
	mockDB.EXPECT().GetSensorLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	mockDB.EXPECT().GetFlowLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	p := New(mockDB, loadTestBundle(t), testPipelineConfig())

	records, err := p.DetectAnomalies(context.Background(), 0)
	require.NoError(t, err)

	// Pump 102 has no trained model, so its spikes never surface.
	require.Len(t, records, 1)
	assert.Equal(t, int64(101), records[0].PumpID)
}

func TestDetectAnomaliesOrdering(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	telemetry := steadyTelemetry(101, start, 40, map[int]float64{10: 500, 30: 500})

	mockDB := db.NewMockService(ctrl)
	mockDB.EXPECT().GetPumpTelemetry(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(telemetry, nil)
	mockDB.EXPECT().GetSensorLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	mockDB.EXPECT().GetFlowLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	p := New(mockDB, loadTestBundle(t), testPipelineConfig())

	records, err := p.DetectAnomalies(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, start.Add(30*time.Minute), records[0].Timestamp)
	assert.Equal(t, start.Add(10*time.Minute), records[1].Timestamp)
}

func TestDetectAnomaliesDeterministicAcrossRuns(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	telemetry := steadyTelemetry(101, start, 40, map[int]float64{10: 500, 30: 500})

	mockDB := db.NewMockService(ctrl)
	mockDB.EXPECT().GetPumpTelemetry(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(telemetry, nil).Times(2)
	mockDB.EXPECT().GetSensorLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)
	mockDB.EXPECT().GetFlowLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)

	p := New(mockDB, loadTestBundle(t), testPipelineConfig())

	first, err := p.DetectAnomalies(context.Background(), 0)
	require.NoError(t, err)

	second, err := p.DetectAnomalies(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// twinBundle trains the same tree for two pumps so identical series
// produce identical timestamps and scores across pumps.
const twinBundle = `{
  "features": ["Pressure"],
  "models": {
    "101": {
      "scaler": {"mean": [0], "scale": [1]},
      "forest": {
        "trees": [{
          "children_left": [1, -1, -1],
          "children_right": [2, -1, -1],
          "feature": [0, -2, -2],
          "threshold": [300, 0, 0],
          "n_node_samples": [256, 255, 1]
        }],
        "max_samples": 256,
        "offset": -0.7
      }
    },
    "102": {
      "scaler": {"mean": [0], "scale": [1]},
      "forest": {
        "trees": [{
          "children_left": [1, -1, -1],
          "children_right": [2, -1, -1],
          "feature": [0, -2, -2],
          "threshold": [300, 0, 0],
          "n_node_samples": [256, 255, 1]
        }],
        "max_samples": 256,
        "offset": -0.7
      }
    }
  }
}`

func TestDetectAnomaliesStableOrderOnFullTies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	// Identical series on both pumps: the two flagged rows tie on both
	// timestamp and score, leaving only pump id to order them.
	telemetry := steadyTelemetry(101, start, 40, map[int]float64{20: 500})
	telemetry = append(telemetry, steadyTelemetry(102, start, 40, map[int]float64{20: 500})...)

	const runs = 50

	mockDB := db.NewMockService(ctrl)
	mockDB.EXPECT().GetPumpTelemetry(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(telemetry, nil).Times(runs)
	mockDB.EXPECT().GetSensorLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(runs)
	mockDB.EXPECT().GetFlowLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(runs)

	cfg := testPipelineConfig()
	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte(twinBundle), 0o600))

	b, err := bundle.Load(path, ProducibleFeatures(&cfg))
	require.NoError(t, err)

	p := New(mockDB, b, cfg)

	for run := 0; run < runs; run++ {
		records, err := p.DetectAnomalies(context.Background(), 0)
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, records[0].Timestamp, records[1].Timestamp)
		assert.InDelta(t, records[0].Score, records[1].Score, 1e-15)
		assert.Equal(t, int64(101), records[0].PumpID, "run %d produced a different feed ordering", run)
		assert.Equal(t, int64(102), records[1].PumpID, "run %d produced a different feed ordering", run)
	}
}

func TestDetectAnomaliesEmptyTelemetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := db.NewMockService(ctrl)
	mockDB.EXPECT().GetPumpTelemetry(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	mockDB.EXPECT().GetSensorLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	mockDB.EXPECT().GetFlowLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	p := New(mockDB, loadTestBundle(t), testPipelineConfig())

	records, err := p.DetectAnomalies(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records, "empty feed is [] not null")
}

func TestDetectAnomaliesNoAnomalies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	telemetry := steadyTelemetry(101, start, 40, nil)

	mockDB := db.NewMockService(ctrl)
	mockDB.EXPECT().GetPumpTelemetry(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(telemetry, nil)
	mockDB.EXPECT().GetSensorLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	mockDB.EXPECT().GetFlowLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	p := New(mockDB, loadTestBundle(t), testPipelineConfig())

	records, err := p.DetectAnomalies(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDetectAnomaliesTelemetryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dbErr := errors.New("connection reset")

	mockDB := db.NewMockService(ctrl)
	mockDB.EXPECT().GetPumpTelemetry(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, dbErr)
	mockDB.EXPECT().GetSensorLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	mockDB.EXPECT().GetFlowLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	p := New(mockDB, loadTestBundle(t), testPipelineConfig())

	_, err := p.DetectAnomalies(context.Background(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTelemetryFetch)
	assert.ErrorIs(t, err, dbErr)
}

func TestDetectAnomaliesExplicitRowLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := db.NewMockService(ctrl)
	mockDB.EXPECT().GetPumpTelemetry(gomock.Any(), gomock.Any(), gomock.Any(), 25).Return(nil, nil)
	mockDB.EXPECT().GetSensorLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	mockDB.EXPECT().GetFlowLogs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	p := New(mockDB, loadTestBundle(t), testPipelineConfig())

	_, err := p.DetectAnomalies(context.Background(), 25)
	require.NoError(t, err)
}
