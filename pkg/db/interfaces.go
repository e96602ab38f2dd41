// Package db pkg/db/interfaces.go
package db

import (
	"context"
	"time"

	"github.com/mwelling79/pumpwatch/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/mwelling79/pumpwatch/pkg/db Service

// TimeWindow bounds a query: Start inclusive, End exclusive. A zero End
// leaves the window open on the right.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// FailureFilter narrows the failure-log listing. Zero values mean
// "no filter"; Limit of 0 falls back to the store default.
type FailureFilter struct {
	PumpID        int64
	SiteID        int64
	Search        string
	IsPumpFailure *bool
	Limit         int
}

// Service represents all read operations the pipeline and dashboard
// consume. Rows always come back ordered ascending by timestamp unless
// noted otherwise; any limit is a safety cap, not a semantic filter.
type Service interface {
	// Stream reads consumed by the anomaly pipeline.

	GetPumpTelemetry(ctx context.Context, window TimeWindow, pumpIDs []int64, limit int) ([]models.PumpReading, error)
	GetSensorLogs(ctx context.Context, window TimeWindow, sensorIDs []int64) ([]models.SensorReading, error)
	GetFlowLogs(ctx context.Context, window TimeWindow, flowMeterIDs []int64) ([]models.FlowReading, error)

	// Dashboard reads.

	GetLatestPumpStatus(ctx context.Context, pumpIDs []int64, search string) ([]models.PumpStatus, error)
	GetPumpDetail(ctx context.Context, pumpID int64) (*models.PumpDetail, error)
	GetPumpHistory(ctx context.Context, pumpID int64, limit int) ([]models.PumpHistoryPoint, error)
	GetFailureLogs(ctx context.Context, filter FailureFilter) ([]models.FailureLog, error)
	GetFlowMeterLogs(ctx context.Context, window TimeWindow, flowMeterIDs []int64) ([]models.FlowMeterLog, error)

	Ping(ctx context.Context) error
	Close() error
}
