package pipeline

import "errors"

var (
	ErrTelemetryFetch = errors.New("failed to fetch pump telemetry")
	ErrSensorFetch    = errors.New("failed to fetch sensor logs")
	ErrFlowFetch      = errors.New("failed to fetch flow logs")
)
