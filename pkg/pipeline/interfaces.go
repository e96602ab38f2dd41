// Package pipeline pkg/pipeline/interfaces.go
package pipeline

import (
	"context"

	"github.com/mwelling79/pumpwatch/pkg/models"
)

// Service is the pipeline entry point exposed to the presentation layer.
type Service interface {
	// DetectAnomalies runs one full batch pass over the configured window
	// and returns the ranked anomaly feed, sorted by timestamp descending
	// then score ascending (most anomalous first) within equal timestamps.
	// rowLimit caps the telemetry fetch as a safety limit; 0 uses the
	// configured default.
	DetectAnomalies(ctx context.Context, rowLimit int) ([]models.AnomalyRecord, error)
}
