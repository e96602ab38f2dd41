package models

import "time"

// Severity is the ordinal anomaly-strength label derived from score
// quantiles. Lower scores are more anomalous.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// AnomalyRecord is one entry in the ranked anomaly feed. Records exist
// only for rows the per-pump model labeled anomalous.
type AnomalyRecord struct {
	PumpID    int64     `json:"pumpId"`
	PumpName  string    `json:"pumpName"`
	Timestamp time.Time `json:"timestamp"`

	// Raw feature snapshot of the flagged row.
	Frequency    float64 `json:"frequency"`
	Voltage      float64 `json:"voltage"`
	Current      float64 `json:"current"`
	Pressure     float64 `json:"pressure"`
	Conductivity float64 `json:"conductivity"`

	Score    float64  `json:"score"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
}
