// Package models pkg/models/readings.go contains the raw reading types
// shared between the store and the pipeline.
package models

import "time"

// PumpReading is one pump-controller sample. Immutable once read.
type PumpReading struct {
	PumpID          int64     `json:"pump_id"`
	Name            string    `json:"name"`
	Timestamp       time.Time `json:"timestamp"`
	Frequency       float64   `json:"frequency"`
	OutputCurrent   float64   `json:"output_current"`
	OutputVoltage   float64   `json:"output_voltage"`
	Pressure        float64   `json:"pressure"`
	IGBTTemperature float64   `json:"igbt_temperature"`
}

// SensorReading is one discrete sensor sample. The sensor id maps to at
// most one pump; readings for unmapped sensors are dropped.
type SensorReading struct {
	SensorID  int64     `json:"sensor_id"`
	SiteID    int64     `json:"site_id"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
}

// FlowReading is one flow-meter sample.
type FlowReading struct {
	FlowMeterID int64     `json:"flow_meter_id"`
	Timestamp   time.Time `json:"timestamp"`
	FlowRate    float64   `json:"flow_rate"`
}

// PumpStatus is the latest controller state for one pump, used by the
// dashboard pump cards.
type PumpStatus struct {
	PumpID      int64     `json:"sitePumpId"`
	Name        string    `json:"name"`
	StatusText  string    `json:"statusText"`
	StatusID    int64     `json:"statusId"`
	AlertStatus string    `json:"alertStatus"`
	Running     bool      `json:"running"`
	LastLogTime time.Time `json:"lastLogTime"`
}

// PumpDetail extends PumpStatus with the numeric fields shown on the
// single-pump page.
type PumpDetail struct {
	PumpStatus
	Active          bool       `json:"active"`
	Frequency       *float64   `json:"frequency"`
	TargetFrequency *float64   `json:"targetFrequency"`
	OutputCurrent   *float64   `json:"outputCurrent"`
	OutputVoltage   *float64   `json:"outputVoltage"`
	Pressure        *float64   `json:"pressure"`
	StartDate       *time.Time `json:"startDate"`
}

// PumpHistoryPoint is one row of recent history for trend charts.
type PumpHistoryPoint struct {
	Timestamp     time.Time `json:"pumpLogDate"`
	Frequency     *float64  `json:"frequency"`
	OutputCurrent *float64  `json:"outputCurrent"`
	OutputVoltage *float64  `json:"outputVoltage"`
	Pressure      *float64  `json:"pressure"`
	Fault         int       `json:"fault"`
	UnderAlarm    int       `json:"underAlarm"`
	Running       bool      `json:"running"`
}

// FailureLog is one maintenance/failure record.
type FailureLog struct {
	FailureLogID   int64      `json:"failureLogId"`
	PumpID         int64      `json:"sitePumpId"`
	SiteID         int64      `json:"siteId"`
	StartDate      time.Time  `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
	IsPumpFailure  bool       `json:"isPumpFailure"`
	FailureDetails string     `json:"failureDetails"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// FlowMeterLog is one flow-meter log row with volume counters, served by
// the dashboard flow endpoint.
type FlowMeterLog struct {
	FlowMeterID    int64     `json:"flowMeterId"`
	SitePipelineID int64     `json:"sitePipelineId"`
	TotalVolume    float64   `json:"totalVolume"`
	DayVolume      float64   `json:"dayVolume"`
	FlowRate       float64   `json:"flowRate"`
	LogStartTime   time.Time `json:"logStartTime"`
	LogEndTime     time.Time `json:"logEndTime"`
}
