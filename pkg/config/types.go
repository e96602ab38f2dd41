package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	errInvalidDuration     = errors.New("invalid duration")
	errNoAllowedPumps      = errors.New("allowed_pumps must not be empty")
	errBadBucketSize       = errors.New("bucket_size must be positive")
	errBadWindow           = errors.New("rolling window sizes must be positive")
	errBadMinPeriods       = errors.New("min_periods must not exceed its window")
	errBadQuantiles        = errors.New("severity quantiles must satisfy 0 < high <= medium < 1")
	errBadSeverityPolicy   = errors.New("severity_policy must be \"population\" or \"anomalies_only\"")
	errBadReasonStrategy   = errors.New("reason_strategy must be \"thresholds\" or \"zscore\"")
	errSensorMissingPump   = errors.New("sensor map entry missing pump_id")
	errFlowMeterMissingMap = errors.New("flow meter map entry missing pump_id")
)

// Duration wraps time.Duration so JSON configs can use either "5m" style
// strings or raw nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// SensorMapEntry binds one sensor id to its owning pump and, when the
// sensor contributes a pivoted feature column, the feature name the
// trained models expect for it.
type SensorMapEntry struct {
	SensorID int64  `json:"sensor_id"`
	PumpID   int64  `json:"pump_id"`
	Feature  string `json:"feature,omitempty"`
}

// FlowMeterMapEntry binds one flow meter id to its owning pump.
type FlowMeterMapEntry struct {
	FlowMeterID int64 `json:"flow_meter_id"`
	PumpID      int64 `json:"pump_id"`
}

// Severity policies supported by the quantizer.
const (
	SeverityPolicyPopulation    = "population"
	SeverityPolicyAnomaliesOnly = "anomalies_only"
)

// Reason strategies supported by the synthesizer.
const (
	ReasonStrategyThresholds = "thresholds"
	ReasonStrategyZScore     = "zscore"
)

// PipelineConfig carries every tunable the feature/scoring pipeline uses.
// All tables and window sizes are plain data so test fixtures can
// substitute their own.
type PipelineConfig struct {
	WindowStart    time.Time           `json:"window_start"`
	RowLimit       int                 `json:"row_limit"`
	AllowedPumps   []int64             `json:"allowed_pumps"`
	Sensors        []SensorMapEntry    `json:"sensors"`
	FlowMeters     []FlowMeterMapEntry `json:"flow_meters"`
	BucketSize     Duration            `json:"bucket_size"`
	AsofTolerance  Duration            `json:"asof_tolerance"`
	BaselineWindow int                 `json:"baseline_window"`
	BaselineMinObs int                 `json:"baseline_min_obs"`
	ShortWindow    int                 `json:"short_window"`
	ShortMinObs    int                 `json:"short_min_obs"`
	HighQuantile   float64             `json:"high_quantile"`
	MediumQuantile float64             `json:"medium_quantile"`
	SeverityPolicy string              `json:"severity_policy"`
	ReasonStrategy string              `json:"reason_strategy"`
}

func (c *PipelineConfig) Validate() error {
	if len(c.AllowedPumps) == 0 {
		return errNoAllowedPumps
	}

	if c.BucketSize <= 0 {
		return errBadBucketSize
	}

	if c.BaselineWindow <= 0 || c.ShortWindow <= 0 {
		return errBadWindow
	}

	if c.BaselineMinObs > c.BaselineWindow || c.ShortMinObs > c.ShortWindow {
		return errBadMinPeriods
	}

	if c.HighQuantile <= 0 || c.HighQuantile > c.MediumQuantile || c.MediumQuantile >= 1 {
		return errBadQuantiles
	}

	switch c.SeverityPolicy {
	case SeverityPolicyPopulation, SeverityPolicyAnomaliesOnly:
	default:
		return errBadSeverityPolicy
	}

	switch c.ReasonStrategy {
	case ReasonStrategyThresholds, ReasonStrategyZScore:
	default:
		return errBadReasonStrategy
	}

	for _, s := range c.Sensors {
		if s.PumpID == 0 {
			return fmt.Errorf("%w: sensor %d", errSensorMissingPump, s.SensorID)
		}
	}

	for _, f := range c.FlowMeters {
		if f.PumpID == 0 {
			return fmt.Errorf("%w: flow meter %d", errFlowMeterMissingMap, f.FlowMeterID)
		}
	}

	return nil
}

// AuthConfig holds the dummy dashboard credentials. There is no real
// account system behind the login page.
type AuthConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

// Config is the top-level pumpwatch service configuration.
type Config struct {
	ListenAddr     string         `json:"listen_addr"`
	HealthAddr     string         `json:"health_addr,omitempty"`
	DBPath         string         `json:"db_path"`
	BundlePath     string         `json:"bundle_path"`
	RateLimitRPS   float64        `json:"rate_limit_rps,omitempty"`
	RateLimitBurst int            `json:"rate_limit_burst,omitempty"`
	Auth           AuthConfig     `json:"auth"`
	Pipeline       PipelineConfig `json:"pipeline"`
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}

	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = 50
	}

	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 100
	}

	return c.Pipeline.Validate()
}
