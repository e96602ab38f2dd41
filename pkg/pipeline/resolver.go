package pipeline

import (
	"sort"

	"github.com/mwelling79/pumpwatch/pkg/config"
)

// Resolver maps raw source identifiers onto owning pumps. The tables are
// static configuration data; readings whose id has no mapping are dropped
// silently, because unknown hardware carries no feature semantics.
type Resolver struct {
	sensorPump    map[int64]int64
	sensorFeature map[int64]string
	flowPump      map[int64]int64
	allowed       map[int64]bool
	allowedPumps  []int64
}

// NewResolver builds the lookup tables from configuration.
func NewResolver(cfg *config.PipelineConfig) *Resolver {
	r := &Resolver{
		sensorPump:    make(map[int64]int64, len(cfg.Sensors)),
		sensorFeature: make(map[int64]string),
		flowPump:      make(map[int64]int64, len(cfg.FlowMeters)),
		allowed:       make(map[int64]bool, len(cfg.AllowedPumps)),
		allowedPumps:  append([]int64(nil), cfg.AllowedPumps...),
	}

	for _, id := range cfg.AllowedPumps {
		r.allowed[id] = true
	}

	for _, s := range cfg.Sensors {
		r.sensorPump[s.SensorID] = s.PumpID
		if s.Feature != "" {
			r.sensorFeature[s.SensorID] = s.Feature
		}
	}

	for _, f := range cfg.FlowMeters {
		r.flowPump[f.FlowMeterID] = f.PumpID
	}

	return r
}

// PumpForSensor resolves a sensor id to its allowed owning pump.
func (r *Resolver) PumpForSensor(sensorID int64) (int64, bool) {
	pumpID, ok := r.sensorPump[sensorID]
	if !ok || !r.allowed[pumpID] {
		return 0, false
	}

	return pumpID, true
}

// FeatureForSensor resolves a sensor id to its pivot feature name.
func (r *Resolver) FeatureForSensor(sensorID int64) (string, bool) {
	name, ok := r.sensorFeature[sensorID]
	return name, ok
}

// PumpForFlowMeter resolves a flow meter id to its allowed owning pump.
func (r *Resolver) PumpForFlowMeter(flowMeterID int64) (int64, bool) {
	pumpID, ok := r.flowPump[flowMeterID]
	if !ok || !r.allowed[pumpID] {
		return 0, false
	}

	return pumpID, true
}

// Allowed reports whether a pump participates in the pipeline.
func (r *Resolver) Allowed(pumpID int64) bool {
	return r.allowed[pumpID]
}

// AllowedPumps returns the configured pump id set.
func (r *Resolver) AllowedPumps() []int64 {
	return r.allowedPumps
}

// SensorIDs returns the sensors that contribute pivot features, the only
// ones worth fetching.
func (r *Resolver) SensorIDs() []int64 {
	ids := make([]int64, 0, len(r.sensorFeature))
	for id := range r.sensorFeature {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// FlowMeterIDs returns every configured flow meter id.
func (r *Resolver) FlowMeterIDs() []int64 {
	ids := make([]int64, 0, len(r.flowPump))
	for id := range r.flowPump {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// SensorFeatures returns the full set of pivot feature names the
// configuration can produce.
func (r *Resolver) SensorFeatures() []string {
	names := make([]string, 0, len(r.sensorFeature))
	for _, name := range r.sensorFeature {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
