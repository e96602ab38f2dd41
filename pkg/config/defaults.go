package config

import "time"

// DefaultPipeline returns the production pipeline configuration: the four
// monitored wells with the sensor and flow-meter wiring the models were
// trained against. Tests substitute their own tables.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		WindowStart:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		RowLimit:     200000,
		AllowedPumps: []int64{47366, 47367, 46962, 48142},
		Sensors:      defaultSensorMap(),
		FlowMeters: []FlowMeterMapEntry{
			{FlowMeterID: 4685, PumpID: 46962}, // Well 17
			{FlowMeterID: 5077, PumpID: 47366}, // Well 2
			{FlowMeterID: 5081, PumpID: 47367}, // Well 1
			{FlowMeterID: 5950, PumpID: 48142}, // Injection
		},
		BucketSize:     Duration(time.Minute),
		AsofTolerance:  Duration(2 * time.Minute),
		BaselineWindow: 120,
		BaselineMinObs: 30,
		ShortWindow:    5,
		ShortMinObs:    1,
		HighQuantile:   0.10,
		MediumQuantile: 0.25,
		SeverityPolicy: SeverityPolicyAnomaliesOnly,
		ReasonStrategy: ReasonStrategyThresholds,
	}
}

// defaultSensorMap is the site sensor wiring. Only entries with a feature
// name contribute pivot columns; the rest are kept so their readings still
// resolve to a pump instead of being treated as unknown hardware.
func defaultSensorMap() []SensorMapEntry {
	return []SensorMapEntry{
		{SensorID: 31487, PumpID: 47366, Feature: "Pressure(psi)_31487"},
		{SensorID: 31488, PumpID: 47366, Feature: "Flowrate(gal/min)_31488"},
		{SensorID: 31489, PumpID: 47366, Feature: "Conductivity_31489"},
		{SensorID: 31538, PumpID: 47367, Feature: "Flowrate(gal/min)_31538"},
		{SensorID: 40353, PumpID: 48142, Feature: "Flowrate(gal/min)_40353"},
		{SensorID: 40355, PumpID: 48142, Feature: "Frequency(Hz)_40355"},
		{SensorID: 42648, PumpID: 48142, Feature: "Pressure(psi)_42648"},

		{SensorID: 27430, PumpID: 47367},
		{SensorID: 27464, PumpID: 46962},
		{SensorID: 27883, PumpID: 46962},
		{SensorID: 27915, PumpID: 46962},
		{SensorID: 28279, PumpID: 46962},
		{SensorID: 28280, PumpID: 46962},
		{SensorID: 28281, PumpID: 46962},
		{SensorID: 28282, PumpID: 46962},
		{SensorID: 28283, PumpID: 47367},
		{SensorID: 28284, PumpID: 46962},
		{SensorID: 29145, PumpID: 46962},
		{SensorID: 31486, PumpID: 47366},
		{SensorID: 31535, PumpID: 47367},
		{SensorID: 31536, PumpID: 47367},
		{SensorID: 31537, PumpID: 47367},
		{SensorID: 32406, PumpID: 47366},
		{SensorID: 32407, PumpID: 47367},
		{SensorID: 32416, PumpID: 47367},
		{SensorID: 37662, PumpID: 47366},
		{SensorID: 37669, PumpID: 46962},
		{SensorID: 38676, PumpID: 47366},
		{SensorID: 38681, PumpID: 47367},
		{SensorID: 38730, PumpID: 46962},
		{SensorID: 39324, PumpID: 46962},
		{SensorID: 40352, PumpID: 48142},
		{SensorID: 42649, PumpID: 48142},
	}
}
