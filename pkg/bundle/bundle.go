// Package bundle pkg/bundle/bundle.go loads the per-pump trained model
// bundle: one global feature order plus a scaler and isolation forest per
// pump. The bundle is read once at startup and never mutated, so
// concurrent readers need no locking.
package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Scaler transforms a raw feature matrix into model space.
type Scaler interface {
	Transform(rows [][]float64) [][]float64
}

// Scorer labels rows and assigns the continuous anomaly score, where
// lower means more anomalous.
type Scorer interface {
	Predict(rows [][]float64) []int
	Score(rows [][]float64) []float64
}

// PumpModel is the scaler+scorer pair owned by a single pump.
type PumpModel struct {
	Scaler Scaler
	Scorer Scorer
}

// Bundle holds every pump's model and the feature order their matrices
// must follow.
type Bundle struct {
	FeatureOrder []string
	models       map[int64]*PumpModel
}

// Model returns the model for a pump id, or false when the pump has no
// trained model. Pumps without a model simply produce no anomaly output.
func (b *Bundle) Model(pumpID int64) (*PumpModel, bool) {
	m, ok := b.models[pumpID]
	return m, ok
}

// PumpIDs returns every pump id with a trained model.
func (b *Bundle) PumpIDs() []int64 {
	ids := make([]int64, 0, len(b.models))
	for id := range b.models {
		ids = append(ids, id)
	}

	return ids
}

type bundleFile struct {
	Features []string                 `json:"features"`
	Models   map[string]pumpModelFile `json:"models"`
}

type pumpModelFile struct {
	Scaler StandardScaler  `json:"scaler"`
	Forest IsolationForest `json:"forest"`
}

// Load reads the bundle at path and validates it against producible, the
// set of feature names the aligned pipeline schema can actually fill. A
// declared feature outside that set is a configuration error and fails
// here, at load time, never mid-scoring.
func Load(path string, producible map[string]bool) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToRead, err)
	}

	var file bundleFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToParse, err)
	}

	if len(file.Features) == 0 {
		return nil, ErrNoFeatures
	}

	if len(file.Models) == 0 {
		return nil, ErrNoModels
	}

	for _, name := range file.Features {
		if !producible[name] {
			return nil, fmt.Errorf("%w: %q", ErrFeatureNotProducible, name)
		}
	}

	b := &Bundle{
		FeatureOrder: file.Features,
		models:       make(map[int64]*PumpModel, len(file.Models)),
	}

	for key, pm := range file.Models {
		pumpID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: pump id %q: %w", ErrFailedToParse, key, err)
		}

		if len(pm.Scaler.Mean) != len(file.Features) || len(pm.Scaler.Scale) != len(file.Features) {
			return nil, fmt.Errorf("%w: pump %d", ErrScalerShapeMismatch, pumpID)
		}

		forest := pm.Forest
		if err := forest.validate(len(file.Features)); err != nil {
			return nil, fmt.Errorf("pump %d: %w", pumpID, err)
		}

		scaler := pm.Scaler

		b.models[pumpID] = &PumpModel{
			Scaler: &scaler,
			Scorer: &forest,
		}
	}

	return b, nil
}
