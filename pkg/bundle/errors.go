package bundle

import "errors"

var (
	ErrFailedToRead          = errors.New("failed to read model bundle")
	ErrFailedToParse         = errors.New("failed to parse model bundle")
	ErrNoFeatures            = errors.New("model bundle declares no features")
	ErrNoModels              = errors.New("model bundle contains no pump models")
	ErrFeatureNotProducible  = errors.New("model bundle requires a feature the pipeline cannot produce")
	ErrScalerShapeMismatch   = errors.New("scaler parameter length does not match feature count")
	ErrMalformedTree         = errors.New("malformed isolation tree")
	ErrFeatureIndexOutOfBand = errors.New("tree split references feature outside the declared order")
)
