package service

import (
	"context"

	"SigForge/internal/domain/models"
)

// Prediction is the output of an ML predictor.
type Prediction struct {
	Direction  models.Direction `json:"direction"`
	Confidence float64          `json:"confidence"`
	Model      string           `json:"model"`
}

// Predictor produces a directional prediction from a feature vector.
// Implementations are interchangeable; the active one is chosen by
// configuration. On unavailability or malformed output implementations
// return models.ErrInferenceUnavailable.
type Predictor interface {
	// Name identifies the predictor family.
	Name() string

	Predict(ctx context.Context, fv *models.FeatureVector) (Prediction, error)
}
