package ml

import (
	"context"
	"math"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/service"
)

// directionBand is the neutral zone around p=0.5 that maps to HOLD.
const directionBand = 0.05

// LogisticPredictor is the in-process fallback family: a logistic model
// over named features with coefficients from configuration.
type LogisticPredictor struct {
	bias    float64
	weights map[string]float64
}

// NewLogisticPredictor creates a logistic predictor.
func NewLogisticPredictor(bias float64, weights map[string]float64) *LogisticPredictor {
	return &LogisticPredictor{bias: bias, weights: weights}
}

func (p *LogisticPredictor) Name() string { return "logistic" }

// Predict scores the feature vector. Missing features contribute zero.
func (p *LogisticPredictor) Predict(_ context.Context, fv *models.FeatureVector) (service.Prediction, error) {
	z := p.bias
	for name, w := range p.weights {
		if v, ok := fv.Get(name); ok {
			z += w * v
		}
	}
	prob := 1 / (1 + math.Exp(-z))

	dir := models.DirectionHold
	switch {
	case prob > 0.5+directionBand:
		dir = models.DirectionLong
	case prob < 0.5-directionBand:
		dir = models.DirectionShort
	}

	return service.Prediction{
		Direction:  dir,
		Confidence: 2 * math.Abs(prob-0.5),
		Model:      p.Name(),
	}, nil
}
