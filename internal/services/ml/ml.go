package ml

import (
	"fmt"

	"SigForge/internal/domain/service"
	"SigForge/pkg/config"
	"SigForge/pkg/logger"
)

// NewPredictor builds the active predictor family from configuration.
// Families are interchangeable behind service.Predictor; which one runs is
// a config choice, never runtime type inspection.
func NewPredictor(cfg config.ML, lgr *logger.Logger) (service.Predictor, error) {
	switch cfg.Family {
	case "http":
		return NewHTTPPredictor(cfg.ServiceURL, cfg.Timeout, lgr), nil
	case "logistic":
		return NewLogisticPredictor(cfg.Bias, cfg.Weights), nil
	default:
		return nil, fmt.Errorf("unknown predictor family %q", cfg.Family)
	}
}
