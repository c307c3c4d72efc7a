package ml

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SigForge/internal/domain/models"
	"SigForge/internal/domain/service"
	pkghttp "SigForge/pkg/http"
	"SigForge/pkg/logger"
)

// HTTPPredictor calls an external model service over HTTP. Any transport
// failure, timeout or malformed response maps to
// models.ErrInferenceUnavailable so the scorer can drop the ML source
// instead of failing the pipeline.
type HTTPPredictor struct {
	url     string
	timeout time.Duration
	client  *pkghttp.Client
	logger  *logger.Logger
}

type predictRequest struct {
	Symbol    string             `json:"symbol"`
	Timestamp time.Time          `json:"timestamp"`
	Features  map[string]float64 `json:"features"`
}

type predictResponse struct {
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}

// NewHTTPPredictor creates a predictor backed by a remote model service.
func NewHTTPPredictor(url string, timeout time.Duration, lgr *logger.Logger) *HTTPPredictor {
	return &HTTPPredictor{
		url:     url,
		timeout: timeout,
		client:  pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		logger:  lgr,
	}
}

func (p *HTTPPredictor) Name() string { return "http" }

func (p *HTTPPredictor) Predict(ctx context.Context, fv *models.FeatureVector) (service.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var resp predictResponse
	err := p.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    p.url + "/predict",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: predictRequest{
			Symbol:    fv.Symbol,
			Timestamp: fv.Timestamp,
			Features:  fv.Values,
		},
	}, &resp)
	if err != nil {
		p.logger.Warn("model service call failed", logger.String("symbol", fv.Symbol), logger.Error(err))
		return service.Prediction{}, fmt.Errorf("predict %s: %w", fv.Symbol, models.ErrInferenceUnavailable)
	}

	pred, err := resp.toPrediction()
	if err != nil {
		p.logger.Warn("model service returned malformed output",
			logger.String("symbol", fv.Symbol), logger.Error(err))
		return service.Prediction{}, fmt.Errorf("predict %s: %w", fv.Symbol, models.ErrInferenceUnavailable)
	}
	return pred, nil
}

func (r predictResponse) toPrediction() (service.Prediction, error) {
	dir := models.Direction(r.Direction)
	switch dir {
	case models.DirectionLong, models.DirectionShort, models.DirectionHold:
	default:
		return service.Prediction{}, errors.New("unknown direction " + r.Direction)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return service.Prediction{}, fmt.Errorf("confidence %v out of range", r.Confidence)
	}
	model := r.Model
	if model == "" {
		model = "http"
	}
	return service.Prediction{Direction: dir, Confidence: r.Confidence, Model: model}, nil
}
