package models

import "errors"

var (
	// ErrInsufficientHistory is returned when a symbol does not have enough
	// candles to compute the full feature set.
	ErrInsufficientHistory = errors.New("insufficient candle history")

	// ErrInferenceUnavailable is returned when the ML predictor cannot
	// produce a prediction within its deadline.
	ErrInferenceUnavailable = errors.New("inference unavailable")

	// ErrSelectionConflict is returned when another process holds the
	// selection lease for the same period.
	ErrSelectionConflict = errors.New("selection already in progress for period")

	// ErrDataGap is returned by the backtester when the candle series has a
	// gap larger than the configured tolerance.
	ErrDataGap = errors.New("gap in candle series exceeds tolerance")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")
)
