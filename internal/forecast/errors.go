package forecast

import "errors"

var (
	// ErrInsufficientData is returned when the bar history is too short to
	// train or to build the latest feature vector.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNotTrained is returned by Predict before any successful Train.
	ErrNotTrained = errors.New("model not trained")

	// ErrModel wraps failures raised inside a regressor.
	ErrModel = errors.New("model error")
)
