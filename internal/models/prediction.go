package models

import "time"

// Prediction is a single-step-ahead price forecast for a symbol.
//
// ConfidenceScore is a heuristic in [0,100] derived from the size of the
// predicted move and recent volatility. It is not a probability.
// DaysAhead is carried as a label only: the model always forecasts the
// next bar.
type Prediction struct {
	ID                 int       `json:"id,omitempty"`
	Symbol             string    `json:"symbol"`
	PredictedPrice     float64   `json:"predicted_price"`
	ConfidenceScore    float64   `json:"confidence_score"`
	CurrentPrice       float64   `json:"current_price"`
	PriceChange        float64   `json:"price_change"`
	PriceChangePercent float64   `json:"price_change_percent"`
	DaysAhead          int       `json:"days_ahead"`
	Model              string    `json:"model"`
	SampleCount        int       `json:"sample_count"`
	Timestamp          time.Time `json:"timestamp"`
}
