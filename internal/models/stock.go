package models

import "time"

// Stock event type constants
const (
	EventStockAdded          = "STOCK_ADDED"
	EventStockRemoved        = "STOCK_REMOVED"
	EventPredictionGenerated = "PREDICTION_GENERATED"
	EventBarReceived         = "BAR_RECEIVED"
)

// StockEvent represents a Kafka event for stock changes
type StockEvent struct {
	EventType  string      `json:"event_type"`
	Stock      *Stock      `json:"stock,omitempty"`
	Prediction *Prediction `json:"prediction,omitempty"`
	Symbol     string      `json:"symbol"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Stock represents core stock information. It is also the record type
// ranked by the sorting engine.
type Stock struct {
	ID                string    `json:"id"`
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	Exchange          string    `json:"exchange,omitempty"`
	Sector            string    `json:"sector,omitempty"`
	Industry          string    `json:"industry,omitempty"`
	CurrentPrice      float64   `json:"current_price"`
	PreviousClose     float64   `json:"previous_close"`
	ChangeAmount      float64   `json:"change_amount"`
	ChangePercent     float64   `json:"change_percent"`
	DayHigh           float64   `json:"day_high"`
	DayLow            float64   `json:"day_low"`
	Volume            int64     `json:"volume"`
	AverageVolume     int64     `json:"average_volume,omitempty"`
	Week52High        float64   `json:"week_52_high,omitempty"`
	Week52Low         float64   `json:"week_52_low,omitempty"`
	MarketCap         int64     `json:"market_cap,omitempty"`
	SharesOutstanding int64     `json:"shares_outstanding,omitempty"`
	LastUpdated       time.Time `json:"last_updated"`
	CreatedAt         time.Time `json:"created_at"`
}
