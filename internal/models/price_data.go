package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceDataDaily represents one trading day's OHLCV bar for a stock
type PriceDataDaily struct {
	ID        int             `json:"id"`
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	AdjClose  decimal.Decimal `json:"adj_close"`
	Volume    int64           `json:"volume"`
	VWAP      decimal.Decimal `json:"vwap,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// BarEvent is the market-data message carrying a single daily bar
type BarEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Bar       PriceDataDaily `json:"bar"`
	Timestamp time.Time      `json:"timestamp"`
}
