package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/trogers1052/stock-forecast-service/internal/models"
)

const predictionColumns = `id, symbol, predicted_price, confidence_score, current_price, price_change,
	price_change_percent, days_ahead, model, sample_count, predicted_at`

func scanPrediction(row rowScanner) (*models.Prediction, error) {
	var p models.Prediction
	if err := row.Scan(
		&p.ID, &p.Symbol, &p.PredictedPrice, &p.ConfidenceScore, &p.CurrentPrice, &p.PriceChange,
		&p.PriceChangePercent, &p.DaysAhead, &p.Model, &p.SampleCount, &p.Timestamp,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePrediction stores a generated forecast and sets its ID
func (db *DB) CreatePrediction(ctx context.Context, p *models.Prediction) error {
	query := `
		INSERT INTO predictions (symbol, predicted_price, confidence_score, current_price, price_change,
			price_change_percent, days_ahead, model, sample_count, predicted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := db.conn.QueryRowContext(ctx, query,
		strings.ToUpper(p.Symbol), p.PredictedPrice, p.ConfidenceScore, p.CurrentPrice, p.PriceChange,
		p.PriceChangePercent, p.DaysAhead, p.Model, p.SampleCount, p.Timestamp,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}
	return nil
}

// GetPredictionsBySymbol returns up to limit forecasts, newest first
func (db *DB) GetPredictionsBySymbol(ctx context.Context, symbol string, limit int) ([]*models.Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE symbol = $1
		ORDER BY predicted_at DESC, id DESC
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*models.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}
	return predictions, nil
}

// GetLatestPrediction returns the newest forecast for a symbol
func (db *DB) GetLatestPrediction(ctx context.Context, symbol string) (*models.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE symbol = $1 ORDER BY predicted_at DESC, id DESC LIMIT 1`

	p, err := scanPrediction(db.conn.QueryRowContext(ctx, query, strings.ToUpper(symbol)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prediction %w for %s", ErrNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest prediction: %w", err)
	}
	return p, nil
}

// DeletePredictionsBySymbol removes the stored forecasts for a symbol
func (db *DB) DeletePredictionsBySymbol(ctx context.Context, symbol string) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM predictions WHERE symbol = $1`, strings.ToUpper(symbol))
	if err != nil {
		return 0, fmt.Errorf("failed to delete predictions for %s: %w", symbol, err)
	}
	return result.RowsAffected()
}
