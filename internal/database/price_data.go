package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

const priceDataColumns = `id, symbol, date, open, high, low, close, adj_close, volume, vwap, created_at`

const upsertPriceData = `
	INSERT INTO price_data_daily (symbol, date, open, high, low, close, adj_close, volume, vwap, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (symbol, date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		adj_close = EXCLUDED.adj_close,
		volume = EXCLUDED.volume,
		vwap = EXCLUDED.vwap
	RETURNING id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPriceData(row rowScanner) (*models.PriceDataDaily, error) {
	var p models.PriceDataDaily
	var vwap sql.NullString
	if err := row.Scan(
		&p.ID, &p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.AdjClose, &p.Volume, &vwap, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if vwap.Valid {
		p.VWAP, _ = decimal.NewFromString(vwap.String)
	}
	return &p, nil
}

// adjClose falls back to the close when no adjusted price was supplied
func adjClose(p *models.PriceDataDaily) decimal.Decimal {
	if p.AdjClose.IsZero() {
		return p.Close
	}
	return p.AdjClose
}

func nullableVWAP(p *models.PriceDataDaily) any {
	if p.VWAP.IsZero() {
		return nil
	}
	return p.VWAP
}

// CreatePriceData upserts a daily bar keyed by symbol and date
func (db *DB) CreatePriceData(ctx context.Context, p *models.PriceDataDaily) error {
	p.Symbol = strings.ToUpper(p.Symbol)
	err := db.conn.QueryRowContext(ctx, upsertPriceData,
		p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, adjClose(p), p.Volume, nullableVWAP(p), time.Now(),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create price data: %w", err)
	}
	return nil
}

// CreatePriceDataBatch upserts many bars in a single transaction
func (db *DB) CreatePriceDataBatch(ctx context.Context, prices []*models.PriceDataDaily) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPriceData)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range prices {
		p.Symbol = strings.ToUpper(p.Symbol)
		err := stmt.QueryRowContext(ctx,
			p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, adjClose(p), p.Volume, nullableVWAP(p), now,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("failed to insert price data for %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPriceDataBySymbolAndDate retrieves the bar for a symbol on one date
func (db *DB) GetPriceDataBySymbolAndDate(ctx context.Context, symbol string, date time.Time) (*models.PriceDataDaily, error) {
	query := `SELECT ` + priceDataColumns + ` FROM price_data_daily WHERE symbol = $1 AND date = $2`

	p, err := scanPriceData(db.conn.QueryRowContext(ctx, query, strings.ToUpper(symbol), date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("price data %w for %s on %s", ErrNotFound, symbol, date.Format("2006-01-02"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price data: %w", err)
	}
	return p, nil
}

// GetPriceHistory returns the most recent limit bars for a symbol in
// ascending date order, ready for feature extraction
func (db *DB) GetPriceHistory(ctx context.Context, symbol string, limit int) ([]*models.PriceDataDaily, error) {
	query := `
		SELECT * FROM (
			SELECT ` + priceDataColumns + `
			FROM price_data_daily
			WHERE symbol = $1
			ORDER BY date DESC
			LIMIT $2
		) recent
		ORDER BY date ASC
	`
	return db.queryPriceData(ctx, query, strings.ToUpper(symbol), limit)
}

// GetPriceDataRange returns the bars for a symbol between two dates
// inclusive, oldest first
func (db *DB) GetPriceDataRange(ctx context.Context, symbol string, startDate, endDate time.Time) ([]*models.PriceDataDaily, error) {
	query := `
		SELECT ` + priceDataColumns + `
		FROM price_data_daily
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`
	return db.queryPriceData(ctx, query, strings.ToUpper(symbol), startDate, endDate)
}

func (db *DB) queryPriceData(ctx context.Context, query string, args ...any) ([]*models.PriceDataDaily, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get price data: %w", err)
	}
	defer rows.Close()

	var prices []*models.PriceDataDaily
	for rows.Next() {
		p, err := scanPriceData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price data: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price data: %w", err)
	}
	return prices, nil
}

// DeletePriceDataBySymbol removes all bars for a symbol
func (db *DB) DeletePriceDataBySymbol(ctx context.Context, symbol string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM price_data_daily WHERE symbol = $1`, strings.ToUpper(symbol))
	if err != nil {
		return fmt.Errorf("failed to delete price data for %s: %w", symbol, err)
	}
	return nil
}
