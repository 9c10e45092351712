package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

const stockColumns = `id, symbol, name, exchange, sector, industry, current_price, previous_close,
	change_amount, change_percent, day_high, day_low, volume, average_volume,
	week_52_high, week_52_low, market_cap, shares_outstanding, last_updated, created_at`

func scanStock(row rowScanner) (*models.Stock, error) {
	var s models.Stock
	var exchange, sector, industry sql.NullString
	var avgVolume, marketCap, shares sql.NullInt64
	var high52, low52 sql.NullFloat64

	err := row.Scan(
		&s.ID, &s.Symbol, &s.Name, &exchange, &sector, &industry, &s.CurrentPrice, &s.PreviousClose,
		&s.ChangeAmount, &s.ChangePercent, &s.DayHigh, &s.DayLow, &s.Volume, &avgVolume,
		&high52, &low52, &marketCap, &shares, &s.LastUpdated, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Exchange = exchange.String
	s.Sector = sector.String
	s.Industry = industry.String
	s.AverageVolume = avgVolume.Int64
	s.Week52High = high52.Float64
	s.Week52Low = low52.Float64
	s.MarketCap = marketCap.Int64
	s.SharesOutstanding = shares.Int64
	return &s, nil
}

// SaveStock inserts a stock or updates the existing row with the same
// symbol. The stored ID and creation time are written back to s.
func (db *DB) SaveStock(ctx context.Context, s *models.Stock) error {
	query := `
		INSERT INTO stocks (id, symbol, name, exchange, sector, industry, current_price, previous_close,
			change_amount, change_percent, day_high, day_low, volume, average_volume,
			week_52_high, week_52_low, market_cap, shares_outstanding, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			exchange = EXCLUDED.exchange,
			sector = EXCLUDED.sector,
			industry = EXCLUDED.industry,
			current_price = EXCLUDED.current_price,
			previous_close = EXCLUDED.previous_close,
			change_amount = EXCLUDED.change_amount,
			change_percent = EXCLUDED.change_percent,
			day_high = EXCLUDED.day_high,
			day_low = EXCLUDED.day_low,
			volume = EXCLUDED.volume,
			average_volume = EXCLUDED.average_volume,
			week_52_high = EXCLUDED.week_52_high,
			week_52_low = EXCLUDED.week_52_low,
			market_cap = EXCLUDED.market_cap,
			shares_outstanding = EXCLUDED.shares_outstanding,
			last_updated = EXCLUDED.last_updated
		RETURNING id, created_at
	`
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now()
	if s.LastUpdated.IsZero() {
		s.LastUpdated = now
	}

	err := db.conn.QueryRowContext(ctx, query,
		s.ID, s.Symbol, s.Name, nullString(s.Exchange), nullString(s.Sector), nullString(s.Industry),
		s.CurrentPrice, s.PreviousClose, s.ChangeAmount, s.ChangePercent, s.DayHigh, s.DayLow, s.Volume,
		nullInt(s.AverageVolume), nullFloat(s.Week52High), nullFloat(s.Week52Low),
		nullInt(s.MarketCap), nullInt(s.SharesOutstanding), s.LastUpdated, now,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save stock: %w", err)
	}
	return nil
}

// GetStock retrieves a stock by symbol
func (db *DB) GetStock(ctx context.Context, symbol string) (*models.Stock, error) {
	query := `SELECT ` + stockColumns + ` FROM stocks WHERE symbol = $1`

	s, err := scanStock(db.conn.QueryRowContext(ctx, query, strings.ToUpper(symbol)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stock %w: %s", ErrNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}
	return s, nil
}

// GetAllStocks retrieves every stock ordered by symbol
func (db *DB) GetAllStocks(ctx context.Context) ([]*models.Stock, error) {
	return db.queryStocks(ctx, `SELECT `+stockColumns+` FROM stocks ORDER BY symbol`)
}

// GetStocksBySector retrieves the stocks in one sector ordered by symbol
func (db *DB) GetStocksBySector(ctx context.Context, sector string) ([]*models.Stock, error) {
	return db.queryStocks(ctx, `SELECT `+stockColumns+` FROM stocks WHERE sector = $1 ORDER BY symbol`, sector)
}

func (db *DB) queryStocks(ctx context.Context, query string, args ...any) ([]*models.Stock, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get stocks: %w", err)
	}
	defer rows.Close()

	var stocks []*models.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stocks: %w", err)
	}
	return stocks, nil
}

// DeleteStock removes a stock by symbol
func (db *DB) DeleteStock(ctx context.Context, symbol string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM stocks WHERE symbol = $1`, strings.ToUpper(symbol))
	if err != nil {
		return fmt.Errorf("failed to delete stock: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("stock %w: %s", ErrNotFound, symbol)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}
