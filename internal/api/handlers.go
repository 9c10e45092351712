package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-forecast-service/internal/models"
	"github.com/trogers1052/stock-forecast-service/internal/service"
)

const (
	dateLayout = "2006-01-02"

	defaultHistoryLimit     = 250
	maxHistoryLimit         = 5000
	defaultPredictionsLimit = 20
	defaultRankCriterion    = "marketCap_desc"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	stocks      *service.StockService
	predictions *service.PredictionService
	rankings    *service.RankingService
	db          Pinger
	log         zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(stocks *service.StockService, predictions *service.PredictionService, rankings *service.RankingService, db Pinger, log zerolog.Logger) *Handler {
	return &Handler{
		stocks:      stocks,
		predictions: predictions,
		rankings:    rankings,
		db:          db,
		log:         log.With().Str("component", "api").Logger(),
	}
}

// AddStockRequest is the body of POST /stocks
type AddStockRequest struct {
	Symbol            string    `json:"symbol" validate:"required,max=10"`
	Name              string    `json:"name" validate:"max=255"`
	Exchange          string    `json:"exchange" validate:"max=50"`
	Sector            string    `json:"sector" validate:"max=100"`
	Industry          string    `json:"industry" validate:"max=100"`
	CurrentPrice      float64   `json:"current_price" validate:"gte=0"`
	PreviousClose     float64   `json:"previous_close" validate:"gte=0"`
	ChangeAmount      float64   `json:"change_amount"`
	ChangePercent     float64   `json:"change_percent"`
	DayHigh           float64   `json:"day_high" validate:"gte=0"`
	DayLow            float64   `json:"day_low" validate:"gte=0"`
	Volume            int64     `json:"volume" validate:"gte=0"`
	AverageVolume     int64     `json:"average_volume" validate:"gte=0"`
	Week52High        float64   `json:"week_52_high" validate:"gte=0"`
	Week52Low         float64   `json:"week_52_low" validate:"gte=0"`
	MarketCap         int64     `json:"market_cap" validate:"gte=0"`
	SharesOutstanding int64     `json:"shares_outstanding" validate:"gte=0"`
	LastUpdated       time.Time `json:"last_updated"`
}

func (req *AddStockRequest) stock() *models.Stock {
	return &models.Stock{
		Symbol:            req.Symbol,
		Name:              req.Name,
		Exchange:          req.Exchange,
		Sector:            req.Sector,
		Industry:          req.Industry,
		CurrentPrice:      req.CurrentPrice,
		PreviousClose:     req.PreviousClose,
		ChangeAmount:      req.ChangeAmount,
		ChangePercent:     req.ChangePercent,
		DayHigh:           req.DayHigh,
		DayLow:            req.DayLow,
		Volume:            req.Volume,
		AverageVolume:     req.AverageVolume,
		Week52High:        req.Week52High,
		Week52Low:         req.Week52Low,
		MarketCap:         req.MarketCap,
		SharesOutstanding: req.SharesOutstanding,
		LastUpdated:       req.LastUpdated,
	}
}

// BarInput is one daily bar in a history upload
type BarInput struct {
	Date     string  `json:"date" validate:"required,datetime=2006-01-02"`
	Open     float64 `json:"open" validate:"gte=0"`
	High     float64 `json:"high" validate:"gte=0"`
	Low      float64 `json:"low" validate:"gte=0"`
	Close    float64 `json:"close" validate:"gt=0"`
	AdjClose float64 `json:"adj_close" validate:"gte=0"`
	Volume   int64   `json:"volume" validate:"gte=0"`
	VWAP     float64 `json:"vwap" validate:"gte=0"`
}

// HistoryRequest is the body of POST /stocks/{symbol}/history
type HistoryRequest struct {
	Bars []BarInput `json:"bars" validate:"required,min=1,max=5000,dive"`
}

// PredictRequest is the body of POST /stocks/{symbol}/predict. DaysAhead
// is a pointer so an omitted field defaults to 1 while an explicit 0 fails
// validation.
type PredictRequest struct {
	DaysAhead *int `json:"days_ahead" default:"1" validate:"required,min=1,max=30"`
	Retrain   bool `json:"retrain"`
}

// MultiRankRequest is the body of POST /rankings/multi
type MultiRankRequest struct {
	Criteria []string `json:"criteria" validate:"required,min=1,max=8,dive,required"`
	Sector   string   `json:"sector"`
}

// GetAllStocks handles GET /stocks
func (h *Handler) GetAllStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.stocks.List(r.Context(), r.URL.Query().Get("sector"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if stocks == nil {
		stocks = []*models.Stock{}
	}
	respondJSON(w, http.StatusOK, stocks)
}

// GetStock handles GET /stocks/{symbol}
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.stocks.Get(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

// AddStock handles POST /stocks
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req AddStockRequest
	if err := decodeRequest(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	stock := req.stock()
	if err := h.stocks.Add(r.Context(), stock); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, stock)
}

// RemoveStock handles DELETE /stocks/{symbol}
func (h *Handler) RemoveStock(w http.ResponseWriter, r *http.Request) {
	if err := h.stocks.Remove(r.Context(), mux.Vars(r)["symbol"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHistory handles GET /stocks/{symbol}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultHistoryLimit, 1, maxHistoryLimit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	bars, err := h.stocks.History(r.Context(), mux.Vars(r)["symbol"], limit, from, to)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if bars == nil {
		bars = []*models.PriceDataDaily{}
	}
	respondJSON(w, http.StatusOK, bars)
}

// AddHistory handles POST /stocks/{symbol}/history
func (h *Handler) AddHistory(w http.ResponseWriter, r *http.Request) {
	var req HistoryRequest
	if err := decodeRequest(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	bars := make([]*models.PriceDataDaily, 0, len(req.Bars))
	for _, in := range req.Bars {
		date, _ := time.Parse(dateLayout, in.Date)
		bars = append(bars, &models.PriceDataDaily{
			Date:     date,
			Open:     decimal.NewFromFloat(in.Open),
			High:     decimal.NewFromFloat(in.High),
			Low:      decimal.NewFromFloat(in.Low),
			Close:    decimal.NewFromFloat(in.Close),
			AdjClose: decimal.NewFromFloat(in.AdjClose),
			Volume:   in.Volume,
			VWAP:     decimal.NewFromFloat(in.VWAP),
		})
	}

	symbol := mux.Vars(r)["symbol"]
	if err := h.stocks.AddHistory(r.Context(), symbol, bars); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"symbol": bars[0].Symbol,
		"stored": len(bars),
	})
}

// GetFeatures handles GET /stocks/{symbol}/features
func (h *Handler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.predictions.Features(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// Train handles POST /stocks/{symbol}/train
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	result, err := h.predictions.Train(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Predict handles POST /stocks/{symbol}/predict
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := decodeRequest(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	prediction, err := h.predictions.Predict(r.Context(), mux.Vars(r)["symbol"], *req.DaysAhead, req.Retrain)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, prediction)
}

// GetPredictions handles GET /stocks/{symbol}/predictions
func (h *Handler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPredictionsLimit, 1, 500)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	predictions, err := h.predictions.Predictions(r.Context(), mux.Vars(r)["symbol"], limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if predictions == nil {
		predictions = []*models.Prediction{}
	}
	respondJSON(w, http.StatusOK, predictions)
}

// GetLatestPrediction handles GET /stocks/{symbol}/predictions/latest
func (h *Handler) GetLatestPrediction(w http.ResponseWriter, r *http.Request) {
	prediction, err := h.predictions.LatestPrediction(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, prediction)
}

// Rank handles GET /rankings
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criterion := q.Get("criterion")
	if criterion == "" {
		criterion = defaultRankCriterion
	}

	result, err := h.rankings.Rank(r.Context(), criterion, q.Get("algorithm"), q.Get("sector"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if result.Sorted == nil {
		result.Sorted = []*models.Stock{}
	}
	respondJSON(w, http.StatusOK, result)
}

// MultiRank handles POST /rankings/multi
func (h *Handler) MultiRank(w http.ResponseWriter, r *http.Request) {
	var req MultiRankRequest
	if err := decodeRequest(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	sorted, err := h.rankings.MultiRank(r.Context(), req.Criteria, req.Sector)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if sorted == nil {
		sorted = []*models.Stock{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"criteria": req.Criteria,
		"count":    len(sorted),
		"sorted":   sorted,
	})
}

// Benchmark handles GET /rankings/benchmark
func (h *Handler) Benchmark(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criterion := q.Get("criterion")
	if criterion == "" {
		criterion = defaultRankCriterion
	}

	report, err := h.rankings.Benchmark(r.Context(), criterion, q.Get("sector"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Criteria handles GET /rankings/criteria
func (h *Handler) Criteria(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.rankings.Criteria())
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Msg("health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
