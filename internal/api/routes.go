package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-forecast-service/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// SetupRoutes configures all API routes. metrics may be nil.
func SetupRoutes(handler *Handler, metrics http.Handler, log zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID, logging.Middleware(log))

	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Stocks and history
	api.HandleFunc("/stocks", handler.GetAllStocks).Methods("GET")
	api.HandleFunc("/stocks", handler.AddStock).Methods("POST")
	api.HandleFunc("/stocks/{symbol}", handler.GetStock).Methods("GET")
	api.HandleFunc("/stocks/{symbol}", handler.RemoveStock).Methods("DELETE")
	api.HandleFunc("/stocks/{symbol}/history", handler.GetHistory).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/history", handler.AddHistory).Methods("POST")

	// Forecasting
	api.HandleFunc("/stocks/{symbol}/features", handler.GetFeatures).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/train", handler.Train).Methods("POST")
	api.HandleFunc("/stocks/{symbol}/predict", handler.Predict).Methods("POST")
	api.HandleFunc("/stocks/{symbol}/predictions", handler.GetPredictions).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/predictions/latest", handler.GetLatestPrediction).Methods("GET")

	// Rankings
	api.HandleFunc("/rankings", handler.Rank).Methods("GET")
	api.HandleFunc("/rankings/multi", handler.MultiRank).Methods("POST")
	api.HandleFunc("/rankings/benchmark", handler.Benchmark).Methods("GET")
	api.HandleFunc("/rankings/criteria", handler.Criteria).Methods("GET")

	return r
}

// requestID tags every request and response with an X-Request-ID,
// generating one when the client did not send it
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
