package api

import (
	"errors"
	"net/http"

	"github.com/trogers1052/stock-forecast-service/internal/database"
	"github.com/trogers1052/stock-forecast-service/internal/forecast"
	"github.com/trogers1052/stock-forecast-service/internal/indicators"
	"github.com/trogers1052/stock-forecast-service/internal/service"
	"github.com/trogers1052/stock-forecast-service/internal/sorting"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, sorting.ErrInvalidCriterion),
		errors.Is(err, sorting.ErrInvalidAlgorithm),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, forecast.ErrNotTrained):
		return http.StatusConflict
	case errors.Is(err, forecast.ErrInsufficientData),
		errors.Is(err, indicators.ErrInsufficientBars):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	body := ErrorResponse{Error: err.Error()}
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		body.Fields = reqErr.fields
	}

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		body.Error = "internal server error"
		if errors.Is(err, forecast.ErrModel) {
			body.Error = "model error"
		}
	}

	respondJSON(w, status, body)
}
