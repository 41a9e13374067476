package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"vendite/internal/core"
)

// errorBody is the machine-readable rejection envelope: a stable kind for
// programmatic handling plus a human-readable message.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, map[string]errorBody{"error": {Kind: kind, Message: message}})
}

// respondDomainError maps ledger/catalog errors to HTTP statuses:
// missing references are 404, business-rule and validation rejections
// are 400, anything unexpected is 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		catErr  *core.CategoryError
		overErr *core.OverpaymentError
	)
	switch {
	case errors.Is(err, core.ErrCustomerNotFound):
		respondError(w, http.StatusNotFound, "customer_not_found", err.Error())
	case errors.Is(err, core.ErrSaleNotFound):
		respondError(w, http.StatusNotFound, "sale_not_found", err.Error())
	case errors.Is(err, core.ErrDuplicatePhone):
		respondError(w, http.StatusBadRequest, "duplicate_phone", err.Error())
	case errors.As(err, &overErr):
		respondError(w, http.StatusBadRequest, "overpayment", err.Error())
	case errors.As(err, &catErr):
		respondError(w, http.StatusBadRequest, string(catErr.Kind), err.Error())
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyPhone),
		errors.Is(err, core.ErrEmptyLocation),
		errors.Is(err, core.ErrEmptyItem):
		respondError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err, "method", r.Method, "url", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
