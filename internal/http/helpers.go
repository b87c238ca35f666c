package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/storage"
)

const jsonBodyLimit = 1 << 20 // requests other than CSV uploads stay small

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps known error values onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrZeroAmount),
		errors.Is(err, core.ErrTypeMismatch),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidFlowType),
		errors.Is(err, core.ErrInvalidAccount),
		errors.Is(err, services.ErrInvalidPeriod):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.FromContext(r.Context()).Error("Request failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, jsonBodyLimit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// queryInt64 parses an optional integer query parameter, nil when absent.
func queryInt64(r *http.Request, name string) (*int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// queryFocus reads the report focus parameter, defaulting to expense.
func queryFocus(r *http.Request) (core.FlowType, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("focus"))
	if v == "" {
		return core.Expense, true
	}
	ft := core.FlowType(v)
	return ft, ft.Valid()
}
