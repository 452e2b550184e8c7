package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"spendsync/internal/domain/csvimport"
	"spendsync/internal/domain/openfinance"
	"spendsync/internal/domain/owner"
	ofclient "spendsync/internal/infrastructure/openfinance"
	"spendsync/internal/shared/logger"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Headers []string `json:"headers,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Unclassified errors are
// logged and reported as 500 without leaking their text.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		schemaErr   *csvimport.UnknownSchemaError
		parseErr    *csvimport.StructuralParseError
		providerErr *ofclient.ProviderRequestError
		maxBytesErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &schemaErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown_schema", Message: err.Error(), Headers: schemaErr.Headers})
	case errors.As(err, &parseErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed_csv", Message: err.Error()})
	case errors.Is(err, csvimport.ErrFileTooLarge), errors.As(err, &maxBytesErr):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file_too_large", Message: csvimport.ErrFileTooLarge.Error()})
	case errors.Is(err, owner.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, openfinance.ErrSyncInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "sync_in_progress", Message: err.Error()})
	case errors.Is(err, owner.ErrCursorConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "cursor_conflict", Message: err.Error()})
	case errors.As(err, &providerErr):
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Int("provider_status", providerErr.StatusCode).Msg("provider request failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "provider_error", Message: err.Error()})
	default:
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "internal server error"})
	}
}
