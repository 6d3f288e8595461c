package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"asset_ledger/internal/domain"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("Failed to encode response", slog.Any("error", err))
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// ledgerError maps a ledger failure to its HTTP status.
func ledgerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindAuthorization:
		status = http.StatusForbidden
	case domain.KindState:
		status = http.StatusConflict
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindTransfer:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		slog.Error("Ledger operation failed", slog.Any("error", err))
	}
	jsonResponse(w, status, map[string]string{"error": err.Error(), "kind": kind.String()})
}

const maxBodySize = 1 << 16

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}
