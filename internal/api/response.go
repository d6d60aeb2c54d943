package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	errx "github.com/FinMentor-core-poc-v1/server/internal/core/error"
	logx "github.com/FinMentor-core-poc-v1/server/pkg/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Pre-marshaled fallback so a response is always written even if encoding
// the real payload fails.
var fallbackErrorResponse []byte

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(errorResponse{Error: errx.SystemErrorMessage})
	if err != nil {
		panic(fmt.Sprintf("failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSON marshals first so encoding errors are caught before any header
// is written.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logx.Error().Err(err).Msg("writeJSON: failed to marshal response")
		data = fallbackErrorResponse
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logx.Error().Err(err).Msg("writeJSON: failed to write response")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeError maps an error onto an HTTP response: flow errors first, then
// AppError statuses (store failures), then a generic 500.
func writeError(w http.ResponseWriter, err error) {
	if status, msg, ok := statusForFlowError(err); ok {
		logx.Warn().Err(err).Int("status", status).Msg("request failed")
		writeErrorMessage(w, status, msg)
		return
	}

	var appErr *errx.AppError
	if errors.As(err, &appErr) {
		logx.Error().Err(err).Int("status", appErr.Status).Msg("request failed")
		writeErrorMessage(w, appErr.Status, appErr.Message)
		return
	}

	logx.Error().Err(err).Msg("request failed")
	writeErrorMessage(w, http.StatusInternalServerError, errx.SystemErrorMessage)
}
