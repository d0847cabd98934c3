package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zatekoja/localeventfinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/localeventfinder/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// statusForError maps an application error type to an HTTP status
func statusForError(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeInvalidSource:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConfiguration:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	errType := apperrors.TypeOf(err)
	status := statusForError(errType)

	message := "internal server error"
	var appErr *apperrors.AppError
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		message = appErr.Message
	}

	logger := observability.LoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("error_type", string(errType)).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str("error_type", string(errType)).Msg("request rejected")
	}

	respondWithJSON(w, status, map[string]string{
		"error": message,
		"type":  string(errType),
	})
}
