package handlers

import (
	"errors"
	"net/http"
	"streakTracker/internal/logger"
	"streakTracker/internal/store"

	"go.uber.org/zap"
)

// handleBusinessError отвечает клиенту, если err - бизнес-ошибка стора
func handleBusinessError(w http.ResponseWriter, err error) bool {
	var businessErr *store.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)
	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode))

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case store.CodeNotFound:
		return http.StatusNotFound
	case store.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if handleBusinessError(w, err) {
		return
	}
	logger.Error("HTTP: Ошибка стора", err,
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, err.Error())
}
