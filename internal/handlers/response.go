package handlers

import (
	"encoding/json"
	"net/http"
	"streakTracker/internal/logger"
)

type Payload struct {
	Key     string
	Payload any
}

func toPayload(key string, pl any) Payload {
	return Payload{Key: key, Payload: pl}
}

// responseWithJSON собирает тело из пар ключ-значение
func responseWithJSON(w http.ResponseWriter, code int, payload ...Payload) {
	body := make(map[string]any, len(payload))
	for _, pl := range payload {
		body[pl.Key] = pl.Payload
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("HTTP: Ошибка записи ответа", err)
	}
}

func responseWithError(w http.ResponseWriter, code int, message string) {
	responseWithJSON(w, code, toPayload("error", message))
}
