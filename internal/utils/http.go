package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

type ErrorMessage struct {
	Error string `json:"error"`
}

// LogAndHTTPError logs the error before sending an HTTP error response to the provided writer.
// It takes in both an error and a debug message for verbosity. The error's own message is what
// the client sees.
func LogAndHTTPError(w http.ResponseWriter, err error, debug string, code int) {
	if shouldLog(err) {
		log.Error().Err(err).Msg(debug)
	}
	WriteHTTPError(w, err, code)
}

func shouldLog(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// WriteHTTPError sends a JSON error body with the given status code without logging.
func WriteHTTPError(w http.ResponseWriter, err error, code int) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	WriteJSON(w, code, &ErrorMessage{Error: msg})
}

// WriteJSON encodes v as the response body. Headers are already sent by the time
// encoding can fail, so an encoding error is only logged.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("encoding json response")
	}
}
