// Package handler contains the HTTP handlers of the URL shortener:
// shortening, redirecting, listing, health reporting and the JSON
// not-found response.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/kv-url-shortener/internal/apperrors"
	"github.com/atinyakov/kv-url-shortener/internal/models"
)

// malformedRequest represents an error with a malformed HTTP request.
type malformedRequest struct {
	status int
	msg    string
}

func (mr *malformedRequest) Error() string {
	return mr.msg
}

// decodeJSONBody decodes a single JSON object from the request body into dst.
// An empty body leaves dst untouched.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	ct := r.Header.Get("Content-Type")
	if ct != "" {
		mediaType := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
		if mediaType != "application/json" {
			msg := "Content-Type header is not application/json"
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}
		}
	}

	// Limit the size of the request body to 1MB
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.Is(err, io.EOF):
			return nil

		case errors.As(err, &syntaxError):
			msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case errors.Is(err, io.ErrUnexpectedEOF):
			msg := "Request body contains badly-formed JSON"
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case errors.As(err, &unmarshalTypeError):
			msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case errors.As(err, &maxBytesError):
			msg := "Request body must not be larger than 1MB"
			return &malformedRequest{status: http.StatusRequestEntityTooLarge, msg: msg}

		default:
			return &malformedRequest{status: http.StatusBadRequest, msg: "Request body contains badly-formed JSON"}
		}
	}

	// Ensure the body only contains a single JSON object
	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		msg := "Request body must only contain a single JSON object"
		return &malformedRequest{status: http.StatusBadRequest, msg: msg}
	}

	return nil
}

func writeJSON(res http.ResponseWriter, status int, v any, logger *zap.Logger) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	if err := json.NewEncoder(res).Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError renders err as {"error": msg} with the status of its code.
func writeError(res http.ResponseWriter, err error, logger *zap.Logger) {
	var mr *malformedRequest
	if errors.As(err, &mr) {
		writeJSON(res, mr.status, models.ErrorResponse{Error: mr.msg}, logger)
		return
	}
	writeJSON(res, apperrors.HTTPStatus(err), models.ErrorResponse{Error: apperrors.PublicMessage(err)}, logger)
}
