package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/bizops-api/internal/api/response"
	"github.com/isdelr/bizops-api/internal/schema"
	"github.com/isdelr/bizops-api/internal/services"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

var errBadBody = errors.New("invalid request body")

// decodeJSON reads a JSON object body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data", errBadBody)
	}
	return nil
}

// idParam parses the {id} route parameter.
func idParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// writeServiceError maps service errors onto the envelope error taxonomy.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, subject string) {
	if ve, ok := services.AsValidationError(err); ok {
		response.ValidationError(w, ve.Fields)
		return
	}

	switch {
	case errors.Is(err, errBadBody):
		response.Error(w, response.CodeBadRequest, "The request body must be a valid JSON object.")
	case errors.Is(err, services.ErrNotFound):
		response.Error(w, response.CodeNotFound, fmt.Sprintf("%s not found.", schema.Capitalize(subject)))
	case errors.Is(err, services.ErrConflict):
		response.Error(w, response.CodeConflict, fmt.Sprintf("A %s with the same unique values already exists.", subject))
	case errors.Is(err, services.ErrForbidden):
		response.Error(w, response.CodeForbidden, "You are not allowed to perform this action.")
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Error(w, response.CodeUnauthorized, "Invalid credentials.")
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		response.Error(w, response.CodeServerError, "An unexpected error occurred.")
	}
}
