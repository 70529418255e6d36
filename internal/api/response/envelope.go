// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/isdelr/bizops-api/internal/query"
	"github.com/isdelr/bizops-api/internal/schema"
	"github.com/rs/zerolog/log"
)

// Error codes, one per HTTP status class the API produces.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeConflict         = "CONFLICT"
	CodeValidation       = "VALIDATION_ERROR"
	CodeTooManyRequests  = "TOO_MANY_REQUESTS"
	CodeServerError      = "SERVER_ERROR"
)

var statusByCode = map[string]int{
	CodeBadRequest:       http.StatusBadRequest,
	CodeUnauthorized:     http.StatusUnauthorized,
	CodeForbidden:        http.StatusForbidden,
	CodeNotFound:         http.StatusNotFound,
	CodeMethodNotAllowed: http.StatusMethodNotAllowed,
	CodeConflict:         http.StatusConflict,
	CodeValidation:       http.StatusUnprocessableEntity,
	CodeTooManyRequests:  http.StatusTooManyRequests,
	CodeServerError:      http.StatusInternalServerError,
}

// Status returns the HTTP status for an error code.
func Status(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// ErrorBody is the error member of a failed response.
type ErrorBody struct {
	Code             string              `json:"code"`
	Details          string              `json:"details"`
	ValidationErrors map[string][]string `json:"validation_errors,omitempty"`
}

// Envelope is the standard response wrapper.
type Envelope struct {
	Success       bool                 `json:"success"`
	Message       string               `json:"message"`
	Data          interface{}          `json:"data"`
	Pagination    *query.Pagination    `json:"pagination"`
	Search        *string              `json:"search"`
	Sort          *query.Sort          `json:"sort"`
	Filters       *query.FilterState   `json:"filters"`
	Schema        []schema.Group       `json:"schema"`
	Columns       []schema.Column      `json:"columns"`
	Notifications []query.Notification `json:"notifications"`
	Error         *ErrorBody           `json:"error,omitempty"`
}

// New starts a successful envelope.
func New(message string, data interface{}) *Envelope {
	return &Envelope{Success: true, Message: message, Data: data, Columns: []schema.Column{}}
}

// WithList copies list metadata from a query result.
func WithList[T any](e *Envelope, res query.Result[T]) *Envelope {
	e.Data = res.Items
	e.Pagination = &res.Pagination
	e.Search = res.Search
	e.Sort = &res.Sort
	e.Filters = &res.Filters
	if len(res.Notifications) > 0 {
		e.Notifications = res.Notifications
	}
	return e
}

// WithSchema attaches form metadata.
func (e *Envelope) WithSchema(groups []schema.Group) *Envelope {
	e.Schema = groups
	return e
}

// WithColumns attaches table metadata.
func (e *Envelope) WithColumns(columns []schema.Column) *Envelope {
	if columns != nil {
		e.Columns = columns
	}
	return e
}

// Notify appends an advisory notification.
func (e *Envelope) Notify(kind, message string) *Envelope {
	e.Notifications = append(e.Notifications, query.Notification{Type: kind, Message: message})
	return e
}

// JSON writes the envelope with the given status.
func JSON(w http.ResponseWriter, status int, e *Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(e); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, e *Envelope) {
	JSON(w, http.StatusOK, e)
}

// Created writes a 201 response.
func Created(w http.ResponseWriter, e *Envelope) {
	JSON(w, http.StatusCreated, e)
}

// Error writes a failed envelope for code.
func Error(w http.ResponseWriter, code, details string) {
	JSON(w, Status(code), &Envelope{
		Success: false,
		Message: details,
		Columns: []schema.Column{},
		Error:   &ErrorBody{Code: code, Details: details},
	})
}

// ValidationError writes a 422 listing messages per field.
func ValidationError(w http.ResponseWriter, fields map[string][]string) {
	const details = "The given data was invalid."
	JSON(w, http.StatusUnprocessableEntity, &Envelope{
		Success: false,
		Message: details,
		Columns: []schema.Column{},
		Error:   &ErrorBody{Code: CodeValidation, Details: details, ValidationErrors: fields},
	})
}

// NotFound answers unknown routes with the envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, CodeNotFound, "The requested resource was not found.")
}

// MethodNotAllowed answers unsupported verbs with the envelope.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, CodeMethodNotAllowed, "Method "+r.Method+" is not allowed on this resource.")
}
