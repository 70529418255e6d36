package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/bizops-api/internal/api/response"
	"github.com/isdelr/bizops-api/internal/query"
	"github.com/isdelr/bizops-api/internal/schema"
	"github.com/isdelr/bizops-api/internal/services"
)

// ResourceRoutes is a resource that can mount its endpoints.
type ResourceRoutes interface {
	Name() string
	Routes(r chi.Router)
}

// ResourceHandler serves the CRUD endpoints of one resource.
type ResourceHandler[T any, P any] struct {
	service services.ResourceServiceProvider[T, P]
}

// NewResourceHandler creates a new ResourceHandler.
func NewResourceHandler[T any, P any](service services.ResourceServiceProvider[T, P]) *ResourceHandler[T, P] {
	return &ResourceHandler[T, P]{service: service}
}

// Name returns the URL segment of the resource.
func (h *ResourceHandler[T, P]) Name() string {
	return h.service.Definition().Name
}

// Routes registers the resource endpoints on r.
func (h *ResourceHandler[T, P]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/schema", h.Schema)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		r.Post("/restore", h.Restore)
	})
}

// List handles the paginated, searchable, sortable and filterable index.
func (h *ResourceHandler[T, P]) List(w http.ResponseWriter, r *http.Request) {
	def := h.service.Definition()
	res, err := h.service.List(r.Context(), query.ParseParams(r.URL.Query()), r.URL)
	if err != nil {
		writeServiceError(w, r, err, def.Singular)
		return
	}

	e := response.WithList(response.New(fmt.Sprintf("%s retrieved successfully.", schema.Capitalize(def.Name)), nil), res)
	response.OK(w, e.WithColumns(def.Columns))
}

// Schema describes the form and table of the resource.
func (h *ResourceHandler[T, P]) Schema(w http.ResponseWriter, r *http.Request) {
	def := h.service.Definition()
	e := response.New(fmt.Sprintf("%s schema retrieved successfully.", schema.Capitalize(def.Singular)), nil).
		WithSchema(def.Schema).
		WithColumns(def.Columns)
	response.OK(w, e)
}

// Get handles retrieving a single record.
func (h *ResourceHandler[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	def := h.service.Definition()
	id, ok := idParam(r)
	if !ok {
		response.Error(w, response.CodeNotFound, fmt.Sprintf("%s not found.", schema.Capitalize(def.Singular)))
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, def.Singular)
		return
	}
	response.OK(w, response.New(fmt.Sprintf("%s retrieved successfully.", schema.Capitalize(def.Singular)), rec).WithSchema(def.Schema))
}

// Create handles creating a record.
func (h *ResourceHandler[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	def := h.service.Definition()
	var payload P
	if err := decodeJSON(w, r, &payload); err != nil {
		writeServiceError(w, r, err, def.Singular)
		return
	}

	rec, err := h.service.Create(r.Context(), &payload)
	if err != nil {
		writeServiceError(w, r, err, def.Singular)
		return
	}
	response.Created(w, response.New(fmt.Sprintf("%s created successfully.", schema.Capitalize(def.Singular)), rec))
}

// Update handles PUT and PATCH; both apply only the provided fields.
func (h *ResourceHandler[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	def := h.service.Definition()
	id, ok := idParam(r)
	if !ok {
		response.Error(w, response.CodeNotFound, fmt.Sprintf("%s not found.", schema.Capitalize(def.Singular)))
		return
	}

	var payload P
	if err := decodeJSON(w, r, &payload); err != nil {
		writeServiceError(w, r, err, def.Singular)
		return
	}

	rec, err := h.service.Update(r.Context(), id, &payload)
	if err != nil {
		writeServiceError(w, r, err, def.Singular)
		return
	}
	response.OK(w, response.New(fmt.Sprintf("%s updated successfully.", schema.Capitalize(def.Singular)), rec))
}

// Delete soft deletes a record, or removes it for good with ?force=true.
func (h *ResourceHandler[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	def := h.service.Definition()
	id, ok := idParam(r)
	if !ok {
		response.Error(w, response.CodeNotFound, fmt.Sprintf("%s not found.", schema.Capitalize(def.Singular)))
		return
	}

	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		var err error
		if force, err = strconv.ParseBool(raw); err != nil {
			response.Error(w, response.CodeBadRequest, "The force parameter must be true or false.")
			return
		}
	}

	if err := h.service.Delete(r.Context(), id, force); err != nil {
		writeServiceError(w, r, err, def.Singular)
		return
	}

	msg := fmt.Sprintf("%s deleted successfully.", schema.Capitalize(def.Singular))
	if force {
		msg = fmt.Sprintf("%s permanently deleted.", schema.Capitalize(def.Singular))
	}
	response.OK(w, response.New(msg, nil))
}

// Restore un-deletes a soft deleted record.
func (h *ResourceHandler[T, P]) Restore(w http.ResponseWriter, r *http.Request) {
	def := h.service.Definition()
	id, ok := idParam(r)
	if !ok {
		response.Error(w, response.CodeNotFound, fmt.Sprintf("%s not found.", schema.Capitalize(def.Singular)))
		return
	}

	rec, err := h.service.Restore(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, def.Singular)
		return
	}
	response.OK(w, response.New(fmt.Sprintf("%s restored successfully.", schema.Capitalize(def.Singular)), rec))
}
