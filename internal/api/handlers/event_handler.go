package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/isdelr/bizops-api/internal/api/response"
	"github.com/isdelr/bizops-api/internal/query"
	"github.com/isdelr/bizops-api/internal/services"
)

const defaultEventLimit = 20

// EventHandler handles HTTP requests related to the activity log.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent activity, optionally for one resource.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	e := response.New("Activity retrieved successfully.", nil)

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > services.MaxRecentEvents {
			e.Notify(query.NotifyWarning, fmt.Sprintf("Invalid limit %q, showing the latest %d events.", raw, limit))
		} else {
			limit = n
		}
	}

	events, err := h.service.GetRecentEvents(r.Context(), limit, r.URL.Query().Get("resource"))
	if err != nil {
		writeServiceError(w, r, err, "activity")
		return
	}
	e.Data = events
	response.OK(w, e)
}
