package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/isdelr/bizops-api/internal/api/response"
	"github.com/isdelr/bizops-api/internal/monitoring"
	"github.com/rs/zerolog/log"
)

// HostStatsProvider returns the latest host snapshot.
type HostStatsProvider interface {
	Latest(ctx context.Context) monitoring.HostStats
}

// Check is a named dependency probe, such as the database or redis.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthReport is the data member of the health endpoint.
type HealthReport struct {
	Status        string                `json:"status"`
	Uptime        string                `json:"uptime"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	Checks        map[string]string     `json:"checks"`
	Host          *monitoring.HostStats `json:"host,omitempty"`
}

// HealthHandler reports liveness and dependency status.
type HealthHandler struct {
	started time.Time
	checks  []Check
	host    HostStatsProvider
}

// NewHealthHandler creates a new HealthHandler. host may be nil.
func NewHealthHandler(host HostStatsProvider, checks ...Check) *HealthHandler {
	return &HealthHandler{started: time.Now(), checks: checks, host: host}
}

// Get runs every probe; any failure answers 500 with the full report.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	uptime := time.Since(h.started).Round(time.Second)
	report := HealthReport{
		Status:        "ok",
		Uptime:        uptime.String(),
		UptimeSeconds: int64(uptime.Seconds()),
		Checks:        make(map[string]string, len(h.checks)),
	}
	for _, c := range h.checks {
		if err := c.Probe(ctx); err != nil {
			log.Error().Err(err).Str("check", c.Name).Msg("Health check failed")
			report.Checks[c.Name] = "down"
			report.Status = "degraded"
			continue
		}
		report.Checks[c.Name] = "up"
	}
	if h.host != nil {
		stats := h.host.Latest(ctx)
		report.Host = &stats
	}

	if report.Status != "ok" {
		e := response.New("Service is degraded.", report)
		e.Success = false
		e.Error = &response.ErrorBody{Code: response.CodeServerError, Details: "One or more dependencies are unavailable."}
		response.JSON(w, http.StatusInternalServerError, e)
		return
	}
	response.OK(w, response.New("Service is healthy.", report))
}
