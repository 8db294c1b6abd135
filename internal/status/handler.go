// Package status serves monitor snapshots as HTML pages and a JSON API.
package status

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/status-monitor/internal/domain"
	"github.com/bissquit/status-monitor/internal/pkg/ctxlog"
	"github.com/bissquit/status-monitor/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// SnapshotReader provides consistent monitor snapshots.
type SnapshotReader interface {
	Snapshot() domain.Snapshot
}

// MaxIncidentsLimit caps the limit query parameter of the incidents endpoint.
const MaxIncidentsLimit = 100

// Handler handles HTTP requests for status pages and the status API.
type Handler struct {
	reader       SnapshotReader
	renderer     *Renderer
	pollInterval time.Duration
}

// NewHandler creates a new status handler.
func NewHandler(reader SnapshotReader, pollInterval time.Duration) (*Handler, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	return &Handler{
		reader:       reader,
		renderer:     renderer,
		pollInterval: pollInterval,
	}, nil
}

// RegisterPageRoutes registers the HTML pages.
func (h *Handler) RegisterPageRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/errors", h.Errors)
}

// RegisterAPIRoutes registers the JSON API routes.
func (h *Handler) RegisterAPIRoutes(r chi.Router) {
	r.Get("/status", h.GetStatus)
	r.Get("/incidents", h.ListIncidents)
}

// ServiceResponse is the API representation of a service state.
type ServiceResponse struct {
	Name       string     `json:"name"`
	Component  string     `json:"component"`
	Status     string     `json:"status"`
	URL        string     `json:"url"`
	ResponseMS *int64     `json:"response_ms"`
	Message    string     `json:"message"`
	CheckedAt  *time.Time `json:"checked_at"`
}

// IncidentResponse is the API representation of an incident.
type IncidentResponse struct {
	ID        string    `json:"id"`
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Summary   string    `json:"summary"`
	StartedAt time.Time `json:"started_at"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	OverallStatus string             `json:"overall_status"`
	LastUpdated   *time.Time         `json:"last_updated"`
	Services      []ServiceResponse  `json:"services"`
	Incidents     []IncidentResponse `json:"incidents"`
}

// IncidentsResponse is the body of GET /api/incidents.
type IncidentsResponse struct {
	Incidents []IncidentResponse `json:"incidents"`
}

// GetStatus returns the full snapshot.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	snap := h.reader.Snapshot()

	services := make([]ServiceResponse, 0, len(snap.Services))
	for _, s := range snap.Services {
		services = append(services, toServiceResponse(s))
	}

	httputil.JSON(w, http.StatusOK, StatusResponse{
		OverallStatus: snap.Overall.String(),
		LastUpdated:   snap.LastUpdated,
		Services:      services,
		Incidents:     toIncidentResponses(snap.Incidents),
	})
}

// ListIncidents returns recorded incidents, newest first.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	limit := MaxIncidentsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > MaxIncidentsLimit {
			httputil.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	incidents := h.reader.Snapshot().Incidents
	if len(incidents) > limit {
		incidents = incidents[:limit]
	}

	httputil.JSON(w, http.StatusOK, IncidentsResponse{Incidents: toIncidentResponses(incidents)})
}

type indexPage struct {
	Overall             domain.Severity
	LastUpdated         *time.Time
	Services            []domain.ServiceState
	Incidents           []domain.Incident
	PollIntervalSeconds int
}

type errorsPage struct {
	Overall     domain.Severity
	LastUpdated *time.Time
	Message     string
}

// Index renders the status page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	snap := h.reader.Snapshot()

	h.renderPage(w, r, "index", indexPage{
		Overall:             snap.Overall,
		LastUpdated:         snap.LastUpdated,
		Services:            snap.Services,
		Incidents:           snap.Incidents,
		PollIntervalSeconds: int(h.pollInterval.Seconds()),
	})
}

// Errors renders the latest incident, if any.
func (h *Handler) Errors(w http.ResponseWriter, r *http.Request) {
	snap := h.reader.Snapshot()

	message := "No recorded incidents."
	if len(snap.Incidents) > 0 {
		latest := snap.Incidents[0]
		message = latest.Service + ": " + latest.Summary
	}

	h.renderPage(w, r, "errors", errorsPage{
		Overall:     snap.Overall,
		LastUpdated: snap.LastUpdated,
		Message:     message,
	})
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, err := h.renderer.Render(name, data)
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("failed to render page", "page", name, "error", err)
		h.renderError(w, r)
		return
	}

	httputil.HTML(w, http.StatusOK, body)
}

const fallbackErrorPage = `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Service Status - Error</title></head>` +
	`<body><p class="message">Internal error</p></body></html>`

// renderError answers a failed page render with an HTML 500.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request) {
	body, err := h.renderer.Render("errors", errorsPage{
		Overall: domain.SeverityUnknown,
		Message: "Internal error while rendering the page.",
	})
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("failed to render error page", "error", err)
		body = []byte(fallbackErrorPage)
	}

	httputil.HTML(w, http.StatusInternalServerError, body)
}

func toServiceResponse(s domain.ServiceState) ServiceResponse {
	resp := ServiceResponse{
		Name:       s.Name,
		Component:  s.Component,
		Status:     s.Severity.String(),
		URL:        s.URL,
		ResponseMS: s.ResponseMS,
		Message:    s.Message,
	}
	if !s.CheckedAt.IsZero() {
		checkedAt := s.CheckedAt
		resp.CheckedAt = &checkedAt
	}
	return resp
}

func toIncidentResponses(incidents []domain.Incident) []IncidentResponse {
	result := make([]IncidentResponse, 0, len(incidents))
	for _, inc := range incidents {
		result = append(result, IncidentResponse{
			ID:        inc.ID,
			Service:   inc.Service,
			Status:    inc.Severity.String(),
			Summary:   inc.Summary,
			StartedAt: inc.StartedAt,
		})
	}
	return result
}
