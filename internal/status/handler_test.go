package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/status-monitor/internal/domain"
	"github.com/bissquit/status-monitor/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openAPISpecPath = "../../api/openapi/openapi.yaml"

// staticReader implements SnapshotReader for testing.
type staticReader struct {
	snapshot domain.Snapshot
}

func (r staticReader) Snapshot() domain.Snapshot {
	return r.snapshot
}

func sampleSnapshot() domain.Snapshot {
	checked := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	updated := checked.Add(time.Second)
	ms := int64(42)

	return domain.Snapshot{
		Services: []domain.ServiceState{
			{
				Name:       "api",
				Component:  "Backend",
				Severity:   domain.SeverityOperational,
				URL:        "https://api.example.com/health",
				ResponseMS: &ms,
				Message:    "200 OK",
				CheckedAt:  checked,
			},
			{
				Name:      "db",
				Component: "Storage",
				Severity:  domain.SeverityMajorOutage,
				URL:       "https://db.example.com/health",
				Message:   "Timeout after 5s",
				CheckedAt: checked,
			},
		},
		Incidents: []domain.Incident{
			{ID: "b1", Service: "db", Severity: domain.SeverityMajorOutage, Summary: "Timeout after 5s", StartedAt: checked},
			{ID: "a1", Service: "api", Severity: domain.SeverityPartialOutage, Summary: "Unexpected status 500", StartedAt: checked.Add(-time.Hour)},
		},
		LastUpdated: &updated,
		Overall:     domain.SeverityMajorOutage,
	}
}

func newTestRouter(t *testing.T, snap domain.Snapshot) http.Handler {
	t.Helper()

	h, err := NewHandler(staticReader{snapshot: snap}, 30*time.Second)
	require.NoError(t, err)

	r := chi.NewRouter()
	h.RegisterPageRoutes(r)
	r.Route("/api", h.RegisterAPIRoutes)
	return r
}

func serve(t *testing.T, router http.Handler, target string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return req, rec
}

func TestHandler_GetStatus(t *testing.T) {
	validator := testutil.NewOpenAPIValidator(t, openAPISpecPath)
	router := newTestRouter(t, sampleSnapshot())

	req, rec := serve(t, router, "/api/status")

	require.Equal(t, http.StatusOK, rec.Code)
	validator.ValidateResponse(t, req, rec.Code, rec.Header(), rec.Body.Bytes())

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "major_outage", resp.OverallStatus)
	require.NotNil(t, resp.LastUpdated)
	require.Len(t, resp.Services, 2)
	assert.Equal(t, "api", resp.Services[0].Name)
	require.NotNil(t, resp.Services[0].ResponseMS)
	assert.Equal(t, int64(42), *resp.Services[0].ResponseMS)
	assert.Nil(t, resp.Services[1].ResponseMS)
	assert.Equal(t, "major_outage", resp.Services[1].Status)
	require.Len(t, resp.Incidents, 2)
	assert.Equal(t, "b1", resp.Incidents[0].ID)
}

func TestHandler_GetStatus_Empty(t *testing.T) {
	validator := testutil.NewOpenAPIValidator(t, openAPISpecPath)
	router := newTestRouter(t, domain.Snapshot{Services: []domain.ServiceState{}, Incidents: []domain.Incident{}})

	req, rec := serve(t, router, "/api/status")

	require.Equal(t, http.StatusOK, rec.Code)
	validator.ValidateResponse(t, req, rec.Code, rec.Header(), rec.Body.Bytes())
	assert.JSONEq(t, `{"overall_status":"unknown","last_updated":null,"services":[],"incidents":[]}`, rec.Body.String())
}

func TestHandler_ListIncidents(t *testing.T) {
	validator := testutil.NewOpenAPIValidator(t, openAPISpecPath)
	router := newTestRouter(t, sampleSnapshot())

	tests := []struct {
		name         string
		target       string
		expectStatus int
		expectIDs    []string
	}{
		{"all", "/api/incidents", http.StatusOK, []string{"b1", "a1"}},
		{"limited", "/api/incidents?limit=1", http.StatusOK, []string{"b1"}},
		{"zero limit", "/api/incidents?limit=0", http.StatusBadRequest, nil},
		{"not a number", "/api/incidents?limit=abc", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := serve(t, router, tt.target)

			require.Equal(t, tt.expectStatus, rec.Code)
			if tt.expectStatus != http.StatusOK {
				return
			}
			validator.ValidateResponse(t, req, rec.Code, rec.Header(), rec.Body.Bytes())

			var resp IncidentsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			ids := make([]string, 0, len(resp.Incidents))
			for _, inc := range resp.Incidents {
				ids = append(ids, inc.ID)
			}
			assert.Equal(t, tt.expectIDs, ids)
		})
	}
}

func TestHandler_Index(t *testing.T) {
	router := newTestRouter(t, sampleSnapshot())

	_, rec := serve(t, router, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Major Outage")
	assert.Contains(t, body, "All Systems Operational")
	assert.Contains(t, body, "Backend")
	assert.Contains(t, body, "42ms")
	assert.Contains(t, body, "no response")
	assert.Contains(t, body, "May 04, 09:30 UTC")
	assert.Contains(t, body, "Checks run every 30 seconds.")
}

func TestHandler_Index_NoData(t *testing.T) {
	router := newTestRouter(t, domain.Snapshot{})

	_, rec := serve(t, router, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Status Unknown")
	assert.Contains(t, body, "No checks have completed yet.")
	assert.Contains(t, body, "No incidents recorded.")
	assert.Contains(t, body, "Last updated –")
}

func TestHandler_Errors(t *testing.T) {
	t.Run("latest incident", func(t *testing.T) {
		_, rec := serve(t, newTestRouter(t, sampleSnapshot()), "/errors")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "db: Timeout after 5s")
	})

	t.Run("no incidents", func(t *testing.T) {
		_, rec := serve(t, newTestRouter(t, domain.Snapshot{}), "/errors")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "No recorded incidents.")
	})
}

func TestHandler_RenderFailureIsHTML(t *testing.T) {
	h, err := NewHandler(staticReader{}, 30*time.Second)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.renderPage(rec, httptest.NewRequest(http.MethodGet, "/", nil), "missing", indexPage{})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Internal error while rendering the page.")
	assert.NotContains(t, rec.Body.String(), `"error"`)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "API Gateway", titleCase("API gateway"))
	assert.Equal(t, "Object Storage", titleCase("object_storage"))
}
