package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/status-monitor/internal/config"
	"github.com/bissquit/status-monitor/internal/testutil"
	"github.com/bissquit/status-monitor/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, services ...config.ServiceConfig) *App {
	t.Helper()

	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Status.Services = services

	a, err := New(&cfg)
	require.NoError(t, err)
	return a
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNew_InvalidMonitorConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Status.PollIntervalSeconds = 0

	_, err := New(&cfg)
	assert.Error(t, err)
}

func TestApp_Healthz(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	testutil.NewOpenAPIValidator(t, "../../api/openapi/openapi.yaml").
		ValidateResponse(t, req, rec.Code, rec.Header(), rec.Body.Bytes())
}

func TestApp_Readyz(t *testing.T) {
	a := newTestApp(t)

	rec := get(t, a.Router(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	a.Monitor().RunPass(context.Background())

	rec = get(t, a.Router(), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApp_Version(t *testing.T) {
	a := newTestApp(t)

	rec := get(t, a.Router(), "/version")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, version.Version, body["version"])
}

func TestApp_StatusEndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	a := newTestApp(t,
		config.ServiceConfig{Name: "up", URL: upstream.URL + "/up", Method: http.MethodGet, ExpectedStatuses: []int{200}, Component: "Web"},
		config.ServiceConfig{Name: "down", URL: upstream.URL + "/down", Method: http.MethodGet, ExpectedStatuses: []int{200}, Component: "Web"},
	)

	a.Monitor().RunPass(context.Background())

	rec := get(t, a.Router(), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		OverallStatus string `json:"overall_status"`
		Services      []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"services"`
		Incidents []struct {
			Service string `json:"service"`
			Summary string `json:"summary"`
		} `json:"incidents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "partial_outage", body.OverallStatus)
	require.Len(t, body.Services, 2)
	assert.Equal(t, "operational", body.Services[0].Status)
	assert.Equal(t, "partial_outage", body.Services[1].Status)
	require.Len(t, body.Incidents, 1)
	assert.Equal(t, "down", body.Incidents[0].Service)
	assert.Equal(t, "Unexpected status 500", body.Incidents[0].Summary)

	page := get(t, a.Router(), "/errors")
	assert.Contains(t, page.Body.String(), "down: Unexpected status 500")
}
