// Package domain contains the status monitor data model.
package domain

import (
	"net/http"
	"time"
)

// Default values applied to service definitions.
const (
	DefaultMethod    = http.MethodGet
	DefaultComponent = "Service"
)

// ServiceDefinition describes one monitored endpoint.
type ServiceDefinition struct {
	Name             string
	URL              string
	Method           string
	ExpectedStatuses []int
	Component        string
	Timeout          time.Duration // zero means use the global default
	Headers          map[string]string
	VerifySSL        bool
	ReachableOnly    bool
}

// EffectiveTimeout returns the per-service timeout if set, otherwise fallback.
func (d ServiceDefinition) EffectiveTimeout(fallback time.Duration) time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return fallback
}

// ExpectsStatus reports whether code is one of the expected status codes.
func (d ServiceDefinition) ExpectsStatus(code int) bool {
	for _, s := range d.ExpectedStatuses {
		if s == code {
			return true
		}
	}
	return false
}

// ServiceState is the latest classified result for a service.
type ServiceState struct {
	Name       string    `json:"name"`
	Component  string    `json:"component"`
	Severity   Severity  `json:"status"`
	URL        string    `json:"url"`
	ResponseMS *int64    `json:"response_ms"`
	Message    string    `json:"message"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Incident records the start of a contiguous unhealthy run of a service.
type Incident struct {
	ID        string    `json:"id"`
	Service   string    `json:"service"`
	Severity  Severity  `json:"status"`
	Summary   string    `json:"summary"`
	StartedAt time.Time `json:"started_at"`
}

// Snapshot is a consistent, detached copy of the monitor state.
type Snapshot struct {
	Services    []ServiceState `json:"services"`
	Incidents   []Incident     `json:"incidents"`
	LastUpdated *time.Time     `json:"last_updated"`
	Overall     Severity       `json:"overall_status"`
}

// OverallStatus returns the worst severity among states,
// or SeverityUnknown if there are none.
func OverallStatus(states []ServiceState) Severity {
	overall := SeverityUnknown
	for _, s := range states {
		overall = MaxSeverity(overall, s.Severity)
	}
	return overall
}
