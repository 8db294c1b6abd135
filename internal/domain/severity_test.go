package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_Order(t *testing.T) {
	ordered := []Severity{
		SeverityUnknown,
		SeverityOperational,
		SeverityDegradedPerformance,
		SeverityPartialOutage,
		SeverityMajorOutage,
	}

	for i := 1; i < len(ordered); i++ {
		assert.Less(t, ordered[i-1], ordered[i], "%s should be below %s", ordered[i-1], ordered[i])
	}
}

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		name     string
		label    string
	}{
		{SeverityUnknown, "unknown", "Status Unknown"},
		{SeverityOperational, "operational", "All Systems Operational"},
		{SeverityDegradedPerformance, "degraded_performance", "Degraded Performance"},
		{SeverityPartialOutage, "partial_outage", "Partial Outage"},
		{SeverityMajorOutage, "major_outage", "Major Outage"},
		{Severity(42), "unknown", "Status Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.severity.String())
			assert.Equal(t, tt.label, tt.severity.Label())
		})
	}
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity("partial_outage")
	require.NoError(t, err)
	assert.Equal(t, SeverityPartialOutage, s)

	_, err = ParseSeverity("on_fire")
	assert.Error(t, err)
}

func TestSeverity_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Status Severity `json:"status"`
	}{SeverityDegradedPerformance})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"degraded_performance"}`, string(data))

	var decoded struct {
		Status Severity `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"major_outage"}`), &decoded))
	assert.Equal(t, SeverityMajorOutage, decoded.Status)

	assert.Error(t, json.Unmarshal([]byte(`{"status":"bogus"}`), &decoded))
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, SeverityUnknown, MaxSeverity())
	assert.Equal(t, SeverityMajorOutage, MaxSeverity(SeverityOperational, SeverityMajorOutage, SeverityDegradedPerformance))
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		states   []Severity
		expected Severity
	}{
		{"empty", nil, SeverityUnknown},
		{"all operational", []Severity{SeverityOperational, SeverityOperational}, SeverityOperational},
		{"mixed", []Severity{SeverityOperational, SeverityDegradedPerformance, SeverityMajorOutage}, SeverityMajorOutage},
		{"partial wins over degraded", []Severity{SeverityDegradedPerformance, SeverityPartialOutage}, SeverityPartialOutage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			states := make([]ServiceState, 0, len(tt.states))
			for _, s := range tt.states {
				states = append(states, ServiceState{Severity: s})
			}
			assert.Equal(t, tt.expected, OverallStatus(states))
		})
	}
}

func TestServiceDefinition_EffectiveTimeout(t *testing.T) {
	def := ServiceDefinition{}
	assert.Equal(t, 5*time.Second, def.EffectiveTimeout(5*time.Second))

	def.Timeout = 2 * time.Second
	assert.Equal(t, 2*time.Second, def.EffectiveTimeout(5*time.Second))
}

func TestServiceDefinition_ExpectsStatus(t *testing.T) {
	def := ServiceDefinition{ExpectedStatuses: []int{200, 204}}
	assert.True(t, def.ExpectsStatus(204))
	assert.False(t, def.ExpectsStatus(500))
}
