package domain

import (
	"fmt"
)

// Severity is an ordered health level. Higher values are worse.
type Severity int

// Severity levels, lowest first.
const (
	SeverityUnknown Severity = iota
	SeverityOperational
	SeverityDegradedPerformance
	SeverityPartialOutage
	SeverityMajorOutage
)

var severityNames = map[Severity]string{
	SeverityUnknown:             "unknown",
	SeverityOperational:         "operational",
	SeverityDegradedPerformance: "degraded_performance",
	SeverityPartialOutage:       "partial_outage",
	SeverityMajorOutage:         "major_outage",
}

var severityLabels = map[Severity]string{
	SeverityUnknown:             "Status Unknown",
	SeverityOperational:         "All Systems Operational",
	SeverityDegradedPerformance: "Degraded Performance",
	SeverityPartialOutage:       "Partial Outage",
	SeverityMajorOutage:         "Major Outage",
}

// String returns the wire name of the severity.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return severityNames[SeverityUnknown]
}

// Label returns the human readable label shown on the status page.
func (s Severity) Label() string {
	if label, ok := severityLabels[s]; ok {
		return label
	}
	return severityLabels[SeverityUnknown]
}

// IsValid checks if the severity is one of the known levels.
func (s Severity) IsValid() bool {
	_, ok := severityNames[s]
	return ok
}

// IsOperational reports whether the severity is exactly operational.
func (s Severity) IsOperational() bool {
	return s == SeverityOperational
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a wire name into a Severity.
func ParseSeverity(name string) (Severity, error) {
	for s, n := range severityNames {
		if n == name {
			return s, nil
		}
	}
	return SeverityUnknown, fmt.Errorf("unknown severity %q", name)
}

// MaxSeverity returns the worst of the given severities.
// Returns SeverityUnknown when called without arguments.
func MaxSeverity(severities ...Severity) Severity {
	worst := SeverityUnknown
	for _, s := range severities {
		if s > worst {
			worst = s
		}
	}
	return worst
}
