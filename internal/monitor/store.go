package monitor

import (
	"sync"
	"time"

	"github.com/bissquit/status-monitor/internal/domain"
	"github.com/google/uuid"
)

// Store owns the mutable monitor state: the latest state per service,
// the incident log and the time of the last completed pass.
// All access goes through Record, MarkPass and Snapshot.
type Store struct {
	mu           sync.RWMutex
	order        []string
	states       map[string]domain.ServiceState
	incidents    []domain.Incident
	lastUpdated  *time.Time
	maxIncidents int
}

// NewStore creates an empty store. order fixes the snapshot order of
// services; services recorded under other names are appended.
func NewStore(maxIncidents int, order []string) *Store {
	if maxIncidents < 0 {
		maxIncidents = 0
	}
	return &Store{
		order:        append([]string(nil), order...),
		states:       make(map[string]domain.ServiceState, len(order)),
		maxIncidents: maxIncidents,
	}
}

// Record replaces the state of def.Name with state. An incident is opened
// when the service moves from operational (or no prior state) to anything else.
// Returns the previous severity (unknown if none) and the opened incident, if
// one was retained. With maxIncidents zero no incident is ever returned.
func (s *Store) Record(def domain.ServiceDefinition, state domain.ServiceState) (domain.Severity, *domain.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, seen := s.states[def.Name]
	if !seen && !s.known(def.Name) {
		s.order = append(s.order, def.Name)
	}
	s.states[def.Name] = state

	prevSeverity := domain.SeverityUnknown
	if seen {
		prevSeverity = previous.Severity
	}

	if state.Severity.IsOperational() || (seen && !previous.Severity.IsOperational()) {
		return prevSeverity, nil
	}
	if s.maxIncidents == 0 {
		return prevSeverity, nil
	}

	incident := domain.Incident{
		ID:        uuid.NewString(),
		Service:   def.Name,
		Severity:  state.Severity,
		Summary:   state.Message,
		StartedAt: state.CheckedAt,
	}

	s.incidents = append([]domain.Incident{incident}, s.incidents...)
	if len(s.incidents) > s.maxIncidents {
		s.incidents = s.incidents[:s.maxIncidents]
	}

	return prevSeverity, &incident
}

// MarkPass stores the completion time of a full pass.
func (s *Store) MarkPass(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := at
	s.lastUpdated = &t
}

// Snapshot returns a detached copy of the current state.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	services := make([]domain.ServiceState, 0, len(s.states))
	for _, name := range s.order {
		state, ok := s.states[name]
		if !ok {
			continue
		}
		if state.ResponseMS != nil {
			ms := *state.ResponseMS
			state.ResponseMS = &ms
		}
		services = append(services, state)
	}

	incidents := make([]domain.Incident, len(s.incidents))
	copy(incidents, s.incidents)

	var lastUpdated *time.Time
	if s.lastUpdated != nil {
		t := *s.lastUpdated
		lastUpdated = &t
	}

	return domain.Snapshot{
		Services:    services,
		Incidents:   incidents,
		LastUpdated: lastUpdated,
		Overall:     domain.OverallStatus(services),
	}
}

func (s *Store) known(name string) bool {
	for _, n := range s.order {
		if n == name {
			return true
		}
	}
	return false
}
