// Package monitor polls configured services, classifies their health and
// keeps the current state and incident log for readers.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bissquit/status-monitor/internal/domain"
	"github.com/bissquit/status-monitor/internal/pkg/ctxlog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config validation errors.
var (
	ErrInvalidPollInterval = errors.New("poll interval must be positive")
	ErrInvalidTimeout      = errors.New("timeout must be positive")
	ErrInvalidMaxIncidents = errors.New("max incidents must not be negative")
	ErrInvalidService      = errors.New("service name and url are required")
	ErrDuplicateService    = errors.New("duplicate service name")
)

// Config contains monitor configuration.
type Config struct {
	PollInterval        time.Duration
	Timeout             time.Duration
	SlowThreshold       time.Duration // zero disables slow detection
	MaxIncidents        int
	MaxConcurrentChecks int     // zero or less checks services one at a time
	ProbeRateLimit      float64 // probes per second, zero means unlimited
	Services            []domain.ServiceDefinition
}

// DefaultConfig returns default monitor configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:        60 * time.Second,
		Timeout:             5 * time.Second,
		MaxIncidents:        20,
		MaxConcurrentChecks: 10,
	}
}

// Validate checks the configuration. Errors are fatal at startup.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxIncidents < 0 {
		return ErrInvalidMaxIncidents
	}

	seen := make(map[string]struct{}, len(c.Services))
	for _, def := range c.Services {
		if def.Name == "" || def.URL == "" {
			return fmt.Errorf("%w: %q", ErrInvalidService, def.Name)
		}
		if _, ok := seen[def.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateService, def.Name)
		}
		seen[def.Name] = struct{}{}
	}
	return nil
}

// Prober checks one service.
type Prober interface {
	Check(ctx context.Context, def domain.ServiceDefinition, defaultTimeout time.Duration) domain.ServiceState
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithProber replaces the HTTP checker.
func WithProber(p Prober) Option {
	return func(m *Monitor) {
		m.prober = p
	}
}

// WithLogger sets the logger used by the poll loop.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// Monitor runs poll passes in the background and serves snapshots.
type Monitor struct {
	config  Config
	prober  Prober
	store   *Store
	limiter *rate.Limiter
	logger  *slog.Logger

	passMu  sync.Mutex
	started atomic.Bool
	passes  atomic.Uint64
	done    chan struct{}
}

// NewMonitor creates a monitor. It does not start polling.
func NewMonitor(config Config, opts ...Option) (*Monitor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor config: %w", err)
	}

	names := make([]string, 0, len(config.Services))
	for _, def := range config.Services {
		names = append(names, def.Name)
	}

	m := &Monitor{
		config: config,
		store:  NewStore(config.MaxIncidents, names),
		logger: slog.Default(),
		done:   make(chan struct{}),
	}

	if config.ProbeRateLimit > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(config.ProbeRateLimit), 1)
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.prober == nil {
		m.prober = NewChecker(config.SlowThreshold)
	}

	return m, nil
}

// Start launches the poll loop. The first pass runs immediately; each later
// pass starts one poll interval after the previous one finished, until ctx
// is cancelled. Calling Start again is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}

	m.logger.Info("starting monitor",
		"services", len(m.config.Services),
		"poll_interval", m.config.PollInterval,
		"timeout", m.config.Timeout,
		"max_concurrent_checks", m.config.MaxConcurrentChecks,
	)

	go m.run(ctx)
}

// Wait blocks until the poll loop has exited. Returns immediately if the
// monitor was never started.
func (m *Monitor) Wait() {
	if !m.started.Load() {
		return
	}
	<-m.done
}

// Snapshot returns a consistent copy of the current state.
func (m *Monitor) Snapshot() domain.Snapshot {
	return m.store.Snapshot()
}

// PollInterval returns the configured interval between passes.
func (m *Monitor) PollInterval() time.Duration {
	return m.config.PollInterval
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-timer.C:
			m.RunPass(ctx)
			timer.Reset(m.config.PollInterval)
		}
	}
}

// RunPass checks every configured service once, records each result and
// then stamps the pass completion time. Results of a pass interrupted by
// ctx cancellation are discarded. Passes never overlap: a call made while
// the poll loop (or another caller) is mid-pass waits for it to finish.
func (m *Monitor) RunPass(ctx context.Context) {
	m.passMu.Lock()
	defer m.passMu.Unlock()

	start := time.Now()
	ctx = ctxlog.WithLogger(ctx, m.logger.With("pass", m.passes.Add(1)))

	var g errgroup.Group
	if m.config.MaxConcurrentChecks > 0 {
		g.SetLimit(m.config.MaxConcurrentChecks)
	} else {
		g.SetLimit(1)
	}

	for _, def := range m.config.Services {
		g.Go(func() error {
			state, ok := m.check(ctx, def)
			if !ok {
				return nil
			}
			m.record(ctx, def, state)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return
	}

	completedAt := time.Now().UTC()
	m.store.MarkPass(completedAt)
	recordPass(time.Since(start), completedAt)

	ctxlog.FromContext(ctx).Debug("poll pass completed",
		"services", len(m.config.Services),
		"duration", time.Since(start),
	)
}

// check runs one probe in its own fault domain: a panicking prober is
// reported as a major outage instead of terminating the loop.
func (m *Monitor) check(ctx context.Context, def domain.ServiceDefinition) (state domain.ServiceState, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("service check panicked", "service", def.Name, "panic", r)
			state = domain.ServiceState{
				Name:      def.Name,
				Component: def.Component,
				URL:       def.URL,
				Severity:  domain.SeverityMajorOutage,
				Message:   fmt.Sprintf("check failed: %v", r),
				CheckedAt: time.Now().UTC(),
			}
			ok = true
		}
	}()

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return domain.ServiceState{}, false
		}
	}

	start := time.Now()
	state = m.prober.Check(ctx, def, m.config.Timeout)
	if ctx.Err() != nil {
		return domain.ServiceState{}, false
	}

	recordProbe(def.Name, state.Severity, time.Since(start))
	return state, true
}

func (m *Monitor) record(ctx context.Context, def domain.ServiceDefinition, state domain.ServiceState) {
	logger := ctxlog.FromContext(ctx)
	previous, incident := m.store.Record(def, state)

	if previous != domain.SeverityUnknown && previous != state.Severity {
		logger.Info("service status changed",
			"service", def.Name,
			"from", previous.String(),
			"to", state.Severity.String(),
			"message", state.Message,
		)
	}

	if incident != nil {
		recordIncident(def.Name)
		logger.Warn("incident opened",
			"incident_id", incident.ID,
			"service", incident.Service,
			"status", incident.Severity.String(),
			"summary", incident.Summary,
		)
	}
}
