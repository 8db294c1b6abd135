package monitor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/status-monitor/internal/domain"
)

const maxDrainBytes = 1 << 20

// Checker probes a single service and classifies the outcome.
// It holds no per-call state and is safe for concurrent use.
type Checker struct {
	client         *http.Client
	insecureClient *http.Client
	slowThreshold  time.Duration
}

// NewChecker creates a checker. A zero slowThreshold disables
// degraded_performance classification.
func NewChecker(slowThreshold time.Duration) *Checker {
	secure := http.DefaultTransport.(*http.Transport).Clone()

	insecure := http.DefaultTransport.(*http.Transport).Clone()
	insecure.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per service via verify_ssl: false

	return &Checker{
		client:         &http.Client{Transport: secure},
		insecureClient: &http.Client{Transport: insecure},
		slowThreshold:  slowThreshold,
	}
}

// Check issues one request for def and returns the classified state.
// Failures are never returned as errors; they are mapped to severities.
func (c *Checker) Check(ctx context.Context, def domain.ServiceDefinition, defaultTimeout time.Duration) domain.ServiceState {
	timeout := def.EffectiveTimeout(defaultTimeout)

	state := domain.ServiceState{
		Name:      def.Name,
		Component: def.Component,
		URL:       def.URL,
	}

	statusCode, elapsed, err := c.do(ctx, def, timeout)
	state.CheckedAt = time.Now().UTC()

	if err != nil {
		state.Severity = domain.SeverityMajorOutage
		if isTimeout(err) {
			state.Message = fmt.Sprintf("Timeout after %ss", formatSeconds(timeout))
		} else {
			state.Message = err.Error()
		}
		return state
	}

	elapsedMS := elapsed.Milliseconds()
	state.ResponseMS = &elapsedMS

	ok := def.ReachableOnly || def.ExpectsStatus(statusCode)
	slow := c.slowThreshold > 0 && elapsedMS > c.slowThreshold.Milliseconds()

	switch {
	case !ok:
		state.Severity = domain.SeverityPartialOutage
		state.Message = fmt.Sprintf("Unexpected status %d", statusCode)
	case slow:
		state.Severity = domain.SeverityDegradedPerformance
		state.Message = fmt.Sprintf("%s but slow (%dms > %dms)",
			okMessage(def, statusCode), elapsedMS, c.slowThreshold.Milliseconds())
	default:
		state.Severity = domain.SeverityOperational
		state.Message = okMessage(def, statusCode)
	}

	return state
}

func (c *Checker) do(ctx context.Context, def domain.ServiceDefinition, timeout time.Duration) (int, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := def.Method
	if method == "" {
		method = domain.DefaultMethod
	}

	req, err := http.NewRequestWithContext(ctx, method, def.URL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for k, v := range def.Headers {
		req.Header.Set(k, v)
	}

	client := c.client
	if !def.VerifySSL {
		client = c.insecureClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	// Latency covers the full response, not only the headers.
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes)); err != nil && isTimeout(err) {
		return 0, 0, err
	}

	return resp.StatusCode, time.Since(start), nil
}

func okMessage(def domain.ServiceDefinition, statusCode int) string {
	if def.ReachableOnly {
		return "Reachable"
	}
	return fmt.Sprintf("%d OK", statusCode)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
