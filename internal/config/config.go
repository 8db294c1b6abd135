// Package config loads and validates the status monitor configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bissquit/status-monitor/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config file locations and environment settings.
const (
	DefaultPath  = "config.yaml"
	FallbackPath = "config.example.yaml"
	PathEnvVar   = "STATUS_CONFIG"
	envPrefix    = "STATUS_"
)

// flatStatusKeys are the status settings also accepted at the top level of
// the file, the layout used by older config files without a status section.
var flatStatusKeys = []string{
	"poll_interval_seconds",
	"timeout_seconds",
	"slow_threshold_ms",
	"max_incidents",
	"max_concurrent_checks",
	"probe_rate_limit",
	"services",
}

// Config is the root application configuration.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
	CORS   CORSConfig   `koanf:"cors"`
	Status StatusConfig `koanf:"status"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port" validate:"required"`
	MetricsPort       string        `koanf:"metrics_port" validate:"required"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

// CORSConfig holds CORS settings for the JSON API.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// StatusConfig holds the monitor tunables and the monitored services.
type StatusConfig struct {
	PollIntervalSeconds Seconds         `koanf:"poll_interval_seconds" validate:"gt=0"`
	TimeoutSeconds      Seconds         `koanf:"timeout_seconds" validate:"gt=0"`
	SlowThresholdMS     *int            `koanf:"slow_threshold_ms" validate:"omitempty,gt=0"`
	MaxIncidents        int             `koanf:"max_incidents" validate:"gte=0"`
	MaxConcurrentChecks int             `koanf:"max_concurrent_checks" validate:"gt=0"`
	ProbeRateLimit      float64         `koanf:"probe_rate_limit" validate:"gte=0"`
	Services            []ServiceConfig `koanf:"services" validate:"dive"`
}

// ServiceConfig describes one monitored service as written in the config file.
type ServiceConfig struct {
	Name             string            `koanf:"name"`
	URL              string            `koanf:"url" validate:"required,url"`
	Method           string            `koanf:"method" validate:"omitempty,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	ExpectedStatuses []int             `koanf:"expected_statuses" validate:"dive,gte=100,lte=599"`
	Component        string            `koanf:"component"`
	TimeoutSeconds   Seconds           `koanf:"timeout_seconds" validate:"gte=0"`
	Headers          map[string]string `koanf:"headers"`
	VerifySSL        *bool             `koanf:"verify_ssl"`
	ReachableOnly    bool              `koanf:"reachable_only"`
}

// Seconds is a whole number of seconds. In the config file it is written
// either as an integer (30) or as a Go duration string ("30s", "1m").
type Seconds int

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Seconds) UnmarshalText(text []byte) error {
	v := strings.TrimSpace(string(text))

	if n, err := strconv.Atoi(v); err == nil {
		*s = Seconds(n)
		return nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid seconds value %q: want an integer or a duration like 30s", v)
	}
	if d%time.Second != 0 {
		return fmt.Errorf("invalid seconds value %q: not a whole number of seconds", v)
	}

	*s = Seconds(d / time.Second)
	return nil
}

// Duration returns s as a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(s) * time.Second
}

// PollInterval returns the poll interval as a duration.
func (c StatusConfig) PollInterval() time.Duration {
	return c.PollIntervalSeconds.Duration()
}

// Timeout returns the default probe timeout as a duration.
func (c StatusConfig) Timeout() time.Duration {
	return c.TimeoutSeconds.Duration()
}

// SlowThreshold returns the slow response threshold, or zero if unset.
func (c StatusConfig) SlowThreshold() time.Duration {
	if c.SlowThresholdMS == nil {
		return 0
	}
	return time.Duration(*c.SlowThresholdMS) * time.Millisecond
}

// Definitions converts the configured services into domain definitions.
func (c StatusConfig) Definitions() []domain.ServiceDefinition {
	defs := make([]domain.ServiceDefinition, 0, len(c.Services))
	for _, s := range c.Services {
		defs = append(defs, s.ToDomain())
	}
	return defs
}

// ToDomain converts the service config to a domain definition.
func (s ServiceConfig) ToDomain() domain.ServiceDefinition {
	verify := true
	if s.VerifySSL != nil {
		verify = *s.VerifySSL
	}

	headers := make(map[string]string, len(s.Headers))
	for k, v := range s.Headers {
		headers[k] = v
	}

	return domain.ServiceDefinition{
		Name:             s.Name,
		URL:              s.URL,
		Method:           s.Method,
		ExpectedStatuses: append([]int(nil), s.ExpectedStatuses...),
		Component:        s.Component,
		Timeout:          s.TimeoutSeconds.Duration(),
		Headers:          headers,
		VerifySSL:        verify,
		ReachableOnly:    s.ReachableOnly,
	}
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "9090",
			MetricsPort:       "9091",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Status: StatusConfig{
			PollIntervalSeconds: 60,
			TimeoutSeconds:      5,
			MaxIncidents:        20,
			MaxConcurrentChecks: 10,
		},
	}
}

// ResolvePath picks the config file to load: the explicit path, then
// $STATUS_CONFIG, then config.yaml, falling back to config.example.yaml.
func ResolvePath(path string) (string, error) {
	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if _, err := os.Stat(FallbackPath); err == nil {
		return FallbackPath, nil
	}

	return "", fmt.Errorf("%w at %s: provide one or copy %s", ErrConfigNotFound, path, FallbackPath)
}

// Load reads the YAML file at path, applies STATUS_* environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config file %s: %w", path, err)
	}

	if err := liftFlatStatus(k); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// liftFlatStatus copies top-level status settings under status. Values
// already set in the status section win.
func liftFlatStatus(k *koanf.Koanf) error {
	for _, key := range flatStatusKeys {
		if !k.Exists(key) || k.Exists("status."+key) {
			continue
		}
		if err := k.Set("status."+key, k.Get(key)); err != nil {
			return fmt.Errorf("move %s under status: %w", key, err)
		}
	}
	return nil
}

// envKey maps STATUS_SERVER__PORT to server.port. Single underscores are kept
// so that STATUS_STATUS__POLL_INTERVAL_SECONDS maps to status.poll_interval_seconds.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func normalize(cfg *Config) {
	for i := range cfg.Status.Services {
		svc := &cfg.Status.Services[i]

		svc.Method = strings.ToUpper(strings.TrimSpace(svc.Method))
		if svc.Method == "" {
			svc.Method = domain.DefaultMethod
		}
		if svc.Component == "" {
			svc.Component = domain.DefaultComponent
		}
		if svc.Name == "" {
			svc.Name = svc.Component
		}
		if len(svc.ExpectedStatuses) == 0 {
			svc.ExpectedStatuses = []int{200}
		}
	}
}

// Validate checks field constraints and service name uniqueness.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, e := range validationErrors {
				fields = append(fields, fmt.Sprintf("%s (%s)", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	seen := make(map[string]struct{}, len(cfg.Status.Services))
	for _, svc := range cfg.Status.Services {
		if _, ok := seen[svc.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateService, svc.Name)
		}
		seen[svc.Name] = struct{}{}
	}

	return nil
}
