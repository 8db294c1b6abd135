package config

import "errors"

// Config errors.
var (
	ErrConfigNotFound   = errors.New("config file not found")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrDuplicateService = errors.New("duplicate service name")
)
