package config

import "time"

// ServerConfig holds HTTP server settings for the evaluation API.
type ServerConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port string `envconfig:"PORT" default:"8080"`

	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`

	// MetricsPort serves Prometheus metrics on a separate listener so the
	// public surface stays evaluation-only.
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	if err := validateHost(c.Host, "server"); err != nil {
		return err
	}
	if err := validatePort(c.Port, "server"); err != nil {
		return err
	}
	return validatePort(c.MetricsPort, "metrics")
}
