package config

import (
	"fmt"
	"net"
	"time"
)

// RedisConfig contains Redis connection and pool settings for the decision
// cache backend.
type RedisConfig struct {
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT" default:"6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0" validate:"min=0,max=15"`

	TLSEnabled bool `envconfig:"TLS_ENABLED" default:"false"`

	// Connection pool
	PoolSize     int           `envconfig:"POOL_SIZE" default:"50" validate:"min=1"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"10" validate:"min=0"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
	PoolTimeout  time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`

	// Startup ping retries
	PingMaxRetries int           `envconfig:"PING_MAX_RETRIES" default:"3" validate:"min=1"`
	PingBackoff    time.Duration `envconfig:"PING_BACKOFF" default:"1s"`
}

// IsConfigured reports whether a Redis host was provided.
func (c *RedisConfig) IsConfigured() bool {
	return c.Host != ""
}

// Address returns the host:port pair for the Redis client.
func (c *RedisConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate checks the Redis configuration. In production a password is
// required.
func (c *RedisConfig) Validate(environment string) error {
	if !c.IsConfigured() {
		return nil
	}

	if err := validateHost(c.Host, "redis"); err != nil {
		return err
	}
	if err := validatePort(c.Port, "redis"); err != nil {
		return err
	}

	if environment == EnvironmentProduction && c.Password == "" {
		return fmt.Errorf("redis password is required in production")
	}

	if c.MinIdleConns > c.PoolSize {
		return fmt.Errorf("redis min idle connections (%d) cannot exceed pool size (%d)", c.MinIdleConns, c.PoolSize)
	}

	return nil
}
