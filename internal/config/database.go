package config

import (
	"fmt"
	"net/url"
	"time"
)

// DatabaseConfig contains PostgreSQL connection settings for the definition
// store. The store is the durable source of truth for toggle records; the
// engine only reaches it on cache misses.
type DatabaseConfig struct {
	// Connection can be specified as a URL or individual components.
	URL      string `envconfig:"URL"`
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Name     string `envconfig:"NAME"`
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`

	SSLMode string `envconfig:"SSL_MODE" default:"prefer" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// Connection pool
	MaxConns        int           `envconfig:"MAX_CONNS" default:"25" validate:"min=1"`
	MinConns        int           `envconfig:"MIN_CONNS" default:"2" validate:"min=0"`
	MaxConnLifetime time.Duration `envconfig:"MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `envconfig:"MAX_CONN_IDLE_TIME" default:"30m"`
	ConnectTimeout  time.Duration `envconfig:"CONNECT_TIMEOUT" default:"5s"`
}

// IsConfigured reports whether any connection information was provided.
func (c *DatabaseConfig) IsConfigured() bool {
	return c.URL != "" || c.Host != ""
}

// ConnectionString builds a PostgreSQL connection string. A full URL wins
// over individual components.
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}

	params := url.Values{}
	params.Add("sslmode", c.SSLMode)

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?%s",
		c.User, c.Password, c.Host, c.Port, c.Name, params.Encode(),
	)
}

// Validate checks the database configuration. In production an insecure
// SSL mode is rejected.
func (c *DatabaseConfig) Validate(environment string) error {
	if !c.IsConfigured() {
		return nil
	}

	if c.URL == "" {
		if err := validateHost(c.Host, "database"); err != nil {
			return err
		}
		if err := validatePort(c.Port, "database"); err != nil {
			return err
		}
		if c.Name == "" {
			return fmt.Errorf("database name cannot be empty")
		}
		if c.User == "" {
			return fmt.Errorf("database user cannot be empty")
		}
	}

	if environment == EnvironmentProduction {
		switch c.SSLMode {
		case "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("database ssl mode %q is not allowed in production", c.SSLMode)
		}
	}

	if c.MinConns > c.MaxConns {
		return fmt.Errorf("database min connections (%d) cannot exceed max connections (%d)", c.MinConns, c.MaxConns)
	}

	return nil
}
