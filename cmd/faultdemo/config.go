package main

import (
	"fmt"
	"time"

	"github.com/kbukum/faultkit/config"
	grpcx "github.com/kbukum/faultkit/grpc"
	"github.com/kbukum/faultkit/server"
)

// Config is the faultdemo service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server server.Config      `yaml:"server" mapstructure:"server"`
	GRPC   grpcx.ServerConfig `yaml:"grpc" mapstructure:"grpc"`
	// Upstream is the gRPC target the readiness probe checks. It defaults
	// to this service's own health endpoint.
	Upstream grpcx.Config `yaml:"upstream" mapstructure:"upstream"`
	Auth     AuthConfig   `yaml:"auth" mapstructure:"auth"`
	Games    GamesConfig  `yaml:"games" mapstructure:"games"`
}

// AuthConfig holds the HMAC secret tokens are signed with.
type AuthConfig struct {
	Secret string `yaml:"secret" mapstructure:"secret"`
}

// GamesConfig bounds concurrent access to the game store.
type GamesConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MaxWait       time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// ApplyDefaults fills unset fields of every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Name == "" {
		c.Name = "faultdemo"
	}
	c.Server.ApplyDefaults()
	c.GRPC.ApplyDefaults()
	if c.Upstream.Port == 0 {
		c.Upstream.Port = c.Server.Port
		if c.GRPC.Enabled {
			c.Upstream.Port = c.GRPC.Port
		}
	}
	c.Upstream.ApplyDefaults()
	if c.Games.MaxConcurrent == 0 {
		c.Games.MaxConcurrent = 16
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if err := c.GRPC.Validate(); err != nil {
		return fmt.Errorf("config.grpc: %w", err)
	}
	if err := c.Upstream.Validate(); err != nil {
		return fmt.Errorf("config.upstream: %w", err)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("config.auth.secret is required")
	}
	if c.Games.MaxConcurrent < 0 || c.Games.MaxWait < 0 {
		return fmt.Errorf("config.games: values must be non-negative")
	}
	return nil
}
