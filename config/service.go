package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/faultkit/logger"
)

var environments = []string{"development", "staging", "production"}

// ServiceConfig contains the configuration every faultkit service needs.
// Services extend it by embedding:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Server server.Config `yaml:"server" mapstructure:"server"`
//	}
type ServiceConfig struct {
	Name          string              `yaml:"name" mapstructure:"name"`
	Environment   string              `yaml:"environment" mapstructure:"environment"`
	Version       string              `yaml:"version" mapstructure:"version"`
	Debug         bool                `yaml:"debug" mapstructure:"debug"`
	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
	Errors        ErrorsConfig        `yaml:"errors" mapstructure:"errors"`
	Resilience    ResilienceConfig    `yaml:"resilience" mapstructure:"resilience"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// ErrorsConfig controls what failure responses reveal.
type ErrorsConfig struct {
	// ExposeDetail sends the original message of unclassified errors to
	// clients. Keep it off outside development.
	ExposeDetail bool `yaml:"expose_detail" mapstructure:"expose_detail"`
}

// ApplyDefaults applies default values to the base configuration.
// Embedding structs call c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !slices.Contains(environments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", environments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Resilience.Validate(); err != nil {
		return fmt.Errorf("config.resilience: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("config.observability: %w", err)
	}
	if c.Errors.ExposeDetail && c.Environment == "production" {
		return fmt.Errorf("config.errors.expose_detail must be off in production")
	}
	return nil
}
