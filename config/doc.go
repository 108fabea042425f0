// Package config loads faultkit service configuration with Viper from a
// config.yml, the environment and an optional .env file.
//
// ServiceConfig carries the settings every service shares: logging, error
// exposure, rate limit buckets, retry policies and OTLP export. Services
// embed it in their own config struct:
//
//	var cfg Config
//	err := config.Load("game-api", &cfg)
//	cfg.ApplyDefaults()
//	limiters := cfg.Resilience.Limiters()
//	storage := cfg.Resilience.Policy("storage")
package config
