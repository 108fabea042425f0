package grpc

import (
	"fmt"
	"time"
)

// KeepaliveConfig holds keepalive settings for gRPC connections.
type KeepaliveConfig struct {
	// Time is the interval between keepalive pings.
	Time time.Duration `mapstructure:"time"`
	// Timeout is the time to wait for a keepalive ping ack before closing.
	Timeout time.Duration `mapstructure:"timeout"`
	// PermitWithoutStream allows keepalive pings when there are no active RPCs.
	PermitWithoutStream bool `mapstructure:"permit_without_stream"`
}

// TLSConfig holds TLS settings for client connections.
type TLSConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// CAFile verifies the server certificate. Empty uses the system roots.
	CAFile string `mapstructure:"ca_file"`
	// ServerName overrides the name checked against the certificate.
	ServerName string `mapstructure:"server_name"`
}

// Config holds configuration for a gRPC client connection.
type Config struct {
	Host           string          `mapstructure:"host"`
	Port           int             `mapstructure:"port"`
	MaxRecvMsgSize int             `mapstructure:"max_recv_msg_size"`
	MaxSendMsgSize int             `mapstructure:"max_send_msg_size"`
	Keepalive      KeepaliveConfig `mapstructure:"keepalive"`
	TLS            TLSConfig       `mapstructure:"tls"`
	// CallTimeout bounds each attempt of a unary RPC that has no deadline.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	// RetryPolicy names the retry policy used for unary RPCs.
	RetryPolicy string `mapstructure:"retry_policy"`
}

// ServerConfig holds configuration for a gRPC server.
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	MaxRecvMsgSize int    `mapstructure:"max_recv_msg_size"`
	// BatchMethods are full method prefixes limited by the batch bucket.
	BatchMethods []string `mapstructure:"batch_methods"`
	Enabled      bool     `mapstructure:"enabled"`
}

const (
	defaultHost             = "localhost"
	defaultPort             = 50051
	defaultMaxRecvMsgSize   = 4 * 1024 * 1024 // 4 MB
	defaultMaxSendMsgSize   = 4 * 1024 * 1024 // 4 MB
	defaultKeepaliveTime    = 30 * time.Second
	defaultKeepaliveTimeout = 10 * time.Second
	defaultCallTimeout      = 30 * time.Second
	defaultRetryPolicy      = "network"
)

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.MaxRecvMsgSize == 0 {
		c.MaxRecvMsgSize = defaultMaxRecvMsgSize
	}
	if c.MaxSendMsgSize == 0 {
		c.MaxSendMsgSize = defaultMaxSendMsgSize
	}
	if c.Keepalive.Time == 0 {
		c.Keepalive.Time = defaultKeepaliveTime
	}
	if c.Keepalive.Timeout == 0 {
		c.Keepalive.Timeout = defaultKeepaliveTimeout
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = defaultCallTimeout
	}
	if c.RetryPolicy == "" {
		c.RetryPolicy = defaultRetryPolicy
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("grpc: host must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("grpc: port must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxRecvMsgSize <= 0 {
		return fmt.Errorf("grpc: max_recv_msg_size must be positive, got %d", c.MaxRecvMsgSize)
	}
	if c.MaxSendMsgSize <= 0 {
		return fmt.Errorf("grpc: max_send_msg_size must be positive, got %d", c.MaxSendMsgSize)
	}
	return nil
}

// Address returns the host:port dial target.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *ServerConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.MaxRecvMsgSize == 0 {
		c.MaxRecvMsgSize = defaultMaxRecvMsgSize
	}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("grpc: server port must be between 0 and 65535, got %d", c.Port)
	}
	return nil
}

// Address returns the host:port listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
