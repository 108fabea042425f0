package client

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	grpccfg "github.com/kbukum/faultkit/grpc"
	"github.com/kbukum/faultkit/grpc/interceptor"
	"github.com/kbukum/faultkit/logger"
	"github.com/kbukum/faultkit/resilience"
)

// NewClient creates a connection to service. Unary calls are converted to
// business errors, logged and retried under policy, in that order from the
// caller inwards; each attempt is bounded by cfg.CallTimeout.
func NewClient(service string, cfg grpccfg.Config, policy resilience.Policy, log *logger.Logger, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("grpc client config: %w", err)
	}

	opts, err := DialOptions(service, cfg, policy, log)
	if err != nil {
		return nil, err
	}

	target := cfg.Address()
	conn, err := grpc.NewClient(target, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("grpc: failed to create client for %s: %w", target, err)
	}

	log.Info("gRPC client created", map[string]interface{}{
		"service": service,
		"target":  target,
		"policy":  policy.Name,
	})
	return conn, nil
}

// DialOptions assembles the dial options NewClient uses.
func DialOptions(service string, cfg grpccfg.Config, policy resilience.Policy, log *logger.Logger) ([]grpc.DialOption, error) {
	creds, err := transportCredentials(cfg.TLS)
	if err != nil {
		return nil, err
	}

	return []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.Keepalive.Time,
			Timeout:             cfg.Keepalive.Timeout,
			PermitWithoutStream: cfg.Keepalive.PermitWithoutStream,
		}),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(cfg.MaxRecvMsgSize),
			grpc.MaxCallSendMsgSize(cfg.MaxSendMsgSize),
		),
		grpc.WithChainUnaryInterceptor(
			interceptor.UnaryClientErrors(service),
			interceptor.UnaryClientLogging(log),
			interceptor.UnaryClientRetry(policy, cfg.CallTimeout),
		),
		grpc.WithChainStreamInterceptor(
			interceptor.StreamClientLogging(log),
		),
	}, nil
}

func transportCredentials(cfg grpccfg.TLSConfig) (credentials.TransportCredentials, error) {
	if !cfg.Enabled {
		return insecure.NewCredentials(), nil
	}
	if cfg.CAFile == "" {
		return credentials.NewClientTLSFromCert(nil, cfg.ServerName), nil
	}
	creds, err := credentials.NewClientTLSFromFile(cfg.CAFile, cfg.ServerName)
	if err != nil {
		return nil, fmt.Errorf("grpc: load tls ca: %w", err)
	}
	return creds, nil
}
