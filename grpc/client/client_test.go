package client

import (
	"io"
	"testing"

	grpccfg "github.com/kbukum/faultkit/grpc"
	"github.com/kbukum/faultkit/logger"
	"github.com/kbukum/faultkit/resilience"
)

func TestNewClient(t *testing.T) {
	log := logger.NewWithWriter(io.Discard, &logger.Config{Level: "info", Format: "json"}, "test")

	conn, err := NewClient("players", grpccfg.Config{Host: "localhost", Port: 50099}, resilience.NetworkPolicy(), log)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer conn.Close()

	if conn.Target() != "localhost:50099" {
		t.Errorf("unexpected target %s", conn.Target())
	}
}

func TestNewClient_InvalidConfig(t *testing.T) {
	log := logger.Nop()
	if _, err := NewClient("players", grpccfg.Config{Port: -1}, resilience.DefaultPolicy(), log); err == nil {
		t.Error("expected an error for a negative port")
	}
}

func TestTransportCredentials(t *testing.T) {
	creds, err := transportCredentials(grpccfg.TLSConfig{})
	if err != nil || creds.Info().SecurityProtocol != "insecure" {
		t.Errorf("expected insecure credentials, got %v %v", creds, err)
	}

	creds, err = transportCredentials(grpccfg.TLSConfig{Enabled: true, ServerName: "api.example.com"})
	if err != nil || creds.Info().SecurityProtocol != "tls" {
		t.Errorf("expected tls credentials, got %v %v", creds, err)
	}

	if _, err := transportCredentials(grpccfg.TLSConfig{Enabled: true, CAFile: "/does/not/exist.pem"}); err == nil {
		t.Error("expected an error for a missing CA file")
	}
}
