package config

import (
	"fmt"
	"net"
	"strings"
)

// MinJWTSecretBytes is the shortest HMAC secret accepted when RPC auth is on.
var MinJWTSecretBytes = 32

func ValidateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("config: nil")
	}
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("rpc: RPCAddress must be set")
	}
	switch c.StorageBackend {
	case BackendLevelDB, BackendBolt:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("storage: DataDir required for %s backend", c.StorageBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage: unsupported backend %q", c.StorageBackend)
	}
	if c.RPC.AuthEnabled && len(c.JWTSecretValue()) < MinJWTSecretBytes {
		return fmt.Errorf("rpc: JWT secret must be at least %d bytes when auth is enabled", MinJWTSecretBytes)
	}
	if !c.RPC.AuthEnabled && !isLoopback(c.RPCAddress) {
		return fmt.Errorf("rpc: AuthEnabled required when RPCAddress %q is not a loopback address", c.RPCAddress)
	}
	if c.RPC.RequestsPerMinute < 0 || c.RPC.Burst < 0 {
		return fmt.Errorf("rpc: rate limits must not be negative")
	}
	if c.RPC.RequestsPerMinute > 0 && c.RPC.Burst == 0 {
		return fmt.Errorf("rpc: Burst must be positive when RequestsPerMinute is set")
	}
	if c.Promotion.MaxMetadataBytes <= 0 || c.Promotion.MaxCoAccounts < 0 {
		return fmt.Errorf("promotion: MaxMetadataBytes must be positive and MaxCoAccounts non-negative")
	}
	if (c.Telemetry.Traces || c.Telemetry.Metrics) && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: Endpoint required when export is enabled")
	}
	return nil
}

// isLoopback reports whether addr binds only to the local host. An empty host
// listens on every interface.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
