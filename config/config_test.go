package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageBackend != BackendLevelDB || !cfg.AutoMine {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if want := filepath.Join(filepath.Dir(path), "operator.keystore"); cfg.OperatorKeystorePath != want {
		t.Fatalf("keystore path %q, want %q", cfg.OperatorKeystorePath, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.RPCAddress != cfg.RPCAddress || again.Promotion != cfg.Promotion {
		t.Fatalf("reload mismatch: %+v vs %+v", again, cfg)
	}
}

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `RPCAddress = "0.0.0.0:9000"
DataDir = "./data"
StorageBackend = "Bolt"
GenesisFile = "genesis.yaml"
OperatorKeystorePath = "./op.keystore"
AutoMine = false

[rpc]
AuthEnabled = true
JWTSecret = "0123456789abcdef0123456789abcdef"
RequestsPerMinute = 120
Burst = 10

[indexer]
DSN = "postgres://media@db/events"

[promotion]
MaxMetadataBytes = 512
MaxCoAccounts = 4

[pauses]
Promotion = true
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageBackend != BackendBolt || cfg.AutoMine {
		t.Fatalf("unexpected storage settings %+v", cfg)
	}
	if !cfg.RPC.AuthEnabled || cfg.RPC.RequestsPerMinute != 120 || cfg.RPC.JWTIssuer != "mediachain" {
		t.Fatalf("unexpected rpc section %+v", cfg.RPC)
	}
	if cfg.Indexer.DSN != "postgres://media@db/events" {
		t.Fatalf("unexpected dsn %q", cfg.Indexer.DSN)
	}
	if cfg.Promotion.MaxCoAccounts != 4 || !cfg.Pauses.Modules()["promotion"] {
		t.Fatalf("unexpected promotion settings %+v %+v", cfg.Promotion, cfg.Pauses)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("RPCAddress = \":1\"\nValidatorKey = \"abc\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "ValidatorKey") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := Default()
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.RPC.AuthEnabled = true
	cfg.RPC.JWTSecret = "short"
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
	t.Setenv("MEDIA_TEST_JWT", strings.Repeat("k", 40))
	cfg.RPC.JWTSecretEnv = "MEDIA_TEST_JWT"
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("env secret should satisfy validation: %v", err)
	}

	cfg = Default()
	cfg.StorageBackend = "rocksdb"
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}

func TestValidateConfigRequiresAuthOffLoopback(t *testing.T) {
	for addr, ok := range map[string]bool{
		"127.0.0.1:8545": true,
		"127.0.0.2:8545": true,
		"[::1]:8545":     true,
		"localhost:8545": true,
		":8545":          false,
		"0.0.0.0:8545":   false,
		"[::]:8545":      false,
		"10.0.0.5:8545":  false,
		"rpc.media:8545": false,
		"127.0.0.1":      false,
	} {
		cfg := Default()
		cfg.RPCAddress = addr
		err := ValidateConfig(cfg)
		if ok && err != nil {
			t.Fatalf("%s without auth should be accepted: %v", addr, err)
		}
		if !ok && (err == nil || !strings.Contains(err.Error(), "AuthEnabled")) {
			t.Fatalf("%s without auth must be rejected, got %v", addr, err)
		}
	}

	cfg := Default()
	cfg.RPCAddress = "0.0.0.0:8545"
	cfg.RPC.AuthEnabled = true
	cfg.RPC.JWTSecret = strings.Repeat("k", MinJWTSecretBytes)
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("authenticated public listener should be accepted: %v", err)
	}
}

func TestLoadRejectsPublicListenerWithoutAuth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("RPCAddress = \"0.0.0.0:8545\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "AuthEnabled") {
		t.Fatalf("expected public listener without auth to be rejected, got %v", err)
	}
}
