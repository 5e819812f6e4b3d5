package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Storage backends accepted in StorageBackend.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendMemory  = "memory"
)

type Config struct {
	RPCAddress           string    `toml:"RPCAddress"`
	DataDir              string    `toml:"DataDir"`
	StorageBackend       string    `toml:"StorageBackend"`
	GenesisFile          string    `toml:"GenesisFile"`
	Environment          string    `toml:"Environment"`
	OperatorKeystorePath string    `toml:"OperatorKeystorePath"`
	AutoMine             bool      `toml:"AutoMine"`
	RPC                  RPC       `toml:"rpc"`
	Indexer              Indexer   `toml:"indexer"`
	Telemetry            Telemetry `toml:"telemetry"`
	Promotion            Promotion `toml:"promotion"`
	Pauses               Pauses    `toml:"pauses"`
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		RPCAddress:     "127.0.0.1:8545",
		DataDir:        "./media-data",
		StorageBackend: BackendLevelDB,
		Environment:    "dev",
		AutoMine:       true,
		RPC: RPC{
			JWTIssuer:         "mediachain",
			RequestsPerMinute: 600,
			Burst:             60,
			ReadTimeout:       15,
			WriteTimeout:      15,
		},
		Telemetry: Telemetry{Endpoint: "localhost:4318"},
		Promotion: Promotion{MaxMetadataBytes: 1024, MaxCoAccounts: 8},
	}
}

// Load loads the configuration from path, writing a default file when none
// exists. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if strings.TrimSpace(cfg.OperatorKeystorePath) == "" {
		cfg.OperatorKeystorePath = defaultKeystorePath(path)
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// JWTSecretValue resolves the signing secret, preferring the environment
// variable when one is configured.
func (c *Config) JWTSecretValue() string {
	if env := strings.TrimSpace(c.RPC.JWTSecretEnv); env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(c.RPC.JWTSecret)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	cfg.OperatorKeystorePath = defaultKeystorePath(path)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
