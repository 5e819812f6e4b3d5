package config

// RPC configures the JSON-RPC listener.
type RPC struct {
	AuthEnabled       bool   `toml:"AuthEnabled"`
	JWTSecret         string `toml:"JWTSecret"`
	JWTSecretEnv      string `toml:"JWTSecretEnv"`
	JWTIssuer         string `toml:"JWTIssuer"`
	RequestsPerMinute int    `toml:"RequestsPerMinute"`
	Burst             int    `toml:"Burst"`
	ReadTimeout       int    `toml:"ReadTimeout"`  // seconds
	WriteTimeout      int    `toml:"WriteTimeout"` // seconds
}

// Indexer configures the relational event index. An empty DSN keeps events
// in an in-memory sqlite database.
type Indexer struct {
	DSN string `toml:"DSN"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Promotion bounds campaign inputs.
type Promotion struct {
	MaxMetadataBytes int `toml:"MaxMetadataBytes"`
	MaxCoAccounts    int `toml:"MaxCoAccounts"`
}

// Pauses lets operators freeze native modules without a restart of clients.
type Pauses struct {
	Token     bool `toml:"Token"`
	Promotion bool `toml:"Promotion"`
}

// Modules returns the paused module names.
func (p Pauses) Modules() map[string]bool {
	out := map[string]bool{}
	if p.Token {
		out["token"] = true
	}
	if p.Promotion {
		out["promotion"] = true
	}
	return out
}
