package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"mediachain/cmd/internal/passphrase"
	"mediachain/config"
	"mediachain/core"
	"mediachain/core/genesis"
	"mediachain/crypto"
	"mediachain/indexer"
	"mediachain/native/common"
	"mediachain/native/promotion"
	"mediachain/observability/logging"
	telemetry "mediachain/observability/otel"
	"mediachain/rpc"
	"mediachain/storage"
)

const (
	operatorPassEnv = "MEDIA_OPERATOR_PASS"
	genesisPathEnv  = "MEDIA_GENESIS"
	environmentEnv  = "MEDIA_ENV"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis spec (overrides MEDIA_GENESIS and config GenesisFile)")
	flag.Parse()

	if err := run(*configFile, *genesisFlag); err != nil {
		slog.Error("mediad exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configFile, genesisFlag string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := strings.TrimSpace(os.Getenv(environmentEnv))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("mediad", env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "mediad",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	passSource := passphrase.NewSource(operatorPassEnv)
	operator, err := loadOperatorKey(cfg.OperatorKeystorePath, passSource.Get, logger)
	if err != nil {
		return err
	}

	var spec *genesis.Spec
	if path := resolveGenesisPath(genesisFlag, cfg.GenesisFile, os.LookupEnv); path != "" {
		spec, err = genesis.LoadSpec(path)
		if err != nil {
			return fmt.Errorf("load genesis spec: %w", err)
		}
	}

	db, err := openStorage(cfg)
	if err != nil {
		return err
	}

	limits := promotion.DefaultLimits()
	if cfg.Promotion.MaxMetadataBytes > 0 {
		limits.MaxMetadataBytes = cfg.Promotion.MaxMetadataBytes
	}
	if cfg.Promotion.MaxCoAccounts > 0 {
		limits.MaxCoAccounts = cfg.Promotion.MaxCoAccounts
	}
	node, err := core.NewNode(db, core.Options{
		Operator: operator,
		Genesis:  spec,
		AutoMine: cfg.AutoMine,
		Limits:   limits,
		Pauses:   common.StaticPauses(cfg.Pauses.Modules()),
		Logger:   logger,
		Tracer:   telemetry.Tracer(),
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("create node: %w", err)
	}
	defer func() {
		if err := node.Close(); err != nil {
			logger.Warn("close node", slog.Any("error", err))
		}
	}()

	idx, err := indexer.Open(cfg.Indexer.DSN)
	if err != nil {
		return fmt.Errorf("open event index %s: %w", logging.MaskDSN(cfg.Indexer.DSN), err)
	}
	defer idx.Close()
	node.AddSink(idx)

	hub := rpc.NewHub(logger)
	node.AddSink(hub)

	server := rpc.NewServer(node, rpc.ServerConfig{
		Auth: rpc.AuthConfig{
			Enabled:    cfg.RPC.AuthEnabled,
			HMACSecret: cfg.JWTSecretValue(),
			Issuer:     cfg.RPC.JWTIssuer,
		},
		RateLimit: rpc.RateLimit{RequestsPerMinute: float64(cfg.RPC.RequestsPerMinute), Burst: cfg.RPC.Burst},
		Events:    idx,
		Hub:       hub,
		Logger:    logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.RPC.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.RPC.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
		close(errCh)
	}()
	if err := waitForRPCStartup(cfg.RPCAddress, errCh, 5*time.Second); err != nil {
		return fmt.Errorf("rpc startup: %w", err)
	}

	logger.Info("mediad running",
		slog.String("rpc", cfg.RPCAddress),
		slog.String("operator", crypto.FormatAccount(operator)),
		slog.Uint64("height", node.Height()),
		slog.String("storage", cfg.StorageBackend),
		slog.String("indexer", logging.MaskDSN(cfg.Indexer.DSN)))

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("rpc server: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("rpc shutdown", slog.Any("error", err))
	}
	return nil
}

func loadOperatorKey(path string, resolvePassphrase func() (string, error), logger *slog.Logger) ([20]byte, error) {
	if strings.TrimSpace(path) == "" {
		return [20]byte{}, errors.New("operator keystore path not configured")
	}
	pass, err := resolvePassphrase()
	if err != nil {
		return [20]byte{}, fmt.Errorf("operator keystore passphrase: %w", err)
	}
	key, created, err := crypto.LoadOrCreateKeystore(path, pass)
	if err != nil {
		return [20]byte{}, fmt.Errorf("load operator key: %w", err)
	}
	operator := key.PubKey().Address().Array()
	if created {
		logger.Info("generated operator key",
			slog.String("path", path),
			slog.String("operator", crypto.FormatAccount(operator)))
	}
	return operator, nil
}

func openStorage(cfg *config.Config) (storage.Database, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	path := filepath.Join(cfg.DataDir, "state")
	switch backend {
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	case config.BackendBolt:
		path = filepath.Join(cfg.DataDir, "state.db")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare data directory: %w", err)
	}
	db, err := storage.Open(backend, path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

type envLookupFunc func(string) (string, bool)

// resolveGenesisPath prefers the flag, then MEDIA_GENESIS, then the config. An
// empty result means the node starts from stored state or an empty ledger.
func resolveGenesisPath(cliPath, cfgPath string, lookup envLookupFunc) string {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return strings.TrimSpace(cfgPath)
}

func waitForRPCStartup(addr string, errCh <-chan error, timeout time.Duration) error {
	dialAddr := dialAddressFor(addr)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		conn, err := net.DialTimeout("tcp", dialAddr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case err, ok := <-errCh:
			if !ok || err == nil {
				return errors.New("RPC server exited before startup confirmation")
			}
			return err
		case <-ticker.C:
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for RPC server to start on %s", addr)
		}
	}
}

func dialAddressFor(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
