package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/engramhq/engram/pkg/config"
	"github.com/engramhq/engram/pkg/crypto"
	"github.com/engramhq/engram/pkg/dlp"
	"github.com/engramhq/engram/pkg/events"
	"github.com/engramhq/engram/pkg/indexing"
	"github.com/engramhq/engram/pkg/log"
	"github.com/engramhq/engram/pkg/mcp"
	"github.com/engramhq/engram/pkg/memory"
	"github.com/engramhq/engram/pkg/metrics"
	"github.com/engramhq/engram/pkg/secrets"
	"github.com/engramhq/engram/pkg/storage"
	"github.com/engramhq/engram/pkg/sync"
	"github.com/engramhq/engram/pkg/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Engram daemon: MCP stdio server, file watcher, and sync engines",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address for the Prometheus/health HTTP endpoints")
	serveCmd.Flags().Int("watch-depth", 5, "Maximum recursion depth for the session-file watcher")
	serveCmd.Flags().StringSlice("watch-path", nil, "Additional paths to watch (repeatable)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	watchDepth, _ := cmd.Flags().GetInt("watch-depth")
	extraPaths, _ := cmd.Flags().GetStringSlice("watch-path")

	logger := log.WithComponent("daemon")

	db, err := storage.Open(ctx, cfg.DBPath, cfg.VectorDim)
	if err != nil {
		return err
	}
	defer db.Close()
	metrics.RegisterComponent("storage", true, "ready")

	keyVault := newFileKeyVault(filepath.Dir(cfg.DBPath))
	masterKey, err := loadOrCreateMasterKey(keyVault)
	if err != nil {
		return err
	}
	masterSvc, err := crypto.NewService(masterKey)
	if err != nil {
		return err
	}
	_, devicePubKeyPEM, err := loadOrCreateDeviceKeyPair(masterSvc, filepath.Join(filepath.Dir(cfg.DBPath), "device.key.json"))
	if err != nil {
		return err
	}
	metrics.RegisterComponent("crypto", true, "ready")
	logger.Info().Str("device_public_key_fingerprint", crypto.SHA256Hex([]byte(devicePubKeyPEM))).
		Msg("device authorization keypair ready")

	vaultKey, err := loadOrCreateVaultKey(ctx, db)
	if err != nil {
		return err
	}
	vaultSvc, err := crypto.NewService(vaultKey)
	if err != nil {
		return err
	}
	blindKey := deriveBlindKey(vaultKey)
	metrics.RegisterComponent("vault", true, "ready")

	sanitizer := dlp.New()
	embedder := newHashEmbedder(cfg.VectorDim)

	var devices mcp.DeviceRegistry

	memories := memory.New(db, sanitizer, vaultSvc)
	secretsStore := secrets.New(db, vaultSvc, blindKey, nil)

	var memoryEngine *sync.MemoryEngine
	var secretsEngine *sync.SecretsEngine
	var deviceRegistry *sync.DeviceRegistry

	if cfg.APIURL != "" {
		memoryEngine = sync.NewMemoryEngine(cfg.APIURL, cfg.APIToken, db, memories, embedder)
		memoryEngine.SetBlobLimits(cfg.InlineBlobMaxBytes, time.Duration(cfg.BlobURLTTLSeconds)*time.Second)
		secretsEngine = sync.NewSecretsEngine(cfg.APIURL, cfg.APIToken, db, secretsStore, blindKey)
		deviceRegistry = sync.NewDeviceRegistry(cfg.APIURL, cfg.APIToken, db, vaultKey)
		memoryEngine.Connect()
		secretsEngine.Connect()
		deviceRegistry.Connect()
		secretsStore.SetSyncer(secretsEngine)
		devices = deviceRegistry
		metrics.RegisterComponent("sync", true, "connected")
	} else {
		metrics.RegisterComponent("sync", false, "no ENGRAM_API_URL configured")
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	parsers := []indexing.Parser{
		indexing.FrontmatterParser{},
		indexing.ClaudeCodeParser{},
		indexing.OpenCodeParser{},
		indexing.CursorParser{},
		indexing.CodexParser{},
	}
	indexer := indexing.New(parsers, memories, embedder, nil, broker, db)

	w, err := watcher.New(indexer, watchDepth)
	if err != nil {
		return err
	}
	w.Start(ctx)
	defer w.Stop()

	for _, root := range defaultWatchRoots(extraPaths) {
		if _, statErr := os.Stat(root); statErr != nil {
			continue
		}
		if err := w.AddPath(root); err != nil {
			logger.Warn().Err(err).Str("path", root).Msg("failed to watch path")
		}
	}

	collector := metrics.NewCollector(memories, secretsStore, deviceCounterOrNil(deviceRegistry))
	collector.Start()
	defer collector.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())

	httpServer := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	defer httpServer.Close()

	var vaultKeyProvider mcp.VaultKeyProvider = func() ([]byte, error) { return vaultKey, nil }
	mcpServer := mcp.New(memories, secretsStore, devices, embedder, vaultKeyProvider)

	logger.Info().Str("metrics_addr", metricsAddr).Msg("engram daemon starting")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpServer.ServeStdio()
	}()

	select {
	case <-sigCh:
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("mcp server exited")
		}
	}
	return nil
}

// deriveBlindKey derives the blind-index key from the vault key via
// domain-separated HMAC, since the store schema has no dedicated column for
// it and distributing a third independent secret has no transport of its
// own.
func deriveBlindKey(vaultKey []byte) []byte {
	mac := hmac.New(sha256.New, vaultKey)
	mac.Write([]byte("engram-blind-index-key"))
	return mac.Sum(nil)
}

func defaultWatchRoots(extra []string) []string {
	home, err := os.UserHomeDir()
	roots := append([]string{}, extra...)
	if err != nil {
		return roots
	}
	for _, dir := range []string{".claude", ".codex", ".opencode", ".cursor"} {
		roots = append(roots, filepath.Join(home, dir))
	}
	return roots
}

func deviceCounterOrNil(registry *sync.DeviceRegistry) metrics.DeviceCounter {
	if registry == nil {
		return nil
	}
	return registry
}
