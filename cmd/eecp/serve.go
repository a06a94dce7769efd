package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eecp-project/eecp/auth"
	"github.com/eecp-project/eecp/config"
	"github.com/eecp-project/eecp/health"
	"github.com/eecp-project/eecp/internal/logger"
	"github.com/eecp-project/eecp/internal/metrics"
	"github.com/eecp-project/eecp/pkg/version"
	"github.com/eecp-project/eecp/transport/ws"
	"github.com/eecp-project/eecp/workspace"
)

var (
	serveAddr      string
	serveConfigDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the EECP server",
	Long: `serve hosts the WebSocket workspace protocol (/ws) and the JSON
list/export endpoints (/workspaces) used by the other eecp commands.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides the loaded config's server.host/server.port)")
	serveCmd.Flags().StringVar(&serveConfigDir, "config-dir", "config", "directory to look for <environment>.yaml / default.yaml in")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: serveConfigDir})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	addr := serveAddr
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	log := logger.GetDefaultLogger()

	st, err := newStore(context.Background(), cfg.Store)
	if err != nil {
		return fmt.Errorf("open store (driver %q): %w", cfg.Store.Driver, err)
	}
	log.Info("durable store opened", logger.String("driver", cfg.Store.Driver))

	manager := workspace.NewManager(cfg.RateLimit.ToWorkspace(), nil)
	manager.SetPersistence(storePersistence(st))
	authMgr := auth.NewManager(auth.DefaultChallengeTTL)
	wsServer := ws.NewServer(manager, authMgr, nil)
	wsServer.SetRotationDefaults(
		cfg.Rotation.IntervalMinutes,
		cfg.Rotation.GracePeriodMS,
		cfg.Rotation.DefaultDurationMinutes,
		cfg.Rotation.HardCapMinutes,
	)

	mux := http.NewServeMux()
	mux.Handle("/", wsServer.Routes())

	if cfg.Health.Enabled {
		checker := health.NewHealthChecker(5 * time.Second)
		checker.RegisterCheck("workspace_manager", health.LivenessCheck(func() error {
			manager.List()
			return nil
		}))
		checker.RegisterCheck("store", health.StoreHealthCheck(st.Ping))
		mux.Handle(cfg.Health.Path, checker.Handler())
	}
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("eecp server listening", logger.String("addr", addr), logger.String("version", version.Short()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return err
	}
	_ = wsServer.Close()
	if err := manager.Close(); err != nil {
		return err
	}
	return st.Close()
}
