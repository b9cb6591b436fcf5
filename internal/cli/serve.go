package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"fieldbridge/internal/api"
	"fieldbridge/internal/audit"
	"fieldbridge/internal/auth"
	"fieldbridge/internal/config"
	"fieldbridge/internal/engine"
	"fieldbridge/internal/logging"
	"fieldbridge/internal/mcp"
	"fieldbridge/internal/registry"
	fbtls "fieldbridge/internal/tls"
	"fieldbridge/pkg/models"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the fieldbridge HTTP and MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, src, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, src)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, src registry.Sources) error {
	logger := logging.NewLogger()
	logger.Info("starting fieldbridge", "version", api.Version, "address", cfg.Server.Address)

	reg, err := registry.Load(src)
	if err != nil {
		return fmt.Errorf("loading definitions: %w", err)
	}
	logger.Info("definitions loaded", "workflows", len(reg.Workflows()), "connectors", len(reg.Connectors()))

	sink, closeSink, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	eng, err := engine.New(reg, sink, logger)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	recordLifecycle(ctx, sink, logger, "startup")
	defer recordLifecycle(context.Background(), sink, logger, "shutdown")

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("fieldbridge"))

	g := e.Group("/api/v1")
	g.Use(auth.Middleware(cfg.Agent.Token))

	srv := api.NewServer(eng, func() error {
		next, err := registry.Load(src)
		if err != nil {
			return err
		}
		return eng.Reload(next)
	}, logger)
	srv.Register(e, g)

	mcpMux := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpMux, mcp.NewServer(eng).GetMCPServer())
	e.Any("/mcp*", echo.WrapHandler(mcpMux))

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLS.Enable {
			certFile, keyFile, err := resolveTLS(cfg)
			if err != nil {
				errCh <- err
				return
			}
			logger.Info("serving with TLS", "cert", certFile)
			errCh <- httpServer.ListenAndServeTLS(certFile, keyFile)
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func recordLifecycle(ctx context.Context, sink audit.Sink, logger *logging.Logger, event string) {
	entry := models.AuditEntry{
		ExecutionID: uuid.New().String(),
		Status:      event,
		OccurredAt:  time.Now().UTC(),
	}
	if err := sink.Record(ctx, entry); err != nil {
		logger.Error("audit lifecycle record failed", "event", event, "error", err)
	}
}

// buildSink selects the audit backend. The returned close func releases the
// postgres pool when that backend is in use.
func buildSink(ctx context.Context, cfg *config.Config, logger *logging.Logger) (audit.Sink, func(), error) {
	switch cfg.Audit.Backend {
	case "", "log":
		return audit.NewLogSink(logger), func() {}, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Audit.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting audit store: %w", err)
		}
		store := audit.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("preparing audit schema: %w", err)
		}
		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}
}

// resolveTLS returns the configured cert pair, generating a self-signed one
// next to the config dir when none is configured.
func resolveTLS(cfg *config.Config) (string, string, error) {
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		return cfg.TLS.CertFile, cfg.TLS.KeyFile, nil
	}
	certFile := "fieldbridge-cert.pem"
	keyFile := "fieldbridge-key.pem"
	if _, err := os.Stat(certFile); err == nil {
		if _, err := os.Stat(keyFile); err == nil {
			return certFile, keyFile, nil
		}
	}
	if err := fbtls.GenerateSelfSignedCert(certFile, keyFile, cfg.TLS.Hostnames); err != nil {
		return "", "", fmt.Errorf("generating self-signed cert: %w", err)
	}
	return certFile, keyFile, nil
}
