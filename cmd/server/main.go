// odoo-mcp - read-only Odoo query tools over the Model Context Protocol
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/odoo-mcp/internal/api"
	"github.com/ashureev/odoo-mcp/internal/audit"
	"github.com/ashureev/odoo-mcp/internal/config"
	"github.com/ashureev/odoo-mcp/internal/mcpserver"
	"github.com/ashureev/odoo-mcp/internal/middleware"
	"github.com/ashureev/odoo-mcp/internal/odoo"
	"github.com/ashureev/odoo-mcp/internal/store"
	"github.com/ashureev/odoo-mcp/internal/tools"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		// Not fatal: the environment alone may carry the configuration.
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// stdout carries the stdio transport, so logs always go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting odoo-mcp",
		"version", version,
		"transport", cfg.Transport,
		"odoo_url", cfg.Odoo.URL,
		"database", cfg.Odoo.Database,
		"audit", cfg.Audit.Enabled())

	client := odoo.NewClient(odoo.Config{
		URL:      cfg.Odoo.URL,
		Database: cfg.Odoo.Database,
		Username: cfg.Odoo.Username,
		Password: cfg.Odoo.Password,
		Timeout:  cfg.Odoo.Timeout,
	}, logger)

	var repo store.Repository
	if cfg.Audit.Enabled() {
		var err error
		repo, err = store.NewSQLite(cfg.Audit.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close audit database", "error", closeErr)
			}
		}()
		slog.Info("Audit database ready", "path", cfg.Audit.DBPath)
	}

	var recorder tools.Recorder
	var calls api.CallLister
	if repo != nil {
		recorder = repo
		calls = repo
	}

	dispatcher := tools.NewDispatcher(client, recorder, logger)
	srv := mcpserver.New(dispatcher, version)

	g, gctx := errgroup.WithContext(ctx)
	if repo != nil {
		g.Go(func() error {
			return audit.RunRetentionWorker(gctx, repo, cfg.Audit.PruneInterval, cfg.Audit.Retention)
		})
	}

	switch cfg.Transport {
	case config.TransportHTTP:
		handler := api.NewHandler(client, calls, cfg.Audit.ListLimitMax)
		g.Go(func() error {
			return serveHTTP(gctx, cfg, srv, handler)
		})
	default:
		runCtx, cancel := context.WithCancel(gctx)
		g.Go(func() error {
			// A closed stdin ends the session; take the workers down with it.
			defer cancel()
			slog.Info("Serving MCP on stdio")
			if err := mcpserver.ServeStdio(runCtx, srv); err != nil && runCtx.Err() == nil {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-runCtx.Done()
			stop()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server stopped")
	return nil
}

func serveHTTP(ctx context.Context, cfg *config.Config, srv *mcp.Server, handler *api.Handler) error {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	// Origin is checked on every route, /mcp and /api/* included.
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	handler.RegisterRoutes(r)
	r.Handle("/mcp", mcpserver.NewHTTPHandler(srv))

	// No WriteTimeout: streamable HTTP responses may be long-lived SSE streams.
	httpSrv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Serving MCP over HTTP", "addr", httpSrv.Addr, "endpoint", "/mcp")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
