package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"tailscale.com/tsnet"

	"github.com/claude/reprank/internal/catalog"
	"github.com/claude/reprank/internal/config"
	"github.com/claude/reprank/internal/ingest/alpha"
	"github.com/claude/reprank/internal/mcp"
	"github.com/claude/reprank/internal/metrics"
	"github.com/claude/reprank/internal/ranking"
	"github.com/claude/reprank/internal/scoring"
	apiserver "github.com/claude/reprank/internal/server"
	"github.com/claude/reprank/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	mcpRemote := flag.String("mcp-remote", "", "serve MCP over stdio against a remote RepRank base URL")
	scoringPath := flag.String("scoring", "configs/scoring.yaml", "scoring config for -mcp-remote")
	catalogPath := flag.String("catalog", "configs/catalog.yaml", "exercise catalog for -mcp-remote")
	flag.Parse()

	if *mcpRemote != "" {
		// stdout carries the MCP protocol, so logs go to stderr.
		log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		if err := serveRemoteMCP(*mcpRemote, *scoringPath, *catalogPath, log); err != nil {
			log.Error("mcp stdio server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("RepRank starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	scoringCfg, err := scoring.LoadConfig(cfg.Scoring.ConfigPath)
	if err != nil {
		log.Error("failed to load scoring config", "path", cfg.Scoring.ConfigPath, "error", err)
		os.Exit(1)
	}
	cat, err := catalog.Load(cfg.Scoring.CatalogPath)
	if err != nil {
		log.Error("failed to load exercise catalog", "path", cfg.Scoring.CatalogPath, "error", err)
		os.Exit(1)
	}
	log.Info("scoring loaded", "version", scoringCfg.Version,
		"muscle_groups", len(cat.MuscleGroups), "exercises", len(cat.Exercises))

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	var (
		m   *metrics.Manager
		reg *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.NewManager("reprank", "server", reg)
	}

	// Create providers
	alphaProvider := alpha.NewProvider(db, cat, scoringCfg, m, log)
	ranks := ranking.NewService(db, cat, scoringCfg, m, log)

	// Create server
	srv := apiserver.New(db, ranks, alphaProvider, cfg.Auth.APIKey, m, log)
	if reg != nil {
		srv.SetMetricsHandler(reg)
	}
	mcpSrv := mcp.New(ranks, scoringCfg, cat, Version, log)
	srv.MountMCP(mcp.HTTPHandler(mcpSrv, apiserver.UserIDFromRequest))

	// Start server on tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// serveRemoteMCP runs the MCP tools locally over stdio, evaluating ranks on
// a remote RepRank server.
func serveRemoteMCP(baseURL, scoringPath, catalogPath string, log *slog.Logger) error {
	scoringCfg, err := scoring.LoadConfig(scoringPath)
	if err != nil {
		return fmt.Errorf("loading scoring config: %w", err)
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	log.Info("mcp stdio server starting", "remote", baseURL)
	return server.ServeStdio(mcp.New(mcp.NewHTTPClient(baseURL), scoringCfg, cat, Version, log))
}
