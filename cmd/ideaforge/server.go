package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/ideaforge/internal/api"
	"github.com/kalambet/ideaforge/internal/config"
	"github.com/kalambet/ideaforge/internal/consult"
	"github.com/kalambet/ideaforge/internal/storage"
	"github.com/kalambet/ideaforge/internal/swarm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and MCP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "ideaforge version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if cfg.Server.APIToken == "" {
		return fmt.Errorf("missing API bearer token: set IDEAFORGE_API_TOKEN")
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	caller, repairer := buildEngine(cfg)
	supervisor := swarm.NewSupervisor(swarm.Config{
		Model:             cfg.LLM.Model,
		WorkerCount:       cfg.Swarm.WorkerCount,
		CriticCount:       cfg.Swarm.CriticCount,
		TopK:              cfg.Swarm.TopK,
		WorkerParallelism: cfg.Swarm.WorkerParallelism,
		CriticParallelism: cfg.Swarm.CriticParallelism,
	}, caller, repairer, buildPersonaFeed(cfg))
	pipeline := consult.NewPipeline(caller, repairer, cfg.LLM.Model)

	handler := api.NewHandler(api.Deps{
		Store:   store,
		Swarm:   supervisor,
		Consult: pipeline,
		Model:   cfg.LLM.Model,
		Token:   cfg.Server.APIToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP over stdio alongside the HTTP API.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store: store,
		Swarm: supervisor,
		Model: cfg.LLM.Model,
	})
	stdioSrv := mcpserver.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "ideaforge listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
