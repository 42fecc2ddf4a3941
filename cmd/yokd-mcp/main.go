package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/jjcxdev/yokd/internal/config"
	"github.com/jjcxdev/yokd/internal/mcp"
	"github.com/jjcxdev/yokd/internal/storage"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Stdio MCP server. Two modes: --url talks to a running yokd server over
// its REST API (the usual setup, reachable over Tailscale); without --url
// it connects straight to the database from --config.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	remoteURL := flag.String("url", "", "base URL of a running yokd server (remote mode)")
	apiKey := flag.String("api-key", "", "API key for remote mode (defaults to YOKD_AUTH_API_KEY)")
	userID := flag.Int("user", 1, "user ID to scope queries to (local mode)")
	flag.Parse()

	// MCP speaks JSON-RPC on stdout; logs must go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds mcp.DataSource

	if *remoteURL != "" {
		key := *apiKey
		if key == "" {
			key = os.Getenv("YOKD_AUTH_API_KEY")
		}
		ds = mcp.NewHTTPClient(*remoteURL, key)
		log.Info("yokd-mcp starting", "version", Version, "mode", "remote", "url", *remoteURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}

		db, err := storage.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		ds = db
		log.Info("yokd-mcp starting", "version", Version, "mode", "local", "user", *userID)
	}

	s := mcp.New(ds, Version, log)

	err := server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return mcp.WithUserID(ctx, *userID)
	}))
	if err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
