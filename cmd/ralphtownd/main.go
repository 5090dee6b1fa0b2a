// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// ralphtownd is the ralphtown server: it owns the SQLite store, the
// event hub, the producer ingest socket, and the HTTP API with its
// websocket event endpoint. Producers connect on the unix socket;
// frontends and the ralphtown-watch viewer connect over HTTP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ralphtown/ralphtown/hub"
	"github.com/ralphtown/ralphtown/ingest"
	"github.com/ralphtown/ralphtown/lib/config"
	"github.com/ralphtown/ralphtown/lib/process"
	"github.com/ralphtown/ralphtown/lib/version"
	"github.com/ralphtown/ralphtown/server"
	"github.com/ralphtown/ralphtown/store"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath   string
		listen       string
		databasePath string
		ingestSocket string
		logLevel     string
		showVersion  bool
	)
	flags := pflag.NewFlagSet("ralphtownd", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "path to YAML config file")
	flags.StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	flags.StringVar(&databasePath, "db", "", "SQLite database path (overrides config)")
	flags.StringVar(&ingestSocket, "ingest-socket", "", "producer ingest socket path (overrides config)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if showVersion {
		version.Print("ralphtownd")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if databasePath != "" {
		cfg.DatabasePath = databasePath
	}
	if ingestSocket != "" {
		cfg.IngestSocket = ingestSocket
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting ralphtownd", "version", version.Info(), "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(store.Config{
		Path:   cfg.DatabasePath,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	h := hub.New(hub.Options{
		Capacity: cfg.TopicCapacity,
		Logger:   logger,
	})

	ingestServer, err := ingest.NewServer(ingest.Options{
		SocketPath: cfg.IngestSocket,
		Store:      st,
		Hub:        h,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	api, err := server.New(server.Options{
		Store:  st,
		Hub:    h,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Address: cfg.Listen,
		Handler: api.Handler(),
		Logger:  logger,
	})

	ingestDone := make(chan error, 1)
	go func() { ingestDone <- ingestServer.Serve(ctx) }()

	httpDone := make(chan error, 1)
	go func() { httpDone <- httpServer.Serve(ctx) }()

	// Wait for the HTTP server to bind before announcing. A failure
	// to bind (port in use) surfaces on httpDone, never on Ready.
	select {
	case <-httpServer.Ready():
	case err := <-httpDone:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
	logger.Info("ralphtownd running",
		"listen", httpServer.Addr(),
		"ingest_socket", cfg.IngestSocket,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := <-ingestDone; err != nil {
		logger.Error("ingest server error", "error", err)
	}
	if err := <-httpDone; err != nil {
		logger.Error("http server error", "error", err)
	}
	return nil
}

// loadConfig resolves the effective configuration: an explicit --config
// path wins, then the RALPHTOWN_CONFIG environment variable, then
// built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("RALPHTOWN_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
}
