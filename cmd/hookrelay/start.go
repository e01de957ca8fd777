package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattjoyce/hookrelay/internal/api"
	"github.com/mattjoyce/hookrelay/internal/config"
	"github.com/mattjoyce/hookrelay/internal/connection"
	"github.com/mattjoyce/hookrelay/internal/events"
	"github.com/mattjoyce/hookrelay/internal/hookdeck"
	"github.com/mattjoyce/hookrelay/internal/log"
	"github.com/mattjoyce/hookrelay/internal/publish"
	"github.com/mattjoyce/hookrelay/internal/signature"
	"github.com/mattjoyce/hookrelay/internal/webhook"
)

// provisionTimeout bounds the startup upsert.
const provisionTimeout = 30 * time.Second

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("hookrelay starting", "version", version, "config", cfg.SourcePath)

	verifier, maxBody, err := buildVerifier(cfg, log.WithComponent("webhook"))
	if err != nil {
		logger.Error("invalid webhook configuration", "error", err)
		return 1
	}
	if !verifier.HasSecret() {
		logger.Warn("no webhook secret configured", "missing_secret", verifier.Policy())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newHookdeckClient(cfg)

	// Identifiers must exist before any publish or list call can be served,
	// so provisioning completes before the listener starts.
	conn, err := provision(ctx, cfg, client, log.WithComponent("connection"))
	if err != nil {
		logger.Error("connection provisioning failed", "error", err)
		return 1
	}
	if conn == nil {
		logger.Warn("hookdeck.api_key not set; provisioning skipped, publish and events are disabled")
	} else {
		logger.Info("connection ready", "connection", conn)
	}

	publisher := publish.New(client, conn, log.WithComponent("publish"))
	lister := events.New(client, conn, cfg.Events.Concurrency, log.WithComponent("events"))
	intake := webhook.New(webhook.Config{MaxBodySize: maxBody}, verifier, log.WithComponent("webhook"))

	apiServer := api.New(api.Config{
		Listen:   cfg.API.Listen,
		APIKey:   cfg.API.Auth.APIKey,
		AllPages: cfg.Events.AllPages,
	}, intake, publisher, lister, conn, log.WithComponent("api"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("api: %w", err)
		}
	}()

	logger.Info("hookrelay running (press Ctrl+C to stop)", "listen", cfg.API.Listen)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("hookrelay stopped")
	return 0
}

func loadConfigForTool(configPath string) (*config.Config, error) {
	resolved, err := config.Discover(configPath)
	if err != nil {
		return nil, err
	}
	return config.Load(resolved)
}

func buildVerifier(cfg *config.Config, logger *slog.Logger) (*signature.Verifier, int64, error) {
	policy, err := signature.ParsePolicy(cfg.Webhooks.MissingSecret)
	if err != nil {
		return nil, 0, err
	}
	maxBody, err := webhook.ParseMaxBodySize(cfg.Webhooks.MaxBodySize)
	if err != nil {
		return nil, 0, fmt.Errorf("webhooks.max_body_size: %w", err)
	}
	return signature.New(cfg.Webhooks.Secret, policy, logger), maxBody, nil
}

func newHookdeckClient(cfg *config.Config) *hookdeck.Client {
	return hookdeck.New(hookdeck.Config{
		APIKey:      cfg.Hookdeck.APIKey,
		APIBase:     cfg.Hookdeck.APIBase,
		APIVersion:  cfg.Hookdeck.APIVersion,
		PublishBase: cfg.Hookdeck.PublishBase,
		Timeout:     cfg.Hookdeck.Timeout,
		UserAgent:   "hookrelay/" + version,
	})
}

// provision upserts the configured connection. It returns a nil context
// without error when no API key is configured.
func provision(ctx context.Context, cfg *config.Config, client connection.Upserter, logger *slog.Logger) (*connection.Context, error) {
	if !cfg.ProvisioningEnabled() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, provisionTimeout)
	defer cancel()

	return connection.NewProvisioner(client, logger).Ensure(ctx, cfg.ConnectionSpec())
}
