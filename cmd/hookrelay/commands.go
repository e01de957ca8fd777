package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/hookrelay/internal/config"
	"github.com/mattjoyce/hookrelay/internal/connection"
	"github.com/mattjoyce/hookrelay/internal/doctor"
	"github.com/mattjoyce/hookrelay/internal/events"
	"github.com/mattjoyce/hookrelay/internal/log"
	"github.com/mattjoyce/hookrelay/internal/publish"
)

var nowFunc = time.Now

// connectionOutput is the --json shape of `connection ensure`.
type connectionOutput struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	SourceID        string `json:"source_id"`
	SourceName      string `json:"source_name"`
	SourceURL       string `json:"source_url,omitempty"`
	DestinationID   string `json:"destination_id"`
	DestinationName string `json:"destination_name"`
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ensureConnection loads config and upserts the connection for one-shot
// commands. A missing API key is an error here since nothing can be done
// without it.
func ensureConnection(ctx context.Context, configPath string) (*config.Config, *connection.Context, error) {
	cfg, err := loadConfigForTool(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.ProvisioningEnabled() {
		return nil, nil, fmt.Errorf("hookdeck.api_key is not configured (set HOOKDECK_API_KEY)")
	}

	conn, err := provision(ctx, cfg, newHookdeckClient(cfg), log.ForTool())
	if err != nil {
		return nil, nil, err
	}
	return cfg, conn, nil
}

func runConnectionEnsure(args []string) int {
	fs := flag.NewFlagSet("ensure", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	_, conn, err := ensureConnection(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	out := connectionOutput{
		ID:              conn.ConnectionID(),
		Name:            conn.ConnectionName(),
		SourceID:        conn.SourceID(),
		SourceName:      conn.SourceName(),
		SourceURL:       conn.SourceURL(),
		DestinationID:   conn.DestinationID(),
		DestinationName: conn.DestinationName(),
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("Connection %s (%s)\n", out.Name, out.ID)
	fmt.Printf("  source:      %s (%s)\n", out.SourceName, out.SourceID)
	if out.SourceURL != "" {
		fmt.Printf("  source url:  %s\n", out.SourceURL)
	}
	fmt.Printf("  destination: %s (%s)\n", out.DestinationName, out.DestinationID)
	return 0
}

func runEventsList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	status := fs.String("status", "", "Filter by event status")
	limit := fs.Int("limit", 0, "Maximum events per page")
	allPages := fs.Bool("all-pages", false, "Follow pagination until exhausted")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfg, conn, err := ensureConnection(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	lister := events.New(newHookdeckClient(cfg), conn, cfg.Events.Concurrency, log.ForTool())
	page, err := lister.List(ctx, events.Query{
		Status:   *status,
		Limit:    *limit,
		AllPages: *allPages || cfg.Events.AllPages,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(page, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	fmt.Println(renderEventsTable(page.Models))
	fmt.Printf("%d event(s)\n", len(page.Models))
	return 0
}

func runEventsPublish(args []string) int {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	payload := fs.String("payload", "", "JSON payload (default: sample event)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	body := json.RawMessage(*payload)
	if *payload == "" {
		body = publish.SamplePayload(nowFunc())
	} else if !json.Valid(body) {
		fmt.Fprintln(os.Stderr, "Error: --payload must be valid JSON")
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfg, conn, err := ensureConnection(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	publisher := publish.New(newHookdeckClient(cfg), conn, log.ForTool())
	if err := publisher.Publish(ctx, body); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Published to source %s: %s\n", conn.SourceID(), string(body))
	return 0
}

func runConfigCheck(args []string) int {
	var configPath string
	var strict, jsonOut bool

	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration file")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()

	if jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	if strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func runConfigLock(args []string) int {
	var configPath string
	var verbose, verboseShort, dryRun bool

	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration file")
	fs.BoolVar(&verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&verboseShort, "v", false, "Verbose output")
	fs.BoolVar(&dryRun, "dry-run", false, "Dry run")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	resolved, err := config.Discover(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}
	if resolved == "" {
		fmt.Fprintf(os.Stderr, "No config file found to lock (use --config or $%s)\n", config.EnvConfigPath)
		return 1
	}

	report, err := config.Lock(resolved, dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}

	if verbose || verboseShort {
		fmt.Printf("  HASH %s: %s\n", report.ConfigPath, report.Hash)
	}
	if dryRun {
		fmt.Printf("Dry run: .checksums not written (%s)\n", report.ChecksumPath)
		return 0
	}
	fmt.Printf("Successfully locked configuration: %s\n", report.ChecksumPath)
	return 0
}

func runConfigGet(args []string) int {
	var configPath, path string
	var jsonOut bool

	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration file")
	fs.BoolVar(&jsonOut, "json", false, "Output in structured JSON format")

	// The path may come before or after flags.
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		path, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if path == "" {
		path = fs.Arg(0)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: hookrelay config get <path> [--json]")
		return 1
	}

	cfg, err := loadConfigForTool(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	val, err := cfg.GetPath(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	switch {
	case jsonOut:
		data, _ := json.MarshalIndent(val, "", "  ")
		fmt.Println(string(data))
	case isScalar(val):
		fmt.Printf("%v\n", val)
	default:
		data, _ := yaml.Marshal(val)
		fmt.Print(string(data))
	}
	return 0
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}
