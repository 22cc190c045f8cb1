// Yakbot is a conversational Linear agent for a single Telegram chat.
//
// It receives chat messages via a Telegram webhook, grounds an LLM on a
// fresh snapshot of the Linear board, executes the tracker operations
// the model asks for, and replies in the chat. A daily digest
// summarizes open work, cached by a content fingerprint so quiet days
// reuse yesterday's summary.
//
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	yakbot serve             Start the webhook server and digest scheduler
//	yakbot digest            Run the daily digest once and exit (for cron)
//	yakbot ask <question>    Ask a single question (for testing)
//	yakbot version           Print version and build information
//	yakbot -o json version   Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/herdworks/yakbot/internal/agent"
	"github.com/herdworks/yakbot/internal/api"
	"github.com/herdworks/yakbot/internal/buildinfo"
	"github.com/herdworks/yakbot/internal/config"
	"github.com/herdworks/yakbot/internal/digest"
	"github.com/herdworks/yakbot/internal/linear"
	"github.com/herdworks/yakbot/internal/llm"
	"github.com/herdworks/yakbot/internal/memory"
	"github.com/herdworks/yakbot/internal/state"
	"github.com/herdworks/yakbot/internal/telegram"
	"github.com/herdworks/yakbot/internal/tools"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run] so the full
// startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the yakbot command. Arguments are
// parsed by hand; the flag package relies on package-level globals
// that interfere with calling run() concurrently from tests, and the
// argument surface is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "digest":
		return runDigest(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: yakbot ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Yakbot - Linear agent for Telegram")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: yakbot [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the webhook server and digest scheduler")
	fmt.Fprintln(w, "  digest       Run the daily digest once and exit (for cron)")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./yakbot.yaml, ~/.config/yakbot/config.yaml, /etc/yakbot/config.yaml")
	return nil
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// components holds everything the subcommands share: config, logger,
// state store, and the clients for Linear and the model.
type components struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *state.Store
	tracker *linear.Client
	model   llm.Client
}

// setup loads config and constructs the shared components. The caller
// owns closing the store.
func setup(stdout io.Writer, configPath string) (*components, error) {
	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}

	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		level, _ = config.ParseLogLevel(cfg.LogLevel)
	}
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
	logger.Info("config loaded", "path", cfgPath)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}
	store, err := state.NewStore(cfg.DataDir + "/yakbot.db")
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	return &components{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		tracker: linear.NewClient(cfg.Linear.APIKey, cfg.Linear.Endpoint, logger),
		model:   llm.NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, logger),
	}, nil
}

// newLoop wires the agent loop from shared components.
func newLoop(c *components) *agent.Loop {
	return agent.NewLoop(agent.LoopConfig{
		LLM:           c.model,
		Registry:      tools.NewRegistry(),
		Executor:      tools.NewExecutor(c.tracker, c.logger),
		Memory:        memory.NewLog(c.store, c.cfg.Agent.MaxHistoryPairs, c.logger),
		MaxIterations: c.cfg.Agent.MaxIterations,
		Logger:        c.logger,
	})
}

// runAsk handles "yakbot ask <question>": one agent turn against the
// live board, reply printed to stdout. Useful for smoke tests without
// a webhook or a Telegram round trip.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	c, err := setup(stdout, configPath)
	if err != nil {
		return err
	}
	defer c.store.Close()

	snap, err := c.tracker.FetchSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetch board snapshot: %w", err)
	}

	reply, err := newLoop(c).Run(ctx, strings.Join(args, " "), snap)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, reply)
	return nil
}

// runDigest handles "yakbot digest": one digest cycle, sent to the
// configured chat when Telegram is set up and always printed to
// stdout. Intended for cron deployments that skip the serve-mode
// scheduler.
func runDigest(ctx context.Context, stdout io.Writer, configPath string) error {
	c, err := setup(stdout, configPath)
	if err != nil {
		return err
	}
	defer c.store.Close()

	text, err := digestCycle(ctx, c)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, text)
	if c.cfg.Telegram.BotToken != "" && c.cfg.Telegram.ChatID != 0 {
		tg := telegram.NewClient(c.cfg.Telegram.BotToken, c.logger)
		if err := tg.SendMessage(ctx, c.cfg.Telegram.ChatID, text); err != nil {
			return fmt.Errorf("send digest: %w", err)
		}
	}
	return nil
}

// digestCycle fetches a snapshot and runs the digest generator once.
func digestCycle(ctx context.Context, c *components) (string, error) {
	snap, err := c.tracker.FetchSnapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch board snapshot: %w", err)
	}

	gen := digest.NewGenerator(c.model, c.store, c.cfg.Digest.StaleThreshold, c.logger)
	text, err := gen.Run(ctx, snap)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return text, nil
}

// runServe handles "yakbot serve", the primary operating mode: webhook
// server plus the in-process digest scheduler. Blocks until SIGINT or
// SIGTERM, then drains in-flight updates before exiting.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	c, err := setup(stdout, configPath)
	if err != nil {
		return err
	}
	defer c.store.Close()

	c.logger.Info("starting yakbot",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime,
		"model", c.cfg.Anthropic.Model,
	)

	if c.cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required for serve")
	}
	if c.cfg.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required for serve")
	}

	tg := telegram.NewClient(c.cfg.Telegram.BotToken, c.logger)
	bridge := telegram.NewBridge(telegram.BridgeConfig{
		Sender:  tg,
		Runner:  newLoop(c),
		Tracker: c.tracker,
		ChatID:  c.cfg.Telegram.ChatID,
		Logger:  c.logger,
	})

	listen := fmt.Sprintf("%s:%d", c.cfg.Listen.Address, c.cfg.Listen.Port)
	server := api.NewServer(listen, c.cfg.Telegram.WebhookSecret, bridge, c.logger)

	// SIGINT/SIGTERM cancellation flows through the same ctx used by
	// all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	scheduler := digest.NewScheduler(c.cfg.Digest.Hour, func(runCtx context.Context) {
		text, err := digestCycle(runCtx, c)
		if err != nil {
			c.logger.Error("scheduled digest failed", "error", err)
			return
		}
		if err := tg.SendMessage(runCtx, c.cfg.Telegram.ChatID, text); err != nil {
			c.logger.Error("scheduled digest send failed", "error", err)
		}
	}, c.logger)
	go scheduler.Start(ctx)

	go func() {
		<-ctx.Done()
		c.logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	c.logger.Info("yakbot stopped")
	return nil
}
