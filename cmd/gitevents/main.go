package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/gitevents/internal/config"
	"github.com/mattjoyce/gitevents/internal/dispatch"
	"github.com/mattjoyce/gitevents/internal/doctor"
	"github.com/mattjoyce/gitevents/internal/eventstore"
	"github.com/mattjoyce/gitevents/internal/feed"
	"github.com/mattjoyce/gitevents/internal/interaction"
	"github.com/mattjoyce/gitevents/internal/lock"
	"github.com/mattjoyce/gitevents/internal/log"
	"github.com/mattjoyce/gitevents/internal/metrics"
	"github.com/mattjoyce/gitevents/internal/register"
	"github.com/mattjoyce/gitevents/internal/storage"
	"github.com/mattjoyce/gitevents/internal/webhook"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "serve", "start":
		if hasHelpFlag(args) {
			printServeHelp()
			return 0
		}
		return runServe(args)
	case "register":
		if hasHelpFlag(args) {
			printRegisterHelp()
			return 0
		}
		return runRegister(args)
	case "config":
		return runConfigNoun(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: gitevents version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("gitevents %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if commit != "" {
		info.Commit = shortenCommit(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalized, ok := normalizeBuildTimeUTC(built); ok {
		info.BuildTime = normalized
	}
	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}
	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printUsage() {
	fmt.Print(`gitevents - Interactions endpoint for creating events from chat

Usage:
  gitevents <command> [flags]

Commands:
  serve       Run the interactions HTTP server
  register    Register the /new_event command with the platform
  config      Validate, display or lock configuration (check, show, lock)
  version     Show version information
  help        Show this help

Configuration:
  --config PATH     File or directory holding config.yaml.
                    Without it: $GITEVENTS_CONFIG_DIR, ~/.config/gitevents,
                    /etc/gitevents, ./config.yaml, then defaults plus
                    DISCORD_PUBLIC_KEY, DISCORD_APPLICATION_ID, DISCORD_BOT_TOKEN.

Run 'gitevents <command> --help' for details.
`)
}

func printServeHelp() {
	fmt.Println("Usage: gitevents serve [--config PATH]")
	fmt.Println("Run the interactions server until SIGINT or SIGTERM.")
}

func printRegisterHelp() {
	fmt.Println("Usage: gitevents register [--config PATH]")
	fmt.Println("Register the new_event slash command. Requires discord.application_id and discord.bot_token.")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: gitevents config <check|show|lock> [--config PATH]")
	fmt.Fprintln(w, "  check [--json]  Load, validate and diagnose configuration")
	fmt.Fprintln(w, "  show            Print the effective configuration with secrets redacted")
	fmt.Fprintln(w, "  lock            Record BLAKE3 checksums of config.yaml and .env")
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return true
		}
	}
	return false
}

// resolveConfigPath returns the --config value, or a discovered location.
// An empty result means defaults plus environment.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	discovered := config.DiscoverConfig()
	if discovered != "" {
		fmt.Fprintf(os.Stderr, "Using discovered config: %s\n", discovered)
	}
	return discovered
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("gitevents starting", "version", version, "config", cfg.SourcePath)

	if dir := cfg.ConfigDir(); dir != "" {
		res, err := config.VerifyIntegrity(dir)
		if err != nil {
			logger.Error("failed to verify config integrity", "dir", dir, "error", err)
			return 1
		}
		if !res.Passed {
			for _, msg := range res.Errors {
				logger.Error("config integrity check failed", "detail", msg)
			}
			return 1
		}
		for _, msg := range res.Warnings {
			logger.Warn("config integrity", "detail", msg)
		}
	}

	if lockPath := lock.PathFor(cfg.Events.Path); lockPath != "" {
		pidLock, err := lock.Acquire(lockPath)
		if err != nil {
			logger.Error("failed to acquire PID lock (another instance may be running)", "path", lockPath, "error", err)
			return 1
		}
		defer pidLock.Release()
		logger.Info("acquired PID lock", "path", lockPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.Events.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Events.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.Events.Path)

	loc, err := time.LoadLocation(cfg.Events.Timezone)
	if err != nil {
		logger.Error("invalid events timezone", "timezone", cfg.Events.Timezone, "error", err)
		return 1
	}
	store := eventstore.New(db, cfg.Events.BaseURL,
		eventstore.WithLocation(loc),
		eventstore.WithTimeout(cfg.Events.WriteTimeout),
	)

	verifier, err := interaction.NewVerifier(cfg.Discord.PublicKey)
	if err != nil {
		logger.Error("invalid public key", "error", err)
		return 1
	}
	disp := dispatch.New(store, dispatch.WithLogger(log.WithComponent("dispatch")))

	webhookConfig, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		logger.Error("failed to configure webhook server", "error", err)
		return 1
	}
	opts := []webhook.Option{webhook.WithEvents(store)}
	if cfg.Metrics.Enabled {
		opts = append(opts, webhook.WithMetrics(metrics.New()))
		logger.Info("metrics enabled", "path", cfg.Metrics.Path)
	}
	if cfg.Feed.Enabled {
		opts = append(opts, webhook.WithFeed(feed.New(cfg.Feed.Capacity)))
		logger.Info("activity feed enabled", "path", cfg.Feed.Path)
	}
	server := webhook.New(webhookConfig, verifier, disp, log.WithComponent("webhook"), opts...)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("webhook: %w", err)
		}
		close(errCh)
	}()

	logger.Info("gitevents running (press Ctrl+C to stop)", "listen", webhookConfig.Listen, "path", webhookConfig.Path)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
		if err := <-errCh; err != nil {
			logger.Error("shutdown failed", "error", err)
			return 1
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			return 1
		}
	}

	logger.Info("gitevents stopped")
	return 0
}

func runRegister(args []string) int {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if err := cfg.ValidateRegistration(); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot register command: %v\n", err)
		return 1
	}

	client := register.NewClient(register.Config{
		APIBaseURL:     cfg.Discord.APIBaseURL,
		ApplicationID:  cfg.Discord.ApplicationID,
		BotToken:       cfg.Discord.BotToken,
		RequestTimeout: cfg.Discord.RequestTimeout,
	})

	reg, err := client.Register(context.Background(), register.NewEventCommand)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register command: %v\n", err)
		return 1
	}

	fmt.Printf("Registered /%s", register.NewEventCommand.Name)
	if reg.ID != "" {
		fmt.Printf(" (id %s)", reg.ID)
	}
	fmt.Println()
	return 0
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		return runConfigCheck(actionArgs)
	case "show":
		return runConfigShow(actionArgs)
	case "lock":
		return runConfigLock(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output result as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		if *jsonOut {
			out, _ := doctor.FormatJSON(&doctor.Result{
				Valid:  false,
				Errors: []doctor.Issue{{Category: "load", Message: err.Error()}},
			})
			fmt.Println(out)
		} else {
			fmt.Fprintf(os.Stderr, "Configuration invalid: %v\n", err)
		}
		return 1
	}

	result := doctor.New(cfg).Validate()
	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	shown := *cfg
	if shown.Discord.BotToken != "" {
		shown.Discord.BotToken = "<redacted>"
	}

	out, err := yaml.Marshal(&shown)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render config: %v\n", err)
		return 1
	}
	fmt.Print(string(out))
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path := resolveConfigPath(*configPath)
	if path == "" {
		fmt.Fprintln(os.Stderr, "No config file found to lock; pass --config")
		return 1
	}
	dir := path
	if info, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "Config not found: %v\n", err)
		return 1
	} else if !info.IsDir() {
		dir = filepath.Dir(path)
	}

	names, err := config.LockConfig(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}
	fmt.Printf("Locked %s in %s\n", strings.Join(names, ", "), dir)
	return 0
}
