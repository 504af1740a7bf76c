package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"

	"github.com/BradenHooton/gatekeeper/internal/attack"
	"github.com/BradenHooton/gatekeeper/internal/config"
)

const banner = `
=== PASSWORD PENTESTING TOOL ===
  For the bundled gatekeeper target only.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		usage()
		return attack.ExitFatal
	}
	username := args[0]

	modeName := string(attack.ModeDictionary)
	if len(args) > 1 {
		modeName = args[1]
	}
	mode, err := attack.ParseMode(modeName)
	if err != nil {
		color.Red("[-] %v", err)
		usage()
		return attack.ExitFatal
	}

	cfg, err := config.LoadAttack()
	if err != nil {
		color.Red("[-] Failed to load configuration: %v", err)
		return attack.ExitFatal
	}

	// Positional instance arguments take precedence over the environment
	var instanceArgs []string
	if len(args) > 2 {
		instanceArgs = args[2:]
	}
	if err := applyInstanceArgs(cfg, instanceArgs); err != nil {
		color.Red("[-] %v", err)
		usage()
		return attack.ExitFatal
	}

	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		color.Red("[-] Failed to open log file: %v", err)
		return attack.ExitFatal
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stdout, logFile), &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})).With(slog.Int("instance_id", cfg.InstanceID))
	slog.SetDefault(logger)

	color.Cyan(banner)
	color.Cyan("[*] Target: %s", cfg.TargetURL)
	color.Cyan("[*] Username: %s  Mode: %s  Instance: %d/%d", username, mode, cfg.InstanceID+1, cfg.TotalInstances)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := attack.NewRunner(cfg, logger)
	result, err := runner.Run(ctx, username, mode)
	if err != nil {
		logger.Error("attack failed", slog.Any("error", err))
		color.Red("[-] Fatal: %v", err)
		if attack.IsInputError(err) {
			color.Yellow("[!] Check DICTIONARY_PATH / RAINBOW_TABLE_PATH, or run create-table first")
		}
		return attack.ExitFatal
	}

	printSummary(cfg, result)
	return result.ExitCode()
}

func applyInstanceArgs(cfg *config.AttackConfig, rest []string) error {
	if len(rest) > 0 {
		id, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid instanceId %q", rest[0])
		}
		cfg.InstanceID = id
	}
	if len(rest) > 1 {
		total, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("invalid totalInstances %q", rest[1])
		}
		cfg.TotalInstances = total
	}
	return cfg.Validate()
}

func printSummary(cfg *config.AttackConfig, result *attack.Result) {
	fmt.Println()
	switch result.Mode {
	case attack.ModeCreateTable:
		color.Green("[+] Rainbow table created: %d entries", result.TableSize)
		color.Green("    Saved to: %s", cfg.RainbowTablePath)
		return
	case attack.ModeEnumerate:
		color.Green("[+] Found %d potential valid usernames", len(result.Usernames))
		for _, u := range result.Usernames {
			color.Green("    %s", u)
		}
		return
	}

	color.Cyan("=== PENTEST COMPLETED ===")
	if result.Found && result.Finding != nil {
		if result.BySibling {
			color.Green("[+] Password found by instance %d", result.Finding.InstanceID)
		} else {
			color.Green("[+] Password found!")
		}
		color.Green("    Username: %s", result.Finding.Username)
		color.Green("    Password: %s", result.Finding.Password)
		color.Green("    Timestamp: %s", result.Finding.Timestamp)
	} else if result.Interrupted {
		color.Yellow("[!] Interrupted before the search completed")
	} else {
		color.Red("[-] Password not found within configured limits")
	}

	if s := result.Stats; s != nil {
		color.White("    Tried: %d  Errors: %d  Duration: %s  Req/s: %s", s.TotalTried, s.Errors, s.Duration, s.RequestsPerSecond)
		color.White("    Stats: %s", cfg.StatsPath)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: attack <username> <mode> [instanceId] [totalInstances]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Modes:")
	for _, m := range attack.Modes {
		fmt.Fprintf(os.Stderr, "  %-13s - %s\n", m.Mode, m.Description)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  attack admin dictionary")
	fmt.Fprintln(os.Stderr, "  attack admin bruteforce 0 4    # Instance 1 of 4")
	fmt.Fprintln(os.Stderr, "  attack admin create-table")
	fmt.Fprintln(os.Stderr, "  attack admin rainbow")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Environment: TARGET_URL, CONCURRENCY, REQUEST_DELAY, REQUEST_TIMEOUT, MAX_TRIES,")
	fmt.Fprintln(os.Stderr, "  CHARSET, MAX_LENGTH, INSTANCE_ID, TOTAL_INSTANCES")
}
