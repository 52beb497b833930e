package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"MarketScanner/internal/app"
	"MarketScanner/internal/config"
	"MarketScanner/internal/logging"
)

// Options are the command line flags.
type Options struct {
	Config    string `long:"config" short:"c" env:"MARKET_SCANNER_CONFIG" description:"Path to YAML configuration file"`
	EnvFile   string `long:"env-file" description:"Path to a .env file (default: ./.env when present)"`
	DryRun    bool   `long:"dry-run" description:"Write the report to --output instead of mailing it; the seen set is not updated"`
	Output    string `long:"output" short:"o" description:"Dry-run output path (.html or .eml)"`
	LogLevel  string `long:"log-level" description:"Log level: debug, info, warn, error"`
	LogFormat string `long:"log-format" choice:"text" choice:"json" description:"Log format"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}

	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	applyOptions(&cfg, opts)

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		return 1
	}
	defer application.Close()

	if _, err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		return 1
	}
	return 0
}

func parseOptions(args []string) (Options, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func applyOptions(cfg *config.Config, opts Options) {
	if opts.DryRun {
		cfg.Report.DryRun = true
	}
	if opts.Output != "" {
		cfg.Report.OutputPath = opts.Output
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Logging.Format = opts.LogFormat
	}
}
