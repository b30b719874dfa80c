package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alexflint/go-arg"
	"text2phenotype.com/tagtrainer/logger"
	"text2phenotype.com/tagtrainer/options"
	"text2phenotype.com/tagtrainer/pipeline"
	"text2phenotype.com/tagtrainer/types"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	logger.SetupLogging()
	mainLogger := logger.NewLogger("Main")

	cfg, err := options.Parse(filepath.Base(os.Args[0]), os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, arg.ErrHelp) {
			return
		}
		var usageErr *options.UsageError
		if errors.As(err, &usageErr) {
			os.Exit(exitUsage)
		}
		mainLogger.Error().Caller().Err(err).Msg("Failed to set up the option parser")
		os.Exit(exitFailure)
	}

	env, err := types.ReadEnvironment()
	if err != nil {
		mainLogger.Error().Caller().Err(err).Msg("Failed to read environment")
		os.Exit(exitFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(env, logger.NewTracer(cfg.Trace))
	report, err := runner.Run(ctx, cfg)
	if err != nil {
		mainLogger.Error().Caller().Err(err).Str("corpus", cfg.Corpus).Msg("Training run failed")
		stop()
		os.Exit(exitFailure)
	}
	mainLogger.Info().
		Str("tagger", report.Tagger).
		Str("destination", report.Destination).
		Float64("duration_seconds", report.DurationSeconds).
		Msg("Training run finished")
}
