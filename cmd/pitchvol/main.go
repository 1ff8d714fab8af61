package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pitchvol/internal/config"
	"pitchvol/internal/engine"
	"pitchvol/internal/feed"
	"pitchvol/internal/report"
)

const usage = "Usage: pitchvol data_file"

var errUsage = errors.New("usage")

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Str("run", uuid.NewString()).
		Logger()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(-1)
	}
	log.Error().Err(err).Msg("run failed")
	os.Exit(1)
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		top        int
		workers    int
		batchSize  int
		strict     bool
		notional   bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "pitchvol [flags] data_file",
		Short: "Reports the most traded symbols in a PITCH order event file",
		Example: `  pitchvol pitch_example_data
  pitchvol --top 20 --workers 4 pitch_example_data`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}

			flags := cmd.Flags()
			if flags.Changed("top") {
				cfg.Top = top
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("batch-size") {
				cfg.BatchSize = batchSize
			}
			if flags.Changed("strict") {
				cfg.Strict = strict
			}
			if flags.Changed("notional") {
				cfg.Notional = notional
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level, _ := cfg.Level()
			zerolog.SetGlobalLevel(level)

			return run(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "TOML config file")
	flags.IntVarP(&top, "top", "n", 10, "number of symbols to report")
	flags.IntVarP(&workers, "workers", "w", 1, "decode goroutines, 1 decodes inline")
	flags.IntVar(&batchSize, "batch-size", 1024, "records per decode task")
	flags.BoolVar(&strict, "strict", false, "abort on the first malformed record")
	flags.BoolVar(&notional, "notional", false, "print executed notional per symbol")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func run(ctx context.Context, cfg config.Config, path string, out io.Writer) error {
	src, err := feed.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	log.Info().Str("file", path).Int("workers", cfg.Workers).Msg("reading feed")

	eng := engine.New(engine.NewOrderBook(), engine.Options{
		Workers:   cfg.Workers,
		BatchSize: cfg.BatchSize,
		Strict:    cfg.Strict,
	})
	if _, err := eng.Run(ctx, src); err != nil {
		return err
	}

	return report.Print(out, eng.Book().TopSymbolsByVolume(cfg.Top), report.Options{
		Notional: cfg.Notional,
	})
}
