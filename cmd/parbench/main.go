// Command parbench measures parallel.Map and parallel pipelines on a CPU
// bound workload across several worker counts.
//
// Usage:
//
//	parbench --workload=primes --items=50000 --workers=1,2,4,8 --runs=5
//	PARBENCH_STAGES=3 parbench --config=parbench.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"

	"github.com/utkarsh5026/parmap/internal/config"
	"github.com/utkarsh5026/parmap/internal/cpu"
	"github.com/utkarsh5026/parmap/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		_, _ = red.Fprintf(os.Stderr, "parbench: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("parbench", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	configFile := flags.String("config", "", "YAML config file")
	envFile := flags.String("env-file", "", "env file with PARBENCH_* variables (default ./.env if present)")
	noProgress := flags.Bool("no-progress", false, "hide the progress bar")

	if err := flags.Parse(args); err != nil {
		return err
	}

	var loaderOpts []config.LoaderOption
	if *configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(*envFile))
	}

	cfg, err := config.Load(flags, loaderOpts...)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printConfig(os.Stdout, cfg, cpu.LogicalCount())

	var bar *progressbar.ProgressBar
	if !*noProgress {
		bar = makeProgressBar(len(cfg.Workers) * cfg.Runs)
	}

	b, err := newBenchmark(cfg, logger, bar)
	if err != nil {
		return err
	}

	results, err := b.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("benchmark interrupted: %w", err)
	}

	return renderResults(os.Stdout, cfg.Items, results)
}

func makeProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Running"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
