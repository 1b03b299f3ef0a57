// Command narratology generates a fantasy manuscript against heuristic
// narratology targets, or analyzes an existing one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vampirenirmal/narratology/internal/config"
	"github.com/vampirenirmal/narratology/internal/core"
	"github.com/vampirenirmal/narratology/internal/generator"
	"github.com/vampirenirmal/narratology/internal/pacing"
	"github.com/vampirenirmal/narratology/internal/report"
	"github.com/vampirenirmal/narratology/internal/storage"
)

// sceneSeparator splits an existing manuscript into scenes for analysis
// mode.
const sceneSeparator = "\n---\n"

func main() {
	configPath := flag.String("config", "config.yaml", "path to run configuration")
	analyzePath := flag.String("analyze", "", "analyze an existing manuscript instead of generating")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	setupLogging(*logLevel)

	if err := run(*configPath, *analyzePath); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func run(configPath, analyzePath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := buildEngine(cfg, analyzePath != "")
	if err != nil {
		return err
	}

	if analyzePath != "" {
		return analyze(ctx, engine, cfg, analyzePath)
	}
	return generate(ctx, engine, cfg)
}

// buildEngine wires the generator client and the scoring engine from
// config. Analysis mode never calls the backend, so it skips the
// credential requirement.
func buildEngine(cfg config.Config, analysisOnly bool) (*core.Engine, error) {
	var gen core.Generator
	if analysisOnly {
		gen = &generator.Mock{}
	} else {
		apiKey, err := cfg.APIKey()
		if err != nil {
			return nil, err
		}
		gen = generator.NewClient(apiKey,
			generator.WithProvider(generator.Provider(cfg.Generation.Provider)),
			generator.WithBaseURL(cfg.Generation.BaseURL),
			generator.WithRetry(cfg.Generation.MaxRetries),
			generator.WithTimeout(cfg.Timeout()),
			generator.WithRateLimit(cfg.Generation.Rate.RequestsPerMinute, cfg.Generation.Rate.Burst),
		)
	}

	return core.NewEngine(gen, cfg.TargetProfile(),
		core.WithWeights(cfg.MetricWeights()),
		core.WithTracker(cfg.Tracker()),
		core.WithController(pacing.NewController(pacing.WithCapFraction(cfg.Pacing.CapFraction))),
	), nil
}

func generate(ctx context.Context, engine *core.Engine, cfg config.Config) error {
	res, runErr := engine.Run(ctx, cfg.Run.Premise, cfg.RunConfig())
	if res == nil {
		return runErr
	}

	// Persist whatever the run produced, aborted or not.
	store, err := storage.NewRunStore(cfg.Output.Dir, res.RunID)
	if err != nil {
		return err
	}
	// Reporting must survive the cancellation that stopped the run.
	if err := report.NewWriter(store, slog.Default()).Write(context.Background(), res); err != nil {
		return err
	}

	fmt.Printf("run %s: %d scenes, success %.2f (%s), artifacts in %s\n",
		res.RunID, len(res.Scenes), res.Snapshot.SuccessScore,
		report.Verdict(res.Snapshot.SuccessScore), store.Dir())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func analyze(ctx context.Context, engine *core.Engine, cfg config.Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading manuscript: %w", err)
	}

	var scenes []string
	for _, part := range strings.Split(string(raw), sceneSeparator) {
		if s := strings.TrimSpace(part); s != "" {
			scenes = append(scenes, s)
		}
	}

	analysis, err := engine.Analyze(ctx, scenes, cfg.Run.ScenesPerChapter)
	if err != nil {
		return err
	}

	fmt.Printf("%d scenes, %d reversals, success %.2f (%s)\n",
		len(scenes), len(analysis.Events), analysis.Snapshot.SuccessScore,
		report.Verdict(analysis.Snapshot.SuccessScore))
	for _, ins := range analysis.Instructions {
		fmt.Printf("  advisory: %s at scene %d (%s)\n", ins.Type, ins.SceneIndex, ins.Reason)
	}
	return nil
}
