package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/verdantio/cropsense/internal/scenario"
	"github.com/verdantio/cropsense/internal/simulate"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "CropSense server base URL")
	farmName := flag.String("farm", "Simulated Farm", "Name of the farm to create")
	plots := flag.String("plots", "North:maize,South:soy", "Comma-separated plot specs as name:crop")
	seed := flag.Int64("seed", 42, "Random seed for reproducible streams")
	interval := flag.Duration("interval", 5*time.Second, "Delay between emitted reading batches")
	backfill := flag.Duration("backfill", 168*time.Hour, "History window to bulk-ingest before streaming")
	preset := flag.String("scenario", "", "Scenario preset to schedule ("+strings.Join(scenario.PresetNames(), ", ")+")")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	specs, err := parsePlots(*plots)
	if err != nil {
		logger.Fatal("invalid -plots value", zap.Error(err))
	}

	runner, err := simulate.NewRunner(simulate.RunnerConfig{
		ServerURL: *serverURL,
		FarmName:  *farmName,
		Plots:     specs,
		Seed:      *seed,
		Interval:  *interval,
		Backfill:  *backfill,
		Preset:    *preset,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create simulator", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := runner.Run(ctx); err != nil {
		logger.Fatal("simulator error", zap.Error(err))
	}

	logger.Info("field simulator stopped")
}

// parsePlots turns "North:maize,South:soy" into plot specs. The crop part is
// optional.
func parsePlots(s string) ([]simulate.PlotSpec, error) {
	var specs []simulate.PlotSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, crop, _ := strings.Cut(part, ":")
		if name == "" {
			return nil, fmt.Errorf("plot spec %q has no name", part)
		}
		specs = append(specs, simulate.PlotSpec{Name: name, Crop: crop})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no plots specified")
	}
	return specs, nil
}
