package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"classgen/internal/cfg"
	"classgen/internal/common"
	"classgen/internal/dataset"
	"classgen/internal/metrics"
	"classgen/internal/sampler"
	"classgen/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		logLevel = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
		inspect  = flag.String("inspect", "", "Print the shape and class counts of an existing dataset file and exit")
		history  = flag.Bool("history", false, "Print runs recorded in the catalog, optionally only those for the path given as argument, and exit")
	)
	flag.Parse()

	// A missing .env is fine; settings fall back to the environment and defaults
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *inspect != "" {
		setLevel(*logLevel)
		if err := inspectFile(*inspect); err != nil {
			log.Fatal().Err(err).Str("path", *inspect).Msg("Inspect failed")
		}
		return
	}

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	setLevel(config.LogLevel)

	if *history {
		if err := showHistory(os.Stdout, config, flag.Arg(0)); err != nil {
			log.Fatal().Err(err).Msg("History failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, prometheus.NewRegistry()); err != nil {
		stop()
		log.Fatal().Err(err).Str("kind", dataset.FailureKind(err)).Msg("Dataset generation failed")
	}
}

// run generates one dataset, records it in the catalog when one is configured
// and dumps metrics when a textfile is configured.
func run(ctx context.Context, config cfg.Settings, registry *prometheus.Registry) error {
	store := initializeStorage(config)
	if store != nil {
		defer store.Close()
	}

	m := metrics.NewWithRegistry(registry)
	assembler := dataset.NewAssembler(newGenerator(config), metrics.NewWrapper(m))

	// Resolve the seed up front so failed runs are recorded with it too
	seed := sampler.ResolveSeed(config.Seed)
	dc := datasetConfig(config)
	dc.Seed = &seed

	started := time.Now()
	res, runErr := assembler.AssembleAndExport(ctx, dc)

	if store != nil {
		record := storage.RunRecord{
			Timestamp:   started,
			OutputPath:  dc.OutputPath,
			Samples:     dc.Samples,
			Features:    dc.Features,
			Classes:     dc.Classes,
			Seed:        seed,
			ClassCounts: res.ClassCounts,
			DurationMs:  time.Since(started).Milliseconds(),
		}
		if runErr != nil {
			record.FailureKind = dataset.FailureKind(runErr)
			record.Error = runErr.Error()
		}
		if err := store.RecordRun(record); err != nil {
			log.Warn().Err(err).Msg("Failed to record run in catalog")
		}
	}

	if config.MetricsFile != "" {
		if err := metrics.WriteTextfile(config.MetricsFile, registry); err != nil {
			log.Warn().Err(err).Str("path", config.MetricsFile).Msg("Failed to write metrics textfile")
		}
	}

	return runErr
}

func newGenerator(c cfg.Settings) *sampler.Classification {
	gen := sampler.NewClassification()
	gen.Informative = c.Informative
	gen.Redundant = c.Redundant
	gen.Repeated = c.Repeated
	gen.ClustersPerClass = c.ClustersPerClass
	gen.Weights = c.Weights
	gen.FlipY = c.FlipY
	gen.ClassSep = c.ClassSep
	gen.Hypercube = c.Hypercube
	gen.Shift = c.Shift
	gen.Scale = c.Scale
	gen.Shuffle = c.Shuffle
	return gen
}

func datasetConfig(c cfg.Settings) dataset.Config {
	return dataset.Config{
		Samples:    c.Samples,
		Features:   c.Features,
		Classes:    c.Classes,
		OutputPath: c.OutputPath,
		Seed:       c.Seed,
	}
}

// initializeStorage opens the run catalog if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath != "" {
		store, err := storage.New(c.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("catalog initialization failed, continuing without run history")
			return nil
		}
		return store
	}
	return nil
}

func inspectFile(path string) error {
	m, err := dataset.Load(path)
	if err != nil {
		return err
	}
	X, y, err := dataset.Split(m)
	if err != nil {
		return err
	}

	rows, features := X.Dims()
	counts := map[int]int{}
	for _, label := range y {
		counts[label]++
	}

	fmt.Println("=== Dataset ===")
	fmt.Printf("Path: %s\n", path)
	fmt.Printf("Rows: %d\n", rows)
	fmt.Printf("Features: %d\n", features)
	for _, label := range slices.Sorted(maps.Keys(counts)) {
		fmt.Printf("Class %d: %d\n", label, counts[label])
	}
	fmt.Println("===============")
	return nil
}

// showHistory prints catalog runs oldest first, all of them or only those that
// wrote path. SEED from a printed run regenerates the same file.
func showHistory(out io.Writer, config cfg.Settings, path string) error {
	if config.DataPath == "" {
		return fmt.Errorf("history needs a catalog, set %s", common.EnvDataPath)
	}
	store, err := storage.New(config.DataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var runs []storage.RunRecord
	if path != "" {
		runs, err = store.GetRunsForPath(path)
	} else {
		runs, err = store.GetRuns(time.Unix(0, 0), time.Now())
	}
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	fmt.Fprintln(out, "=== Run History ===")
	for _, r := range runs {
		status := "ok"
		if !r.Succeeded() {
			status = "failed (" + r.FailureKind + ")"
		}
		fmt.Fprintf(out, "%s  %s  samples=%d features=%d classes=%d seed=%d  %s\n",
			r.Timestamp.Format(time.RFC3339), r.OutputPath, r.Samples, r.Features, r.Classes, r.Seed, status)
	}
	fmt.Fprintf(out, "Runs: %d\n", len(runs))
	fmt.Fprintln(out, "===================")
	return nil
}

func setLevel(name string) {
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
