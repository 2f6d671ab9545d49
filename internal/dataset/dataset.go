// Package dataset assembles synthetic classification data into a single
// comma-separated file.
//
// The Assembler asks a sampler.Generator for a feature matrix and a label
// vector, checks that the two agree, appends the labels as the last column and
// writes the result atomically. Each call regenerates and rewrites the whole
// file; nothing is cached between calls.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classgen/internal/sampler"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Config describes one dataset to produce.
type Config struct {
	Samples    int
	Features   int
	Classes    int
	OutputPath string
	Seed       *uint64 // nil draws a fresh seed per run
}

// Validate reports whether the configuration can produce a dataset.
func (c Config) Validate() error {
	if c.Samples <= 0 {
		return fmt.Errorf("%w: samples must be positive, got %d", ErrInvalidConfig, c.Samples)
	}
	if c.Features <= 0 {
		return fmt.Errorf("%w: features must be positive, got %d", ErrInvalidConfig, c.Features)
	}
	if c.Classes < 2 {
		return fmt.Errorf("%w: at least two classes are required, got %d", ErrInvalidConfig, c.Classes)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("%w: output path is empty", ErrInvalidConfig)
	}
	return nil
}

// Result describes a written dataset.
type Result struct {
	Path        string
	Rows        int
	Cols        int
	Seed        uint64
	ClassCounts []int
	Duration    time.Duration
}

// MetricsInterface is the subset of metrics the assembler reports to.
type MetricsInterface interface {
	DatasetsInc()
	FailuresInc(kind string)
	RowsWrittenAdd(n int)
	ExportDurationObserve(seconds float64)
	LastSuccessSet(ts time.Time)
}

type nopMetrics struct{}

func (nopMetrics) DatasetsInc()                  {}
func (nopMetrics) FailuresInc(string)            {}
func (nopMetrics) RowsWrittenAdd(int)            {}
func (nopMetrics) ExportDurationObserve(float64) {}
func (nopMetrics) LastSuccessSet(time.Time)      {}

// Assembler runs the generate, combine and export pipeline.
type Assembler struct {
	gen     sampler.Generator
	metrics MetricsInterface
}

// NewAssembler creates an assembler backed by gen. A nil metrics sink disables
// metrics.
func NewAssembler(gen sampler.Generator, m MetricsInterface) *Assembler {
	if m == nil {
		m = nopMetrics{}
	}
	return &Assembler{gen: gen, metrics: m}
}

// AssembleAndExport generates a dataset for cfg and writes it to cfg.OutputPath.
// On error the output path is left as it was.
func (a *Assembler) AssembleAndExport(ctx context.Context, cfg Config) (res Result, err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		a.metrics.ExportDurationObserve(elapsed.Seconds())
		if err != nil {
			a.metrics.FailuresInc(FailureKind(err))
			return
		}
		res.Duration = elapsed
		a.metrics.DatasetsInc()
		a.metrics.RowsWrittenAdd(res.Rows)
		a.metrics.LastSuccessSet(time.Now())
	}()

	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if a.gen == nil {
		return Result{}, fmt.Errorf("%w: no sample generator", ErrInvalidConfig)
	}

	seed := sampler.ResolveSeed(cfg.Seed)
	log.Debug().
		Int("samples", cfg.Samples).
		Int("features", cfg.Features).
		Int("classes", cfg.Classes).
		Uint64("seed", seed).
		Msg("Generating samples")

	X, y, err := a.gen.Generate(ctx, sampler.Request{
		Samples:  cfg.Samples,
		Features: cfg.Features,
		Classes:  cfg.Classes,
		Seed:     &seed,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("generate: %w", err)
		}
		return Result{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	counts, err := checkShape(cfg, X, y)
	if err != nil {
		return Result{}, err
	}

	combined, err := Combine(X, y)
	if err != nil {
		return Result{}, err
	}

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("export: %w", err)
	}

	if err := WriteFile(cfg.OutputPath, combined); err != nil {
		return Result{}, err
	}

	rows, cols := combined.Dims()
	res = Result{
		Path:        cfg.OutputPath,
		Rows:        rows,
		Cols:        cols,
		Seed:        seed,
		ClassCounts: counts,
	}

	log.Info().
		Str("path", res.Path).
		Int("rows", rows).
		Int("cols", cols).
		Uint64("seed", seed).
		Ints("class_counts", counts).
		Msg("Dataset exported")

	return res, nil
}

// AssembleAndExport runs a single export with gen and no metrics.
func AssembleAndExport(ctx context.Context, cfg Config, gen sampler.Generator) (Result, error) {
	return NewAssembler(gen, nil).AssembleAndExport(ctx, cfg)
}

// checkShape verifies the generator honoured its contract and returns the
// number of samples per class.
func checkShape(cfg Config, X *mat.Dense, y []int) ([]int, error) {
	if X == nil {
		return nil, fmt.Errorf("%w: generator returned no feature matrix", ErrShapeMismatch)
	}
	rows, cols := X.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("%w: %d feature rows but %d labels", ErrShapeMismatch, rows, len(y))
	}
	if rows != cfg.Samples {
		return nil, fmt.Errorf("%w: requested %d samples, generator returned %d", ErrShapeMismatch, cfg.Samples, rows)
	}
	if cols != cfg.Features {
		return nil, fmt.Errorf("%w: requested %d features, generator returned %d", ErrShapeMismatch, cfg.Features, cols)
	}

	counts := make([]int, cfg.Classes)
	for i, label := range y {
		if label < 0 || label >= cfg.Classes {
			return nil, fmt.Errorf("%w: row %d has label %d outside [0, %d)", ErrGeneration, i, label, cfg.Classes)
		}
		counts[label]++
	}
	return counts, nil
}
