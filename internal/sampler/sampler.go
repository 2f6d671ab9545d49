// Package sampler produces synthetic classification samples.
//
// A Generator returns a feature matrix and an index-aligned label vector for a
// requested shape. Classification is the default implementation; tests and
// callers can substitute any other Generator, including a plain function via Func.
package sampler

import (
	"context"
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidRequest is returned when the requested shape cannot be generated
	// at all (non-positive sizes, fewer than two classes).
	ErrInvalidRequest = errors.New("sampler: invalid request")

	// ErrUnsatisfiable is returned when the generator parameters cannot produce
	// the requested classes with the requested number of features.
	ErrUnsatisfiable = errors.New("sampler: unsatisfiable parameters")
)

// Request describes one dataset to generate.
type Request struct {
	Samples  int
	Features int
	Classes  int
	// Seed makes the output reproducible. A nil seed draws a fresh one.
	Seed *uint64
}

// Generator produces a Samples×Features matrix and Samples labels in [0, Classes).
type Generator interface {
	Generate(ctx context.Context, req Request) (*mat.Dense, []int, error)
}

// Func adapts an ordinary function to the Generator interface.
type Func func(ctx context.Context, req Request) (*mat.Dense, []int, error)

// Generate calls f(ctx, req).
func (f Func) Generate(ctx context.Context, req Request) (*mat.Dense, []int, error) {
	return f(ctx, req)
}

// ResolveSeed returns the requested seed, or a freshly drawn one when none was given.
func ResolveSeed(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return rand.Uint64()
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
