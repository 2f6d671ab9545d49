package sampler

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"classgen/internal/common"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Classification generates normally distributed clusters of points placed on
// the vertices of a hypercube in the informative subspace, one or more clusters
// per class. Redundant features are random linear combinations of the
// informative ones, repeated features copy earlier columns, and the rest is
// standard normal noise.
type Classification struct {
	Informative      int       // features that carry class signal
	Redundant        int       // linear combinations of informative features
	Repeated         int       // copies of informative or redundant features
	ClustersPerClass int       // gaussian clusters per class
	Weights          []float64 // class proportions, nil for balanced classes
	FlipY            float64   // fraction of labels reassigned at random
	ClassSep         float64   // half the hypercube side
	Hypercube        bool      // false places centroids on a random polytope
	Shift            float64
	Scale            float64
	Shuffle          bool // shuffle both samples and feature columns
}

// NewClassification returns a generator with the default parameters.
func NewClassification() *Classification {
	return &Classification{
		Informative:      common.DefaultInformative,
		Redundant:        common.DefaultRedundant,
		Repeated:         common.DefaultRepeated,
		ClustersPerClass: common.DefaultClustersPerClass,
		FlipY:            common.DefaultFlipY,
		ClassSep:         common.DefaultClassSep,
		Hypercube:        common.DefaultHypercube,
		Shift:            common.DefaultShift,
		Scale:            common.DefaultScale,
		Shuffle:          common.DefaultShuffle,
	}
}

// Generate implements Generator.
func (g *Classification) Generate(ctx context.Context, req Request) (*mat.Dense, []int, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := g.validate(req); err != nil {
		return nil, nil, err
	}
	weights, err := g.classWeights(req.Classes)
	if err != nil {
		return nil, nil, err
	}

	rng := newRand(ResolveSeed(req.Seed))
	n, f, c := req.Samples, req.Features, req.Classes
	inf, red, rep := g.Informative, g.Redundant, g.Repeated
	nClusters := c * g.ClustersPerClass

	perCluster := make([]int, nClusters)
	assigned := 0
	for k := range perCluster {
		perCluster[k] = int(float64(n) * weights[k%c] / float64(g.ClustersPerClass))
		assigned += perCluster[k]
	}
	for i := 0; i < n-assigned; i++ {
		perCluster[i%nClusters]++
	}

	centroids := g.centroids(nClusters, inf, rng)

	X := mat.NewDense(n, f, nil)
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		for j := 0; j < inf; j++ {
			row[j] = rng.NormFloat64()
		}
	}

	y := make([]int, n)
	stop := 0
	for k, centroid := range centroids {
		start := stop
		stop += perCluster[k]
		for i := start; i < stop; i++ {
			y[i] = k % c
		}
		if start == stop {
			continue
		}

		// Random covariance per cluster.
		cluster := X.Slice(start, stop, 0, inf).(*mat.Dense)
		var mixed mat.Dense
		mixed.Mul(cluster, uniformMatrix(inf, inf, rng))
		cluster.Copy(&mixed)
		for i := 0; i < stop-start; i++ {
			floats.Add(cluster.RawRowView(i), centroid)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if red > 0 {
		var combined mat.Dense
		combined.Mul(X.Slice(0, n, 0, inf), uniformMatrix(inf, red, rng))
		X.Slice(0, n, inf, inf+red).(*mat.Dense).Copy(&combined)
	}

	if rep > 0 {
		base := inf + red
		for j := 0; j < rep; j++ {
			src := int(float64(base-1)*rng.Float64() + 0.5)
			X.SetCol(base+j, mat.Col(nil, src, X))
		}
	}

	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		for j := inf + red + rep; j < f; j++ {
			row[j] = rng.NormFloat64()
		}
	}

	if g.FlipY > 0 {
		for i := range y {
			if rng.Float64() < g.FlipY {
				y[i] = rng.IntN(c)
			}
		}
	}

	if g.Shift != 0 || g.Scale != 1 {
		for i := 0; i < n; i++ {
			row := X.RawRowView(i)
			floats.AddConst(g.Shift, row)
			floats.Scale(g.Scale, row)
		}
	}

	if g.Shuffle {
		X, y = shuffle(X, y, rng)
	}

	return X, y, nil
}

func (g *Classification) validate(req Request) error {
	if req.Samples <= 0 {
		return fmt.Errorf("%w: samples must be positive, got %d", ErrInvalidRequest, req.Samples)
	}
	if req.Features <= 0 {
		return fmt.Errorf("%w: features must be positive, got %d", ErrInvalidRequest, req.Features)
	}
	if req.Classes < 2 {
		return fmt.Errorf("%w: at least two classes are required, got %d", ErrInvalidRequest, req.Classes)
	}

	if g.Informative < 1 {
		return fmt.Errorf("%w: at least one informative feature is required, got %d", ErrUnsatisfiable, g.Informative)
	}
	if g.Redundant < 0 || g.Repeated < 0 {
		return fmt.Errorf("%w: redundant and repeated features cannot be negative", ErrUnsatisfiable)
	}
	if used := g.Informative + g.Redundant + g.Repeated; used > req.Features {
		return fmt.Errorf("%w: informative, redundant and repeated features (%d) exceed the number of features (%d)",
			ErrUnsatisfiable, used, req.Features)
	}
	if g.ClustersPerClass < 1 {
		return fmt.Errorf("%w: clusters per class must be positive, got %d", ErrUnsatisfiable, g.ClustersPerClass)
	}
	if g.Informative < 62 {
		if clusters := req.Classes * g.ClustersPerClass; clusters > 1<<g.Informative {
			return fmt.Errorf("%w: %d classes with %d clusters each need more than %d informative features",
				ErrUnsatisfiable, req.Classes, g.ClustersPerClass, g.Informative)
		}
	}
	if g.FlipY < 0 || g.FlipY > 1 {
		return fmt.Errorf("%w: flip fraction must be within [0, 1], got %f", ErrUnsatisfiable, g.FlipY)
	}
	if g.ClassSep < 0 {
		return fmt.Errorf("%w: class separation cannot be negative, got %f", ErrUnsatisfiable, g.ClassSep)
	}
	return nil
}

// classWeights expands Weights to one proportion per class. A list one short
// of the class count gets the remainder as its last entry.
func (g *Classification) classWeights(classes int) ([]float64, error) {
	if len(g.Weights) == 0 {
		w := make([]float64, classes)
		for i := range w {
			w[i] = 1 / float64(classes)
		}
		return w, nil
	}

	for _, w := range g.Weights {
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("%w: class weights cannot be negative", ErrUnsatisfiable)
		}
	}

	switch len(g.Weights) {
	case classes:
		if sum := floats.Sum(g.Weights); sum > 1+1e-9 {
			return nil, fmt.Errorf("%w: class weights sum to %f, more than 1", ErrUnsatisfiable, sum)
		}
		return g.Weights, nil
	case classes - 1:
		sum := floats.Sum(g.Weights)
		if sum > 1 {
			return nil, fmt.Errorf("%w: class weights sum to %f, more than 1", ErrUnsatisfiable, sum)
		}
		return append(append([]float64(nil), g.Weights...), 1-sum), nil
	default:
		return nil, fmt.Errorf("%w: got %d class weights for %d classes", ErrUnsatisfiable, len(g.Weights), classes)
	}
}

func (g *Classification) centroids(n, dims int, rng *rand.Rand) [][]float64 {
	vertices := hypercubeVertices(n, dims, rng)
	for _, v := range vertices {
		for j := range v {
			v[j] = v[j]*2*g.ClassSep - g.ClassSep
		}
	}
	if g.Hypercube {
		return vertices
	}

	for _, v := range vertices {
		floats.Scale(2*rng.Float64(), v)
	}
	colScale := make([]float64, dims)
	for j := range colScale {
		colScale[j] = rng.Float64()
	}
	for _, v := range vertices {
		floats.Mul(v, colScale)
	}
	return vertices
}

// hypercubeVertices picks n distinct vertices of the unit hypercube in dims
// dimensions. n must not exceed 2^dims.
func hypercubeVertices(n, dims int, rng *rand.Rand) [][]float64 {
	out := make([][]float64, 0, n)

	if dims <= 16 {
		for _, code := range rng.Perm(1 << dims)[:n] {
			v := make([]float64, dims)
			for j := range v {
				v[j] = float64((code >> j) & 1)
			}
			out = append(out, v)
		}
		return out
	}

	seen := make(map[string]struct{}, n)
	key := make([]byte, dims)
	for len(out) < n {
		v := make([]float64, dims)
		var bits uint64
		for j := range v {
			if j%64 == 0 {
				bits = rng.Uint64()
			}
			key[j] = byte(bits & 1)
			v[j] = float64(key[j])
			bits >>= 1
		}
		if _, dup := seen[string(key)]; dup {
			continue
		}
		seen[string(key)] = struct{}{}
		out = append(out, v)
	}
	return out
}

// uniformMatrix returns an r×c matrix with entries uniform on [-1, 1).
func uniformMatrix(r, c int, rng *rand.Rand) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = 2*rng.Float64() - 1
	}
	return mat.NewDense(r, c, data)
}

func shuffle(X *mat.Dense, y []int, rng *rand.Rand) (*mat.Dense, []int) {
	n, f := X.Dims()
	rows := rng.Perm(n)
	cols := rng.Perm(f)

	out := mat.NewDense(n, f, nil)
	labels := make([]int, n)
	for i, src := range rows {
		from := X.RawRowView(src)
		to := out.RawRowView(i)
		for j, col := range cols {
			to[j] = from[col]
		}
		labels[i] = y[src]
	}
	return out, labels
}
