package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"classgen/internal/sampler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	datasets    int
	failures    map[string]int
	rows        int
	durations   []float64
	lastSuccess time.Time
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{failures: make(map[string]int)}
}

func (m *MockMetrics) DatasetsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets++
}

func (m *MockMetrics) FailuresInc(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[kind]++
}

func (m *MockMetrics) RowsWrittenAdd(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows += n
}

func (m *MockMetrics) ExportDurationObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, v)
}

func (m *MockMetrics) LastSuccessSet(ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSuccess = ts
}

// stubGenerator returns fixed data regardless of the request.
func stubGenerator(X *mat.Dense, y []int) sampler.Generator {
	return sampler.Func(func(ctx context.Context, req sampler.Request) (*mat.Dense, []int, error) {
		return X, y, nil
	})
}

func failingGenerator(err error) sampler.Generator {
	return sampler.Func(func(ctx context.Context, req sampler.Request) (*mat.Dense, []int, error) {
		return nil, nil, err
	})
}

func TestAssembleAndExport_ConcreteScenario(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{
		0.1, 0.2,
		1.1, 1.2,
		2.1, 2.2,
		3.1, 3.2,
		4.1, 4.2,
	})
	y := []int{0, 1, 0, 1, 0}
	path := filepath.Join(t.TempDir(), "data.txt")

	res, err := AssembleAndExport(context.Background(), Config{
		Samples:    5,
		Features:   2,
		Classes:    2,
		OutputPath: path,
	}, stubGenerator(X, y))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0.1,0.2,0\n1.1,1.2,1\n2.1,2.2,0\n3.1,3.2,1\n4.1,4.2,0\n", string(content))

	assert.Equal(t, path, res.Path)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 3, res.Cols)
	assert.Equal(t, []int{3, 2}, res.ClassCounts)
}

func TestAssembleAndExport_Properties(t *testing.T) {
	configs := []struct {
		samples, features, classes int
	}{
		{1, 6, 2},
		{10, 6, 2},
		{1000, 10, 2},
		{250, 8, 4},
		{300, 20, 3},
	}

	for _, c := range configs {
		t.Run(fmt.Sprintf("N=%d,F=%d,C=%d", c.samples, c.features, c.classes), func(t *testing.T) {
			var gotX *mat.Dense
			var gotY []int
			inner := sampler.NewClassification()
			inner.Informative = 4
			gen := sampler.Func(func(ctx context.Context, req sampler.Request) (*mat.Dense, []int, error) {
				X, y, err := inner.Generate(ctx, req)
				gotX, gotY = X, y
				return X, y, err
			})

			path := filepath.Join(t.TempDir(), "data.txt")
			seed := uint64(c.samples)
			_, err := AssembleAndExport(context.Background(), Config{
				Samples:    c.samples,
				Features:   c.features,
				Classes:    c.classes,
				OutputPath: path,
				Seed:       &seed,
			}, gen)
			require.NoError(t, err)

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
			require.Len(t, lines, c.samples)
			for i, line := range lines {
				require.Len(t, strings.Split(line, ","), c.features+1, "line %d", i+1)
			}

			loaded, err := Load(path)
			require.NoError(t, err)
			X, y, err := Split(loaded)
			require.NoError(t, err)
			assert.Equal(t, gotY, y, "labels must round-trip exactly")
			assert.True(t, mat.Equal(gotX, X), "features must round-trip")
			for _, label := range y {
				assert.True(t, label >= 0 && label < c.classes, "label %d outside [0, %d)", label, c.classes)
			}
		})
	}
}

func TestAssembleAndExport_ShapeIsStableAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	cfg := Config{Samples: 100, Features: 10, Classes: 2, OutputPath: path}

	var shapes [][2]int
	for i := 0; i < 3; i++ {
		_, err := AssembleAndExport(context.Background(), cfg, sampler.NewClassification())
		require.NoError(t, err)

		m, err := Load(path)
		require.NoError(t, err)
		r, c := m.Dims()
		shapes = append(shapes, [2]int{r, c})
	}

	for _, s := range shapes {
		assert.Equal(t, [2]int{100, 11}, s)
	}
}

func TestAssembleAndExport_SeedRecorded(t *testing.T) {
	dir := t.TempDir()
	first, err := AssembleAndExport(context.Background(), Config{
		Samples: 50, Features: 5, Classes: 2, OutputPath: filepath.Join(dir, "a.txt"),
	}, sampler.NewClassification())
	require.NoError(t, err)

	// Replaying the recorded seed gives the same file.
	seed := first.Seed
	_, err = AssembleAndExport(context.Background(), Config{
		Samples: 50, Features: 5, Classes: 2, OutputPath: filepath.Join(dir, "b.txt"), Seed: &seed,
	}, sampler.NewClassification())
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAssembleAndExport_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	gen := sampler.NewClassification()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero features", Config{Samples: 10, Features: 0, Classes: 2, OutputPath: filepath.Join(dir, "f.txt")}},
		{"zero samples", Config{Samples: 0, Features: 10, Classes: 2, OutputPath: filepath.Join(dir, "n.txt")}},
		{"one class", Config{Samples: 10, Features: 10, Classes: 1, OutputPath: filepath.Join(dir, "c.txt")}},
		{"empty path", Config{Samples: 10, Features: 10, Classes: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssembleAndExport(context.Background(), tt.cfg, gen)
			require.ErrorIs(t, err, ErrInvalidConfig)

			if tt.cfg.OutputPath != "" {
				_, statErr := os.Stat(tt.cfg.OutputPath)
				assert.True(t, os.IsNotExist(statErr), "no file should be written")
			}
		})
	}
}

func TestAssembleAndExport_NilGenerator(t *testing.T) {
	_, err := AssembleAndExport(context.Background(), Config{
		Samples: 1, Features: 1, Classes: 2, OutputPath: filepath.Join(t.TempDir(), "x.txt"),
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAssembleAndExport_GenerationError(t *testing.T) {
	cause := errors.New("cannot separate classes")
	_, err := AssembleAndExport(context.Background(), Config{
		Samples: 10, Features: 10, Classes: 2, OutputPath: filepath.Join(t.TempDir(), "x.txt"),
	}, failingGenerator(cause))

	require.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, cause, "cause must be preserved")
}

func TestAssembleAndExport_UnsatisfiableGenerator(t *testing.T) {
	_, err := AssembleAndExport(context.Background(), Config{
		Samples: 10, Features: 2, Classes: 2, OutputPath: filepath.Join(t.TempDir(), "x.txt"),
	}, sampler.NewClassification())

	require.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, sampler.ErrUnsatisfiable)
}

func TestAssembleAndExport_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		X    *mat.Dense
		y    []int
	}{
		{"fewer labels than rows", mat.NewDense(3, 2, nil), []int{0, 1}},
		{"more labels than rows", mat.NewDense(3, 2, nil), []int{0, 1, 0, 1}},
		{"wrong sample count", mat.NewDense(2, 2, nil), []int{0, 1}},
		{"wrong feature count", mat.NewDense(3, 4, nil), []int{0, 1, 0}},
		{"nil matrix", nil, []int{0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.txt")
			_, err := AssembleAndExport(context.Background(), Config{
				Samples: 3, Features: 2, Classes: 2, OutputPath: path,
			}, stubGenerator(tt.X, tt.y))
			require.ErrorIs(t, err, ErrShapeMismatch)

			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr), "no file should be written")
		})
	}
}

func TestAssembleAndExport_LabelOutOfRange(t *testing.T) {
	_, err := AssembleAndExport(context.Background(), Config{
		Samples: 2, Features: 1, Classes: 2, OutputPath: filepath.Join(t.TempDir(), "x.txt"),
	}, stubGenerator(mat.NewDense(2, 1, []float64{1, 2}), []int{0, 2}))
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestAssembleAndExport_PreviousFileKeptOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0o644))

	_, err := AssembleAndExport(context.Background(), Config{
		Samples: 3, Features: 2, Classes: 2, OutputPath: path,
	}, stubGenerator(mat.NewDense(3, 2, nil), []int{0}))
	require.Error(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous\n", string(content))
}

func TestAssembleAndExport_OverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0o644))

	_, err := AssembleAndExport(context.Background(), Config{
		Samples: 2, Features: 1, Classes: 2, OutputPath: path,
	}, stubGenerator(mat.NewDense(2, 1, []float64{0.5, 1.5}), []int{1, 0}))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0.5,1\n1.5,0\n", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestAssembleAndExport_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "data.txt")

	_, err := AssembleAndExport(context.Background(), Config{
		Samples: 2, Features: 1, Classes: 2, OutputPath: path,
	}, stubGenerator(mat.NewDense(2, 1, []float64{1, 2}), []int{0, 1}))
	require.Error(t, err)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "expected IOError, got %T", err)
	assert.Equal(t, path, ioErr.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist, "OS error must be preserved")
}

func TestAssembleAndExport_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "data.txt")
	_, err := AssembleAndExport(ctx, Config{
		Samples: 10, Features: 10, Classes: 2, OutputPath: path,
	}, sampler.NewClassification())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindCanceled, FailureKind(err))
}

func TestAssembler_Metrics(t *testing.T) {
	m := NewMockMetrics()
	dir := t.TempDir()
	a := NewAssembler(stubGenerator(mat.NewDense(2, 1, []float64{1, 2}), []int{0, 1}), m)

	_, err := a.AssembleAndExport(context.Background(), Config{
		Samples: 2, Features: 1, Classes: 2, OutputPath: filepath.Join(dir, "ok.txt"),
	})
	require.NoError(t, err)

	_, err = a.AssembleAndExport(context.Background(), Config{
		Samples: 2, Features: 0, Classes: 2, OutputPath: filepath.Join(dir, "bad.txt"),
	})
	require.Error(t, err)

	_, err = a.AssembleAndExport(context.Background(), Config{
		Samples: 2, Features: 1, Classes: 2, OutputPath: filepath.Join(dir, "missing", "x.txt"),
	})
	require.Error(t, err)

	assert.Equal(t, 1, m.datasets)
	assert.Equal(t, 2, m.rows)
	assert.Equal(t, 1, m.failures[KindInvalidConfig])
	assert.Equal(t, 1, m.failures[KindIO])
	assert.Len(t, m.durations, 3)
	assert.False(t, m.lastSuccess.IsZero())
}

func TestFailureKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", ErrInvalidConfig), KindInvalidConfig},
		{fmt.Errorf("x: %w", ErrGeneration), KindGeneration},
		{fmt.Errorf("x: %w", ErrShapeMismatch), KindShape},
		{&IOError{Op: "rename", Path: "p", Err: fs.ErrPermission}, KindIO},
		{context.DeadlineExceeded, KindCanceled},
		{errors.New("boom"), KindOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FailureKind(tt.err), "%v", tt.err)
	}
}
