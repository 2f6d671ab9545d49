package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"classgen/internal/common"

	"gonum.org/v1/gonum/mat"
)

// Combine appends y as the rightmost column of X. The result is a new matrix;
// X is not modified.
func Combine(X *mat.Dense, y []int) (*mat.Dense, error) {
	if X == nil || X.IsEmpty() {
		return nil, fmt.Errorf("%w: empty feature matrix", ErrShapeMismatch)
	}
	rows, _ := X.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("%w: %d feature rows but %d labels", ErrShapeMismatch, rows, len(y))
	}

	labels := make([]float64, len(y))
	for i, v := range y {
		labels[i] = float64(v)
	}

	var combined mat.Dense
	combined.Augment(X, mat.NewDense(rows, 1, labels))
	return &combined, nil
}

// Split separates a combined matrix into its features and its integer label
// column, the inverse of Combine.
func Split(m *mat.Dense) (*mat.Dense, []int, error) {
	if m == nil || m.IsEmpty() {
		return nil, nil, fmt.Errorf("%w: empty dataset", ErrShapeMismatch)
	}
	rows, cols := m.Dims()
	if cols < 2 {
		return nil, nil, fmt.Errorf("%w: need at least one feature column and a label column, got %d columns",
			ErrShapeMismatch, cols)
	}

	y := make([]int, rows)
	for i := range y {
		v := m.At(i, cols-1)
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, nil, fmt.Errorf("%w: row %d: label %v is not an integer", ErrParse, i+1, v)
		}
		y[i] = int(v)
	}

	X := mat.DenseCopyOf(m.Slice(0, rows, 0, cols-1))
	return X, y, nil
}

// Write serializes m as comma-separated text, one row per line, no header.
// Values use the shortest representation that parses back to the same float64.
func Write(w io.Writer, m mat.Matrix) error {
	rows, cols := m.Dims()

	writer := csv.NewWriter(w)
	writer.Comma = common.FieldDelimiter

	record := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			record[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes m to path. The data goes to a temporary file in the same
// directory which is renamed over path once complete, so path holds either the
// previous content or the full new content.
func WriteFile(path string, m mat.Matrix) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if werr := Write(tmp, m); werr != nil {
		return &IOError{Op: "write", Path: path, Err: werr}
	}
	if serr := tmp.Sync(); serr != nil {
		return &IOError{Op: "sync", Path: path, Err: serr}
	}
	if cerr := tmp.Close(); cerr != nil {
		return &IOError{Op: "close", Path: path, Err: cerr}
	}
	mode := fs.FileMode(0o644)
	if info, serr := os.Stat(path); serr == nil {
		mode = info.Mode().Perm()
	}
	if cerr := os.Chmod(tmpPath, mode); cerr != nil {
		return &IOError{Op: "chmod", Path: path, Err: cerr}
	}
	if rerr := os.Rename(tmpPath, path); rerr != nil {
		return &IOError{Op: "rename", Path: path, Err: rerr}
	}
	return nil
}

// Read parses comma-separated numeric text into a matrix. Every record must
// have the same number of fields.
func Read(r io.Reader) (*mat.Dense, error) {
	reader := csv.NewReader(r)
	reader.Comma = common.FieldDelimiter
	reader.ReuseRecord = true

	var (
		data []float64
		rows int
		cols int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}

		cols = len(record)
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d field %d: %v", ErrParse, rows+1, j+1, err)
			}
			data = append(data, v)
		}
		rows++
	}

	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: no records", ErrParse)
	}
	return mat.NewDense(rows, cols, data), nil
}

// Load reads the dataset file at path.
func Load(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	return Read(f)
}
