// Package logreg trains a binary logistic regression on a generated dataset.
//
// Training is plain per-sample stochastic gradient descent with a separate
// bias term. Rows are visited in file order, so a run is fully determined by
// the data, the epoch count and the learning rate.
package logreg

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultEpochs       = 2000
	DefaultLearningRate = 0.01

	// probabilities are clamped to [eps, 1-eps] before taking logs
	eps = 1e-15
)

var (
	ErrEmptyData    = errors.New("logreg: empty dataset")
	ErrShape        = errors.New("logreg: feature rows and labels differ in length")
	ErrLabel        = errors.New("logreg: labels must be 0 or 1")
	ErrHyperparams  = errors.New("logreg: epochs and learning rate must be positive")
	ErrFeatureCount = errors.New("logreg: feature count does not match model")
)

// Options controls training.
type Options struct {
	Epochs       int
	LearningRate float64
}

// DefaultOptions returns 2000 epochs at lr 0.01.
func DefaultOptions() Options {
	return Options{Epochs: DefaultEpochs, LearningRate: DefaultLearningRate}
}

// Model is a fitted linear decision function passed through a sigmoid.
type Model struct {
	Weights []float64
	Bias    float64
}

// Train fits a model on X (one row per sample) and binary labels y. It returns
// the mean log loss of every epoch alongside the model.
func Train(ctx context.Context, X mat.Matrix, y []int, opts Options) (*Model, []float64, error) {
	if opts.Epochs <= 0 || opts.LearningRate <= 0 || math.IsNaN(opts.LearningRate) {
		return nil, nil, fmt.Errorf("%w: epochs=%d lr=%g", ErrHyperparams, opts.Epochs, opts.LearningRate)
	}
	if X == nil {
		return nil, nil, ErrEmptyData
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, nil, ErrEmptyData
	}
	if rows != len(y) {
		return nil, nil, fmt.Errorf("%w: %d rows, %d labels", ErrShape, rows, len(y))
	}
	targets := make([]float64, rows)
	for i, label := range y {
		if label != 0 && label != 1 {
			return nil, nil, fmt.Errorf("%w: row %d has label %d", ErrLabel, i, label)
		}
		targets[i] = float64(label)
	}

	data := mat.DenseCopyOf(X)
	m := &Model{Weights: make([]float64, cols)}
	losses := make([]float64, 0, opts.Epochs)

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return m, losses, err
		}

		total := 0.0
		for i := 0; i < rows; i++ {
			row := data.RawRowView(i)
			p := sigmoid(floats.Dot(m.Weights, row) + m.Bias)
			g := p - targets[i]
			floats.AddScaled(m.Weights, -opts.LearningRate*g, row)
			m.Bias -= opts.LearningRate * g
			total += logLoss(targets[i], p)
		}
		losses = append(losses, total/float64(rows))
	}

	return m, losses, nil
}

// PredictProba returns P(y=1) for every row of X.
func (m *Model) PredictProba(X mat.Matrix) ([]float64, error) {
	rows, cols := X.Dims()
	if cols != len(m.Weights) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, cols, len(m.Weights))
	}
	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := range out {
		mat.Row(row, i, X)
		out[i] = sigmoid(floats.Dot(m.Weights, row) + m.Bias)
	}
	return out, nil
}

// Predict returns class labels using a 0.5 threshold.
func (m *Model) Predict(X mat.Matrix) ([]int, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

// Accuracy is the fraction of rows whose predicted label equals y.
func (m *Model) Accuracy(X mat.Matrix, y []int) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(pred) != len(y) {
		return 0, fmt.Errorf("%w: %d rows, %d labels", ErrShape, len(pred), len(y))
	}
	if len(y) == 0 {
		return 0, ErrEmptyData
	}
	correct := 0
	for i := range pred {
		if pred[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y)), nil
}

// LogLoss is the mean binary cross-entropy of the model over X and y.
func (m *Model) LogLoss(X mat.Matrix, y []int) (float64, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return 0, err
	}
	if len(proba) != len(y) {
		return 0, fmt.Errorf("%w: %d rows, %d labels", ErrShape, len(proba), len(y))
	}
	if len(y) == 0 {
		return 0, ErrEmptyData
	}
	total := 0.0
	for i, p := range proba {
		total += logLoss(float64(y[i]), p)
	}
	return total / float64(len(y)), nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func logLoss(y, p float64) float64 {
	p = math.Min(math.Max(p, eps), 1-eps)
	return -y*math.Log(p) - (1-y)*math.Log(1-p)
}
