package dataset

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors. Callers branch with errors.Is; returned errors wrap these
// with call context.
var (
	// ErrInvalidConfig is returned before any work is done when the requested
	// shape or output path is unusable.
	ErrInvalidConfig = errors.New("dataset: invalid configuration")

	// ErrGeneration wraps any failure reported by the sample generator, and
	// generator output that breaks its contract (labels outside [0, classes)).
	ErrGeneration = errors.New("dataset: sample generation failed")

	// ErrShapeMismatch signals that feature rows, labels, or file records
	// disagree in count. Data is never truncated or padded to fit.
	ErrShapeMismatch = errors.New("dataset: shape mismatch")

	// ErrParse is returned when a dataset file holds a non-numeric field or a
	// non-integral label.
	ErrParse = errors.New("dataset: parse error")
)

// IOError reports a failed file system operation. The underlying OS error is
// preserved, so errors.Is(err, fs.ErrPermission) and friends work.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("dataset: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Failure kinds used for metrics labels.
const (
	KindInvalidConfig = "invalid_config"
	KindGeneration    = "generation"
	KindShape         = "shape"
	KindIO            = "io"
	KindCanceled      = "canceled"
	KindOther         = "other"
)

// FailureKind classifies err into one of the Kind constants.
func FailureKind(err error) string {
	var ioErr *IOError
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return KindInvalidConfig
	case errors.Is(err, ErrShapeMismatch):
		return KindShape
	case errors.Is(err, ErrGeneration):
		return KindGeneration
	case errors.As(err, &ioErr):
		return KindIO
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindOther
	}
}
