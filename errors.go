package ukf

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotPositiveDefinite is returned when a covariance cannot be Cholesky factorized.
	ErrNotPositiveDefinite = errors.New("ukf: covariance is not positive definite")
	// ErrDegenerateGeometry is returned when a sigma point is too close to the radar.
	ErrDegenerateGeometry = errors.New("ukf: degenerate radar geometry")
	// ErrSingularInnovation is returned when the innovation covariance cannot be inverted reliably.
	ErrSingularInnovation = errors.New("ukf: innovation covariance is singular")
	// ErrNonFinite is returned when a NaN or Inf shows up in an input or a result.
	ErrNonFinite = errors.New("ukf: non-finite value")
	// ErrMeasurementSize is returned when a raw measurement does not match its sensor.
	ErrMeasurementSize = errors.New("ukf: measurement size does not match sensor")
	// ErrUnknownSensor is returned for an unsupported sensor kind.
	ErrUnknownSensor = errors.New("ukf: unknown sensor kind")
	// ErrOutOfOrder is returned when a measurement is older than the last processed one.
	ErrOutOfOrder = errors.New("ukf: measurement timestamp is out of order")
	// ErrNotInitialized is returned when an operation needs a belief and none was set yet.
	ErrNotInitialized = errors.New("ukf: filter is not initialized")
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("ukf: invalid configuration")
)

// DimensionAgreement defines how two matrices' dimensions should agree.
type DimensionAgreement uint8

const (
	dimErrMsg                    = "dimensions must agree: "
	rows2cols DimensionAgreement = iota + 1
	cols2rows
	cols2cols
	rows2rows
	rowsAndcols
)

// checkMatDims checks the matrix dimensions match provided a DimensionAgreement. Returns an error if not.
func checkMatDims(m1, m2 mat.Matrix, name1, name2 string, method DimensionAgreement) error {
	r1, c1 := m1.Dims()
	r2, c2 := m2.Dims()
	switch method {
	case rows2cols:
		if r1 != c2 {
			return fmt.Errorf("%s%s(%dx...) %s(...x%d)", dimErrMsg, name1, r1, name2, c2)
		}
	case cols2rows:
		if c1 != r2 {
			return fmt.Errorf("%s%s(...x%d) %s(%dx...)", dimErrMsg, name1, c1, name2, r2)
		}
	case cols2cols:
		if c1 != c2 {
			return fmt.Errorf("%s%s(...x%d) %s(...x%d)", dimErrMsg, name1, c1, name2, c2)
		}
	case rows2rows:
		if r1 != r2 {
			return fmt.Errorf("%s%s(%dx...) %s(%dx...)", dimErrMsg, name1, r1, name2, r2)
		}
	case rowsAndcols:
		if c1 != c2 || r1 != r2 {
			return fmt.Errorf("%s%s(%dx%d) %s(%dx%d)", dimErrMsg, name1, r1, c1, name2, r2, c2)
		}
	}
	return nil
}

// checkMeasurement rejects a measurement that cannot be fused before any state is touched.
func checkMeasurement(m Measurement) error {
	dim := m.Kind.Dim()
	if dim == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSensor, m.Kind)
	}
	if len(m.Raw) != dim {
		return fmt.Errorf("%w: %s expects %d values, got %d", ErrMeasurementSize, m.Kind, dim, len(m.Raw))
	}
	if !isFiniteSlice(m.Raw) {
		return fmt.Errorf("%w: %s measurement %v", ErrNonFinite, m.Kind, m.Raw)
	}
	return nil
}
