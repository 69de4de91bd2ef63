package ukf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	// NX is the size of the CTRV state (px, py, v, yaw, yawd).
	NX = 5
	// NAug is the size of the state augmented with the two process noise terms.
	NAug = NX + 2
	// NSigma is the number of sigma points.
	NSigma = 2*NAug + 1
	// Lambda is the sigma point spreading parameter.
	Lambda = 3 - NAug
)

// Indexes in the state vector.
const (
	iPx = iota
	iPy
	iV
	iYaw
	iYawd
)

// SensorKind allows for quick comparison of sensors.
type SensorKind uint8

const (
	// Lidar reports a position only (px, py).
	Lidar SensorKind = iota + 1
	// Radar reports range, bearing and range rate (rho, phi, rho_dot).
	Radar
)

// Dim returns the size of a raw measurement from this sensor, or 0 if unknown.
func (k SensorKind) Dim() int {
	switch k {
	case Lidar:
		return 2
	case Radar:
		return 3
	}
	return 0
}

func (k SensorKind) String() string {
	switch k {
	case Lidar:
		return "lidar"
	case Radar:
		return "radar"
	}
	return fmt.Sprintf("SensorKind(%d)", uint8(k))
}

// ParseSensorKind converts a sensor log tag ("L" or "R") into a SensorKind.
func ParseSensorKind(tag string) (SensorKind, error) {
	switch tag {
	case "L", "l", "lidar":
		return Lidar, nil
	case "R", "r", "radar":
		return Radar, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSensor, tag)
}

// Measurement is a single sensor report.
type Measurement struct {
	Kind      SensorKind
	Timestamp int64     // microseconds
	Raw       []float64 // sized per Kind.Dim()
}

// Vector returns the raw measurement as a vector.
func (m Measurement) Vector() *mat.VecDense {
	raw := make([]float64, len(m.Raw))
	copy(raw, m.Raw)
	return mat.NewVecDense(len(raw), raw)
}

// Estimate is returned from Process() for every measurement.
type Estimate interface {
	IsWithinNσ(N float64) bool     // IsWithinNσ returns whether the innovation is within the N*σ bounds.
	State() *mat.VecDense          // Returns \hat{x}_{k+1}^{+}
	Covariance() mat.Symmetric     // Return P_{k+1}^{+}
	PredState() *mat.VecDense      // Returns \hat{x}_{k+1}^{-}
	PredCovariance() mat.Symmetric // Return P_{k+1}^{-}
	Measurement() *mat.VecDense    // Returns the predicted measurement \hat{z}_{k+1}
	Innovation() *mat.VecDense     // Returns z_{k+1} - \hat{z}_{k+1}
	InnovationCovariance() mat.Symmetric
	NIS() float64 // Normalized innovation squared, 0 when no correction happened
	Sensor() SensorKind
	Timestamp() int64
	Corrected() bool // Whether a measurement correction was applied
	String() string  // Must implement the stringer interface.
}
