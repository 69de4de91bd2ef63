package ukf

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Noise allows to handle the noise for the UKF.
type Noise interface {
	ProcessMatrix() mat.Symmetric                 // Returns the process noise matrix Q of the augmented dimensions
	MeasurementMatrix(k SensorKind) mat.Symmetric // Returns the measurement noise matrix R of a sensor
	String() string                               // Stringer interface implementation
}

// SensorNoise implements the Noise interface from the standard deviations of a Config.
type SensorNoise struct {
	Q, RLidar, RRadar *mat.SymDense
}

// NewSensorNoise creates the diagonal noise matrices from the provided configuration.
func NewSensorNoise(cfg Config) *SensorNoise {
	diag := func(stddevs ...float64) *mat.SymDense {
		m := mat.NewSymDense(len(stddevs), nil)
		for i, σ := range stddevs {
			m.SetSym(i, i, σ*σ)
		}
		return m
	}
	return &SensorNoise{
		Q:      diag(cfg.StdA, cfg.StdYawdd),
		RLidar: diag(cfg.StdLasPx, cfg.StdLasPy),
		RRadar: diag(cfg.StdRadR, cfg.StdRadPhi, cfg.StdRadRd),
	}
}

// ProcessMatrix implements the Noise interface.
func (n SensorNoise) ProcessMatrix() mat.Symmetric {
	return n.Q
}

// MeasurementMatrix implements the Noise interface. Returns nil for an unknown sensor.
func (n SensorNoise) MeasurementMatrix(k SensorKind) mat.Symmetric {
	switch k {
	case Lidar:
		return n.RLidar
	case Radar:
		return n.RRadar
	}
	return nil
}

// String implements the Stringer interface.
func (n SensorNoise) String() string {
	return fmt.Sprintf("SensorNoise{\nQ=%v\nRlidar=%v\nRradar=%v}\n",
		mat.Formatted(n.Q, mat.Prefix("  ")), mat.Formatted(n.RLidar, mat.Prefix("  ")), mat.Formatted(n.RRadar, mat.Prefix("  ")))
}

// AWGN generates additive white Gaussian noise samples matching a Noise.
// It is used to synthesize measurements from a known trajectory.
type AWGN struct {
	process *distmv.Normal
	sensors map[SensorKind]*distmv.Normal
}

// NewAWGN creates a new AWGN generator. All the noise matrices must be positive definite.
func NewAWGN(n Noise, src rand.Source) (*AWGN, error) {
	if src == nil {
		return nil, errors.New("a random source is required")
	}
	normal := func(name string, cov mat.Symmetric) (*distmv.Normal, error) {
		if cov == nil {
			return nil, fmt.Errorf("%s noise matrix is missing", name)
		}
		dist, ok := distmv.NewNormal(make([]float64, cov.SymmetricDim()), cov, src)
		if !ok {
			return nil, fmt.Errorf("%s noise: %w", name, ErrNotPositiveDefinite)
		}
		return dist, nil
	}
	process, err := normal("process", n.ProcessMatrix())
	if err != nil {
		return nil, err
	}
	awgn := &AWGN{process: process, sensors: make(map[SensorKind]*distmv.Normal)}
	for _, k := range []SensorKind{Lidar, Radar} {
		dist, err := normal(k.String(), n.MeasurementMatrix(k))
		if err != nil {
			return nil, err
		}
		awgn.sensors[k] = dist
	}
	return awgn, nil
}

// Process returns a sample of the (longitudinal, yaw) acceleration noise.
func (a *AWGN) Process() []float64 {
	return a.process.Rand(nil)
}

// Measurement returns a noise sample sized for the sensor.
func (a *AWGN) Measurement(k SensorKind) []float64 {
	dist, ok := a.sensors[k]
	if !ok {
		panic(fmt.Errorf("no measurement noise defined for %s", k))
	}
	return dist.Rand(nil)
}
