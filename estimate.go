package ukf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// UKFEstimate is the output of each Process call of the UKF.
// It implements the Estimate interface.
type UKFEstimate struct {
	state, predState, zPred, innov *mat.VecDense
	covar, predCovar, innovCovar   *mat.SymDense
	gain                           *mat.Dense
	nis                            float64
	sensor                         SensorKind
	timestamp                      int64
	initialized, corrected         bool
}

// IsWithinNσ returns whether every innovation component is within N standard
// deviations of the innovation covariance. Always true when no correction happened.
func (e UKFEstimate) IsWithinNσ(N float64) bool {
	if !e.corrected {
		return true
	}
	for i := 0; i < e.innov.Len(); i++ {
		nσ := N * math.Sqrt(e.innovCovar.At(i, i))
		if e.innov.AtVec(i) > nσ || e.innov.AtVec(i) < -nσ {
			return false
		}
	}
	return true
}

// IsWithin2σ returns whether the innovation is within the 2σ bounds.
func (e UKFEstimate) IsWithin2σ() bool {
	return e.IsWithinNσ(2)
}

// State implements the Estimate interface.
func (e UKFEstimate) State() *mat.VecDense {
	return e.state
}

// Covariance implements the Estimate interface.
func (e UKFEstimate) Covariance() mat.Symmetric {
	return e.covar
}

// PredState implements the Estimate interface.
func (e UKFEstimate) PredState() *mat.VecDense {
	return e.predState
}

// PredCovariance implements the Estimate interface.
func (e UKFEstimate) PredCovariance() mat.Symmetric {
	return e.predCovar
}

// Measurement implements the Estimate interface.
func (e UKFEstimate) Measurement() *mat.VecDense {
	return e.zPred
}

// Innovation implements the Estimate interface.
func (e UKFEstimate) Innovation() *mat.VecDense {
	return e.innov
}

// InnovationCovariance implements the Estimate interface.
func (e UKFEstimate) InnovationCovariance() mat.Symmetric {
	return e.innovCovar
}

// Gain returns the Kalman gain, nil if no correction happened.
func (e UKFEstimate) Gain() mat.Matrix {
	if e.gain == nil {
		return nil
	}
	return e.gain
}

// NIS implements the Estimate interface.
func (e UKFEstimate) NIS() float64 {
	return e.nis
}

// Sensor implements the Estimate interface.
func (e UKFEstimate) Sensor() SensorKind {
	return e.sensor
}

// Timestamp implements the Estimate interface.
func (e UKFEstimate) Timestamp() int64 {
	return e.timestamp
}

// Corrected implements the Estimate interface.
func (e UKFEstimate) Corrected() bool {
	return e.corrected
}

// Initialized returns whether this estimate is the one bootstrapped from the first measurement.
func (e UKFEstimate) Initialized() bool {
	return e.initialized
}

func (e UKFEstimate) String() string {
	state := mat.Formatted(e.State(), mat.Prefix("  "))
	covar := mat.Formatted(e.Covariance(), mat.Prefix("  "))
	if !e.corrected {
		return fmt.Sprintf("{\nt=%d (%s)\ns=%v\nP=%v\n}", e.timestamp, e.sensor, state, covar)
	}
	meas := mat.Formatted(e.Measurement(), mat.Prefix("  "))
	gain := mat.Formatted(e.gain, mat.Prefix("  "))
	innov := mat.Formatted(e.Innovation(), mat.Prefix("  "))
	predp := mat.Formatted(e.PredCovariance(), mat.Prefix("   "))
	return fmt.Sprintf("{\nt=%d (%s) nis=%f\ns=%v\nz=%v\nP=%v\nK=%v\nP-=%v\ni=%v\n}", e.timestamp, e.sensor, e.nis, state, meas, covar, gain, predp, innov)
}
