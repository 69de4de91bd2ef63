package ukf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MeasurementModel maps predicted state sigma points into a sensor's measurement space.
type MeasurementModel interface {
	Kind() SensorKind
	Dim() int
	// Project returns the Dim() x NSigma sigma points in measurement space.
	Project(XsigPred *mat.Dense) (*mat.Dense, error)
	// AngleIndex returns the measurement component holding an angle, or -1.
	AngleIndex() int
}

// LidarModel observes the position (px, py) directly.
type LidarModel struct{}

// Kind implements the MeasurementModel interface.
func (LidarModel) Kind() SensorKind { return Lidar }

// Dim implements the MeasurementModel interface.
func (LidarModel) Dim() int { return 2 }

// AngleIndex implements the MeasurementModel interface.
func (LidarModel) AngleIndex() int { return -1 }

// Project implements the MeasurementModel interface.
func (LidarModel) Project(XsigPred *mat.Dense) (*mat.Dense, error) {
	_, cols := XsigPred.Dims()
	return mat.DenseCopyOf(XsigPred.Slice(iPx, iPy+1, 0, cols)), nil
}

// RadarModel observes range, bearing and range rate from the origin.
type RadarModel struct {
	// MinRange is the range under which the range rate is considered undefined.
	MinRange float64
}

// Kind implements the MeasurementModel interface.
func (RadarModel) Kind() SensorKind { return Radar }

// Dim implements the MeasurementModel interface.
func (RadarModel) Dim() int { return 3 }

// AngleIndex implements the MeasurementModel interface.
func (RadarModel) AngleIndex() int { return 1 }

// Project implements the MeasurementModel interface. Returns ErrDegenerateGeometry
// if any sigma point lies within MinRange of the sensor.
func (m RadarModel) Project(XsigPred *mat.Dense) (*mat.Dense, error) {
	_, cols := XsigPred.Dims()
	Zsig := mat.NewDense(3, cols, nil)
	for c := 0; c < cols; c++ {
		px, py := XsigPred.At(iPx, c), XsigPred.At(iPy, c)
		v, yaw := XsigPred.At(iV, c), XsigPred.At(iYaw, c)
		ρ := math.Hypot(px, py)
		if !(ρ >= m.MinRange) {
			return nil, fmt.Errorf("%w: sigma point %d at range %g (min %g)", ErrDegenerateGeometry, c, ρ, m.MinRange)
		}
		Zsig.Set(0, c, ρ)
		Zsig.Set(1, c, math.Atan2(py, px))
		Zsig.Set(2, c, (px*v*math.Cos(yaw)+py*v*math.Sin(yaw))/ρ)
	}
	return Zsig, nil
}

// Correction is the result of fusing one measurement into a predicted belief.
type Correction struct {
	State      *mat.VecDense // corrected state mean
	Covariance *mat.SymDense // corrected state covariance
	ZPred      *mat.VecDense // predicted measurement
	S          *mat.SymDense // innovation covariance
	Gain       *mat.Dense    // Kalman gain
	Innovation *mat.VecDense // z - ZPred, angle normalized
	NIS        float64       // normalized innovation squared
}

// Correct fuses the measurement z into the predicted belief (x, P) described by
// the predicted sigma points XsigPred, using the measurement noise R of the
// model's sensor. None of the arguments are modified. Returns
// ErrSingularInnovation if the innovation covariance is not positive definite
// or its condition number exceeds maxCond.
func Correct(x mat.Vector, P mat.Symmetric, XsigPred *mat.Dense, w mat.Vector, z mat.Vector, R mat.Symmetric, model MeasurementModel, maxCond float64) (*Correction, error) {
	if err := checkMatDims(XsigPred, x, "XsigPred", "x", rows2rows); err != nil {
		return nil, err
	}
	if err := checkMatDims(x, P, "x", "P", rows2cols); err != nil {
		return nil, err
	}
	if err := checkMatDims(XsigPred, w, "XsigPred", "weights", cols2rows); err != nil {
		return nil, err
	}
	if z.Len() != model.Dim() {
		return nil, fmt.Errorf("%w: %s expects %d values, got %d", ErrMeasurementSize, model.Kind(), model.Dim(), z.Len())
	}
	if err := checkMatDims(z, R, "z", "R", rows2cols); err != nil {
		return nil, err
	}

	Zsig, err := model.Project(XsigPred)
	if err != nil {
		return nil, err
	}
	if err := checkMatDims(Zsig, XsigPred, "Zsig", "XsigPred", cols2cols); err != nil {
		return nil, err
	}
	angle := model.AngleIndex()

	zPred := weightedMean(Zsig, w)
	Sd := weightedCovariance(Zsig, zPred, Zsig, zPred, w, angle, angle)
	if err := checkMatDims(Sd, R, "S", "R", rowsAndcols); err != nil {
		return nil, err
	}
	Sd.Add(Sd, R)
	S := symmetrize(Sd)
	Tc := weightedCovariance(XsigPred, x, Zsig, zPred, w, iYaw, angle)

	var chol mat.Cholesky
	if ok := chol.Factorize(S); !ok {
		return nil, fmt.Errorf("%s: %w: S is not positive definite", model.Kind(), ErrSingularInnovation)
	}
	if cond := chol.Cond(); cond > maxCond {
		return nil, fmt.Errorf("%s: %w: condition number %g exceeds %g", model.Kind(), ErrSingularInnovation, cond, maxCond)
	}
	var SInv mat.SymDense
	if err := chol.InverseTo(&SInv); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", model.Kind(), ErrSingularInnovation, err)
	}

	var K mat.Dense
	K.Mul(Tc, &SInv)

	y := mat.NewVecDense(z.Len(), nil)
	y.SubVec(z, zPred)
	if angle >= 0 {
		y.SetVec(angle, NormalizeAngle(y.AtVec(angle)))
	}

	xNew := mat.NewVecDense(x.Len(), nil)
	xNew.MulVec(&K, y)
	xNew.AddVec(x, xNew)

	var KS, KSKt mat.Dense
	KS.Mul(&K, S)
	KSKt.Mul(&KS, K.T())
	KSKt.Sub(P, &KSKt)
	PNew := symmetrize(&KSKt)

	if !isFiniteMatrix(xNew) || !isFiniteMatrix(PNew) {
		return nil, fmt.Errorf("%s correction: %w", model.Kind(), ErrNonFinite)
	}

	return &Correction{
		State:      xNew,
		Covariance: PNew,
		ZPred:      zPred,
		S:          S,
		Gain:       &K,
		Innovation: y,
		NIS:        mat.Inner(y, &SInv, y),
	}, nil
}

// modelFor returns the measurement model of a sensor.
func modelFor(k SensorKind, cfg Config) MeasurementModel {
	switch k {
	case Lidar:
		return LidarModel{}
	case Radar:
		return RadarModel{MinRange: cfg.MinRange}
	}
	return nil
}
