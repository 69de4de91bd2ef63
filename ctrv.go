package ukf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// yawRateEpsilon is the yaw rate under which the motion is integrated as a straight line.
const yawRateEpsilon = 1e-3

// PropagateCTRV pushes one augmented sigma point (px, py, v, yaw, yawd, νa, νyawdd)
// through the constant turn rate and velocity model for dt seconds and returns
// the predicted state, noise terms dropped.
func PropagateCTRV(aug []float64, dt float64) [NX]float64 {
	px, py := aug[iPx], aug[iPy]
	v, yaw, yawd := aug[iV], aug[iYaw], aug[iYawd]
	νa, νyawdd := aug[NX], aug[NX+1]

	var pxP, pyP float64
	if math.Abs(yawd) > yawRateEpsilon {
		pxP = px + v/yawd*(math.Sin(yaw+yawd*dt)-math.Sin(yaw))
		pyP = py + v/yawd*(math.Cos(yaw)-math.Cos(yaw+yawd*dt))
	} else {
		pxP = px + v*dt*math.Cos(yaw)
		pyP = py + v*dt*math.Sin(yaw)
	}
	vP := v
	yawP := yaw + yawd*dt
	yawdP := yawd

	dt2 := 0.5 * dt * dt
	pxP += dt2 * νa * math.Cos(yaw)
	pyP += dt2 * νa * math.Sin(yaw)
	vP += νa * dt
	yawP += dt2 * νyawdd
	yawdP += νyawdd * dt

	return [NX]float64{pxP, pyP, vP, yawP, yawdP}
}

// PredictSigmaPoints propagates every column of the augmented sigma points by dt
// seconds and returns the NX x NSigma predicted sigma points.
func PredictSigmaPoints(Xsig *mat.Dense, dt float64) *mat.Dense {
	rows, cols := Xsig.Dims()
	if rows != NAug {
		panic(fmt.Errorf("%sXsig(%dx...) augmented state(%dx1)", dimErrMsg, rows, NAug))
	}
	XsigPred := mat.NewDense(NX, cols, nil)
	aug := make([]float64, NAug)
	for c := 0; c < cols; c++ {
		mat.Col(aug, c, Xsig)
		pred := PropagateCTRV(aug, dt)
		XsigPred.SetCol(c, pred[:])
	}
	return XsigPred
}

// PredictMeanCovariance reconstructs the predicted state mean and covariance
// from the predicted sigma points and their weights. The yaw residuals are
// normalized before they enter the covariance.
func PredictMeanCovariance(XsigPred *mat.Dense, w mat.Vector) (*mat.VecDense, *mat.SymDense, error) {
	if err := checkMatDims(XsigPred, w, "XsigPred", "weights", cols2rows); err != nil {
		return nil, nil, err
	}
	x := weightedMean(XsigPred, w)

	Psym := symmetrize(weightedCovariance(XsigPred, x, XsigPred, x, w, iYaw, iYaw))
	if !isFiniteMatrix(x) || !isFiniteMatrix(Psym) {
		return nil, nil, fmt.Errorf("prediction: %w", ErrNonFinite)
	}
	return x, Psym, nil
}

// weightedMean returns the weighted sum of the columns of sig.
func weightedMean(sig *mat.Dense, w mat.Vector) *mat.VecDense {
	rows, _ := sig.Dims()
	mean := mat.NewVecDense(rows, nil)
	mean.MulVec(sig, w)
	return mean
}

// weightedCovariance returns Σ w_i (a_i - aMean)(b_i - bMean)' where the
// residual components aAngle and bAngle (if not negative) are normalized angles.
func weightedCovariance(a *mat.Dense, aMean mat.Vector, b *mat.Dense, bMean mat.Vector, w mat.Vector, aAngle, bAngle int) *mat.Dense {
	ra, cols := a.Dims()
	rb, _ := b.Dims()
	cov := mat.NewDense(ra, rb, nil)
	da := mat.NewVecDense(ra, nil)
	db := mat.NewVecDense(rb, nil)
	for c := 0; c < cols; c++ {
		residual(da, a.ColView(c), aMean, aAngle)
		residual(db, b.ColView(c), bMean, bAngle)
		cov.RankOne(cov, w.AtVec(c), da, db)
	}
	return cov
}

// residual stores col - mean into dst and normalizes the angle component if any.
func residual(dst *mat.VecDense, col, mean mat.Vector, angle int) {
	dst.SubVec(col, mean)
	if angle >= 0 {
		dst.SetVec(angle, NormalizeAngle(dst.AtVec(angle)))
	}
}
