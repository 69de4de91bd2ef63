package ukf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Weights returns the NSigma sigma point weights for the spreading parameter Lambda.
func Weights() *mat.VecDense {
	w := make([]float64, NSigma)
	w[0] = float64(Lambda) / float64(Lambda+NAug)
	for i := 1; i < NSigma; i++ {
		w[i] = 0.5 / float64(Lambda+NAug)
	}
	return mat.NewVecDense(NSigma, w)
}

// AugmentedSigmaPoints returns the NAug x NSigma sigma points of the state x
// and covariance P augmented with the zero mean process noise of covariance Q.
// Column 0 is the augmented mean, columns 1..NAug and NAug+1..2*NAug are
// reflections of each other about it.
func AugmentedSigmaPoints(x mat.Vector, P, Q mat.Symmetric) (*mat.Dense, error) {
	if err := checkMatDims(x, P, "x", "P", rows2cols); err != nil {
		return nil, err
	}
	if n := x.Len(); n != NX {
		return nil, fmt.Errorf("%sx(%dx1) state(%dx1)", dimErrMsg, n, NX)
	}
	if n := Q.SymmetricDim(); n != NAug-NX {
		return nil, fmt.Errorf("%sQ(%dx%d) augmentation(%dx%d)", dimErrMsg, n, n, NAug-NX, NAug-NX)
	}
	if !isFiniteMatrix(x) || !isFiniteMatrix(P) {
		return nil, fmt.Errorf("sigma points: %w", ErrNonFinite)
	}

	xAug := mat.NewVecDense(NAug, nil)
	PAug := mat.NewSymDense(NAug, nil)
	for i := 0; i < NX; i++ {
		xAug.SetVec(i, x.AtVec(i))
		for j := i; j < NX; j++ {
			PAug.SetSym(i, j, P.At(i, j))
		}
	}
	for i := NX; i < NAug; i++ {
		for j := i; j < NAug; j++ {
			PAug.SetSym(i, j, Q.At(i-NX, j-NX))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(PAug); !ok {
		return nil, fmt.Errorf("augmented covariance: %w", ErrNotPositiveDefinite)
	}
	var L mat.TriDense
	chol.LTo(&L)

	scale := math.Sqrt(float64(Lambda + NAug))
	Xsig := mat.NewDense(NAug, NSigma, nil)
	Xsig.SetCol(0, xAug.RawVector().Data)
	for i := 0; i < NAug; i++ {
		for r := 0; r < NAug; r++ {
			δ := scale * L.At(r, i)
			Xsig.Set(r, i+1, xAug.AtVec(r)+δ)
			Xsig.Set(r, i+1+NAug, xAug.AtVec(r)-δ)
		}
	}
	return Xsig, nil
}
