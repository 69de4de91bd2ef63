package ukf

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Identity returns an identity matrix of the provided size.
func Identity(n int) *mat.SymDense {
	return ScaledIdentity(n, 1)
}

// ScaledIdentity returns an identity matrix time a scaling factor of the provided size.
func ScaledIdentity(n int, s float64) *mat.SymDense {
	vals := make([]float64, n*n)
	for j := 0; j < n*n; j += n + 1 {
		vals[j] = s
	}
	return mat.NewSymDense(n, vals)
}

// NormalizeAngle returns the angle congruent to θ modulo 2π which lies in [-π, π).
// Non-finite angles are returned as is.
func NormalizeAngle(θ float64) float64 {
	if math.IsNaN(θ) || math.IsInf(θ, 0) {
		return θ
	}
	θ = math.Mod(θ+math.Pi, 2*math.Pi)
	if θ < 0 {
		θ += 2 * math.Pi
	}
	θ -= math.Pi
	// Rounding in the reduction above may land exactly on a boundary.
	for θ >= math.Pi {
		θ -= 2 * math.Pi
	}
	for θ < -math.Pi {
		θ += 2 * math.Pi
	}
	return θ
}

// symmetrize returns the symmetric part (m+m')/2 of a square matrix.
func symmetrize(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return sym
}

func isFiniteSlice(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// isFiniteMatrix returns whether all the elements of m are finite.
func isFiniteMatrix(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
