package ukf

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CartesianState converts a CTRV state (px, py, v, yaw, ...) into (px, py, vx, vy).
func CartesianState(x mat.Vector) []float64 {
	v, yaw := x.AtVec(iV), x.AtVec(iYaw)
	return []float64{x.AtVec(iPx), x.AtVec(iPy), v * math.Cos(yaw), v * math.Sin(yaw)}
}

// GroundTruth accumulates the error of estimates against known true states.
type GroundTruth struct {
	sumSq []float64
	count int
}

// NewGroundTruth initializes a new ground truth accumulator.
func NewGroundTruth() *GroundTruth {
	return &GroundTruth{sumSq: make([]float64, 4)}
}

// Error returns the (px, py, vx, vy) error of the estimated state x and adds it to the accumulator.
func (t *GroundTruth) Error(x mat.Vector, truth GroundTruthState) []float64 {
	diff := CartesianState(x)
	floats.Sub(diff, []float64{truth.Px, truth.Py, truth.Vx, truth.Vy})
	sq := make([]float64, len(diff))
	floats.MulTo(sq, diff, diff)
	floats.Add(t.sumSq, sq)
	t.count++
	return diff
}

// Count returns the number of accumulated errors.
func (t *GroundTruth) Count() int {
	return t.count
}

// RMSE returns the root mean squared error of (px, py, vx, vy), or nil if empty.
func (t *GroundTruth) RMSE() []float64 {
	if t.count == 0 {
		return nil
	}
	rmse := make([]float64, len(t.sumSq))
	for i, s := range t.sumSq {
		rmse[i] = math.Sqrt(s / float64(t.count))
	}
	return rmse
}
