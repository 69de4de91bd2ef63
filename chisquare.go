package ukf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NISThreshold returns the value the NIS of a consistent filter stays under
// with probability p for measurements of the sensor k. Returns NaN for an
// unknown sensor.
func NISThreshold(k SensorKind, p float64) float64 {
	dim := k.Dim()
	if dim == 0 {
		return math.NaN()
	}
	return distuv.ChiSquared{K: float64(dim)}.Quantile(p)
}

// NISStats collects the normalized innovation squared of corrected estimates per sensor.
type NISStats struct {
	samples map[SensorKind][]float64
}

// NewNISStats returns empty NIS statistics.
func NewNISStats() *NISStats {
	return &NISStats{samples: make(map[SensorKind][]float64)}
}

// Add records the NIS of the estimate if it was corrected.
func (s *NISStats) Add(est Estimate) {
	if est == nil || !est.Corrected() {
		return
	}
	s.samples[est.Sensor()] = append(s.samples[est.Sensor()], est.NIS())
}

// Samples returns the NIS values recorded for a sensor.
func (s *NISStats) Samples(k SensorKind) []float64 {
	return s.samples[k]
}

// NISSummary is the consistency summary of one sensor.
type NISSummary struct {
	Sensor        SensorKind
	Count         int
	Mean          float64
	Threshold     float64 // χ² quantile at Probability
	Probability   float64
	FractionAbove float64 // share of samples above Threshold
}

func (s NISSummary) String() string {
	return fmt.Sprintf("%s NIS: n=%d mean=%.3f (expected %d) above χ²(%.2f)=%.3f: %.1f%%",
		s.Sensor, s.Count, s.Mean, s.Sensor.Dim(), s.Probability, s.Threshold, 100*s.FractionAbove)
}

// Summary returns the NIS summary of a sensor against the χ² quantile p
// (e.g. 0.95). A consistent filter has a mean close to the measurement
// dimension and roughly 1-p of the samples above the threshold.
func (s *NISStats) Summary(k SensorKind, p float64) NISSummary {
	samples := s.samples[k]
	sum := NISSummary{Sensor: k, Count: len(samples), Threshold: NISThreshold(k, p), Probability: p}
	if len(samples) == 0 {
		return sum
	}
	sum.Mean = stat.Mean(samples, nil)
	above := 0
	for _, v := range samples {
		if v > sum.Threshold {
			above++
		}
	}
	sum.FractionAbove = float64(above) / float64(len(samples))
	return sum
}
