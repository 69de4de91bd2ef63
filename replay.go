package ukf

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ReplayFailure records a measurement the filter could not fuse.
type ReplayFailure struct {
	Index int // position in the replayed entries
	Entry LogEntry
	Err   error
}

// ReplayReport summarizes a replay of a sensor log through a UKF.
type ReplayReport struct {
	Estimates []Estimate      // successful estimates, in order
	States    []*mat.VecDense // belief after each entry, nil until the filter is initialized
	Truth     *GroundTruth    // errors against the logged ground truth
	NIS       *NISStats
	Failures  []ReplayFailure
	Reseeded  int // number of covariance resets to identity
}

// Replay feeds every entry to kf in order. A measurement the filter rejects
// is dropped and recorded as a failure; when the covariance lost positive
// definiteness, the belief is re-seeded with an identity covariance. Each
// successful estimate is written to exp when it is not nil. Only exporter
// errors abort the replay.
func Replay(kf *UKF, entries []LogEntry, exp Exporter) (*ReplayReport, error) {
	report := &ReplayReport{
		States: make([]*mat.VecDense, len(entries)),
		Truth:  NewGroundTruth(),
		NIS:    NewNISStats(),
	}
	for i, entry := range entries {
		est, err := kf.Process(entry.Measurement)
		if err != nil {
			report.Failures = append(report.Failures, ReplayFailure{Index: i, Entry: entry, Err: err})
			if errors.Is(err, ErrNotPositiveDefinite) && kf.Initialized() {
				if serr := kf.Seed(kf.State(), Identity(NX), kf.Timestamp()); serr == nil {
					report.Reseeded++
				}
			}
		} else {
			report.Estimates = append(report.Estimates, est)
			report.NIS.Add(est)
			if exp != nil {
				if err := exp.Write(est); err != nil {
					return report, fmt.Errorf("exporting estimate %d: %w", i, err)
				}
			}
		}
		if !kf.Initialized() {
			continue
		}
		report.States[i] = kf.State()
		if entry.Truth != nil {
			report.Truth.Error(report.States[i], *entry.Truth)
		}
	}
	return report, nil
}

// Dropped returns the number of measurements that were not fused.
func (r *ReplayReport) Dropped() int {
	return len(r.Failures)
}
