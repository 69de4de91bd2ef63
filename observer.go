package ukf

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

// Observer receives the intermediate products of each filter cycle. It is
// only called when IsEnabled returns true, and is never required for the
// filter to work.
type Observer interface {
	IsEnabled() bool
	RecordInitialization(trackID string, m Measurement, x *mat.VecDense)
	RecordSigmaPoints(trackID string, Xsig *mat.Dense)
	RecordPrediction(trackID string, dt float64, x *mat.VecDense, P *mat.SymDense)
	RecordCorrection(trackID string, k SensorKind, c *Correction)
	RecordFailure(trackID string, m Measurement, err error)
}

// SlogObserver writes the filter internals to a structured logger at debug level.
type SlogObserver struct {
	Logger *slog.Logger
}

// NewSlogObserver returns an observer logging to l, or to slog.Default() if l is nil.
func NewSlogObserver(l *slog.Logger) *SlogObserver {
	if l == nil {
		l = slog.Default()
	}
	return &SlogObserver{Logger: l}
}

// IsEnabled implements the Observer interface.
func (o *SlogObserver) IsEnabled() bool {
	return o.Logger.Enabled(context.Background(), slog.LevelDebug)
}

// RecordInitialization implements the Observer interface.
func (o *SlogObserver) RecordInitialization(trackID string, m Measurement, x *mat.VecDense) {
	o.Logger.Debug("initialized",
		slog.String("track", trackID),
		slog.String("sensor", m.Kind.String()),
		slog.Int64("timestamp", m.Timestamp),
		slog.Any("x", x.RawVector().Data))
}

// RecordSigmaPoints implements the Observer interface.
func (o *SlogObserver) RecordSigmaPoints(trackID string, Xsig *mat.Dense) {
	o.Logger.Debug("sigma points",
		slog.String("track", trackID),
		slog.String("Xsig", formatMatrix(Xsig)))
}

// RecordPrediction implements the Observer interface.
func (o *SlogObserver) RecordPrediction(trackID string, dt float64, x *mat.VecDense, P *mat.SymDense) {
	o.Logger.Debug("predicted",
		slog.String("track", trackID),
		slog.Float64("dt", dt),
		slog.Any("x", x.RawVector().Data),
		slog.String("P", formatMatrix(P)))
}

// RecordCorrection implements the Observer interface.
func (o *SlogObserver) RecordCorrection(trackID string, k SensorKind, c *Correction) {
	o.Logger.Debug("corrected",
		slog.String("track", trackID),
		slog.String("sensor", k.String()),
		slog.Float64("nis", c.NIS),
		slog.Any("innovation", c.Innovation.RawVector().Data),
		slog.Any("x", c.State.RawVector().Data),
		slog.String("K", formatMatrix(c.Gain)))
}

// RecordFailure implements the Observer interface.
func (o *SlogObserver) RecordFailure(trackID string, m Measurement, err error) {
	o.Logger.Debug("cycle failed",
		slog.String("track", trackID),
		slog.String("sensor", m.Kind.String()),
		slog.Int64("timestamp", m.Timestamp),
		slog.String("err", err.Error()))
}

func formatMatrix(m mat.Matrix) string {
	return fmt.Sprintf("%v", mat.Formatted(m, mat.Squeeze()))
}
