package ukf

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// UKF is an unscented Kalman filter tracking a single object with a CTRV
// motion model from lidar and radar measurements. Use NewUKF to initialize.
// A UKF is not safe for concurrent use: calls to Process must be serialized.
type UKF struct {
	cfg           Config
	noise         Noise
	weights       *mat.VecDense
	x             *mat.VecDense
	P             *mat.SymDense
	initialized   bool
	prevTimestamp int64 // microseconds
	step          int
	id            string
	observer      Observer
}

// Option configures optional parts of a UKF.
type Option func(*UKF)

// WithObserver attaches an Observer receiving the intermediate products of each cycle.
func WithObserver(o Observer) Option {
	return func(kf *UKF) {
		kf.observer = o
	}
}

// WithTrackID overrides the random track identifier of the filter.
func WithTrackID(id string) Option {
	return func(kf *UKF) {
		kf.id = id
	}
}

// NewUKF returns a new uninitialized UKF. The first measurement given to
// Process initializes the belief.
func NewUKF(cfg Config, opts ...Option) (*UKF, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kf := &UKF{
		cfg:     cfg,
		noise:   NewSensorNoise(cfg),
		weights: Weights(),
		x:       mat.NewVecDense(NX, nil),
		P:       Identity(NX),
		id:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(kf)
	}
	return kf, nil
}

func (kf *UKF) String() string {
	return fmt.Sprintf("UKF %s [k=%d t=%d]\nx=%v\nP=%v\n%s", kf.id, kf.step, kf.prevTimestamp,
		mat.Formatted(kf.x.T(), mat.Prefix("  ")), mat.Formatted(kf.P, mat.Prefix("  ")), kf.noise)
}

// ID returns the track identifier of the filter.
func (kf *UKF) ID() string {
	return kf.id
}

// Config returns the configuration of the filter.
func (kf *UKF) Config() Config {
	return kf.cfg
}

// GetNoise returns the noise model.
func (kf *UKF) GetNoise() Noise {
	return kf.noise
}

// Initialized returns whether the filter holds a belief.
func (kf *UKF) Initialized() bool {
	return kf.initialized
}

// Timestamp returns the timestamp (µs) of the last processed measurement.
func (kf *UKF) Timestamp() int64 {
	return kf.prevTimestamp
}

// State returns a copy of the state mean (px, py, v, yaw, yawd).
func (kf *UKF) State() *mat.VecDense {
	return mat.VecDenseCopyOf(kf.x)
}

// Covariance returns a copy of the state covariance.
func (kf *UKF) Covariance() *mat.SymDense {
	P := mat.NewSymDense(NX, nil)
	P.CopySym(kf.P)
	return P
}

// Reset forgets the belief; the next measurement initializes the filter again.
func (kf *UKF) Reset() {
	kf.x = mat.NewVecDense(NX, nil)
	kf.P = Identity(NX)
	kf.initialized = false
	kf.prevTimestamp = 0
	kf.step = 0
}

// Seed sets the belief explicitly as if a measurement at timestamp ts had
// initialized it. P must be positive definite.
func (kf *UKF) Seed(x mat.Vector, P mat.Symmetric, ts int64) error {
	if err := checkMatDims(x, P, "x", "P", rows2cols); err != nil {
		return err
	}
	if n := x.Len(); n != NX {
		return fmt.Errorf("%sx(%dx1) state(%dx1)", dimErrMsg, n, NX)
	}
	if !isFiniteMatrix(x) || !isFiniteMatrix(P) {
		return fmt.Errorf("seed: %w", ErrNonFinite)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(P); !ok {
		return fmt.Errorf("seed: %w", ErrNotPositiveDefinite)
	}
	kf.x = mat.VecDenseCopyOf(x)
	kf.P = mat.NewSymDense(NX, nil)
	kf.P.CopySym(P)
	kf.prevTimestamp = ts
	kf.initialized = true
	return nil
}

// Process fuses one measurement. The first measurement initializes the
// belief; every following one predicts the belief to the measurement time and,
// if the sensor is enabled, corrects it. On error the belief and timestamp are
// left exactly as they were before the call.
func (kf *UKF) Process(m Measurement) (Estimate, error) {
	if err := checkMeasurement(m); err != nil {
		kf.recordFailure(m, err)
		return nil, err
	}
	if !kf.initialized {
		return kf.initialize(m), nil
	}

	pred, err := kf.predictTo(m.Timestamp)
	if err != nil {
		kf.recordFailure(m, err)
		return nil, err
	}
	est := UKFEstimate{
		state:     pred.x,
		predState: pred.x,
		covar:     pred.P,
		predCovar: pred.P,
		sensor:    m.Kind,
		timestamp: m.Timestamp,
	}

	if kf.enabled(m.Kind) {
		c, err := Correct(pred.x, pred.P, pred.XsigPred, kf.weights, m.Vector(),
			kf.noise.MeasurementMatrix(m.Kind), modelFor(m.Kind, kf.cfg), kf.cfg.MaxInnovationCond)
		if err != nil {
			kf.recordFailure(m, err)
			return nil, err
		}
		if kf.observing() {
			kf.observer.RecordCorrection(kf.id, m.Kind, c)
		}
		est.state = c.State
		est.covar = c.Covariance
		est.zPred = c.ZPred
		est.innov = c.Innovation
		est.innovCovar = c.S
		est.gain = c.Gain
		est.nis = c.NIS
		est.corrected = true
	}

	kf.commit(est.state, est.covar, m.Timestamp)
	return est, nil
}

// PredictTo propagates the belief to the timestamp ts (µs) without any
// correction, as Process does for a disabled sensor.
func (kf *UKF) PredictTo(ts int64) (Estimate, error) {
	if !kf.initialized {
		return nil, ErrNotInitialized
	}
	pred, err := kf.predictTo(ts)
	if err != nil {
		return nil, err
	}
	kf.commit(pred.x, pred.P, ts)
	return UKFEstimate{state: pred.x, predState: pred.x, covar: pred.P, predCovar: pred.P, timestamp: ts}, nil
}

func (kf *UKF) enabled(k SensorKind) bool {
	switch k {
	case Lidar:
		return kf.cfg.UseLidar
	case Radar:
		return kf.cfg.UseRadar
	}
	return false
}

func (kf *UKF) initialize(m Measurement) UKFEstimate {
	x := mat.NewVecDense(NX, nil)
	switch m.Kind {
	case Lidar:
		x.SetVec(iPx, m.Raw[0])
		x.SetVec(iPy, m.Raw[1])
	case Radar:
		ρ, φ := m.Raw[0], m.Raw[1]
		x.SetVec(iPx, ρ*math.Cos(φ))
		x.SetVec(iPy, ρ*math.Sin(φ))
	}
	P := Identity(NX)
	kf.x = x
	kf.P = P
	kf.prevTimestamp = m.Timestamp
	kf.initialized = true
	kf.step = 0
	if kf.observing() {
		kf.observer.RecordInitialization(kf.id, m, x)
	}
	return UKFEstimate{
		state:       mat.VecDenseCopyOf(x),
		predState:   mat.VecDenseCopyOf(x),
		covar:       Identity(NX),
		predCovar:   Identity(NX),
		sensor:      m.Kind,
		timestamp:   m.Timestamp,
		initialized: true,
	}
}

type prediction struct {
	Xsig, XsigPred *mat.Dense
	x              *mat.VecDense
	P              *mat.SymDense
}

// predictTo runs the sigma point generation and the motion prediction from
// the committed belief without modifying it.
func (kf *UKF) predictTo(ts int64) (*prediction, error) {
	if ts < kf.prevTimestamp {
		return nil, fmt.Errorf("%w: %d is before %d", ErrOutOfOrder, ts, kf.prevTimestamp)
	}
	dt := float64(ts-kf.prevTimestamp) / 1e6

	Xsig, err := AugmentedSigmaPoints(kf.x, kf.P, kf.noise.ProcessMatrix())
	if err != nil {
		return nil, err
	}
	if kf.observing() {
		kf.observer.RecordSigmaPoints(kf.id, Xsig)
	}
	XsigPred := PredictSigmaPoints(Xsig, dt)
	x, P, err := PredictMeanCovariance(XsigPred, kf.weights)
	if err != nil {
		return nil, err
	}
	if kf.observing() {
		kf.observer.RecordPrediction(kf.id, dt, x, P)
	}
	return &prediction{Xsig: Xsig, XsigPred: XsigPred, x: x, P: P}, nil
}

// commit replaces the belief with copies so estimates handed out never alias it.
func (kf *UKF) commit(x *mat.VecDense, P *mat.SymDense, ts int64) {
	kf.x = mat.VecDenseCopyOf(x)
	kf.P = mat.NewSymDense(NX, nil)
	kf.P.CopySym(P)
	kf.prevTimestamp = ts
	kf.step++
}

func (kf *UKF) observing() bool {
	return kf.observer != nil && kf.observer.IsEnabled()
}

func (kf *UKF) recordFailure(m Measurement, err error) {
	if kf.observing() {
		kf.observer.RecordFailure(kf.id, m, err)
	}
}
