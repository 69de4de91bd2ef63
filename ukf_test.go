package ukf

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestUKF(t *testing.T, cfg Config, opts ...Option) *UKF {
	t.Helper()
	kf, err := NewUKF(cfg, opts...)
	require.NoError(t, err)
	return kf
}

func TestNewUKF(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	assert.False(t, kf.Initialized())
	assert.NotEmpty(t, kf.ID())
	assert.Equal(t, DefaultConfig(), kf.Config())
	assert.NotNil(t, kf.GetNoise())
	assert.Contains(t, kf.String(), kf.ID())

	other := newTestUKF(t, DefaultConfig(), WithTrackID("car-7"))
	assert.Equal(t, "car-7", other.ID())

	cfg := DefaultConfig()
	cfg.StdA = -1
	_, err := NewUKF(cfg)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestInitializeFromLidar(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	est, err := kf.Process(Measurement{Kind: Lidar, Timestamp: 1477010443000000, Raw: []float64{5, 3}})
	require.NoError(t, err)

	assert.True(t, kf.Initialized())
	assert.Equal(t, []float64{5, 3, 0, 0, 0}, kf.State().RawVector().Data)
	assert.True(t, mat.Equal(Identity(NX), kf.Covariance()))
	assert.Equal(t, int64(1477010443000000), kf.Timestamp())

	require.IsType(t, UKFEstimate{}, est)
	assert.True(t, est.(UKFEstimate).Initialized())
	assert.False(t, est.Corrected())
	assert.Equal(t, 0.0, est.NIS())
	assert.Equal(t, Lidar, est.Sensor())
}

func TestInitializeFromRadar(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	_, err := kf.Process(Measurement{Kind: Radar, Timestamp: 10, Raw: []float64{2, math.Pi / 2, 5}})
	require.NoError(t, err)

	x := kf.State()
	assert.InDelta(t, 0, x.AtVec(iPx), 1e-12)
	assert.InDelta(t, 2, x.AtVec(iPy), 1e-12)
	// Range rate is not used for the velocity.
	for i := iV; i < NX; i++ {
		assert.Equal(t, 0.0, x.AtVec(i))
	}
}

func TestInitializeWithDisabledSensor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseLidar = false
	kf := newTestUKF(t, cfg)
	_, err := kf.Process(Measurement{Kind: Lidar, Timestamp: 1, Raw: []float64{1, 2}})
	require.NoError(t, err)
	assert.True(t, kf.Initialized())
}

func TestNoReinitialization(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	_, err := kf.Process(Measurement{Kind: Lidar, Timestamp: 0, Raw: []float64{5, 3}})
	require.NoError(t, err)
	est, err := kf.Process(Measurement{Kind: Lidar, Timestamp: 100000, Raw: []float64{50, 30}})
	require.NoError(t, err)
	assert.True(t, est.Corrected())
	assert.False(t, est.(UKFEstimate).Initialized())
	// A re-initialization would jump to the measurement.
	assert.NotEqual(t, 50.0, kf.State().AtVec(iPx))
}

func TestRadarCorrectionFixture(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	require.NoError(t, kf.Seed(mat.NewVecDense(NX, []float64{1, 1, 2, 0, 0}), Identity(NX), 0))

	est, err := kf.Process(Measurement{Kind: Radar, Timestamp: 100000, Raw: []float64{1.4, 0.78, 2}})
	require.NoError(t, err)
	require.True(t, est.Corrected())

	assert.InDelta(t, 1.12230, est.PredState().AtVec(iPx), 1e-5)
	assert.InDelta(t, 1.0, est.PredState().AtVec(iPy), 1e-9)
	want := []float64{0.762437, 0.598275, 2.918422, 0.957937, 0.144768}
	for i, w := range want {
		assert.InDelta(t, w, est.State().AtVec(i), 1e-6, "state %d", i)
	}

	assert.Equal(t, int64(100000), kf.Timestamp())
	assert.True(t, mat.Equal(est.State(), kf.State()))
	assertSymmetric(t, kf.Covariance())
	assert.Equal(t, 3, est.Innovation().Len())
	assert.Equal(t, 3, est.Measurement().Len())
	assert.Greater(t, est.NIS(), 0.0)
	assert.Contains(t, est.String(), "nis=")
}

func TestDisabledSensorOnlyPredicts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseLidar = false
	kf := newTestUKF(t, cfg)
	require.NoError(t, kf.Seed(mat.NewVecDense(NX, []float64{1, 1, 0, 0, 0}), Identity(NX), 0))
	P0 := kf.Covariance().At(iPx, iPx)

	for k := int64(1); k <= 5; k++ {
		est, err := kf.Process(Measurement{Kind: Lidar, Timestamp: k * 100000, Raw: []float64{10, 10}})
		require.NoError(t, err)
		assert.False(t, est.Corrected())
		assert.True(t, mat.Equal(est.PredState(), est.State()))
		assert.Nil(t, est.Innovation())
		assert.True(t, est.(UKFEstimate).IsWithin2σ())
		assert.Equal(t, k*100000, kf.Timestamp())
	}
	// Mean untouched by the ignored measurements, uncertainty grows.
	assert.InDelta(t, 1, kf.State().AtVec(iPx), 1e-9)
	assert.InDelta(t, 1, kf.State().AtVec(iPy), 1e-9)
	assert.Greater(t, kf.Covariance().At(iPx, iPx), P0)
}

func TestDisabledRadarStillCorrectsLidar(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseRadar = false
	kf := newTestUKF(t, cfg)
	_, err := kf.Process(Measurement{Kind: Lidar, Timestamp: 0, Raw: []float64{1, 1}})
	require.NoError(t, err)
	est, err := kf.Process(Measurement{Kind: Radar, Timestamp: 50000, Raw: []float64{1, 0.5, 1}})
	require.NoError(t, err)
	assert.False(t, est.Corrected())
	est, err = kf.Process(Measurement{Kind: Lidar, Timestamp: 100000, Raw: []float64{1.1, 1}})
	require.NoError(t, err)
	assert.True(t, est.Corrected())
}

// snapshot captures the belief of a filter.
type snapshot struct {
	x  *mat.VecDense
	P  *mat.SymDense
	ts int64
}

func takeSnapshot(kf *UKF) snapshot {
	return snapshot{kf.State(), kf.Covariance(), kf.Timestamp()}
}

func (s snapshot) assertUnchanged(t *testing.T, kf *UKF) {
	t.Helper()
	assert.True(t, mat.Equal(s.x, kf.State()), "state changed")
	assert.True(t, mat.Equal(s.P, kf.Covariance()), "covariance changed")
	assert.Equal(t, s.ts, kf.Timestamp(), "timestamp changed")
}

func TestFailuresLeaveBeliefUntouched(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	require.NoError(t, kf.Seed(mat.NewVecDense(NX, []float64{3, 4, 1, 0.2, 0.1}), Identity(NX), 1000000))
	before := takeSnapshot(kf)

	tests := []struct {
		name string
		m    Measurement
		want error
	}{
		{"nan lidar", Measurement{Kind: Lidar, Timestamp: 1100000, Raw: []float64{math.NaN(), 1}}, ErrNonFinite},
		{"short radar", Measurement{Kind: Radar, Timestamp: 1100000, Raw: []float64{1, 2}}, ErrMeasurementSize},
		{"unknown sensor", Measurement{Kind: 3, Timestamp: 1100000, Raw: []float64{1, 2}}, ErrUnknownSensor},
		{"out of order", Measurement{Kind: Lidar, Timestamp: 900000, Raw: []float64{3, 4}}, ErrOutOfOrder},
	}
	for _, tt := range tests {
		est, err := kf.Process(tt.m)
		assert.Nil(t, est, tt.name)
		assert.True(t, errors.Is(err, tt.want), "%s: got %v", tt.name, err)
		before.assertUnchanged(t, kf)
	}
}

func TestMalformedFirstMeasurementDoesNotInitialize(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	_, err := kf.Process(Measurement{Kind: Lidar, Raw: []float64{math.Inf(1), 0}})
	assert.True(t, errors.Is(err, ErrNonFinite))
	assert.False(t, kf.Initialized())
}

func TestNotPositiveDefiniteLeavesBeliefUntouched(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	require.NoError(t, kf.Seed(mat.NewVecDense(NX, []float64{3, 4, 1, 0, 0}), Identity(NX), 0))
	// Corrupt the covariance the way accumulated round-off would.
	kf.P.SetSym(iV, iV, -1)
	before := takeSnapshot(kf)

	_, err := kf.Process(Measurement{Kind: Lidar, Timestamp: 100000, Raw: []float64{3, 4}})
	assert.True(t, errors.Is(err, ErrNotPositiveDefinite), "got %v", err)
	before.assertUnchanged(t, kf)
}

func TestDegenerateRadarLeavesBeliefUntouched(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	require.NoError(t, kf.Seed(mat.NewVecDense(NX, nil), Identity(NX), 0))
	before := takeSnapshot(kf)

	_, err := kf.Process(Measurement{Kind: Radar, Timestamp: 0, Raw: []float64{0.1, 0, 0}})
	assert.True(t, errors.Is(err, ErrDegenerateGeometry), "got %v", err)
	before.assertUnchanged(t, kf)
}

func TestZeroTimeStep(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	_, err := kf.Process(Measurement{Kind: Lidar, Timestamp: 5, Raw: []float64{5, 3}})
	require.NoError(t, err)
	est, err := kf.Process(Measurement{Kind: Radar, Timestamp: 5, Raw: []float64{math.Hypot(5, 3), math.Atan2(3, 5), 0}})
	require.NoError(t, err)
	assert.True(t, est.Corrected())
	assert.True(t, mat.EqualApprox(est.PredState(), mat.NewVecDense(NX, []float64{5, 3, 0, 0, 0}), 1e-12))
}

func TestPredictTo(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	_, err := kf.PredictTo(10)
	assert.True(t, errors.Is(err, ErrNotInitialized))

	require.NoError(t, kf.Seed(mat.NewVecDense(NX, []float64{0, 0, 2, 0, 0}), ScaledIdentity(NX, 1e-6), 0))
	est, err := kf.PredictTo(100000)
	require.NoError(t, err)
	assert.False(t, est.Corrected())
	assert.InDelta(t, 0.2, kf.State().AtVec(iPx), 1e-3)
	assert.Equal(t, int64(100000), kf.Timestamp())

	_, err = kf.PredictTo(0)
	assert.True(t, errors.Is(err, ErrOutOfOrder))
}

func TestSeedAndReset(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	notPD := Identity(NX)
	notPD.SetSym(0, 0, 0)
	assert.True(t, errors.Is(kf.Seed(mat.NewVecDense(NX, nil), notPD, 0), ErrNotPositiveDefinite))
	assert.True(t, errors.Is(kf.Seed(mat.NewVecDense(NX, []float64{math.NaN(), 0, 0, 0, 0}), Identity(NX), 0), ErrNonFinite))
	assert.Error(t, kf.Seed(mat.NewVecDense(3, nil), Identity(3), 0))
	assert.False(t, kf.Initialized())

	x := mat.NewVecDense(NX, []float64{1, 2, 3, 0.1, 0.01})
	require.NoError(t, kf.Seed(x, ScaledIdentity(NX, 0.5), 42))
	assert.True(t, kf.Initialized())
	assert.Equal(t, int64(42), kf.Timestamp())
	x.SetVec(0, 100)
	assert.Equal(t, 1.0, kf.State().AtVec(0), "Seed must copy its inputs")

	// Accessors return copies.
	kf.State().SetVec(0, 99)
	kf.Covariance().SetSym(0, 0, 99)
	assert.Equal(t, 1.0, kf.State().AtVec(0))
	assert.Equal(t, 0.5, kf.Covariance().At(0, 0))

	kf.Reset()
	assert.False(t, kf.Initialized())
	assert.Equal(t, int64(0), kf.Timestamp())
	_, err := kf.Process(Measurement{Kind: Lidar, Timestamp: 7, Raw: []float64{8, 9}})
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 9, 0, 0, 0}, kf.State().RawVector().Data)
}

func TestEstimatesDoNotAliasBelief(t *testing.T) {
	kf := newTestUKF(t, DefaultConfig())
	_, err := kf.Process(Measurement{Kind: Lidar, Timestamp: 0, Raw: []float64{5, 3}})
	require.NoError(t, err)
	est, err := kf.Process(Measurement{Kind: Lidar, Timestamp: 100000, Raw: []float64{5.1, 3}})
	require.NoError(t, err)
	est.State().SetVec(0, 1000)
	assert.NotEqual(t, 1000.0, kf.State().AtVec(0))
}

type countingObserver struct {
	enabled                                  bool
	inits, sigmas, preds, corrections, fails int
	lastErr                                  error
}

func (o *countingObserver) IsEnabled() bool { return o.enabled }
func (o *countingObserver) RecordInitialization(string, Measurement, *mat.VecDense) {
	o.inits++
}
func (o *countingObserver) RecordSigmaPoints(string, *mat.Dense) { o.sigmas++ }
func (o *countingObserver) RecordPrediction(string, float64, *mat.VecDense, *mat.SymDense) {
	o.preds++
}
func (o *countingObserver) RecordCorrection(string, SensorKind, *Correction) { o.corrections++ }
func (o *countingObserver) RecordFailure(_ string, _ Measurement, err error) {
	o.fails++
	o.lastErr = err
}

func TestObserverHook(t *testing.T) {
	obs := &countingObserver{enabled: true}
	kf := newTestUKF(t, DefaultConfig(), WithObserver(obs))
	_, err := kf.Process(Measurement{Kind: Lidar, Timestamp: 0, Raw: []float64{5, 3}})
	require.NoError(t, err)
	_, err = kf.Process(Measurement{Kind: Radar, Timestamp: 50000, Raw: []float64{5.8, 0.54, 0}})
	require.NoError(t, err)
	_, err = kf.Process(Measurement{Kind: Lidar, Timestamp: 10, Raw: []float64{5, 3}})
	require.Error(t, err)

	assert.Equal(t, 1, obs.inits)
	assert.Equal(t, 1, obs.sigmas)
	assert.Equal(t, 1, obs.preds)
	assert.Equal(t, 1, obs.corrections)
	assert.Equal(t, 1, obs.fails)
	assert.True(t, errors.Is(obs.lastErr, ErrOutOfOrder))

	quiet := &countingObserver{}
	kf = newTestUKF(t, DefaultConfig(), WithObserver(quiet))
	_, err = kf.Process(Measurement{Kind: Lidar, Timestamp: 0, Raw: []float64{5, 3}})
	require.NoError(t, err)
	assert.Equal(t, 0, quiet.inits)
}
