package ukf

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Simulator generates a noisy CTRV trajectory and the lidar and radar
// measurements of it, alternating between the two sensors.
type Simulator struct {
	truth [NX]float64
	ts    int64 // microseconds
	dt    int64 // microseconds
	step  int
	noise *AWGN
}

// NewSimulator returns a simulator starting at the state x0 (px, py, v, yaw, yawd)
// at time 0, stepping every dt microseconds. The process and measurement noise
// follow cfg and are drawn from src.
func NewSimulator(cfg Config, x0 []float64, dt int64, src rand.Source) (*Simulator, error) {
	if len(x0) != NX {
		return nil, fmt.Errorf("%sx0(%dx1) state(%dx1)", dimErrMsg, len(x0), NX)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("simulation step must be positive, got %d", dt)
	}
	noise, err := NewAWGN(NewSensorNoise(cfg), src)
	if err != nil {
		return nil, err
	}
	s := &Simulator{dt: dt, noise: noise}
	copy(s.truth[:], x0)
	return s, nil
}

// Truth returns the current true state.
func (s *Simulator) Truth() GroundTruthState {
	v, yaw := s.truth[iV], s.truth[iYaw]
	return GroundTruthState{
		Px: s.truth[iPx], Py: s.truth[iPy],
		Vx: v * math.Cos(yaw), Vy: v * math.Sin(yaw),
		Yaw: yaw, YawRate: s.truth[iYawd], HasYaw: true,
	}
}

// Next returns the measurement of the current true state, then advances the
// truth by one step with a sampled process noise.
func (s *Simulator) Next() LogEntry {
	kind := Lidar
	if s.step%2 == 1 {
		kind = Radar
	}
	truth := s.Truth()
	entry := LogEntry{
		Measurement: Measurement{Kind: kind, Timestamp: s.ts, Raw: s.measure(kind)},
		Truth:       &truth,
	}

	aug := make([]float64, NAug)
	copy(aug, s.truth[:])
	copy(aug[NX:], s.noise.Process())
	s.truth = PropagateCTRV(aug, float64(s.dt)/1e6)
	s.truth[iYaw] = NormalizeAngle(s.truth[iYaw])
	s.ts += s.dt
	s.step++
	return entry
}

// Generate returns the next n entries.
func (s *Simulator) Generate(n int) []LogEntry {
	entries := make([]LogEntry, n)
	for i := range entries {
		entries[i] = s.Next()
	}
	return entries
}

func (s *Simulator) measure(k SensorKind) []float64 {
	px, py := s.truth[iPx], s.truth[iPy]
	var raw []float64
	switch k {
	case Lidar:
		raw = []float64{px, py}
	case Radar:
		v, yaw := s.truth[iV], s.truth[iYaw]
		ρ := math.Hypot(px, py)
		ρdot := 0.0
		if ρ > 0 {
			ρdot = (px*v*math.Cos(yaw) + py*v*math.Sin(yaw)) / ρ
		}
		raw = []float64{ρ, math.Atan2(py, px), ρdot}
	}
	for i, n := range s.noise.Measurement(k) {
		raw[i] += n
	}
	if k == Radar {
		raw[1] = NormalizeAngle(raw[1])
	}
	return raw
}

// MonteCarloRuns stores MC runs.
type MonteCarloRuns struct {
	runs, steps int
	Runs        []MonteCarloRun
}

// MonteCarloRun stores the results of an MC run.
type MonteCarloRun struct {
	ID      string
	Entries []LogEntry
	Report  *ReplayReport
}

// MonteCarloConfig defines the simulated scenario of Monte Carlo runs.
type MonteCarloConfig struct {
	Filter Config
	X0     []float64 // true initial state
	Step   int64     // microseconds between measurements
	Seed   uint64
}

// NewMonteCarloRuns simulates `samples` independent trajectories of `steps`
// measurements each and replays every one of them through a new UKF.
func NewMonteCarloRuns(samples, steps int, mcCfg MonteCarloConfig, opts ...Option) (MonteCarloRuns, error) {
	if samples < 1 || steps < 1 {
		return MonteCarloRuns{}, fmt.Errorf("need at least one sample and one step, got %d and %d", samples, steps)
	}
	runs := make([]MonteCarloRun, samples)
	for sample := 0; sample < samples; sample++ {
		src := rand.NewPCG(mcCfg.Seed, uint64(sample))
		sim, err := NewSimulator(mcCfg.Filter, mcCfg.X0, mcCfg.Step, src)
		if err != nil {
			return MonteCarloRuns{}, err
		}
		id := uuid.NewString()
		kf, err := NewUKF(mcCfg.Filter, append(opts, WithTrackID(id))...)
		if err != nil {
			return MonteCarloRuns{}, err
		}
		entries := sim.Generate(steps)
		report, err := Replay(kf, entries, nil)
		if err != nil {
			return MonteCarloRuns{}, fmt.Errorf("run %s: %w", id, err)
		}
		runs[sample] = MonteCarloRun{ID: id, Entries: entries, Report: report}
	}
	return MonteCarloRuns{samples, steps, runs}, nil
}

// states gathers component i of the belief at the given step across all runs.
func (mc MonteCarloRuns) states(step int) [][]float64 {
	states := make([][]float64, NX)
	for i := range states {
		states[i] = make([]float64, 0, len(mc.Runs))
	}
	for _, run := range mc.Runs {
		state := run.Report.States[step]
		if state == nil {
			continue
		}
		for i := 0; i < NX; i++ {
			states[i] = append(states[i], state.AtVec(i))
		}
	}
	return states
}

// Mean returns the mean of all the samples for the given time step.
func (mc MonteCarloRuns) Mean(step int) []float64 {
	means := make([]float64, NX)
	for i, s := range mc.states(step) {
		means[i] = stat.Mean(s, nil)
	}
	return means
}

// StdDev returns the standard deviation of all the samples for the given time step.
func (mc MonteCarloRuns) StdDev(step int) []float64 {
	devs := make([]float64, NX)
	for i, s := range mc.states(step) {
		devs[i] = stat.StdDev(s, nil)
	}
	return devs
}

// RMSE returns the mean and standard deviation across runs of the (px, py, vx, vy) RMSE.
func (mc MonteCarloRuns) RMSE() (mean, stddev []float64) {
	per := make([][]float64, 4)
	for _, run := range mc.Runs {
		rmse := run.Report.Truth.RMSE()
		if rmse == nil {
			continue
		}
		for i, v := range rmse {
			per[i] = append(per[i], v)
		}
	}
	mean = make([]float64, len(per))
	stddev = make([]float64, len(per))
	for i, vals := range per {
		mean[i], stddev[i] = stat.MeanStdDev(vals, nil)
	}
	return mean, stddev
}

// AsCSV is used as a CSV serializer. Returns one document per state component
// with one column per run followed by the mean and standard deviation.
func (mc MonteCarloRuns) AsCSV(headers []string) []string {
	rtn := make([]string, NX)
	for i := 0; i < NX; i++ {
		header := headers[i]
		lines := make([]string, mc.steps+1) // One line per step, plus header.
		cols := make([]string, 0, mc.runs+2)
		for rNo := 0; rNo < mc.runs; rNo++ {
			cols = append(cols, fmt.Sprintf("%s-%d", header, rNo))
		}
		lines[0] = strings.Join(append(cols, header+"-mean", header+"-stddev"), ",")

		for k := 0; k < mc.steps; k++ {
			cols = cols[:0]
			for _, run := range mc.Runs {
				if state := run.Report.States[k]; state != nil {
					cols = append(cols, fmt.Sprintf("%f", state.AtVec(i)))
				} else {
					cols = append(cols, "")
				}
			}
			mean := mc.Mean(k)
			stddev := mc.StdDev(k)
			cols = append(cols, fmt.Sprintf("%f", mean[i]), fmt.Sprintf("%f", stddev[i]))
			lines[k+1] = strings.Join(cols, ",")
		}
		rtn[i] = strings.Join(lines, "\n")
	}
	return rtn
}
