package ukf

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	_ "gonum.org/v1/plot/vg/vgimg" // png, jpg, tiff
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"
)

// PlotTrajectory draws the measured positions, the ground truth (when logged)
// and the estimated positions, then saves the plot to file. The image format
// follows the file extension. states must be aligned with entries, as in
// ReplayReport.States.
func PlotTrajectory(file string, entries []LogEntry, states []*mat.VecDense) error {
	if len(states) != len(entries) {
		return errors.New("plot: states and entries must have the same length")
	}
	var lidar, radar, truth, est plotter.XYs
	for i, e := range entries {
		switch e.Kind {
		case Lidar:
			lidar = append(lidar, plotter.XY{X: e.Raw[0], Y: e.Raw[1]})
		case Radar:
			ρ, φ := e.Raw[0], e.Raw[1]
			radar = append(radar, plotter.XY{X: ρ * math.Cos(φ), Y: ρ * math.Sin(φ)})
		}
		if e.Truth != nil {
			truth = append(truth, plotter.XY{X: e.Truth.Px, Y: e.Truth.Py})
		}
		if s := states[i]; s != nil {
			est = append(est, plotter.XY{X: s.AtVec(iPx), Y: s.AtVec(iPy)})
		}
	}

	p := plot.New()
	p.Title.Text = "CTRV track"
	p.X.Label.Text = "px (m)"
	p.Y.Label.Text = "py (m)"
	p.Add(plotter.NewGrid())

	for i, pts := range []struct {
		name string
		xys  plotter.XYs
	}{{"lidar", lidar}, {"radar", radar}} {
		if len(pts.xys) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts.xys)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Shape = plotutil.Shape(i)
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add(pts.name, s)
	}
	for i, line := range []struct {
		name string
		xys  plotter.XYs
	}{{"truth", truth}, {"estimate", est}} {
		if len(line.xys) < 2 {
			continue
		}
		l, err := plotter.NewLine(line.xys)
		if err != nil {
			return err
		}
		l.LineStyle.Color = plotutil.Color(i + 2)
		l.LineStyle.Width = vg.Points(1)
		l.LineStyle.Dashes = plotutil.Dashes(i)
		p.Add(l)
		p.Legend.Add(line.name, l)
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, file)
}
