package report

import (
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotRates draws the baseline (lu avg) and predictor (nn avg) logical error
// rates against the physical error rate p and saves the figure to path. The
// image format follows the file extension. Axes are logarithmic when every
// value is positive.
func PlotRates(entries []Entry, path string) error {
	if len(entries) == 0 {
		return errors.New("no report entries to plot")
	}
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Res.P < sorted[j].Res.P })

	baseline := make(plotter.XYs, len(sorted))
	model := make(plotter.XYs, len(sorted))
	positive := true
	for i, e := range sorted {
		baseline[i] = plotter.XY{X: e.Res.P, Y: e.Res.LuAvg}
		model[i] = plotter.XY{X: e.Res.P, Y: e.Res.NNAvg}
		if e.Res.P <= 0 || e.Res.LuAvg <= 0 || e.Res.NNAvg <= 0 {
			positive = false
		}
	}

	p := plot.New()
	p.Title.Text = "Logical error rate: lookup decoder (grey), predictor (blue)"
	p.X.Label.Text = "physical error rate p"
	p.Y.Label.Text = "logical error rate"
	if positive {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Add(plotter.NewGrid())

	series := []struct {
		name string
		xys  plotter.XYs
		col  color.RGBA
	}{
		{"lookup", baseline, color.RGBA{R: 120, G: 120, B: 120, A: 255}},
		{"predictor", model, color.RGBA{R: 20, G: 80, B: 200, A: 255}},
	}
	for _, s := range series {
		line, points, err := plotter.NewLinePoints(s.xys)
		if err != nil {
			return errors.Wrapf(err, "failed to plot %s rates", s.name)
		}
		line.Color = s.col
		line.Width = vg.Points(1.2)
		points.Color = s.col
		points.Radius = vg.Points(2.5)
		p.Add(line, points)
		p.Legend.Add(s.name, line, points)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create plot directory %s", dir)
		}
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot %s", path)
	}
	return nil
}
