package metrics

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SavePlot draws the given series against epoch number and writes the image
// to path. The format follows the file extension (png, svg, pdf, ...).
func (a *MetricAccumulator) SavePlot(path, title string, series ...Series) error {
	if a.Len() == 0 {
		return errors.New("no epochs recorded")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "epoch"
	p.Add(plotter.NewGrid())

	for i, s := range series {
		xys := make(plotter.XYs, len(a.values[s]))
		for j, v := range a.values[s] {
			xys[j].X = float64(j + 1)
			xys[j].Y = v
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return errors.Wrapf(err, "plotting %s", s)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(s.String(), line)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving %s", path)
	}
	return nil
}
