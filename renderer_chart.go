package oscplot

import (
	"context"
	"image/color"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// DefaultChartOutputPath is where the chart backend writes its PNG.
const DefaultChartOutputPath = "oscplot.png"

// traceColor is the green used for the line and markers.
var traceColor = color.RGBA{R: 0x00, G: 0x80, B: 0x00, A: 0xff}

// ChartRenderer renders the series to a static PNG: a line trace with
// circular markers, 8x5 inches, grid on.
type ChartRenderer struct {
	Options    PlotOptions
	OutputPath string
}

func NewChartRenderer(options PlotOptions, outputPath string) *ChartRenderer {
	if outputPath == "" {
		outputPath = DefaultChartOutputPath
	}

	return &ChartRenderer{
		Options:    options,
		OutputPath: outputPath,
	}
}

func (r *ChartRenderer) Render(ctx context.Context, series Series) error {
	p := plot.New()
	p.Title.Text = r.Options.Title
	p.X.Label.Text = r.Options.XLabel
	p.Y.Label.Text = r.Options.YLabel
	if r.Options.Grid {
		p.Add(plotter.NewGrid())
	}

	if series.Len() == 0 {
		// An empty trace leaves the axis ranges unbounded, which the plot
		// cannot lay out. Pin them so an empty figure still renders.
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = -1, 1
	} else {
		samples := series.Samples()
		pts := make(plotter.XYs, series.Len())
		for i := range pts {
			pts[i].X = float64(i)
			pts[i].Y = samples[i]
		}

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return err
		}

		line.Color = traceColor
		points.Shape = draw.CircleGlyph{}
		points.Color = traceColor

		p.Add(line, points)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, r.OutputPath); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"tag":    "ChartRenderer",
		"output": r.OutputPath,
	}).Info("wrote oscilloscope chart")

	return nil
}
