package oscplot

// PlotOptions describes how the oscilloscope view should be labelled. Both
// rendering backends consume the same options.
type PlotOptions struct {
	Title      string
	XLabel     string
	YLabel     string
	Grid       bool
	ShowLegend bool
}

// DefaultPlotOptions is the fixed oscilloscope labelling.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{
		Title:  "Audio Sample Oscilloscope",
		XLabel: "Clock Tick",
		YLabel: "Sample Value",
		Grid:   true,
	}
}

// Metadata is sent to browser clients before any data so they can set up the
// figure.
type Metadata struct {
	SampleCount int
	PlotOptions PlotOptions
}
