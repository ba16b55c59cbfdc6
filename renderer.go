package oscplot

import "context"

// Renderer draws a loaded series as an oscilloscope view. The two
// implementations are ChartRenderer (static PNG via gonum/plot) and
// WebRenderer (interactive browser figure).
type Renderer interface {
	Render(ctx context.Context, series Series) error
}
