package oscplot

import (
	"context"
	"io"
	"time"
)

// Defaults for the web backend listen address.
const (
	DefaultHost = "localhost"
	DefaultPort = 5273
)

const defaultFlushInterval = 25 * time.Millisecond

// WebRenderer serves the series as an interactive in-browser figure. Render
// blocks until the context is canceled; the loaded trace stays available to
// any number of browser tabs for the lifetime of the process.
type WebRenderer struct {
	Options PlotOptions
	Host    string
	Port    int

	// TeeOutput optionally receives every point as a "tick,value" line.
	TeeOutput io.Writer

	// OpenBrowser opens the system browser at the listen address once the
	// broadcaster has drained the series.
	OpenBrowser bool
}

func NewWebRenderer(options PlotOptions, host string, port int) *WebRenderer {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}

	return &WebRenderer{
		Options: options,
		Host:    host,
		Port:    port,
	}
}

func (r *WebRenderer) Render(ctx context.Context, series Series) error {
	// +1 leaves room for the end marker next to the full trace.
	broadcaster := NewSeriesBroadcaster(NewSeriesReader(series), series.Len()+1, r.TeeOutput)

	metadata := Metadata{
		SampleCount: series.Len(),
		PlotOptions: r.Options,
	}

	server := NewHttpServer(broadcaster, r.Host, r.Port, metadata, defaultFlushInterval)

	broadcaster.Start(ctx)
	broadcaster.Wait()

	if r.OpenBrowser {
		openBrowser("http://" + server.Addr())
	}

	return server.Run(ctx)
}
