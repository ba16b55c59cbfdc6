package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"
	"github.com/oscplot/oscplot"
	"github.com/sirupsen/logrus"
)

type options struct {
	Backend   string `short:"b" long:"backend" choice:"web" choice:"chart" default:"web" description:"Rendering backend"`
	Output    string `short:"o" long:"output" default:"oscplot.png" description:"Output path for the chart backend"`
	Host      string `long:"host" default:"localhost" description:"Listen host for the web backend"`
	Port      int    `short:"p" long:"port" default:"5273" description:"Listen port for the web backend"`
	NoBrowser bool   `long:"no-browser" description:"Do not open the browser for the web backend"`
	Debug     bool   `long:"debug" description:"Enable debug logging"`

	Args struct {
		Input string `positional-arg-name:"input" description:"Sample file to plot (default: samples.txt)"`
	} `positional-args:"yes"`
}

// run loads the sample file, reports the count and renders. It returns the
// process exit code. The count line and the missing-file diagnostic keep the
// exact spacing the plot tooling has always printed.
func run(ctx context.Context, opts options, stdout, stderr io.Writer) int {
	path := opts.Args.Input
	if path == "" {
		path = oscplot.DefaultSamplePath
	}

	series, err := oscplot.LoadSeries(path, oscplot.DefaultDelimiter)
	if err != nil {
		var missing *oscplot.MissingFileError
		if errors.As(err, &missing) {
			fmt.Fprintf(stdout, "Sample file does not exist: \" %s \"\n", missing.Path)
		} else {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}

	fmt.Fprintf(stdout, "Given:  %d  samples.\n", series.Len())

	var renderer oscplot.Renderer
	switch opts.Backend {
	case "chart":
		renderer = oscplot.NewChartRenderer(oscplot.DefaultPlotOptions(), opts.Output)
	default:
		webRenderer := oscplot.NewWebRenderer(oscplot.DefaultPlotOptions(), opts.Host, opts.Port)
		webRenderer.OpenBrowser = !opts.NoBrowser
		renderer = webRenderer
	}

	if err := renderer.Render(ctx, series); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	return 0
}

func main() {
	var opts options
	_, err := flags.Parse(&opts)
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, opts, os.Stdout, os.Stderr))
}
