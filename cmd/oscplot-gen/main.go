// oscplot-gen writes a test waveform to a sample file that oscplot can
// display.
package main

import (
	"bufio"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/oscplot/oscplot"
	"github.com/sirupsen/logrus"
)

type options struct {
	Waveform  string  `short:"w" long:"waveform" choice:"sine" choice:"square" choice:"sawtooth" choice:"triangle" default:"triangle" description:"Waveform shape"`
	Frequency float64 `short:"f" long:"frequency" default:"440" description:"Waveform frequency in Hz"`
	Rate      float64 `short:"r" long:"rate" default:"48000" description:"Sample rate in Hz"`
	Output    string  `short:"o" long:"output" default:"samples.txt" description:"Output sample file"`
	Quiet     bool    `short:"q" long:"quiet" description:"Suppress progress logging"`
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

	if opts.Quiet {
		logrus.SetLevel(logrus.ErrorLevel)
	}

	logger := logrus.WithFields(logrus.Fields{
		"waveform":  opts.Waveform,
		"frequency": opts.Frequency,
		"rate":      opts.Rate,
	})

	kind, err := oscplot.ParseWaveformKind(opts.Waveform)
	if err != nil {
		logger.WithError(err).Fatal("invalid waveform")
	}

	samples, err := oscplot.Generate(kind, opts.Rate, opts.Frequency)
	if err != nil {
		logger.WithError(err).Fatal("failed to generate waveform")
	}

	file, err := os.Create(opts.Output)
	if err != nil {
		logger.WithError(err).Fatal("failed to create sample file")
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := oscplot.WriteSamples(writer, samples, oscplot.DefaultDelimiter); err != nil {
		logger.WithError(err).Fatal("failed to write sample file")
	}

	if err := writer.Flush(); err != nil {
		logger.WithError(err).Fatal("failed to flush sample file")
	}

	logger.WithFields(logrus.Fields{
		"output":  opts.Output,
		"samples": len(samples),
	}).Info("wrote sample file")
}
