package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/oscplot/oscplot"
)

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	return port
}

func TestDumperEndToEnd(t *testing.T) {
	port := freePort(t)

	series := oscplot.NewSeries([]float64{10.5, 11.25, 12.0})
	broadcaster := oscplot.NewSeriesBroadcaster(oscplot.NewSeriesReader(series), series.Len()+1, nil)

	metadata := oscplot.Metadata{
		SampleCount: series.Len(),
		PlotOptions: oscplot.DefaultPlotOptions(),
	}

	server := oscplot.NewHttpServer(broadcaster, "localhost", port, metadata, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broadcaster.Start(ctx)
	broadcaster.Wait()

	go func() {
		server.Run(ctx)
	}()

	// Wait for the server to start accepting connections.
	time.Sleep(100 * time.Millisecond)

	var output bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	dumper := NewDumper(Config{
		ServerURL: "http://localhost:" + strconv.Itoa(port),
		Output:    &output,
		Logger:    logger,
	})

	done := make(chan error, 1)
	go func() {
		done <- dumper.Connect()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Connect() failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Connect() did not finish in time")
	}

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	want := []string{
		"series_id,tick,value",
		"0,0,10.5",
		"0,1,11.25",
		"0,2,12",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestProcessDataMessage(t *testing.T) {
	var output bytes.Buffer
	dumper := NewDumper(Config{
		ServerURL: "http://localhost:1",
		Output:    &output,
		Logger:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})

	err := dumper.processDataMessage(oscplot.DataMessage{
		SeriesID: 3,
		Length:   2,
		Ticks:    []float64{0, 1},
		Values:   []float64{-0.5, 0.5},
	})
	if err != nil {
		t.Fatalf("processDataMessage failed: %v", err)
	}

	got := output.String()
	want := "3,0,-0.5\n3,1,0.5\n"
	if got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestProcessMessageStreamEnd(t *testing.T) {
	var output bytes.Buffer
	dumper := NewDumper(Config{
		Output: &output,
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})

	encoded, err := oscplot.EncodeWSMessage(oscplot.WSMessage{
		Header:  oscplot.EnvelopeHeader{Version: oscplot.ProtocolVersion, Type: oscplot.MessageTypeStreamEnd},
		Payload: oscplot.StreamEndedMessage{StreamEnded: true},
	})
	if err != nil {
		t.Fatalf("encode stream end: %v", err)
	}

	if err := dumper.processMessage(encoded); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}
