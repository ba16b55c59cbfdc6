// oscplot-dump connects to a running oscplot web backend and writes the
// series it is serving as CSV.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"

	"github.com/jessevdk/go-flags"
	"github.com/oscplot/oscplot"
	"nhooyr.io/websocket"
)

// Config holds the configuration for the dumper.
type Config struct {
	ServerURL string
	Output    io.Writer
	Logger    *slog.Logger
}

// Dumper reads the binary websocket stream from an oscplot server and
// outputs CSV data.
type Dumper struct {
	config    Config
	csvWriter *csv.Writer
}

func NewDumper(config Config) *Dumper {
	return &Dumper{
		config:    config,
		csvWriter: csv.NewWriter(config.Output),
	}
}

// Connect establishes the websocket connection and processes messages until
// the stream ends.
func (d *Dumper) Connect() error {
	u, err := url.Parse(d.config.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	u.Path = "/ws2"

	d.config.Logger.Info("Connecting to websocket", "url", u.String())

	ctx := context.Background()
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := d.csvWriter.Write([]string{"series_id", "tick", "value"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for {
		_, messageData, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				d.config.Logger.Info("Connection closed normally")
				break
			}
			d.config.Logger.Error("Error reading message", "error", err)
			break
		}

		if err := d.processMessage(messageData); err != nil {
			if err == io.EOF {
				d.config.Logger.Info("Stream ended")
				break
			}
			d.config.Logger.Error("Error processing message", "error", err)
		}
	}

	d.csvWriter.Flush()
	return d.csvWriter.Error()
}

func (d *Dumper) processMessage(messageData []byte) error {
	msg, err := oscplot.DecodeWSMessage(messageData)
	if err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	switch msg.Header.Type {
	case oscplot.MessageTypeData:
		dataMsg, ok := msg.Payload.(oscplot.DataMessage)
		if !ok {
			return fmt.Errorf("invalid DATA message payload type: %T", msg.Payload)
		}
		return d.processDataMessage(dataMsg)

	case oscplot.MessageTypeMetadata:
		metadata, ok := msg.Payload.(oscplot.Metadata)
		if !ok {
			return fmt.Errorf("invalid METADATA message payload type: %T", msg.Payload)
		}
		d.config.Logger.Debug("Received metadata", "metadata", metadata)

	case oscplot.MessageTypeStreamEnd:
		streamEnd, ok := msg.Payload.(oscplot.StreamEndedMessage)
		if !ok {
			return fmt.Errorf("invalid STREAM_END message payload type: %T", msg.Payload)
		}
		if streamEnd.StreamError != "" {
			d.config.Logger.Error("Stream ended with error", "message", streamEnd.StreamError)
		} else {
			d.config.Logger.Info("Stream ended successfully")
		}
		return io.EOF // signal end of stream

	default:
		d.config.Logger.Warn("Unknown message type", "type", fmt.Sprintf("0x%02x", msg.Header.Type))
	}

	return nil
}

func (d *Dumper) processDataMessage(dataMsg oscplot.DataMessage) error {
	seriesID := strconv.FormatUint(uint64(dataMsg.SeriesID), 10)

	for i := 0; i < len(dataMsg.Ticks); i++ {
		row := []string{
			seriesID,
			strconv.FormatFloat(dataMsg.Ticks[i], 'g', -1, 64),
			strconv.FormatFloat(dataMsg.Values[i], 'g', -1, 64),
		}
		if err := d.csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	d.csvWriter.Flush()
	return d.csvWriter.Error()
}

type options struct {
	URL   string `short:"u" long:"url" default:"http://localhost:5273" description:"URL of the oscplot server"`
	Debug bool   `long:"debug" description:"Enable debug logging"`
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

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	config := Config{
		ServerURL: opts.URL,
		Output:    os.Stdout,
		Logger:    logger,
	}

	dumper := NewDumper(config)
	if err := dumper.Connect(); err != nil {
		config.Logger.Error("Failed to connect", "error", err)
		os.Exit(1)
	}
}
