package oscplot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func startTestServer(t *testing.T, samples []float64) (string, Metadata, func()) {
	t.Helper()

	series := NewSeries(samples)
	broadcaster := NewSeriesBroadcaster(NewSeriesReader(series), series.Len()+1, nil)

	metadata := Metadata{
		SampleCount: series.Len(),
		PlotOptions: DefaultPlotOptions(),
	}

	// We serve s.mux through httptest instead of calling Run() to avoid
	// binding a fixed port.
	s := NewHttpServer(broadcaster, "localhost", 0, metadata, 10*time.Millisecond)
	srv := httptest.NewServer(s.mux)

	broadcaster.Start(context.Background())
	broadcaster.Wait()

	cleanup := func() {
		srv.Close()
	}

	return srv.URL, metadata, cleanup
}

func dialWebSocket(t *testing.T, baseURL string, path string) (*websocket.Conn, context.Context, func()) {
	t.Helper()

	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse baseURL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = path

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	c, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		cancel()
		t.Fatalf("dial websocket: %v", err)
	}

	cleanup := func() {
		c.Close(websocket.StatusNormalClosure, "")
		cancel()
	}

	return c, ctx, cleanup
}

func TestMetadataEndpoint(t *testing.T) {
	baseURL, want, cleanup := startTestServer(t, []float64{1, 2, 3})
	defer cleanup()

	resp, err := http.Get(baseURL + "/metadata")
	if err != nil {
		t.Fatalf("GET /metadata: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got Metadata
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}

	if got.PlotOptions.Title != "Audio Sample Oscilloscope" {
		t.Fatalf("Title = %q, want %q", got.PlotOptions.Title, "Audio Sample Oscilloscope")
	}
	if got.PlotOptions.XLabel != "Clock Tick" || got.PlotOptions.YLabel != "Sample Value" {
		t.Fatalf("unexpected axis labels: %+v", got.PlotOptions)
	}
	if !got.PlotOptions.Grid || got.PlotOptions.ShowLegend {
		t.Fatalf("expected grid on and legend off, got %+v", got.PlotOptions)
	}
}

// wsTestMessage can decode both the point objects and the end marker sent on
// /ws.
type wsTestMessage struct {
	Tick        float64
	Value       float64
	StreamEnded bool
	StreamError string
}

func TestWebSocketJSONStream(t *testing.T) {
	samples := []float64{0.5, -0.5, 0.25}
	baseURL, _, cleanup := startTestServer(t, samples)
	defer cleanup()

	c, ctx, closeWS := dialWebSocket(t, baseURL, "/ws")
	defer closeWS()

	gotTicks := []float64{}
	gotValues := []float64{}

	for {
		var msg wsTestMessage
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			t.Fatalf("read websocket message: %v", err)
		}

		if msg.StreamEnded {
			if msg.StreamError != "" {
				t.Fatalf("stream ended with error: %s", msg.StreamError)
			}
			break
		}

		gotTicks = append(gotTicks, msg.Tick)
		gotValues = append(gotValues, msg.Value)
	}

	if !reflect.DeepEqual(gotValues, samples) {
		t.Fatalf("values = %v, want %v", gotValues, samples)
	}
	if !reflect.DeepEqual(gotTicks, []float64{0, 1, 2}) {
		t.Fatalf("ticks = %v, want [0 1 2]", gotTicks)
	}
}

func TestWebSocketBinaryStream(t *testing.T) {
	samples := []float64{1.5, 2.5, 3.5, 4.5}
	baseURL, wantMetadata, cleanup := startTestServer(t, samples)
	defer cleanup()

	c, ctx, closeWS := dialWebSocket(t, baseURL, "/ws2")
	defer closeWS()

	gotTicks := []float64{}
	gotValues := []float64{}
	sawMetadata := false
	sawEnd := false

	for !sawEnd {
		_, data, err := c.Read(ctx)
		if err != nil {
			t.Fatalf("read websocket message: %v", err)
		}

		msg, err := DecodeWSMessage(data)
		if err != nil {
			t.Fatalf("decode message: %v", err)
		}

		switch payload := msg.Payload.(type) {
		case Metadata:
			if !reflect.DeepEqual(payload, wantMetadata) {
				t.Fatalf("metadata = %+v, want %+v", payload, wantMetadata)
			}
			sawMetadata = true
		case DataMessage:
			gotTicks = append(gotTicks, payload.Ticks...)
			gotValues = append(gotValues, payload.Values...)
		case StreamEndedMessage:
			if payload.StreamError != "" {
				t.Fatalf("stream ended with error: %s", payload.StreamError)
			}
			sawEnd = true
		default:
			t.Fatalf("unexpected payload type: %T", payload)
		}
	}

	if !sawMetadata {
		t.Fatal("never received metadata message")
	}
	if !reflect.DeepEqual(gotValues, samples) {
		t.Fatalf("values = %v, want %v", gotValues, samples)
	}
	if !reflect.DeepEqual(gotTicks, []float64{0, 1, 2, 3}) {
		t.Fatalf("ticks = %v, want [0 1 2 3]", gotTicks)
	}
}

func TestWebUIIsServed(t *testing.T) {
	baseURL, _, cleanup := startTestServer(t, []float64{1})
	defer cleanup()

	// In dev builds the embedded FS is empty so / serves nothing useful, but
	// the route must exist and not panic.
	resp, err := http.Get(baseURL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
}
