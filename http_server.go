package oscplot

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const channelBufferSize = 10000

// dataChunkSize is the maximum number of tick/value pairs packed into a
// single DATA message on /ws2.
const dataChunkSize = 512

type HttpServer struct {
	broadcaster   *SeriesBroadcaster
	addr          string
	metadata      Metadata
	flushInterval time.Duration
	mux           *http.ServeMux
	logger        logrus.FieldLogger
}

// NewHttpServer serves the embedded web UI at /, plot metadata at
// /metadata, a JSON point stream at /ws and the binary protocol at /ws2.
func NewHttpServer(broadcaster *SeriesBroadcaster, host string, port int, metadata Metadata, flushInterval time.Duration) *HttpServer {
	s := &HttpServer{
		broadcaster:   broadcaster,
		addr:          fmt.Sprintf("%s:%d", host, port),
		metadata:      metadata,
		flushInterval: flushInterval,
		mux:           http.NewServeMux(),
		logger:        logrus.WithField("tag", "HttpServer"),
	}

	subFS, err := fs.Sub(webuiFiles, "webui")
	if err != nil {
		panic(err)
	}

	s.mux.Handle("/", http.FileServer(http.FS(subFS)))
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/ws2", s.handleWebSocket2)
	s.mux.HandleFunc("/metadata", s.handleMetadata)

	return s
}

func (s *HttpServer) Addr() string {
	return s.addr
}

// handleWebSocket streams every data point as a JSON object, then a
// StreamEndedMessage, then closes. Consumed by the web UI.
func (s *HttpServer) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to accept new websocket connection")
		return
	}

	ctx := req.Context()
	ctx = c.CloseRead(ctx) // we only write on this socket

	channel := make(chan DataPoint, channelBufferSize)
	wg := sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			select {
			case point, open := <-channel:
				if !open {
					s.logger.Warn("data channel closed, closing websocket")
					c.Close(websocket.StatusNormalClosure, "channel closed")
					return
				}

				if point.streamEnded {
					endMsg := StreamEndedMessage{StreamEnded: true}
					if point.streamErr != nil {
						endMsg.StreamError = point.streamErr.Error()
					}

					if err := wsjson.Write(ctx, c, endMsg); err != nil {
						s.logger.Warn("websocket write failed and closed")
						return
					}

					c.Close(websocket.StatusNormalClosure, "stream ended")
					return
				}

				if err := wsjson.Write(ctx, c, point); err != nil {
					// The websocket closed under us; nothing left to send.
					s.logger.Warn("websocket write failed and closed")
					return
				}
			case <-ctx.Done():
				s.logger.Info("client closed connection or context canceled")
				c.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}()

	s.broadcaster.RegisterChannel(ctx, channel)

	wg.Wait()
	s.broadcaster.DeregisterChannel(ctx, channel)
	close(channel)
}

// handleWebSocket2 speaks the binary protocol: one METADATA message, DATA
// chunks, then STREAM_END. Consumed by oscplot-dump and other tools.
func (s *HttpServer) handleWebSocket2(w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to accept new websocket connection")
		return
	}

	ctx := req.Context()
	ctx = c.CloseRead(ctx)

	if err := s.writeBinaryMessage(ctx, c, MessageTypeMetadata, s.metadata); err != nil {
		s.logger.WithError(err).Warn("failed to write metadata message")
		c.Close(websocket.StatusInternalError, "metadata write failed")
		return
	}

	// Registration replays the whole buffered series into the channel before
	// this handler starts draining it, so the buffer must be able to hold the
	// full trace plus the end marker.
	capacity := channelBufferSize
	if s.metadata.SampleCount+1 > capacity {
		capacity = s.metadata.SampleCount + 1
	}

	channel := make(chan DataPoint, capacity)
	s.broadcaster.RegisterChannel(ctx, channel)
	defer func() {
		s.broadcaster.DeregisterChannel(ctx, channel)
		close(channel)
	}()

	// A short series never fills a whole chunk, so don't allocate one.
	chunkCapacity := Min(dataChunkSize, s.metadata.SampleCount)
	chunk := DataMessage{
		Ticks:  make([]float64, 0, chunkCapacity),
		Values: make([]float64, 0, chunkCapacity),
	}

	flushChunk := func() error {
		if len(chunk.Ticks) == 0 {
			return nil
		}

		chunk.Length = uint32(len(chunk.Ticks))
		if err := s.writeBinaryMessage(ctx, c, MessageTypeData, chunk); err != nil {
			return err
		}

		chunk.Ticks = chunk.Ticks[:0]
		chunk.Values = chunk.Values[:0]
		return nil
	}

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case point := <-channel:
			if point.streamEnded {
				if err := flushChunk(); err != nil {
					s.logger.Warn("websocket write failed and closed")
					return
				}

				endMsg := StreamEndedMessage{StreamEnded: true}
				if point.streamErr != nil {
					endMsg.StreamError = point.streamErr.Error()
				}

				if err := s.writeBinaryMessage(ctx, c, MessageTypeStreamEnd, endMsg); err != nil {
					s.logger.Warn("websocket write failed and closed")
				}

				c.Close(websocket.StatusNormalClosure, "stream ended")
				return
			}

			chunk.Ticks = append(chunk.Ticks, point.Tick)
			chunk.Values = append(chunk.Values, point.Value)
			if len(chunk.Ticks) >= dataChunkSize {
				if err := flushChunk(); err != nil {
					s.logger.Warn("websocket write failed and closed")
					return
				}
			}
		case <-ticker.C:
			if err := flushChunk(); err != nil {
				s.logger.Warn("websocket write failed and closed")
				return
			}
		case <-ctx.Done():
			s.logger.Info("client closed connection or context canceled")
			c.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (s *HttpServer) writeBinaryMessage(ctx context.Context, c *websocket.Conn, msgType byte, payload interface{}) error {
	encoded, err := EncodeWSMessage(WSMessage{
		Header:  EnvelopeHeader{Version: ProtocolVersion, Type: msgType},
		Payload: payload,
	})
	if err != nil {
		return err
	}

	return c.Write(ctx, websocket.MessageBinary, encoded)
}

func (s *HttpServer) handleMetadata(w http.ResponseWriter, req *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(s.metadata)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
	}
}

// Run serves until the context is canceled.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Infof("starting HTTP server at http://%s", s.addr)
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}

	return err
}
