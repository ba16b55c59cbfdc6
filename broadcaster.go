package oscplot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/trace"
	"sync"
	"sync/atomic"
)

// PointReader yields data points one at a time and io.EOF when the series is
// exhausted.
type PointReader interface {
	Read(context.Context) (DataPoint, error)
}

// SeriesReader adapts a loaded Series into a PointReader for the
// broadcaster.
type SeriesReader struct {
	series Series
	pos    int
}

func NewSeriesReader(series Series) *SeriesReader {
	return &SeriesReader{series: series}
}

func (r *SeriesReader) Read(ctx context.Context) (DataPoint, error) {
	if r.pos >= r.series.Len() {
		return DataPoint{}, io.EOF
	}

	point := DataPoint{Tick: float64(r.pos), Value: r.series.Samples()[r.pos]}
	r.pos++
	return point, nil
}

// StreamEndedMessage tells a client the series has been fully delivered.
type StreamEndedMessage struct {
	StreamEnded bool
	StreamError string `json:",omitempty"`
}

// SeriesBroadcaster pulls points from a PointReader into a ring buffer and
// fans them out to registered client channels. Because the buffer is sized to
// hold the whole series plus the end marker, clients that connect after the
// input is drained still replay the complete trace.
type SeriesBroadcaster struct {
	input PointReader

	teeOutput io.Writer

	mutex sync.Mutex
	wg    sync.WaitGroup

	streamEnded atomic.Bool
	err         error // set by run(); read only after streamEnded is true

	// Channels from open websockets we are sending data to. They must be
	// buffered so a slow client does not block the broadcaster.
	channelsForLiveUpdate []chan<- DataPoint

	// The most recently broadcast points, replayed to channels on
	// registration.
	dataBuffer *ThreadUnsafeRing[DataPoint]

	numPointsEmitted int

	logger *slog.Logger
}

func NewSeriesBroadcaster(input PointReader, bufferCapacity int, teeOutput io.Writer) *SeriesBroadcaster {
	return &SeriesBroadcaster{
		input: input,

		teeOutput: teeOutput,

		mutex:                 sync.Mutex{},
		channelsForLiveUpdate: make([]chan<- DataPoint, 0),
		dataBuffer:            NewRing[DataPoint](bufferCapacity),
		numPointsEmitted:      0,
		logger:                slog.Default().With("tag", "SeriesBroadcaster"),
	}
}

func (d *SeriesBroadcaster) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		err := d.run(ctx)

		d.err = err

		// Must set all variables to be read after the broadcaster is complete
		// before this, as this atomic is used to "release" the other variables
		// (see the Golang memory model).
		d.streamEnded.Store(true)

		// The end marker is cached in the buffer so newly connected clients
		// learn the stream is over without waiting.
		d.cacheAndBroadcastPoint(ctx, DataPoint{
			streamEnded: true,
			streamErr:   err,
		})

		logger := d.logger.With("numPointsEmitted", d.numPointsEmitted)
		if err != nil {
			logger = logger.With("error", err)
		}
		logger.Info("series broadcaster stream ended")
	}()
}

func (d *SeriesBroadcaster) Wait() {
	d.wg.Wait()
}

// Ended reports whether the input has been fully drained, and the error that
// stopped it, if any.
func (d *SeriesBroadcaster) Ended() (bool, error) {
	if !d.streamEnded.Load() {
		return false, nil
	}

	return true, d.err
}

// RegisterChannel registers a new channel. Called from the HTTP server when
// a new websocket connection is initiated.
//
// The broadcaster mutex is held while the buffered points are replayed into
// c, which keeps the replay and subsequent live updates gap-free: no point
// can be broadcast between the replay and the channel joining the live list.
// This can briefly stall other clients when a new tab connects, which is an
// accepted trade-off since connections are rare.
//
// c must be buffered; a blocked channel blocks everything.
func (d *SeriesBroadcaster) RegisterChannel(ctx context.Context, c chan<- DataPoint) {
	traceCtx, task := trace.NewTask(ctx, "RegisterChannel")
	defer task.End()

	trace.WithRegion(traceCtx, "Lock", d.mutex.Lock)
	defer d.mutex.Unlock()

	trace.WithRegion(traceCtx, "pushBufferedPointsToChannel", func() {
		d.pushBufferedPointsToChannel(c)
	})

	d.channelsForLiveUpdate = append(d.channelsForLiveUpdate, c)

	d.logger.With(
		"newChannel", c,
		"channels", d.channelsForLiveUpdate,
	).Info("registered channel")
}

// DeregisterChannel removes a channel registered with RegisterChannel.
// Called when a websocket client disconnects. The channel must not be closed
// until this method returns, as the broadcaster may still be sending to it.
func (d *SeriesBroadcaster) DeregisterChannel(ctx context.Context, c chan<- DataPoint) {
	traceCtx, task := trace.NewTask(ctx, "DeregisterChannel")
	defer task.End()

	trace.WithRegion(traceCtx, "Lock", d.mutex.Lock)
	defer d.mutex.Unlock()

	d.channelsForLiveUpdate = Filter(d.channelsForLiveUpdate, func(channel chan<- DataPoint) bool {
		return channel != c
	})
	d.logger.With(
		"removedChannel", c,
		"channels", d.channelsForLiveUpdate,
	).Info("deregistered channel")
}

func (d *SeriesBroadcaster) run(ctx context.Context) error {
	var point DataPoint
	var err error

	for {
		traceCtx, task := trace.NewTask(ctx, "SeriesBroadcasterLoop")

		trace.WithRegion(traceCtx, "PointRead", func() {
			point, err = d.input.Read(traceCtx)
		})

		if err == io.EOF {
			// The input is drained. Channels stay open because the buffered
			// trace must remain available to new browser tabs.
			task.End()
			return nil
		} else if err != nil {
			task.End()
			return err
		}

		if d.teeOutput != nil {
			fmt.Fprintf(d.teeOutput, "%f,%f\n", point.Tick, point.Value)
		}

		d.cacheAndBroadcastPoint(traceCtx, point)
		task.End()
	}
}

func (d *SeriesBroadcaster) cacheAndBroadcastPoint(traceCtx context.Context, point DataPoint) {
	d.numPointsEmitted++

	trace.WithRegion(traceCtx, "Lock", d.mutex.Lock)
	defer d.mutex.Unlock()

	d.logger.With(
		"tick", point.Tick,
		"value", point.Value,
	).Debug("new data point")

	trace.WithRegion(traceCtx, "Cache", func() {
		d.dataBuffer.Push(point)
	})

	trace.WithRegion(traceCtx, "Broadcast", func() {
		for _, c := range d.channelsForLiveUpdate {
			c <- point
		}
	})
}

func (d *SeriesBroadcaster) pushBufferedPointsToChannel(c chan<- DataPoint) {
	for _, point := range d.dataBuffer.ReadAllOrdered() {
		c <- point
	}
}
