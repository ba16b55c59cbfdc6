package oscplot

// DataPoint is a single sample paired with its clock tick. Tick is a float64
// so it can be handed to a plot axis or the wire protocol without conversion.
type DataPoint struct {
	Tick  float64
	Value float64

	streamEnded bool
	streamErr   error
}

// Series is an immutable, fully materialized sequence of samples in file
// order. Ticks are always derived from the sample positions so the two
// sequences cannot desynchronize.
type Series struct {
	samples []float64
}

func NewSeries(samples []float64) Series {
	return Series{samples: samples}
}

func (s Series) Len() int {
	return len(s.samples)
}

// Samples returns the underlying sample values. Callers must not mutate the
// returned slice.
func (s Series) Samples() []float64 {
	return s.samples
}

// Ticks returns the 0-based index of every sample as float64s.
func (s Series) Ticks() []float64 {
	ticks := make([]float64, len(s.samples))
	for i := range ticks {
		ticks[i] = float64(i)
	}
	return ticks
}

// Points pairs every sample with its tick.
func (s Series) Points() []DataPoint {
	points := make([]DataPoint, len(s.samples))
	for i, value := range s.samples {
		points[i] = DataPoint{Tick: float64(i), Value: value}
	}
	return points
}
