package oscplot

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// WaveformKind selects the shape produced by Generate.
type WaveformKind string

const (
	WaveformSine     WaveformKind = "sine"
	WaveformSquare   WaveformKind = "square"
	WaveformSawtooth WaveformKind = "sawtooth"
	WaveformTriangle WaveformKind = "triangle"
)

func ParseWaveformKind(s string) (WaveformKind, error) {
	switch WaveformKind(strings.ToLower(s)) {
	case WaveformSine:
		return WaveformSine, nil
	case WaveformSquare:
		return WaveformSquare, nil
	case WaveformSawtooth:
		return WaveformSawtooth, nil
	case WaveformTriangle:
		return WaveformTriangle, nil
	default:
		return "", fmt.Errorf("unknown waveform kind: %q", s)
	}
}

// valueAt computes the amplitude at the given sample clock. All shapes are
// normalized to [-1, 1].
func (k WaveformKind) valueAt(sampleClock, sampleRate, frequency float64) float64 {
	switch k {
	case WaveformSquare:
		period := sampleRate / frequency
		if math.Mod(sampleClock, period) < period/2 {
			return 1
		}
		return -1
	case WaveformSawtooth:
		period := sampleRate / frequency
		return 1 - 2*math.Mod(sampleClock, period)/period
	case WaveformTriangle:
		period := sampleRate / frequency
		normalizedLocation := math.Mod(sampleClock, period) / period
		if normalizedLocation < 0.5 {
			return 4 * (normalizedLocation - 0.25)
		}
		return 1 - 4*(normalizedLocation-0.5)
	default: // sine
		return math.Sin(2 * math.Pi * frequency * sampleClock / sampleRate)
	}
}

// Generate produces one period of the waveform plus one extra sample, at the
// given sample rate and frequency. The result is suitable for WriteSamples.
func Generate(kind WaveformKind, sampleRate, frequency float64) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %v", sampleRate)
	}
	if frequency <= 0 || frequency > sampleRate {
		return nil, fmt.Errorf("frequency must be in (0, %v], got %v", sampleRate, frequency)
	}

	count := int(sampleRate/frequency) + 1
	samples := make([]float64, count)
	for i := range samples {
		samples[i] = kind.valueAt(float64(i), sampleRate, frequency)
	}

	return samples, nil
}

// WriteSamples writes the samples in the delimited single-line format that
// LoadSamples reads back: every value followed by the delimiter.
func WriteSamples(w io.Writer, samples []float64, delimiter rune) error {
	for _, sample := range samples {
		if _, err := io.WriteString(w, strconv.FormatFloat(sample, 'g', -1, 64)+string(delimiter)); err != nil {
			return err
		}
	}

	return nil
}
