package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcut/fieldcut/internal/errors"
)

// toneMagnitude projects the signal onto a single DFT frequency.
func toneMagnitude(signal []float64, freq float64, sampleRate int) float64 {
	var re, im float64
	for n, x := range signal {
		phase := 2 * math.Pi * freq * float64(n) / float64(sampleRate)
		re += x * math.Cos(phase)
		im += x * math.Sin(phase)
	}
	return math.Hypot(re, im)
}

func TestBandpassFilter_Identity(t *testing.T) {
	const sampleRate = 16000
	audio := make([]float64, 512)
	for i := range audio {
		audio[i] = math.Sin(float64(i) * 0.1)
	}

	t.Run("disabled band copies input", func(t *testing.T) {
		out, err := BandpassFilter(audio, sampleRate, 0, float64(sampleRate)/2, 4)
		require.NoError(t, err)
		assert.Equal(t, audio, out)
		assert.NotSame(t, &audio[0], &out[0], "identity must still copy")
	})

	t.Run("negative low clamps to disabled", func(t *testing.T) {
		out, err := BandpassFilter(audio, sampleRate, -10, 1e9, 4)
		require.NoError(t, err)
		assert.Equal(t, audio, out)
	})

	t.Run("input never mutated", func(t *testing.T) {
		orig := make([]float64, len(audio))
		copy(orig, audio)
		_, err := BandpassFilter(audio, sampleRate, 200, 4500, 4)
		require.NoError(t, err)
		assert.Equal(t, orig, audio)
	})
}

func TestBandpassFilter_TwoTone(t *testing.T) {
	const sampleRate = 16000
	const inBand = 1000.0
	const outOfBand = 7000.0

	audio := make([]float64, sampleRate)
	for i := range audio {
		ts := float64(i) / sampleRate
		audio[i] = math.Sin(2*math.Pi*inBand*ts) + math.Sin(2*math.Pi*outOfBand*ts)
	}

	filtered, err := BandpassFilter(audio, sampleRate, 200, 4500, 4)
	require.NoError(t, err)
	require.Len(t, filtered, len(audio))

	inMag := toneMagnitude(filtered, inBand, sampleRate)
	outMag := toneMagnitude(filtered, outOfBand, sampleRate)
	assert.Greater(t, inMag, 5*outMag,
		"in-band tone should dominate after filtering: in=%v out=%v", inMag, outMag)
}

func TestBandpassFilter_PureLowpassAndHighpass(t *testing.T) {
	const sampleRate = 16000
	audio := make([]float64, sampleRate)
	for i := range audio {
		ts := float64(i) / sampleRate
		audio[i] = math.Sin(2*math.Pi*500*ts) + math.Sin(2*math.Pi*6000*ts)
	}

	t.Run("lowpass keeps low tone", func(t *testing.T) {
		out, err := BandpassFilter(audio, sampleRate, 0, 2000, 4)
		require.NoError(t, err)
		assert.Greater(t, toneMagnitude(out, 500, sampleRate), 5*toneMagnitude(out, 6000, sampleRate))
	})

	t.Run("highpass keeps high tone", func(t *testing.T) {
		out, err := BandpassFilter(audio, sampleRate, 2000, float64(sampleRate)/2, 4)
		require.NoError(t, err)
		assert.Greater(t, toneMagnitude(out, 6000, sampleRate), 5*toneMagnitude(out, 500, sampleRate))
	})
}

func TestBandpassFilter_InvalidInput(t *testing.T) {
	audio := []float64{0, 1, 0, -1}

	tests := []struct {
		name       string
		sampleRate int
		low, high  float64
		order      int
	}{
		{"zero sample rate", 0, 100, 200, 4},
		{"negative sample rate", -16000, 100, 200, 4},
		{"zero order", 16000, 100, 200, 0},
		{"nan cutoff", 16000, math.NaN(), 200, 4},
		{"inf cutoff", 16000, 100, math.Inf(1), 4},
		{"inverted band", 16000, 4000, 1000, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BandpassFilter(audio, tt.sampleRate, tt.low, tt.high, tt.order)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		})
	}
}

func TestBandpassFilter_EmptyInput(t *testing.T) {
	out, err := BandpassFilter(nil, 16000, 200, 4500, 4)
	require.NoError(t, err)
	assert.Empty(t, out)
}
