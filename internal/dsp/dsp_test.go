package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRMSEnvelope(t *testing.T) {
	t.Run("invalid parameters", func(t *testing.T) {
		assert.Empty(t, RMSEnvelope([]float64{1, 2, 3}, 0, 1))
		assert.Empty(t, RMSEnvelope([]float64{1, 2, 3}, 2, 0))
		assert.Empty(t, RMSEnvelope([]float64{1, 2}, 4, 2))
	})

	t.Run("constant signal", func(t *testing.T) {
		audio := make([]float64, 100)
		for i := range audio {
			audio[i] = 0.5
		}
		env := RMSEnvelope(audio, 10, 5)
		require.Len(t, env, 19)
		for _, v := range env {
			assert.InDelta(t, 0.5, v, 1e-6)
		}
	})

	t.Run("frame count", func(t *testing.T) {
		audio := make([]float64, 64)
		env := RMSEnvelope(audio, 16, 8)
		assert.Len(t, env, 1+(64-16)/8)
	})
}

func TestZScoreNormalize(t *testing.T) {
	t.Run("mean zero std one", func(t *testing.T) {
		data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		z := ZScoreNormalize(data)
		require.Len(t, z, len(data))

		var mean float64
		for _, v := range z {
			mean += v
		}
		mean /= float64(len(z))
		assert.InDelta(t, 0.0, mean, 1e-9)

		var variance float64
		for _, v := range z {
			variance += (v - mean) * (v - mean)
		}
		std := math.Sqrt(variance / float64(len(z)))
		assert.InDelta(t, 1.0, std, 1e-9)
	})

	t.Run("constant input yields zeros", func(t *testing.T) {
		z := ZScoreNormalize([]float64{3, 3, 3, 3})
		for _, v := range z {
			assert.Zero(t, v)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, ZScoreNormalize(nil))
	})
}

func TestPercentileThreshold(t *testing.T) {
	data := []float64{5, 1, 4, 2, 3}

	t.Run("median", func(t *testing.T) {
		assert.InDelta(t, 3.0, PercentileThreshold(data, 50), 1e-9)
	})

	t.Run("interpolated", func(t *testing.T) {
		// rank 0.75*4 = 3.0 exactly on sorted [1 2 3 4 5]
		assert.InDelta(t, 4.0, PercentileThreshold(data, 75), 1e-9)
		// rank 0.9*4 = 3.6 between 4 and 5
		assert.InDelta(t, 4.6, PercentileThreshold(data, 90), 1e-9)
	})

	t.Run("edges", func(t *testing.T) {
		assert.InDelta(t, 1.0, PercentileThreshold(data, 0), 1e-9)
		assert.InDelta(t, 5.0, PercentileThreshold(data, 100), 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Zero(t, PercentileThreshold(nil, 50))
	})
}

func TestApplyHysteresis(t *testing.T) {
	t.Run("latched gate", func(t *testing.T) {
		got := ApplyHysteresis([]float64{0, 6, 6, 2, 2, 0}, 5, 2)
		assert.Equal(t, []bool{false, true, true, true, true, false}, got)
	})

	t.Run("drops below fall", func(t *testing.T) {
		got := ApplyHysteresis([]float64{0, 6, 6, 2, 2, 0}, 5, 3)
		assert.Equal(t, []bool{false, true, true, false, false, false}, got)
	})

	t.Run("initial state off", func(t *testing.T) {
		got := ApplyHysteresis([]float64{4, 4}, 5, 3)
		assert.Equal(t, []bool{false, false}, got)
	})

	t.Run("rise is inclusive fall is exclusive", func(t *testing.T) {
		got := ApplyHysteresis([]float64{5, 3, 2.9}, 5, 3)
		assert.Equal(t, []bool{true, true, false}, got)
	})
}

func TestSpectralFlux(t *testing.T) {
	t.Run("first frame is zero", func(t *testing.T) {
		spec := [][]float64{{1, 0}, {0, 1}}
		flux := SpectralFlux(spec)
		require.Len(t, flux, 2)
		assert.Zero(t, flux[0])
		assert.Greater(t, flux[1], 0.0)
	})

	t.Run("identical frames give zero flux", func(t *testing.T) {
		spec := [][]float64{{1, 2, 3}, {1, 2, 3}, {1, 2, 3}}
		flux := SpectralFlux(spec)
		for _, v := range flux {
			assert.InDelta(t, 0.0, v, 1e-9)
		}
	})

	t.Run("decreasing energy is rectified away", func(t *testing.T) {
		// Same shape, lower level: normalization makes the frames equal.
		spec := [][]float64{{2, 4}, {1, 2}}
		flux := SpectralFlux(spec)
		assert.InDelta(t, 0.0, flux[1], 1e-6)
	})
}

func TestSpectralFeatures(t *testing.T) {
	freqs := []float64{0, 100, 200, 300}

	t.Run("centroid of single tone", func(t *testing.T) {
		assert.InDelta(t, 200.0, SpectralCentroid(freqs, []float64{0, 0, 1, 0}), 1e-9)
	})

	t.Run("centroid of silence", func(t *testing.T) {
		assert.Zero(t, SpectralCentroid(freqs, []float64{0, 0, 0, 0}))
	})

	t.Run("rolloff reaches pct", func(t *testing.T) {
		assert.InDelta(t, 100.0, SpectralRolloff(freqs, []float64{1, 1, 0, 0}, 0.85), 1e-9)
	})

	t.Run("rolloff clamps to last bin", func(t *testing.T) {
		assert.InDelta(t, 300.0, SpectralRolloff(freqs, []float64{1, 1, 1, 1}, 1.0), 1e-9)
	})

	t.Run("rolloff of silence", func(t *testing.T) {
		assert.Zero(t, SpectralRolloff(freqs, []float64{0, 0, 0, 0}, 0.85))
	})

	t.Run("flatness of white spectrum", func(t *testing.T) {
		assert.InDelta(t, 1.0, SpectralFlatness([]float64{1, 1, 1, 1}), 1e-6)
	})

	t.Run("flatness of tonal spectrum", func(t *testing.T) {
		flat := SpectralFlatness([]float64{0, 0, 10, 0})
		assert.Less(t, flat, 0.01)
	})
}

func TestHanningWindow(t *testing.T) {
	w := HanningWindow(8)
	require.Len(t, w, 8)
	assert.InDelta(t, 0.0, w[0], 1e-12)
	assert.InDelta(t, 0.0, w[7], 1e-12)
	// Symmetric window.
	for i := 0; i < 4; i++ {
		assert.InDelta(t, w[i], w[7-i], 1e-12)
	}
}

func TestSpectrogram(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		assert.Nil(t, Spectrogram(make([]float64, 100), 256, 64))
	})

	t.Run("frame and bin counts", func(t *testing.T) {
		audio := make([]float64, 1024)
		spec := Spectrogram(audio, 256, 128)
		require.Len(t, spec, 1+(1024-256)/128)
		assert.Len(t, spec[0], 256/2+1)
	})

	t.Run("tone shows in the right bin", func(t *testing.T) {
		const sampleRate = 16000
		const fftSize = 512
		audio := make([]float64, 4096)
		for i := range audio {
			audio[i] = math.Sin(2 * math.Pi * 1000 * float64(i) / sampleRate)
		}
		spec := Spectrogram(audio, fftSize, 256)
		require.NotEmpty(t, spec)
		freqs := FFTFrequencies(fftSize, sampleRate)

		maxBin := 0
		for b, m := range spec[1] {
			if m > spec[1][maxBin] {
				maxBin = b
			}
		}
		assert.InDelta(t, 1000.0, freqs[maxBin], float64(sampleRate)/fftSize)
	})
}
