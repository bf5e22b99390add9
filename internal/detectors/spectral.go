package detectors

import (
	"math"

	"github.com/fieldcut/fieldcut/internal/dsp"
	"github.com/fieldcut/fieldcut/internal/segment"
)

// SpectralInterestingness detects regions with dynamic spectral content by
// combining z-scored flux, centroid, rolloff, flatness and per-frame spectral
// RMS into a single weighted score.
type SpectralInterestingness struct {
	sampleRate          int
	thresholdPercentile float64
	minDurationMs       float64
	fftSize             int
	hopSize             int

	wFlux     float64
	wCentroid float64
	wRolloff  float64
	wFlatness float64
	wRMS      float64
}

// NewSpectralInterestingness returns an interestingness detector over a
// 2048/512 Hann STFT with the default feature weights. thresholdPercentile
// outside (0, 100] falls back to 85.
func NewSpectralInterestingness(sampleRate int, thresholdPercentile, minDurationMs float64) *SpectralInterestingness {
	if thresholdPercentile <= 0 || thresholdPercentile > 100 {
		thresholdPercentile = 85.0
	}
	if minDurationMs <= 0 {
		minDurationMs = 400.0
	}
	return &SpectralInterestingness{
		sampleRate:          sampleRate,
		thresholdPercentile: thresholdPercentile,
		minDurationMs:       minDurationMs,
		fftSize:             2048,
		hopSize:             512,
		wFlux:               0.25,
		wCentroid:           0.2,
		wRolloff:            0.2,
		wFlatness:           0.15,
		wRMS:                0.2,
	}
}

// Name returns the detector tag.
func (d *SpectralInterestingness) Name() string { return "spectral_interestingness" }

// Detect thresholds the combined score at its configured percentile. Unlike
// the flux and energy detectors this one uses no hysteresis; the combined
// score is already smooth enough.
func (d *SpectralInterestingness) Detect(audio []float64) []segment.Segment {
	spec := dsp.Spectrogram(audio, d.fftSize, d.hopSize)
	if len(spec) == 0 {
		return nil
	}
	freqs := dsp.FFTFrequencies(d.fftSize, d.sampleRate)

	nFrames := len(spec)
	flux := make([]float64, nFrames)
	centroids := make([]float64, nFrames)
	rolloffs := make([]float64, nFrames)
	flatness := make([]float64, nFrames)
	rms := make([]float64, nFrames)
	for i, mags := range spec {
		// Flux here is raw positive energy change, not the per-frame
		// normalized variant used by the transient detector.
		if i > 0 {
			var f float64
			for b := range mags {
				if diff := mags[b] - spec[i-1][b]; diff > 0 {
					f += diff
				}
			}
			flux[i] = f
		}
		centroids[i] = dsp.SpectralCentroid(freqs, mags)
		rolloffs[i] = dsp.SpectralRolloff(freqs, mags, 0.85)
		flatness[i] = dsp.SpectralFlatness(mags)

		var sumSq float64
		for _, m := range mags {
			sumSq += m * m
		}
		rms[i] = math.Sqrt(sumSq/float64(len(mags)) + 1e-12)
	}

	zFlux := dsp.ZScoreNormalize(flux)
	zCent := dsp.ZScoreNormalize(centroids)
	zRoll := dsp.ZScoreNormalize(rolloffs)
	zFlat := dsp.ZScoreNormalize(flatness)
	zRMS := dsp.ZScoreNormalize(rms)

	combined := make([]float64, nFrames)
	for i := range combined {
		combined[i] = d.wFlux*zFlux[i] +
			d.wCentroid*zCent[i] +
			d.wRolloff*zRoll[i] +
			d.wFlatness*zFlat[i] +
			d.wRMS*zRMS[i]
	}
	score := dsp.ZScoreNormalize(combined)

	thr := dsp.PercentileThreshold(score, d.thresholdPercentile)
	mask := make([]bool, nFrames)
	for i, v := range score {
		mask[i] = v >= thr
	}

	frameSec := float64(d.hopSize) / float64(d.sampleRate)
	return framesToSegments(mask, frameSec, d.minDurationMs, 0, d.Name(), func(endIdx int, flushed bool) float64 {
		return activationScore(score, endIdx, flushed)
	})
}
