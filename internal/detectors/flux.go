package detectors

import (
	"github.com/fieldcut/fieldcut/internal/dsp"
	"github.com/fieldcut/fieldcut/internal/segment"
)

// TransientFlux detects sharp transients (impacts, clicks) from peaks in
// spectral flux with adaptive thresholding and hysteresis.
type TransientFlux struct {
	sampleRate          int
	thresholdPercentile float64
	riseFactor          float64
	fallFactor          float64
	minDurationMs       float64
	maxDurationMs       float64
	fftSize             int
	hopSize             int
}

// NewTransientFlux returns a transient detector over a 2048/512 Hann STFT.
// thresholdPercentile outside (0, 100] falls back to 85. maxDurationMs <= 0
// disables the upper duration gate.
func NewTransientFlux(sampleRate int, thresholdPercentile, minDurationMs, maxDurationMs float64) *TransientFlux {
	if thresholdPercentile <= 0 || thresholdPercentile > 100 {
		thresholdPercentile = 85.0
	}
	if minDurationMs <= 0 {
		minDurationMs = 50.0
	}
	return &TransientFlux{
		sampleRate:          sampleRate,
		thresholdPercentile: thresholdPercentile,
		riseFactor:          1.0,
		fallFactor:          0.7,
		minDurationMs:       minDurationMs,
		maxDurationMs:       maxDurationMs,
		fftSize:             2048,
		hopSize:             512,
	}
}

// Name returns the detector tag.
func (d *TransientFlux) Name() string { return "transient_flux" }

// Detect z-scores the flux curve, gates it with hysteresis around the
// percentile threshold and emits segments passing both duration gates.
func (d *TransientFlux) Detect(audio []float64) []segment.Segment {
	spec := dsp.Spectrogram(audio, d.fftSize, d.hopSize)
	if len(spec) == 0 {
		return nil
	}
	flux := dsp.SpectralFlux(spec)
	z := dsp.ZScoreNormalize(flux)
	thr := dsp.PercentileThreshold(z, d.thresholdPercentile)
	mask := dsp.ApplyHysteresis(z, thr*d.riseFactor, thr*d.fallFactor)

	frameSec := float64(d.hopSize) / float64(d.sampleRate)
	return framesToSegments(mask, frameSec, d.minDurationMs, d.maxDurationMs, d.Name(), func(endIdx int, flushed bool) float64 {
		return activationScore(z, endIdx, flushed)
	})
}
