package detectors

import (
	"github.com/fieldcut/fieldcut/internal/dsp"
	"github.com/fieldcut/fieldcut/internal/segment"
)

// NonSilenceEnergy detects regions whose z-scored RMS envelope sits above an
// adaptive percentile threshold. It separates activity from a steady
// background such as rain or room tone.
type NonSilenceEnergy struct {
	sampleRate          int
	thresholdPercentile float64
	riseFactor          float64
	fallFactor          float64
	minDurationMs       float64
	windowSize          int
	hopSize             int
}

// NewNonSilenceEnergy returns an energy detector with a 100 ms RMS window and
// 50 ms hop. thresholdPercentile selects the adaptive gate level; values
// outside (0, 100] fall back to 75.
func NewNonSilenceEnergy(sampleRate int, thresholdPercentile, minDurationMs float64) *NonSilenceEnergy {
	if thresholdPercentile <= 0 || thresholdPercentile > 100 {
		thresholdPercentile = 75.0
	}
	if minDurationMs <= 0 {
		minDurationMs = 400.0
	}
	return &NonSilenceEnergy{
		sampleRate:          sampleRate,
		thresholdPercentile: thresholdPercentile,
		riseFactor:          1.0,
		fallFactor:          0.8,
		minDurationMs:       minDurationMs,
		windowSize:          sampleRate * 100 / 1000,
		hopSize:             sampleRate * 50 / 1000,
	}
}

// Name returns the detector tag.
func (d *NonSilenceEnergy) Name() string { return "nonsilence_energy" }

// Detect gates the z-scored envelope with hysteresis and emits segments
// scored by the strongest z value near each segment's end.
func (d *NonSilenceEnergy) Detect(audio []float64) []segment.Segment {
	if len(audio) < d.windowSize {
		return nil
	}
	env := dsp.RMSEnvelope(audio, d.windowSize, d.hopSize)
	if len(env) == 0 {
		return nil
	}
	z := dsp.ZScoreNormalize(env)
	thr := dsp.PercentileThreshold(z, d.thresholdPercentile)
	mask := dsp.ApplyHysteresis(z, thr*d.riseFactor, thr*d.fallFactor)

	frameSec := float64(d.hopSize) / float64(d.sampleRate)
	return framesToSegments(mask, frameSec, d.minDurationMs, 0, d.Name(), func(endIdx int, flushed bool) float64 {
		return activationScore(z, endIdx, flushed)
	})
}
