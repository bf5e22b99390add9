// Package dsp provides the stateless numeric building blocks used by the
// detectors: envelopes, normalization, adaptive thresholds, hysteresis gating
// and spectral features. All functions allocate their own output and never
// mutate their input slices, so they are safe to call from parallel workers.
package dsp

import (
	"math"
	"sort"
)

// RMSEnvelope computes the RMS envelope of an audio signal with frames of
// window samples taken every hop samples. It returns an empty slice when the
// window or hop is non-positive or the signal is shorter than one window.
func RMSEnvelope(audio []float64, window, hop int) []float64 {
	if window <= 0 || hop <= 0 || len(audio) < window {
		return []float64{}
	}
	nFrames := 1 + (len(audio)-window)/hop
	env := make([]float64, nFrames)
	for i := 0; i < nFrames; i++ {
		start := i * hop
		var sum float64
		for _, x := range audio[start : start+window] {
			sum += x * x
		}
		env[i] = math.Sqrt(sum/float64(window) + 1e-12)
	}
	return env
}

// ZScoreNormalize returns (x-mean)/std for each element. Constant input has
// no interesting structure, so a zero standard deviation yields an all-zero
// result instead of dividing by zero.
func ZScoreNormalize(data []float64) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}
	var mean float64
	for _, x := range data {
		mean += x
	}
	mean /= float64(len(data))
	var variance float64
	for _, x := range data {
		d := x - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(data)))
	if std == 0 {
		return out
	}
	for i, x := range data {
		out[i] = (x - mean) / std
	}
	return out
}

// PercentileThreshold returns the value at the given percentile (0-100) using
// linear interpolation between the closest ranks.
func PercentileThreshold(data []float64, percentile float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	if percentile <= 0 {
		return sorted[0]
	}
	if percentile >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := percentile / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// ApplyHysteresis gates a value sequence with a two-threshold latch. The gate
// starts off, turns on when a value reaches rise and turns off again when a
// value drops below fall. Callers must ensure fall <= rise; the gate does not
// enforce it.
func ApplyHysteresis(values []float64, rise, fall float64) []bool {
	out := make([]bool, len(values))
	state := false
	for i, v := range values {
		if !state {
			if v >= rise {
				state = true
			}
		} else {
			if v < fall {
				state = false
			}
		}
		out[i] = state
	}
	return out
}

// SpectralFlux computes the frame-to-frame flux of a magnitude spectrogram
// given as frames of frequency bins. Each frame is L1-normalized across bins
// before differencing and only increasing-energy differences contribute
// (half-wave rectification). The first frame's flux is defined as 0.
func SpectralFlux(spectrogram [][]float64) []float64 {
	n := len(spectrogram)
	flux := make([]float64, n)
	if n < 2 {
		return flux
	}

	normalize := func(frame []float64) []float64 {
		var total float64
		for _, m := range frame {
			total += m
		}
		total += 1e-9
		out := make([]float64, len(frame))
		for i, m := range frame {
			out[i] = m / total
		}
		return out
	}

	prev := normalize(spectrogram[0])
	for i := 1; i < n; i++ {
		cur := normalize(spectrogram[i])
		var sum float64
		for b := range cur {
			if d := cur[b] - prev[b]; d > 0 {
				sum += d
			}
		}
		flux[i] = sum
		prev = cur
	}
	return flux
}

// SpectralCentroid returns the magnitude-weighted mean frequency of one
// spectrum frame, or 0 for an all-zero spectrum.
func SpectralCentroid(frequencies, magnitudes []float64) float64 {
	var weighted, total float64
	for i, m := range magnitudes {
		weighted += frequencies[i] * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// SpectralRolloff returns the first frequency at which the cumulative
// magnitude reaches pct of the total, clamped to the last bin. An all-zero
// spectrum yields 0.
func SpectralRolloff(frequencies, magnitudes []float64, pct float64) float64 {
	if len(magnitudes) == 0 {
		return 0
	}
	var total float64
	for _, m := range magnitudes {
		total += m
	}
	if total == 0 {
		return 0
	}
	threshold := total * pct
	var cumulative float64
	for i, m := range magnitudes {
		cumulative += m
		if cumulative >= threshold {
			return frequencies[i]
		}
	}
	return frequencies[len(frequencies)-1]
}

// SpectralFlatness returns the ratio of the geometric to the arithmetic mean
// of one spectrum frame. Higher values indicate noisier, flatter spectra.
func SpectralFlatness(magnitudes []float64) float64 {
	const eps = 1e-10
	if len(magnitudes) == 0 {
		return 0
	}
	var logSum, sum float64
	for _, m := range magnitudes {
		v := m + eps
		logSum += math.Log(v)
		sum += v
	}
	n := float64(len(magnitudes))
	geometric := math.Exp(logSum / n)
	arithmetic := sum / n
	if arithmetic == 0 {
		return 0
	}
	return geometric / arithmetic
}

// HanningWindow generates a Hann window of the given size.
func HanningWindow(size int) []float64 {
	if size <= 0 {
		return []float64{}
	}
	if size == 1 {
		return []float64{1}
	}
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}
