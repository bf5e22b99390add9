package dsp

import (
	"math"

	"github.com/fieldcut/fieldcut/internal/errors"
)

// sosSection is one second-order filter section with a0 normalized to 1.
type sosSection struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// butterworthQ returns the Q value of pole pair k for a Butterworth filter of
// the given order.
func butterworthQ(order, k int) float64 {
	psi := float64(2*k+1) * math.Pi / float64(2*order)
	return 1.0 / (2.0 * math.Sin(psi))
}

// lowpassSection builds a second-order lowpass section at cutoff freq with
// the given Q, following the audio EQ cookbook biquad design.
func lowpassSection(freq, sampleRate, q float64) sosSection {
	w0 := 2.0 * math.Pi * freq / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)
	cosw0 := math.Cos(w0)
	a0 := 1.0 + alpha
	return sosSection{
		b0: (1.0 - cosw0) / 2.0 / a0,
		b1: (1.0 - cosw0) / a0,
		b2: (1.0 - cosw0) / 2.0 / a0,
		a1: -2.0 * cosw0 / a0,
		a2: (1.0 - alpha) / a0,
	}
}

// highpassSection builds a second-order highpass section at cutoff freq with
// the given Q.
func highpassSection(freq, sampleRate, q float64) sosSection {
	w0 := 2.0 * math.Pi * freq / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)
	cosw0 := math.Cos(w0)
	a0 := 1.0 + alpha
	return sosSection{
		b0: (1.0 + cosw0) / 2.0 / a0,
		b1: -(1.0 + cosw0) / a0,
		b2: (1.0 + cosw0) / 2.0 / a0,
		a1: -2.0 * cosw0 / a0,
		a2: (1.0 - alpha) / a0,
	}
}

// firstOrderSection builds a one-pole section via the bilinear transform.
// It covers the real pole of odd-order Butterworth designs.
func firstOrderSection(freq, sampleRate float64, highpass bool) sosSection {
	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1.0 / (k + 1.0)
	if highpass {
		return sosSection{b0: norm, b1: -norm, a1: (k - 1.0) * norm}
	}
	return sosSection{b0: k * norm, b1: k * norm, a1: (k - 1.0) * norm}
}

// designButterworth returns the cascade of sections for a Butterworth
// lowpass or highpass of the given order at the cutoff frequency.
func designButterworth(order int, freq, sampleRate float64, highpass bool) []sosSection {
	sections := make([]sosSection, 0, (order+1)/2)
	for k := 0; k < order/2; k++ {
		q := butterworthQ(order, k)
		if highpass {
			sections = append(sections, highpassSection(freq, sampleRate, q))
		} else {
			sections = append(sections, lowpassSection(freq, sampleRate, q))
		}
	}
	if order%2 == 1 {
		sections = append(sections, firstOrderSection(freq, sampleRate, highpass))
	}
	return sections
}

// sosFilter applies the section cascade in direct form II transposed with
// zero initial state, modifying data in place.
func sosFilter(sections []sosSection, data []float64) {
	for _, s := range sections {
		var z1, z2 float64
		for i, x := range data {
			y := s.b0*x + z1
			z1 = s.b1*x - s.a1*y + z2
			z2 = s.b2*x - s.a2*y
			data[i] = y
		}
	}
}

func reverse(data []float64) {
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}
}

// filtFilt applies the cascade forward and backward for zero phase. The
// signal is extended on both ends with odd reflection so filter transients
// decay outside the region of interest.
func filtFilt(sections []sosSection, audio []float64) []float64 {
	n := len(audio)
	padLen := 3 * (2*len(sections) + 1)
	if padLen > n-1 {
		padLen = n - 1
	}
	if padLen < 0 {
		padLen = 0
	}

	ext := make([]float64, padLen+n+padLen)
	for i := 0; i < padLen; i++ {
		ext[i] = 2*audio[0] - audio[padLen-i]
	}
	copy(ext[padLen:], audio)
	for i := 0; i < padLen; i++ {
		ext[padLen+n+i] = 2*audio[n-1] - audio[n-2-i]
	}

	sosFilter(sections, ext)
	reverse(ext)
	sosFilter(sections, ext)
	reverse(ext)

	out := make([]float64, n)
	copy(out, ext[padLen:padLen+n])
	return out
}

// BandpassFilter applies a zero-phase Butterworth filter to the audio and
// returns a new slice; the input is never modified. Depending on the cutoffs
// the response degenerates: low <= 0 disables the highpass edge, high at or
// above Nyquist disables the lowpass edge, and when both edges are disabled
// the input is returned as an unmodified copy.
//
// Invalid configurations (non-positive sample rate, non-finite cutoffs,
// low >= high after clamping, order < 1) return a configuration error.
func BandpassFilter(audio []float64, sampleRate int, low, high float64, order int) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, errors.Newf("sample rate must be positive, got %d", sampleRate).
			Component("dsp").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if order < 1 {
		return nil, errors.Newf("filter order must be at least 1, got %d", order).
			Component("dsp").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if math.IsNaN(low) || math.IsInf(low, 0) || math.IsNaN(high) || math.IsInf(high, 0) {
		return nil, errors.Newf("cutoff frequencies must be finite, got low=%v high=%v", low, high).
			Component("dsp").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if len(audio) == 0 {
		return []float64{}, nil
	}

	nyquist := float64(sampleRate) / 2.0
	low = math.Max(low, 0.0)
	high = math.Min(high, nyquist)

	// Both edges disabled: nothing to filter.
	if low <= 0.0 && high >= nyquist {
		out := make([]float64, len(audio))
		copy(out, audio)
		return out, nil
	}

	var sections []sosSection
	switch {
	case low <= 0.0 && high > 0.0 && high < nyquist:
		sections = designButterworth(order, high, float64(sampleRate), false)
	case high >= nyquist && low > 0.0 && low < nyquist:
		sections = designButterworth(order, low, float64(sampleRate), true)
	case low > 0.0 && low < high && high < nyquist:
		sections = append(
			designButterworth(order, low, float64(sampleRate), true),
			designButterworth(order, high, float64(sampleRate), false)...,
		)
	default:
		return nil, errors.Newf(
			"invalid cutoff configuration: ensure 0 <= low (%v) < high (%v) <= nyquist (%v)",
			low, high, nyquist).
			Component("dsp").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return filtFilt(sections, audio), nil
}
