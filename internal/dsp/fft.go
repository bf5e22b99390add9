package dsp

import (
	"math"
	"math/cmplx"
)

// fft computes the in-place radix-2 Cooley-Tukey FFT. The input length must
// be a power of two.
func fft(buf []complex128) {
	n := len(buf)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		wLen := cmplx.Exp(complex(0, angle))
		for start := 0; start < n; start += length {
			w := complex(1, 0)
			half := length / 2
			for k := 0; k < half; k++ {
				u := buf[start+k]
				v := buf[start+k+half] * w
				buf[start+k] = u + v
				buf[start+k+half] = u - v
				w *= wLen
			}
		}
	}
}

// MagnitudeSpectrum returns the magnitude of the non-negative frequency bins
// of one frame. The frame length must be a power of two; the result has
// len(frame)/2+1 bins.
func MagnitudeSpectrum(frame []float64) []float64 {
	n := len(frame)
	buf := make([]complex128, n)
	for i, x := range frame {
		buf[i] = complex(x, 0)
	}
	fft(buf)
	mags := make([]float64, n/2+1)
	for i := range mags {
		mags[i] = cmplx.Abs(buf[i])
	}
	return mags
}

// Spectrogram computes a Hann-windowed magnitude STFT over the signal with
// frames of fftSize samples every hop samples. Frames are row-major: the
// result has one row per frame, each holding fftSize/2+1 frequency bins.
// fftSize must be a power of two; a signal shorter than one frame yields nil.
func Spectrogram(audio []float64, fftSize, hop int) [][]float64 {
	if fftSize <= 0 || hop <= 0 || len(audio) < fftSize || fftSize&(fftSize-1) != 0 {
		return nil
	}
	window := HanningWindow(fftSize)
	nFrames := 1 + (len(audio)-fftSize)/hop
	spec := make([][]float64, nFrames)
	frame := make([]float64, fftSize)
	for i := 0; i < nFrames; i++ {
		start := i * hop
		for j := 0; j < fftSize; j++ {
			frame[j] = audio[start+j] * window[j]
		}
		spec[i] = MagnitudeSpectrum(frame)
	}
	return spec
}

// FFTFrequencies returns the center frequency in Hz of each non-negative
// frequency bin for the given FFT size and sample rate.
func FFTFrequencies(fftSize, sampleRate int) []float64 {
	bins := fftSize/2 + 1
	freqs := make([]float64, bins)
	for i := range freqs {
		freqs[i] = float64(i) * float64(sampleRate) / float64(fftSize)
	}
	return freqs
}
