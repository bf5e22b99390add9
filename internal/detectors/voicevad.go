package detectors

import (
	"github.com/fieldcut/fieldcut/internal/conf"
	"github.com/fieldcut/fieldcut/internal/dsp"
	"github.com/fieldcut/fieldcut/internal/errors"
	"github.com/fieldcut/fieldcut/internal/segment"
)

// VoiceVAD detects voice activity by classifying fixed-duration frames and
// merging consecutive speech frames into segments.
type VoiceVAD struct {
	sampleRate     int
	aggressiveness int
	frameMs        int
	minDurationMs  float64
	lowFreq        float64
	highFreq       float64

	classifier SpeechClassifier
}

var validVADSampleRates = map[int]bool{8000: true, 16000: true, 32000: true}

// NewVoiceVAD validates the VAD parameters and returns a detector bound to
// the given frame classifier. A nil classifier is accepted; detection then
// degrades to returning no segments.
func NewVoiceVAD(settings conf.VADSettings, sampleRate int, classifier SpeechClassifier) (*VoiceVAD, error) {
	if !validVADSampleRates[sampleRate] {
		return nil, errors.Newf("voice VAD requires a sample rate of 8000, 16000 or 32000 Hz, got %d", sampleRate).
			Component("detectors").
			Category(errors.CategoryConfiguration).
			Context("sample_rate", sampleRate).
			Build()
	}
	if settings.Aggressiveness < 0 || settings.Aggressiveness > 3 {
		return nil, errors.Newf("voice VAD aggressiveness must be 0..3, got %d", settings.Aggressiveness).
			Component("detectors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	switch settings.FrameDurationMs {
	case 10, 20, 30:
	default:
		return nil, errors.Newf("voice VAD frame duration must be 10, 20 or 30 ms, got %d", settings.FrameDurationMs).
			Component("detectors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &VoiceVAD{
		sampleRate:     sampleRate,
		aggressiveness: settings.Aggressiveness,
		frameMs:        settings.FrameDurationMs,
		minDurationMs:  settings.MinDurationMs,
		lowFreq:        settings.LowFreq,
		highFreq:       settings.HighFreq,
		classifier:     classifier,
	}, nil
}

// Name returns the detector tag.
func (v *VoiceVAD) Name() string { return "voice_vad" }

// Detect classifies the buffer frame by frame and returns merged speech
// segments with score 1.0. Segments shorter than the configured minimum
// duration are dropped, and a trailing partial frame is never classified.
func (v *VoiceVAD) Detect(audio []float64) []segment.Segment {
	if v.classifier == nil {
		logger.Warn("no speech classifier available, voice VAD disabled")
		return nil
	}
	if len(audio) == 0 {
		return nil
	}

	filtered := v.prefilter(audio)
	pcm := quantizeS16(filtered)

	frameLen := v.sampleRate * v.frameMs / 1000
	if frameLen <= 0 || len(pcm) < frameLen {
		return nil
	}

	v.classifier.Reset()
	frameCount := len(pcm) / frameLen
	mask := make([]bool, frameCount)
	for i := 0; i < frameCount; i++ {
		frame := pcm[i*frameLen : (i+1)*frameLen]
		mask[i] = v.classifier.IsSpeech(frame, v.sampleRate)
	}

	frameSec := float64(v.frameMs) / 1000.0
	return framesToSegments(mask, frameSec, v.minDurationMs, 0, v.Name(), func(int, bool) float64 { return 1.0 })
}

// prefilter band-limits the buffer to the configured voice band. Filtering is
// skipped when the band covers the whole spectrum, and a filter design error
// falls back to the unfiltered buffer so a misconfigured band never aborts a
// run.
func (v *VoiceVAD) prefilter(audio []float64) []float64 {
	nyquist := float64(v.sampleRate) / 2.0
	high := v.highFreq
	if high <= 0 {
		high = nyquist
	}
	if v.lowFreq <= 0 && high >= nyquist {
		return audio
	}
	filtered, err := dsp.BandpassFilter(audio, v.sampleRate, v.lowFreq, high, 4)
	if err != nil {
		logger.Warn("voice band prefilter failed, using unfiltered audio",
			"low_freq", v.lowFreq, "high_freq", v.highFreq, "error", err)
		return audio
	}
	return filtered
}

// quantizeS16 converts float samples in [-1, 1] to 16-bit PCM, clamping
// anything outside the representable range.
func quantizeS16(audio []float64) []int16 {
	out := make([]int16, len(audio))
	for i, s := range audio {
		v := s * 32768.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
