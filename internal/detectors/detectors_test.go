package detectors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcut/fieldcut/internal/conf"
	"github.com/fieldcut/fieldcut/internal/errors"
)

func TestFramesToSegments(t *testing.T) {
	constScore := func(int, bool) float64 { return 1.0 }

	t.Run("single run", func(t *testing.T) {
		mask := []bool{false, true, true, true, false, false}
		segs := framesToSegments(mask, 0.1, 0, 0, "tag", constScore)
		require.Len(t, segs, 1)
		assert.InDelta(t, 0.1, segs[0].Start, 1e-12)
		assert.InDelta(t, 0.4, segs[0].End, 1e-12)
		assert.Equal(t, "tag", segs[0].Detector)
	})

	t.Run("min duration gate", func(t *testing.T) {
		mask := []bool{true, false, true, true, true, false}
		segs := framesToSegments(mask, 0.1, 250, 0, "tag", constScore)
		require.Len(t, segs, 1)
		assert.InDelta(t, 0.2, segs[0].Start, 1e-12)
	})

	t.Run("max duration gate", func(t *testing.T) {
		mask := []bool{true, true, true, true, false, true, false}
		segs := framesToSegments(mask, 0.1, 0, 250, "tag", constScore)
		require.Len(t, segs, 1)
		assert.InDelta(t, 0.5, segs[0].Start, 1e-12)
	})

	t.Run("open run flushed at buffer end", func(t *testing.T) {
		mask := []bool{false, true, true}
		var gotFlushed bool
		segs := framesToSegments(mask, 0.1, 0, 0, "tag", func(_ int, flushed bool) float64 {
			gotFlushed = flushed
			return 1.0
		})
		require.Len(t, segs, 1)
		assert.InDelta(t, 0.3, segs[0].End, 1e-12)
		assert.True(t, gotFlushed)
	})

	t.Run("empty mask", func(t *testing.T) {
		assert.Empty(t, framesToSegments(nil, 0.1, 0, 0, "tag", constScore))
	})
}

func TestActivationScore(t *testing.T) {
	values := []float64{0.1, 9.0, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}

	t.Run("trailing window", func(t *testing.T) {
		// endIdx 7 looks at [3, 7].
		assert.Equal(t, 0.7, activationScore(values, 7, false))
	})

	t.Run("flushed run uses global max", func(t *testing.T) {
		assert.Equal(t, 9.0, activationScore(values, len(values), true))
	})

	t.Run("window clamped at start", func(t *testing.T) {
		assert.Equal(t, 9.0, activationScore(values, 1, false))
	})

	t.Run("empty values", func(t *testing.T) {
		assert.Equal(t, 0.0, activationScore(nil, 0, false))
	})
}

func TestThresholdPercentile(t *testing.T) {
	tests := []struct {
		name      string
		threshold string
		want      float64
	}{
		{"auto", "auto", 0},
		{"empty", "", 0},
		{"numeric", "90", 90},
		{"fractional", "82.5", 82.5},
		{"whitespace and case", "  AUTO ", 0},
		{"garbage", "high", 0},
		{"zero", "0", 0},
		{"hundred", "100", 0},
		{"negative", "-5", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, thresholdPercentile(tt.threshold))
		})
	}
}

func TestEnergyClassifier(t *testing.T) {
	quiet := make([]int16, 480)
	loud := make([]int16, 480)
	for i := range loud {
		loud[i] = 10000
	}

	seedFloor := func(c *EnergyClassifier) {
		for i := 0; i < 4; i++ {
			assert.False(t, c.IsSpeech(quiet, 16000), "seeding frames must report silence")
		}
	}

	t.Run("loud frame after seeding is speech", func(t *testing.T) {
		c := NewEnergyClassifier(3)
		seedFloor(c)
		assert.True(t, c.IsSpeech(loud, 16000))
	})

	t.Run("strictest aggressiveness has no hangover", func(t *testing.T) {
		c := NewEnergyClassifier(3)
		seedFloor(c)
		assert.True(t, c.IsSpeech(loud, 16000))
		assert.False(t, c.IsSpeech(quiet, 16000))
	})

	t.Run("relaxed aggressiveness keeps hangover frames", func(t *testing.T) {
		c := NewEnergyClassifier(0)
		seedFloor(c)
		assert.True(t, c.IsSpeech(loud, 16000))
		for i := 0; i < 3; i++ {
			assert.True(t, c.IsSpeech(quiet, 16000), "hangover frame %d", i)
		}
		assert.False(t, c.IsSpeech(quiet, 16000))
	})

	t.Run("reset clears state", func(t *testing.T) {
		c := NewEnergyClassifier(3)
		seedFloor(c)
		assert.True(t, c.IsSpeech(loud, 16000))
		c.Reset()
		assert.False(t, c.IsSpeech(loud, 16000), "post-reset seeding frame")
	})

	t.Run("out of range aggressiveness clamps", func(t *testing.T) {
		assert.NotPanics(t, func() {
			c := NewEnergyClassifier(9)
			seedFloor(c)
			c.IsSpeech(loud, 16000)
		})
	})
}

func TestNewVoiceVAD(t *testing.T) {
	valid := conf.VADSettings{Aggressiveness: 3, FrameDurationMs: 30, MinDurationMs: 400}

	t.Run("valid settings", func(t *testing.T) {
		vad, err := NewVoiceVAD(valid, 16000, NewEnergyClassifier(3))
		require.NoError(t, err)
		assert.Equal(t, "voice_vad", vad.Name())
	})

	tests := []struct {
		name       string
		settings   conf.VADSettings
		sampleRate int
	}{
		{"unsupported sample rate", valid, 44100},
		{"aggressiveness too high", conf.VADSettings{Aggressiveness: 4, FrameDurationMs: 30}, 16000},
		{"aggressiveness negative", conf.VADSettings{Aggressiveness: -1, FrameDurationMs: 30}, 16000},
		{"bad frame duration", conf.VADSettings{Aggressiveness: 3, FrameDurationMs: 25}, 16000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVoiceVAD(tt.settings, tt.sampleRate, NewEnergyClassifier(3))
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		})
	}
}

func TestVoiceVADDetect(t *testing.T) {
	const sampleRate = 16000
	settings := conf.VADSettings{Aggressiveness: 3, FrameDurationMs: 30, MinDurationMs: 400}

	t.Run("two bursts in silence", func(t *testing.T) {
		// 8 s of silence with 440 Hz bursts over [1,2] and [5,6] seconds.
		audio := make([]float64, 8*sampleRate)
		addTone := func(startSec, endSec float64) {
			for i := int(startSec * sampleRate); i < int(endSec*sampleRate); i++ {
				audio[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/sampleRate)
			}
		}
		addTone(1, 2)
		addTone(5, 6)

		vad, err := NewVoiceVAD(settings, sampleRate, NewEnergyClassifier(settings.Aggressiveness))
		require.NoError(t, err)

		segs := vad.Detect(audio)
		require.Len(t, segs, 2)

		frameSec := 0.030
		assert.InDelta(t, 1.0, segs[0].Start, frameSec)
		assert.InDelta(t, 2.0, segs[0].End, frameSec)
		assert.InDelta(t, 5.0, segs[1].Start, frameSec)
		assert.InDelta(t, 6.0, segs[1].End, frameSec)
		for _, s := range segs {
			assert.Equal(t, "voice_vad", s.Detector)
			assert.Equal(t, 1.0, s.Score)
		}
	})

	t.Run("short burst dropped by min duration", func(t *testing.T) {
		audio := make([]float64, 4*sampleRate)
		for i := 2 * sampleRate; i < 2*sampleRate+sampleRate/10; i++ {
			audio[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/sampleRate)
		}
		vad, err := NewVoiceVAD(settings, sampleRate, NewEnergyClassifier(settings.Aggressiveness))
		require.NoError(t, err)
		assert.Empty(t, vad.Detect(audio))
	})

	t.Run("nil classifier yields no segments", func(t *testing.T) {
		vad, err := NewVoiceVAD(settings, sampleRate, nil)
		require.NoError(t, err)
		assert.Nil(t, vad.Detect(make([]float64, sampleRate)))
	})

	t.Run("buffer shorter than one frame", func(t *testing.T) {
		vad, err := NewVoiceVAD(settings, sampleRate, NewEnergyClassifier(3))
		require.NoError(t, err)
		assert.Nil(t, vad.Detect(make([]float64, 100)))
	})
}

func TestNonSilenceEnergyDetect(t *testing.T) {
	const sampleRate = 8000

	t.Run("loud region in quiet file", func(t *testing.T) {
		// 10 s, constant level over [2,6] so 40% of the envelope frames sit
		// above the 75th percentile gate.
		audio := make([]float64, 10*sampleRate)
		for i := 2 * sampleRate; i < 6*sampleRate; i++ {
			audio[i] = 0.5
		}
		det := NewNonSilenceEnergy(sampleRate, 0, 0)
		segs := det.Detect(audio)
		require.Len(t, segs, 1)
		assert.Equal(t, "nonsilence_energy", segs[0].Detector)
		assert.InDelta(t, 2.0, segs[0].Start, 0.15)
		assert.InDelta(t, 6.0, segs[0].End, 0.15)
		assert.Greater(t, segs[0].Score, 0.0)
	})

	t.Run("buffer shorter than one window", func(t *testing.T) {
		det := NewNonSilenceEnergy(sampleRate, 0, 0)
		assert.Nil(t, det.Detect(make([]float64, 100)))
	})

	t.Run("defaults applied", func(t *testing.T) {
		det := NewNonSilenceEnergy(sampleRate, -1, -1)
		assert.Equal(t, 75.0, det.thresholdPercentile)
		assert.Equal(t, 400.0, det.minDurationMs)
	})
}

func TestTransientFluxDetect(t *testing.T) {
	t.Run("too short for one frame", func(t *testing.T) {
		det := NewTransientFlux(16000, 0, 0, 0)
		assert.Nil(t, det.Detect(make([]float64, 1024)))
	})

	t.Run("defaults applied", func(t *testing.T) {
		det := NewTransientFlux(16000, 120, 0, 0)
		assert.Equal(t, 85.0, det.thresholdPercentile)
		assert.Equal(t, 50.0, det.minDurationMs)
		assert.Equal(t, "transient_flux", det.Name())
	})
}

func TestForMode(t *testing.T) {
	base := func(mode string) *conf.DetectionSettings {
		return &conf.DetectionSettings{
			Mode:      mode,
			Threshold: "auto",
			MinDurMs:  400,
			VAD:       conf.VADSettings{Aggressiveness: 3, FrameDurationMs: 30, MinDurationMs: 400},
		}
	}
	names := func(dets []Detector) []string {
		out := make([]string, len(dets))
		for i, d := range dets {
			out[i] = d.Name()
		}
		return out
	}

	t.Run("auto runs all detectors", func(t *testing.T) {
		dets := ForMode(base("auto"), 16000)
		assert.ElementsMatch(t,
			[]string{"voice_vad", "transient_flux", "nonsilence_energy", "spectral_interestingness"},
			names(dets))
	})

	t.Run("auto skips voice on unsupported rate", func(t *testing.T) {
		dets := ForMode(base("auto"), 44100)
		assert.ElementsMatch(t,
			[]string{"transient_flux", "nonsilence_energy", "spectral_interestingness"},
			names(dets))
	})

	t.Run("single modes", func(t *testing.T) {
		assert.Equal(t, []string{"voice_vad"}, names(ForMode(base("voice"), 16000)))
		assert.Equal(t, []string{"transient_flux"}, names(ForMode(base("transient"), 16000)))
		assert.Equal(t, []string{"nonsilence_energy"}, names(ForMode(base("nonsilence"), 16000)))
		assert.Equal(t, []string{"spectral_interestingness"}, names(ForMode(base("spectral"), 16000)))
	})

	t.Run("mode is case insensitive", func(t *testing.T) {
		assert.Equal(t, []string{"transient_flux"}, names(ForMode(base("Transient"), 16000)))
	})

	t.Run("voice mode on unsupported rate yields nothing", func(t *testing.T) {
		assert.Empty(t, ForMode(base("voice"), 44100))
	})

	t.Run("transient min duration floor", func(t *testing.T) {
		settings := base("transient")
		settings.MinDurMs = 5
		dets := ForMode(settings, 16000)
		require.Len(t, dets, 1)
		flux, ok := dets[0].(*TransientFlux)
		require.True(t, ok)
		assert.Equal(t, 20.0, flux.minDurationMs)
	})
}

func TestDetectAll(t *testing.T) {
	const sampleRate = 8000
	audio := make([]float64, 10*sampleRate)
	for i := 2 * sampleRate; i < 6*sampleRate; i++ {
		audio[i] = 0.5
	}
	dets := []Detector{NewNonSilenceEnergy(sampleRate, 0, 0)}
	segs := DetectAll(dets, audio)
	require.NotEmpty(t, segs)
	assert.Equal(t, "nonsilence_energy", segs[0].Detector)

	assert.Empty(t, DetectAll(nil, audio))
}
