package detectors

import (
	"strconv"
	"strings"

	"github.com/fieldcut/fieldcut/internal/conf"
	"github.com/fieldcut/fieldcut/internal/segment"
)

// ForMode builds the detector set for the configured detection mode. Mode
// "auto" runs every detector; the other modes select a single one. A voice
// detector that cannot be constructed for the given sample rate is skipped
// with a warning rather than failing the whole set, matching the degraded
// behavior of a missing classifier.
func ForMode(settings *conf.DetectionSettings, sampleRate int) []Detector {
	var dets []Detector
	mode := strings.ToLower(settings.Mode)

	if mode == "auto" || mode == "voice" {
		vad, err := NewVoiceVAD(settings.VAD, sampleRate, NewEnergyClassifier(settings.VAD.Aggressiveness))
		if err != nil {
			logger.Warn("skipping voice VAD detector", "sample_rate", sampleRate, "error", err)
		} else {
			dets = append(dets, vad)
		}
	}
	if mode == "auto" || mode == "transient" {
		thrPct := thresholdPercentile(settings.Threshold)
		minDur := settings.MinDurMs
		if minDur < 20.0 {
			minDur = 20.0
		}
		dets = append(dets, NewTransientFlux(sampleRate, thrPct, minDur, settings.MaxDurMs))
	}
	if mode == "auto" || mode == "nonsilence" {
		dets = append(dets, NewNonSilenceEnergy(sampleRate, 0, 0))
	}
	if mode == "auto" || mode == "spectral" {
		dets = append(dets, NewSpectralInterestingness(sampleRate, 0, 0))
	}
	return dets
}

// DetectAll runs every detector over the buffer and concatenates the results.
func DetectAll(dets []Detector, audio []float64) []segment.Segment {
	var all []segment.Segment
	for _, det := range dets {
		found := det.Detect(audio)
		logger.Debug("detector finished", "detector", det.Name(), "segments", len(found))
		all = append(all, found...)
	}
	return all
}

// thresholdPercentile parses the detection threshold setting. "auto", empty
// and out-of-range values return 0, which lets each detector apply its own
// default percentile.
func thresholdPercentile(threshold string) float64 {
	t := strings.TrimSpace(strings.ToLower(threshold))
	if t == "" || t == "auto" {
		return 0
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || v <= 0 || v >= 100 {
		return 0
	}
	return v
}
