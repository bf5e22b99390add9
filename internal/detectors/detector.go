// Package detectors implements the candidate segment detectors that run over
// a complete in-memory mono PCM buffer: voice activity, transient flux,
// non-silence energy and spectral interestingness. Detectors are pure with
// respect to their input, so multiple detectors or multiple files can run in
// parallel without shared state.
package detectors

import (
	"log/slog"

	"github.com/fieldcut/fieldcut/internal/logging"
	"github.com/fieldcut/fieldcut/internal/segment"
)

// Detector is the capability every detector implements: analyze a complete
// mono buffer at the detector's sample rate and return candidate segments.
type Detector interface {
	// Detect returns the candidate segments found in audio. A detector whose
	// backing capability is unavailable returns an empty list rather than an
	// error so downstream stages never see a crash from an optional backend.
	Detect(audio []float64) []segment.Segment

	// Name returns the detector tag stamped on emitted segments.
	Name() string
}

var logger *slog.Logger

func init() {
	logger = logging.ForService("detectors")
}

// framesToSegments converts a per-frame boolean activity mask into segments,
// where each frame spans frameSec seconds. Runs shorter than minDurationMs
// are discarded, as are runs longer than maxDurationMs when it is positive.
// A run still open at buffer end is flushed through the same gates. score is
// invoked with the index one past the run's last frame, plus a flag telling
// it whether the run was flushed at buffer end, so detectors can derive a
// confidence from the mask's neighborhood.
func framesToSegments(mask []bool, frameSec, minDurationMs, maxDurationMs float64, tag string, score func(endIdx int, flushed bool) float64) []segment.Segment {
	keep := func(durMs float64) bool {
		if durMs < minDurationMs {
			return false
		}
		return maxDurationMs <= 0 || durMs <= maxDurationMs
	}

	var segments []segment.Segment
	inSeg := false
	segStart := 0.0
	for i, on := range mask {
		t := float64(i) * frameSec
		switch {
		case on && !inSeg:
			inSeg = true
			segStart = t
		case !on && inSeg:
			inSeg = false
			if keep((t - segStart) * 1000.0) {
				segments = append(segments, segment.Segment{
					Start:    segStart,
					End:      t,
					Detector: tag,
					Score:    score(i, false),
				})
			}
		}
	}
	if inSeg {
		segEnd := float64(len(mask)) * frameSec
		if keep((segEnd - segStart) * 1000.0) {
			segments = append(segments, segment.Segment{
				Start:    segStart,
				End:      segEnd,
				Detector: tag,
				Score:    score(len(mask), true),
			})
		}
	}
	return segments
}

// activationScore scores a run ending at endIdx by the strongest value in the
// five-frame window [endIdx-4, endIdx]; a run flushed at buffer end is scored
// by the global maximum instead.
func activationScore(values []float64, endIdx int, flushed bool) float64 {
	if len(values) == 0 {
		return 0
	}
	lo := endIdx - 4
	if lo < 0 {
		lo = 0
	}
	hi := endIdx + 1
	if hi > len(values) {
		hi = len(values)
	}
	if flushed {
		lo, hi = 0, len(values)
	}
	if lo >= hi {
		lo = hi - 1
	}
	maxVal := values[lo]
	for _, v := range values[lo+1 : hi] {
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}
