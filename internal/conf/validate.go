// conf/validate.go

package conf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Issue describes a single settings validation problem. Field names use the
// configuration surface's snake_case spelling so issues can be mapped back to
// config keys and CLI flags.
type Issue struct {
	Field   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

var allowedModes = map[string]bool{
	"auto":       true,
	"voice":      true,
	"transient":  true,
	"nonsilence": true,
	"spectral":   true,
}

var allowedDenoise = map[string]bool{
	"off":    true,
	"afftdn": true,
	"arnndn": true,
}

var allowedSpreadModes = map[string]bool{
	"strict":  true,
	"closest": true,
}

var allowedResolveBehaviors = map[string]bool{
	"discard_duplicates": true,
	"discard_overlaps":   true,
	"keep_all":           true,
}

// ValidateSettings checks the cross-field invariants of the configuration
// record and returns every violation found. It never blocks execution itself;
// callers decide whether a non-empty result is fatal.
func ValidateSettings(settings *Settings) []Issue {
	var issues []Issue
	issues = append(issues, validateDetectionSettings(&settings.Detection)...)
	issues = append(issues, validateVADSettings(&settings.Detection.VAD)...)
	issues = append(issues, validatePreprocessSettings(&settings.Preprocess)...)
	issues = append(issues, validateResolveSettings(&settings.Resolve)...)
	return issues
}

func validateDetectionSettings(d *DetectionSettings) []Issue {
	var issues []Issue

	if !allowedModes[d.Mode] {
		issues = append(issues, Issue{"mode",
			"detection mode must be one of: auto, voice, transient, nonsilence, spectral"})
	}

	if thr := strings.TrimSpace(strings.ToLower(d.Threshold)); thr != "" && thr != "auto" {
		val, err := strconv.ParseFloat(thr, 64)
		switch {
		case err != nil:
			issues = append(issues, Issue{"threshold", "threshold must be numeric or 'auto'"})
		case val < 0.0 || val > 100.0:
			issues = append(issues, Issue{"threshold",
				"threshold percentile must be between 0 and 100 or 'auto'"})
		}
	}

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"detection_pre_pad_ms", d.PrePadMs},
		{"detection_post_pad_ms", d.PostPadMs},
		{"merge_gap_ms", d.MergeGapMs},
		{"min_dur_ms", d.MinDurMs},
		{"min_gap_ms", d.MinGapMs},
	} {
		if f.value < 0 {
			issues = append(issues, Issue{f.name, "value cannot be negative"})
		}
	}

	if d.MaxDurMs <= 0 {
		issues = append(issues, Issue{"max_dur_ms", "maximum duration must be greater than zero"})
	}
	if d.MinDurMs > d.MaxDurMs {
		issues = append(issues, Issue{"min_dur_ms",
			"minimum duration must be less than or equal to maximum duration"})
	}

	if d.MaxSamples < 1 {
		issues = append(issues, Issue{"max_samples", "max samples must be at least 1"})
	}

	if !allowedSpreadModes[strings.ToLower(d.SampleSpreadMode)] {
		issues = append(issues, Issue{"sample_spread_mode",
			"sample spread mode must be 'strict' or 'closest'"})
	}

	if d.ResolveOverlaps != "" && d.ResolveOverlaps != "keep-highest" {
		issues = append(issues, Issue{"resolve_overlaps",
			"resolve overlaps must be empty or 'keep-highest'"})
	}

	if d.OverlapIoU < 0.0 || d.OverlapIoU > 1.0 {
		issues = append(issues, Issue{"overlap_iou", "overlap IoU must be between 0 and 1"})
	}

	return issues
}

func validateVADSettings(v *VADSettings) []Issue {
	var issues []Issue

	if v.Aggressiveness < 0 || v.Aggressiveness > 3 {
		issues = append(issues, Issue{"vad.aggressiveness", "aggressiveness must be between 0 and 3"})
	}
	switch v.FrameDurationMs {
	case 10, 20, 30:
	default:
		issues = append(issues, Issue{"vad.frame_duration_ms", "frame duration must be 10, 20 or 30 ms"})
	}
	if v.MinDurationMs < 0 {
		issues = append(issues, Issue{"vad.min_duration_ms", "value cannot be negative"})
	}
	if v.LowFreq < 0 || v.HighFreq < 0 {
		issues = append(issues, Issue{"vad.low_freq", "prefilter band edges cannot be negative"})
	}

	return issues
}

func validatePreprocessSettings(p *PreprocessSettings) []Issue {
	var issues []Issue

	if !allowedDenoise[p.Denoise] {
		issues = append(issues, Issue{"denoise", "denoise method must be one of: off, afftdn, arnndn"})
	}

	if p.HP < 0 || math.IsNaN(p.HP) || math.IsInf(p.HP, 0) {
		issues = append(issues, Issue{"hp", "high-pass frequency must be a non-negative finite number"})
	}
	if p.LP < 0 || math.IsNaN(p.LP) || math.IsInf(p.LP, 0) {
		issues = append(issues, Issue{"lp", "low-pass frequency must be a non-negative finite number"})
	}
	if p.HP > 0 && p.LP > 0 && p.HP >= p.LP {
		issues = append(issues, Issue{"hp",
			"high-pass frequency must be lower than the low-pass frequency"})
	}

	if p.NR < 0.0 || p.NR > 30.0 {
		issues = append(issues, Issue{"nr", "noise reduction strength must be between 0 and 30 dB"})
	}

	if p.AnalysisSR <= 0 {
		issues = append(issues, Issue{"analysis_sr", "analysis sample rate must be greater than zero"})
	}

	return issues
}

func validateResolveSettings(r *ResolveSettings) []Issue {
	var issues []Issue

	if r.ToleranceMs < 0 {
		issues = append(issues, Issue{"resolve.tolerance_ms", "value cannot be negative"})
	}
	if !allowedResolveBehaviors[strings.ToLower(r.DefaultBehavior)] {
		issues = append(issues, Issue{"resolve.default_behavior",
			"resolve behavior must be one of: discard_duplicates, discard_overlaps, keep_all"})
	}

	return issues
}
