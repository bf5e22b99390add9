// Package pipeline turns pooled detector candidates into the final ordered
// segment batch for a file: merge, duration filter, minimum gap, padding,
// overlap dedup and the sample cap/spread stage. All stages are pure over
// their inputs; callers own validation and never see an error for well-formed
// segment lists.
package pipeline

import (
	"log/slog"
	"sort"

	"github.com/fieldcut/fieldcut/internal/conf"
	"github.com/fieldcut/fieldcut/internal/detectors"
	"github.com/fieldcut/fieldcut/internal/logging"
	"github.com/fieldcut/fieldcut/internal/segment"
)

var logger *slog.Logger

func init() {
	logger = logging.ForService("pipeline")
}

// MergeSegments clamps candidates to [0, audioDuration], merges any two whose
// gap is at most mergeGapMs, then applies the duration filter: segments
// shorter than minDurMs are dropped and segments longer than maxDurMs are
// truncated to maxDurMs keeping their start.
func MergeSegments(segs []segment.Segment, mergeGapMs, minDurMs, maxDurMs, audioDuration float64) []segment.Segment {
	clamped := make([]segment.Segment, 0, len(segs))
	for _, s := range segs {
		if audioDuration > 0 {
			if s.Start < 0 {
				s.Start = 0
			}
			if s.End > audioDuration {
				s.End = audioDuration
			}
		}
		if s.End <= s.Start {
			continue
		}
		clamped = append(clamped, s)
	}
	if len(clamped) == 0 {
		return nil
	}
	clamped = segment.SortByStart(clamped)

	gap := mergeGapMs / 1000.0
	merged := []segment.Segment{clamped[0]}
	for _, s := range clamped[1:] {
		last := &merged[len(merged)-1]
		if s.Start-last.End <= gap {
			*last = segment.Merge(*last, s)
		} else {
			merged = append(merged, s)
		}
	}

	minDur := minDurMs / 1000.0
	maxDur := maxDurMs / 1000.0
	out := merged[:0]
	for _, s := range merged {
		if s.Duration() < minDur {
			continue
		}
		if maxDur > 0 && s.Duration() > maxDur {
			s.End = s.Start + maxDur
		}
		out = append(out, s)
	}
	return out
}

// EnforceMinGap scans segments in start order and drops any segment whose gap
// to the previously retained one is below minGapMs. Earliest segments win.
func EnforceMinGap(segs []segment.Segment, minGapMs float64) []segment.Segment {
	if minGapMs <= 0 || len(segs) < 2 {
		return segs
	}
	sorted := segment.SortByStart(segs)

	gap := minGapMs / 1000.0
	kept := sorted[:1]
	for _, s := range sorted[1:] {
		if s.Start-kept[len(kept)-1].End < gap {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// PadAndDedup widens each segment by the detection padding, clamped to
// [0, audioDuration]. When noMergeAfterPadding is false, padded segments go
// through the merge stage again with a zero gap so padding-induced overlaps
// collapse. When resolveOverlaps is "keep-highest", any pair of padded
// segments with IoU >= overlapIoU loses its lower-scoring member; on equal
// scores the earlier start survives.
func PadAndDedup(segs []segment.Segment, prePadMs, postPadMs, audioDuration float64, noMergeAfterPadding bool, resolveOverlaps string, overlapIoU float64) []segment.Segment {
	if len(segs) == 0 {
		return nil
	}
	padded := make([]segment.Segment, len(segs))
	for i, s := range segs {
		s.Start -= prePadMs / 1000.0
		s.End += postPadMs / 1000.0
		if s.Start < 0 {
			s.Start = 0
		}
		if audioDuration > 0 && s.End > audioDuration {
			s.End = audioDuration
		}
		padded[i] = s
	}

	if !noMergeAfterPadding {
		padded = MergeSegments(padded, 0, 0, 0, audioDuration)
	} else {
		padded = segment.SortByStart(padded)
	}

	if resolveOverlaps != "keep-highest" {
		return padded
	}

	dropped := make([]bool, len(padded))
	for i := 0; i < len(padded); i++ {
		if dropped[i] {
			continue
		}
		for j := i + 1; j < len(padded); j++ {
			if dropped[j] {
				continue
			}
			if segment.IoU(padded[i], padded[j]) < overlapIoU {
				continue
			}
			// padded is start-ordered, so on a tie i is the earlier start.
			if padded[j].Score > padded[i].Score {
				dropped[i] = true
				break
			}
			dropped[j] = true
		}
	}
	out := padded[:0]
	for i, s := range padded {
		if !dropped[i] {
			out = append(out, s)
		}
	}
	return out
}

// CapAndSpread limits the batch to maxSamples segments. Without spreading the
// top scorers win. Spread mode "strict" partitions [0, duration] into
// maxSamples equal bins and keeps at most the best segment per bin, so the
// result may come up short. Mode "closest" assigns evenly spaced target times
// to their nearest unclaimed segment midpoints, filling the cap whenever
// enough segments exist.
func CapAndSpread(segs []segment.Segment, maxSamples int, spread bool, mode string, duration float64) []segment.Segment {
	if maxSamples <= 0 || len(segs) <= maxSamples {
		return segs
	}

	var kept []segment.Segment
	switch {
	case !spread:
		kept = topByScore(segs, maxSamples)
	case mode == "closest" && duration > 0:
		kept = spreadClosest(segs, maxSamples, duration)
	case duration > 0:
		kept = spreadStrict(segs, maxSamples, duration)
	default:
		kept = topByScore(segs, maxSamples)
	}
	return segment.SortByStart(kept)
}

func topByScore(segs []segment.Segment, n int) []segment.Segment {
	sorted := make([]segment.Segment, len(segs))
	copy(sorted, segs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	return sorted[:n]
}

func spreadStrict(segs []segment.Segment, n int, duration float64) []segment.Segment {
	binWidth := duration / float64(n)
	best := make([]int, n)
	for i := range best {
		best[i] = -1
	}
	for i, s := range segs {
		bin := int(s.Start / binWidth)
		if bin < 0 {
			bin = 0
		}
		if bin >= n {
			bin = n - 1
		}
		if best[bin] < 0 || s.Score > segs[best[bin]].Score {
			best[bin] = i
		}
	}
	var kept []segment.Segment
	for _, idx := range best {
		if idx >= 0 {
			kept = append(kept, segs[idx])
		}
	}
	return kept
}

func spreadClosest(segs []segment.Segment, n int, duration float64) []segment.Segment {
	claimed := make([]bool, len(segs))
	var kept []segment.Segment
	for k := 0; k < n; k++ {
		// Targets at bin midpoints so the first and last picks stay off the
		// file edges.
		target := (float64(k) + 0.5) * duration / float64(n)
		bestIdx := -1
		bestDist := 0.0
		for i, s := range segs {
			if claimed[i] {
				continue
			}
			mid := (s.Start + s.End) / 2.0
			dist := mid - target
			if dist < 0 {
				dist = -dist
			}
			if bestIdx < 0 || dist < bestDist {
				bestIdx = i
				bestDist = dist
			}
		}
		if bestIdx < 0 {
			break
		}
		claimed[bestIdx] = true
		kept = append(kept, segs[bestIdx])
	}
	return kept
}

// Run executes the whole detection pipeline over an in-memory mono buffer:
// detector pool for the configured mode, merge and duration filter, minimum
// gap, padding with dedup, then the sample cap. The returned batch is ordered
// by start time. Run is pure with respect to its inputs and performs no
// internal concurrency; callers may run many files in parallel.
func Run(audio []float64, sampleRate int, duration float64, settings *conf.DetectionSettings) []segment.Segment {
	dets := detectors.ForMode(settings, sampleRate)
	candidates := detectors.DetectAll(dets, audio)
	recordCandidates(settings.Mode, len(candidates))

	merged := MergeSegments(candidates, settings.MergeGapMs, settings.MinDurMs, settings.MaxDurMs, duration)
	gapped := EnforceMinGap(merged, settings.MinGapMs)
	deduped := PadAndDedup(gapped, settings.PrePadMs, settings.PostPadMs, duration,
		settings.NoMergeAfterPadding, settings.ResolveOverlaps, settings.OverlapIoU)
	final := CapAndSpread(deduped, settings.MaxSamples, settings.SampleSpread, settings.SampleSpreadMode, duration)

	logger.Debug("pipeline finished",
		"candidates", len(candidates),
		"merged", len(merged),
		"after_min_gap", len(gapped),
		"after_dedup", len(deduped),
		"final", len(final))
	recordStages(len(candidates), len(merged), len(gapped), len(deduped), len(final))
	return final
}
