// Package segment defines the detected time interval domain model shared by
// the detectors, the processing pipeline and the project serializer. Segments
// are value types: pipeline stages produce new slices instead of mutating
// their input.
package segment

import (
	"sort"
	"strings"
)

// Segment represents a detected audio interval in seconds. End is always
// greater than Start for well-formed segments.
type Segment struct {
	Start    float64 // start time in seconds
	End      float64 // end time in seconds
	Detector string  // detector tag, possibly a "+"-joined composite after merging
	Score    float64 // detector-specific confidence
	Attrs    Attrs   // optional metadata
}

// Attrs holds the optional segment metadata. The required optional fields are
// strongly typed; Extra is the only dynamically extensible part and carries
// free-form UI metadata such as custom ids.
type Attrs struct {
	Enabled         *bool             // nil means enabled
	Name            string            // user-assigned name
	PrimaryDetector string            // highest-scoring constituent after a merge
	Extra           map[string]string // free-form string metadata
}

// IsEnabled reports whether the segment is enabled; unset defaults to true.
func (a Attrs) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// clone returns a deep copy so derived segments never alias the source map.
func (a Attrs) clone() Attrs {
	out := a
	if a.Enabled != nil {
		v := *a.Enabled
		out.Enabled = &v
	}
	if a.Extra != nil {
		out.Extra = make(map[string]string, len(a.Extra))
		for k, v := range a.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// merge overlays other on top of a, field by field.
func (a Attrs) merge(other Attrs) Attrs {
	out := a.clone()
	if other.Enabled != nil {
		v := *other.Enabled
		out.Enabled = &v
	}
	if other.Name != "" {
		out.Name = other.Name
	}
	if other.PrimaryDetector != "" {
		out.PrimaryDetector = other.PrimaryDetector
	}
	for k, v := range other.Extra {
		if out.Extra == nil {
			out.Extra = make(map[string]string)
		}
		out.Extra[k] = v
	}
	return out
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Overlaps reports whether two segments overlap in time, treating segments
// within gapMs of each other as overlapping. With gapMs of zero, segments
// that merely touch count as overlapping.
func (s Segment) Overlaps(other Segment, gapMs float64) bool {
	gap := gapMs / 1000.0
	return !(s.End+gap < other.Start || other.End+gap < s.Start)
}

// IoU returns the intersection-over-union ratio of two intervals, the measure
// used to decide whether they represent the same event.
func IoU(a, b Segment) float64 {
	inter := minFloat(a.End, b.End) - maxFloat(a.Start, b.Start)
	if inter < 0 {
		inter = 0
	}
	union := (a.End - a.Start) + (b.End - b.Start) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Merge combines two segments into one spanning interval. Detector tags are
// split on "+", deduplicated, sorted and rejoined; the score is the maximum
// of the constituents and the primary detector records the higher-scoring
// constituent's tag.
func Merge(a, b Segment) Segment {
	primary := a.Detector
	if b.Score > a.Score {
		primary = b.Detector
	}

	attrs := a.Attrs.merge(b.Attrs)
	attrs.PrimaryDetector = primary

	return Segment{
		Start:    minFloat(a.Start, b.Start),
		End:      maxFloat(a.End, b.End),
		Detector: joinDetectorTags(a.Detector, b.Detector),
		Score:    maxFloat(a.Score, b.Score),
		Attrs:    attrs,
	}
}

// joinDetectorTags unions two possibly composite detector tags into a
// deduplicated, sorted, "+"-joined tag.
func joinDetectorTags(a, b string) string {
	seen := make(map[string]bool)
	var tags []string
	for _, composite := range []string{a, b} {
		for _, tag := range strings.Split(composite, "+") {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return strings.Join(tags, "+")
}

// SortByStart orders segments by start time, breaking ties by higher score
// first, and returns a new slice.
func SortByStart(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Score > out[j].Score
	})
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
