package pipeline

import (
	"math"

	"github.com/fieldcut/fieldcut/internal/segment"
)

// Resolution policies for reconciling a new detection batch against a
// project's existing segments.
const (
	PolicyDiscardDuplicates = "discard_duplicates"
	PolicyDiscardOverlaps   = "discard_overlaps"
	PolicyKeepAll           = "keep_all"
)

// dupEpsilon absorbs float64 drift when comparing segment bounds against the
// duplicate tolerance.
const dupEpsilon = 1e-9

// IndexPair identifies a classified (existing, new) segment pair.
type IndexPair struct {
	Existing int
	New      int
}

// OverlapReport classifies every (existing, new) pair. A pair that satisfies
// the duplicate test appears only under Duplicates, never under Overlaps.
type OverlapReport struct {
	Overlaps   []IndexPair
	Duplicates []IndexPair
}

// IsDuplicate reports whether both bounds of a and b agree within
// toleranceMs. Detector tags and scores do not participate; a manual segment
// and a detector segment at the same position are duplicates.
func IsDuplicate(a, b segment.Segment, toleranceMs float64) bool {
	tol := math.Max(0, toleranceMs)/1000.0 + dupEpsilon
	return math.Abs(a.Start-b.Start) <= tol && math.Abs(a.End-b.End) <= tol
}

// IsOverlap reports whether a and b overlap in time with zero gap tolerance.
// Segments that merely touch count as overlapping.
func IsOverlap(a, b segment.Segment) bool {
	return a.Overlaps(b, 0)
}

// FindOverlaps classifies every pair between existing and incoming. Pairwise
// classification is O(N*M); batch sizes here are interactive-scale.
func FindOverlaps(existing, incoming []segment.Segment, toleranceMs float64) OverlapReport {
	var report OverlapReport
	for i, e := range existing {
		for j, n := range incoming {
			switch {
			case IsDuplicate(e, n, toleranceMs):
				report.Duplicates = append(report.Duplicates, IndexPair{Existing: i, New: j})
			case IsOverlap(e, n):
				report.Overlaps = append(report.Overlaps, IndexPair{Existing: i, New: j})
			}
		}
	}
	return report
}

// FindOverlapsWithin groups the indices of mutually overlapping segments in
// one list. The relation is closed transitively, so chained overlaps land in
// a single group even when the endpoints never touch each other directly.
// Groups have size > 1, are sorted ascending, and appear in order of their
// first-encountered member.
func FindOverlapsWithin(segments []segment.Segment) [][]int {
	return groupWithin(segments, func(a, b segment.Segment) bool {
		return IsOverlap(a, b)
	})
}

// FindDuplicatesWithin groups near-exact duplicates in one list, with the
// same transitive-closure and ordering rules as FindOverlapsWithin.
func FindDuplicatesWithin(segments []segment.Segment, toleranceMs float64) [][]int {
	return groupWithin(segments, func(a, b segment.Segment) bool {
		return IsDuplicate(a, b, toleranceMs)
	})
}

func groupWithin(segments []segment.Segment, related func(a, b segment.Segment) bool) [][]int {
	n := len(segments)
	if n < 2 {
		return nil
	}
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if related(segments[i], segments[j]) {
				uf.union(i, j)
			}
		}
	}

	members := make(map[int][]int)
	var rootOrder []int
	for i := 0; i < n; i++ {
		root := uf.find(i)
		if _, seen := members[root]; !seen {
			rootOrder = append(rootOrder, root)
		}
		members[root] = append(members[root], i)
	}

	var groups [][]int
	for _, root := range rootOrder {
		if g := members[root]; len(g) > 1 {
			groups = append(groups, g)
		}
	}
	return groups
}

// unionFind with path compression. Union by rank is omitted: group sizes here
// are tiny and compression alone keeps find effectively constant.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra := u.find(a)
	rb := u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

// Resolve reconciles a new detection batch against the existing segments of
// a project and returns the combined list. Existing segments are never
// removed; the policy only filters the new batch:
//
//   - PolicyDiscardDuplicates (the default for unknown policies) drops new
//     segments that near-exactly duplicate an existing one.
//   - PolicyDiscardOverlaps drops new segments that overlap or duplicate any
//     existing one.
//   - PolicyKeepAll drops nothing.
//
// Resolve never mutates its inputs and is idempotent: feeding its output back
// as the existing list with the same new batch yields the same result.
func Resolve(existing, incoming []segment.Segment, toleranceMs float64, policy string) []segment.Segment {
	keep := func(n segment.Segment) bool {
		switch policy {
		case PolicyKeepAll:
			return true
		case PolicyDiscardOverlaps:
			for _, e := range existing {
				if IsOverlap(e, n) || IsDuplicate(e, n, toleranceMs) {
					return false
				}
			}
			return true
		default:
			for _, e := range existing {
				if IsDuplicate(e, n, toleranceMs) {
					return false
				}
			}
			return true
		}
	}

	combined := make([]segment.Segment, 0, len(existing)+len(incoming))
	combined = append(combined, existing...)
	for _, n := range incoming {
		if keep(n) {
			combined = append(combined, n)
		}
	}
	return combined
}
