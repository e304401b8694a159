// Package matcher implements the per-update pattern scan and the
// recursive reversal-level function. Both are pure functions of the
// catalog and the current box set — no I/O, no suspension, safe to
// call inline on the per-pair hot path.
package matcher

import (
	"sort"

	"github.com/rawblock/signalengine/internal/boxes"
	"github.com/rawblock/signalengine/internal/catalog"
	"github.com/rawblock/signalengine/pkg/models"
)

// PatternMatch is a catalog path whose every element (in one
// orientation) is present in the current box set, with its computed
// reversal level and the box detail for each path element.
type PatternMatch struct {
	Path       catalog.Path
	SignalType models.SignalType
	Level      int
	BoxDetails []models.BoxDetail
}

// Detect scans every path whose head could plausibly match in either
// orientation and returns each one that fully matches.
// cat.FirstElementIndex narrows the scan to candidate paths; the
// result set is identical to a full scan of cat.Paths, just without
// visiting paths whose first element rules them out up front.
func Detect(set boxes.IntegerSet, cat *catalog.Catalog) []PatternMatch {
	var matches []PatternMatch

	for _, idx := range candidateIndices(set, cat) {
		p := cat.Paths[idx]
		if oriented, ok := tryOrientation(p, set, 1); ok {
			matches = append(matches, buildMatch(oriented, models.Long, set, cat))
		}
		if oriented, ok := tryOrientation(p, set, -1); ok {
			matches = append(matches, buildMatch(oriented, models.Short, set, cat))
		}
	}

	return matches
}

// candidateIndices returns, in ascending cat.Paths order, every index
// whose path could match in some orientation: its first element is
// either directly present (sign +1) or present negated (sign -1).
func candidateIndices(set boxes.IntegerSet, cat *catalog.Catalog) []int {
	seen := make(map[int]bool)
	var idxs []int
	for v := range set.Values {
		for _, i := range cat.FirstElementIndex[v] {
			if !seen[i] {
				seen[i] = true
				idxs = append(idxs, i)
			}
		}
		for _, i := range cat.FirstElementIndex[-v] {
			if !seen[i] {
				seen[i] = true
				idxs = append(idxs, i)
			}
		}
	}
	sort.Ints(idxs)
	return idxs
}

// tryOrientation tests membership of p (multiplied element-wise by
// sign) against the present set, early-exiting on the first miss.
func tryOrientation(p catalog.Path, set boxes.IntegerSet, sign int) (catalog.Path, bool) {
	oriented := make(catalog.Path, len(p))
	for i, v := range p {
		ov := v * sign
		if !set.Values[ov] {
			return nil, false
		}
		oriented[i] = ov
	}
	return oriented, true
}

func buildMatch(oriented catalog.Path, signalType models.SignalType, set boxes.IntegerSet, cat *catalog.Catalog) PatternMatch {
	details := make([]models.BoxDetail, len(oriented))
	for i, v := range oriented {
		details[i] = set.Detail[v]
	}
	return PatternMatch{
		Path:       oriented,
		SignalType: signalType,
		Level:      Level(oriented, cat.Boxes),
		BoxDetails: details,
	}
}

// Level computes the recursive reversal level of an oriented path.
// A path of length <= 1 is level 1. The result is always >= 1.
func Level(p catalog.Path, adj map[int][][]int) int {
	n := len(p)
	if n <= 1 {
		return 1
	}

	level := 0
	idx := 0
	key := p[0]

	for idx < n-1 {
		candidates := adj[absInt(key)]
		if len(candidates) == 0 {
			break
		}

		matched := false
		for _, c := range candidates {
			oriented := c
			if key < 0 {
				oriented = negate(c)
			}
			end := idx + 1 + len(oriented)
			if end > n {
				continue
			}
			if !sliceEqual(p[idx+1:end], oriented) {
				continue
			}
			level++
			idx = end - 1
			key = oriented[len(oriented)-1]
			matched = true
			break
		}
		if !matched {
			break
		}
	}

	if level < 1 {
		return 1
	}
	return level
}

func sliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func negate(seq []int) []int {
	out := make([]int, len(seq))
	for i, v := range seq {
		out[i] = -v
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
