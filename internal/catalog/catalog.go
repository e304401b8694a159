// Package catalog builds the immutable Path Catalog: every traversal
// path reachable by exhaustive depth-first walk of the BOXES adjacency
// map from each of STARTING_POINTS. The catalog is built once at
// process start and is read-only thereafter — it is the only state
// shared across per-pair executors.
package catalog

import "sort"

// Path is a finite ordered sequence of signed non-zero integers,
// length >= 1, stored in its LONG-starting form. SHORT matches are
// derived at match time by global negation.
type Path []int

// Equal reports whether two paths have identical elements in order.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Catalog holds the deduplicated path list, a first-element index
// accelerating the Matcher, and the adjacency map the Level Function
// consults.
type Catalog struct {
	Paths             []Path
	FirstElementIndex map[int][]int // first element -> indices into Paths
	Boxes             map[int][][]int
}

// Build runs the generation rule for every starting point and returns
// the deduplicated catalog. boxesAdj maps a positive key to its list
// of child sequences; startingPoints must all be positive.
func Build(boxesAdj map[int][][]int, startingPoints []int) *Catalog {
	seen := make(map[string]bool)
	var paths []Path

	for _, s := range startingPoints {
		for _, p := range generateFrom(boxesAdj, s) {
			key := pathKey(p)
			if seen[key] {
				continue
			}
			seen[key] = true
			paths = append(paths, p)
		}
	}

	firstIdx := make(map[int][]int)
	for i, p := range paths {
		if len(p) == 0 {
			continue
		}
		firstIdx[p[0]] = append(firstIdx[p[0]], i)
	}

	return &Catalog{Paths: paths, FirstElementIndex: firstIdx, Boxes: boxesAdj}
}

// generateFrom performs the depth-first walk starting at s, returning
// every path emitted along the way (a starting point may branch into
// many paths).
func generateFrom(boxesAdj map[int][][]int, s int) []Path {
	var results []Path

	var walk func(path Path, currentKey int)
	walk = func(path Path, currentKey int) {
		children, ok := boxesAdj[absInt(currentKey)]
		if !ok || len(children) == 0 {
			results = append(results, append(Path{}, path...))
			return
		}

		for _, c := range children {
			seq := c
			if currentKey < 0 {
				seq = negate(c)
			}
			tail := seq[len(seq)-1]

			extended := append(append(Path{}, path...), seq...)

			if absInt(tail) == absInt(currentKey) {
				// Cycle rule: emit without recursing further on this branch.
				results = append(results, extended)
				continue
			}
			walk(extended, tail)
		}
	}

	walk(Path{s}, s)
	return results
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

func pathKey(p Path) string {
	// Sortable, collision-free string key: decimal elements separated
	// by a byte that cannot appear in a signed-integer representation.
	b := make([]byte, 0, len(p)*6)
	for i, v := range p {
		if i > 0 {
			b = append(b, ',')
		}
		b = appendInt(b, v)
	}
	return string(b)
}

func appendInt(b []byte, v int) []byte {
	if v < 0 {
		b = append(b, '-')
		v = -v
	}
	if v == 0 {
		return append(b, '0')
	}
	start := len(b)
	for v > 0 {
		b = append(b, byte('0'+v%10))
		v /= 10
	}
	// reverse the digits just appended
	for i, j := start, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

// SortedFirstElements returns the distinct first elements present in
// the index, in ascending order — used only for deterministic test
// output and diagnostics, never on the hot path.
func (c *Catalog) SortedFirstElements() []int {
	out := make([]int, 0, len(c.FirstElementIndex))
	for k := range c.FirstElementIndex {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
