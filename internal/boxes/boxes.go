// Package boxes converts raw price boxes into the integer-normalized
// form the Matcher and Deduplicator operate on, and owns the
// pair-to-point-scale lookup table.
package boxes

import (
	"log"
	"math"
	"sync"

	"github.com/rawblock/signalengine/pkg/models"
)

// Tolerance is the absolute tolerance used for every equality
// comparison on prices and box bounds across the engine.
const Tolerance = 1e-5

// DefaultPoint is the point scale used for pairs with no explicit
// override.
const DefaultPoint = 10.0

// Registry holds the pair -> point-scale table. Unknown pairs fall
// back to DefaultPoint and are logged once.
type Registry struct {
	mu      sync.Mutex
	points  map[string]float64
	warned  map[string]bool
}

// NewRegistry builds a Registry seeded with known instrument scales.
func NewRegistry(overrides map[string]float64) *Registry {
	points := make(map[string]float64, len(overrides))
	for pair, p := range overrides {
		points[pair] = p
	}
	return &Registry{points: points, warned: make(map[string]bool)}
}

// Point returns the point scale for pair, logging once per unknown
// pair.
func (r *Registry) Point(pair string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.points[pair]; ok {
		return p
	}
	if !r.warned[pair] {
		r.warned[pair] = true
		log.Printf("[Boxes] unknown pair %q, using default point scale %.4f", pair, DefaultPoint)
	}
	return DefaultPoint
}

// IntegerSet is the per-update normalized view: the set of present
// signed integers plus a map back to the producing (high, low, value)
// for box_details reconstruction. On integer collision, last write
// wins.
type IntegerSet struct {
	Values  map[int]bool
	Detail  map[int]models.BoxDetail
	Box0    *models.BoxDetail // largest-magnitude integer's detail, nil if no boxes
}

// Normalize converts a raw box slice into an IntegerSet using point as
// the divisor. Zero-valued integers are discarded.
func Normalize(rawBoxes []models.Box, point float64) IntegerSet {
	set := IntegerSet{
		Values: make(map[int]bool, len(rawBoxes)),
		Detail: make(map[int]models.BoxDetail, len(rawBoxes)),
	}
	if point == 0 {
		point = DefaultPoint
	}

	maxAbs := -1
	for _, b := range rawBoxes {
		iv := int(math.Round(b.Value / point))
		if iv == 0 {
			continue
		}
		set.Values[iv] = true
		set.Detail[iv] = models.BoxDetail{
			IntegerValue: iv,
			High:         b.High,
			Low:          b.Low,
			Value:        b.Value,
		}
		if abs := absInt(iv); abs > maxAbs {
			maxAbs = abs
			d := set.Detail[iv]
			set.Box0 = &d
		}
	}
	return set
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Equal reports whether two (high, low) pairs match within Tolerance.
func Equal(aHigh, aLow, bHigh, bLow float64) bool {
	return math.Abs(aHigh-bHigh) <= Tolerance && math.Abs(aLow-bLow) <= Tolerance
}
