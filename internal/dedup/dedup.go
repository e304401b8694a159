// Package dedup implements the four-stage deduplication pipeline:
// box-0 state tracking, L1 first-only, higher-level subset removal,
// and structural-box deduplication. All state lives in InstrumentState,
// owned by exactly one per-pair executor — no locking is needed
// because no other goroutine ever touches it.
package dedup

import (
	"sort"

	"github.com/rawblock/signalengine/internal/boxes"
	"github.com/rawblock/signalengine/internal/matcher"
	"github.com/rawblock/signalengine/pkg/models"
)

// boundRef is a (high, low) pair used to detect box-identity changes
// within Tolerance.
type boundRef struct {
	high, low float64
	set       bool
}

func (b boundRef) equals(high, low float64) bool {
	return b.set && boxes.Equal(b.high, b.low, high, low)
}

// structuralEntry is the remembered (high, low) for every tracked box
// of one structural key.
type structuralEntry map[int]boundRef

// InstrumentState is the per-pair memory the Deduplicator reads and
// mutates.
type InstrumentState struct {
	box0Ref  boundRef
	l1Active map[models.SignalType][]*models.Proposal

	// structural_memory: (signal_type, structural_key tuple) -> tracked boxes.
	structuralMemory map[string]structuralEntry
}

// NewInstrumentState returns empty per-pair dedup memory.
func NewInstrumentState() *InstrumentState {
	return &InstrumentState{
		l1Active:         make(map[models.SignalType][]*models.Proposal),
		structuralMemory: make(map[string]structuralEntry),
	}
}

// UpdateBox0 checks whether box0 changed beyond tolerance and, if so,
// clears l1Active for both signal types. Returns true if the update
// cleared L1 memory.
func (s *InstrumentState) UpdateBox0(high, low float64) bool {
	if s.box0Ref.equals(high, low) {
		return false
	}
	s.box0Ref = boundRef{high: high, low: low, set: true}
	s.l1Active[models.Long] = nil
	s.l1Active[models.Short] = nil
	return true
}

// FilterPattern applies Strategy 1 (L1 first-only) to one candidate
// match. Returns false if the match must be filtered.
//
// l1Active[T] is only ever populated with proposals admitted while the
// current box0Ref was in effect — UpdateBox0 clears it on every box-0
// change — so any entry still present already has box0 bounds equal
// to box0Ref by construction; a non-empty list means an L1 proposal
// already exists for the current box0.
func (s *InstrumentState) FilterPattern(m matcher.PatternMatch) bool {
	if m.Level != 1 {
		return true
	}
	return len(s.l1Active[m.SignalType]) == 0
}

// RegisterL1 records a freshly synthesized L1 proposal so future
// matches against the same box-0 state are suppressed. The proposal's
// own bounds are not read: the list is tied to the current box-0 state
// only because UpdateBox0 clears it on every box-0 change.
func (s *InstrumentState) RegisterL1(p *models.Proposal) {
	if p.Level != 1 {
		return
	}
	s.l1Active[p.SignalType] = append(s.l1Active[p.SignalType], p)
}

// SettleL1 removes a proposal from l1Active once it reaches a terminal
// state.
func (s *InstrumentState) SettleL1(p *models.Proposal) {
	if p.Level != 1 {
		return
	}
	list := s.l1Active[p.SignalType]
	for i, q := range list {
		if q == p {
			s.l1Active[p.SignalType] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// RemoveSubsetDuplicates applies Strategy 2 independently per signal
// type: sort by level descending, keep a match only if its element
// set is not a subset of any already-kept match.
func RemoveSubsetDuplicates(matches []matcher.PatternMatch) []matcher.PatternMatch {
	byType := make(map[models.SignalType][]matcher.PatternMatch)
	var order []models.SignalType
	for _, m := range matches {
		if _, ok := byType[m.SignalType]; !ok {
			order = append(order, m.SignalType)
		}
		byType[m.SignalType] = append(byType[m.SignalType], m)
	}

	var kept []matcher.PatternMatch
	for _, t := range order {
		group := byType[t]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Level > group[j].Level })

		var keptSets []map[int]bool
		for _, m := range group {
			set := toSet(m.Path)
			if isSubsetOfAny(set, keptSets) {
				continue
			}
			keptSets = append(keptSets, set)
			kept = append(kept, m)
		}
	}
	return kept
}

func toSet(p []int) map[int]bool {
	set := make(map[int]bool, len(p))
	for _, v := range p {
		set[v] = true
	}
	return set
}

func isSubsetOfAny(set map[int]bool, others []map[int]bool) bool {
	for _, o := range others {
		if isSubset(set, o) {
			return true
		}
	}
	return false
}

func isSubset(a, b map[int]bool) bool {
	for v := range a {
		if !b[v] {
			return false
		}
	}
	return true
}

// StructuralKey identifies the (signal_type, tracked-box-values) tuple
// Strategy 3 keys its memory on.
type StructuralKey struct {
	SignalType models.SignalType
	Values     string // ordered integer values, joined
}

// FilterStructural applies Strategy 3 to a synthesized proposal.
// Returns false if the proposal must be filtered as an unchanged
// repeat of a previously seen structure.
func (s *InstrumentState) FilterStructural(p *models.Proposal) bool {
	structural := structuralBoxes(p)
	trackedCount := p.Level
	if trackedCount > len(structural) {
		trackedCount = len(structural)
	}
	tracked := structural[:trackedCount]

	key := structuralKeyString(p.SignalType, tracked)

	existing, ok := s.structuralMemory[key]
	if !ok {
		entry := make(structuralEntry, len(tracked))
		for _, d := range tracked {
			entry[d.IntegerValue] = boundRef{high: d.High, low: d.Low, set: true}
		}
		s.structuralMemory[key] = entry
		return true
	}

	unchanged := true
	for _, d := range tracked {
		ref, ok := existing[d.IntegerValue]
		if !ok || !ref.equals(d.High, d.Low) {
			unchanged = false
			break
		}
	}
	if unchanged {
		return false
	}

	entry := make(structuralEntry, len(tracked))
	for _, d := range tracked {
		entry[d.IntegerValue] = boundRef{high: d.High, low: d.Low, set: true}
	}
	s.structuralMemory[key] = entry
	return true
}

// structuralBoxes extracts the subsequence of box_details matching the
// signal type's sign convention and sorts it by |integer_value|
// descending.
func structuralBoxes(p *models.Proposal) []models.BoxDetail {
	var primary []models.BoxDetail
	for _, d := range p.BoxDetails {
		if (p.SignalType == models.Long) == (d.IntegerValue > 0) {
			primary = append(primary, d)
		}
	}
	sort.SliceStable(primary, func(i, j int) bool {
		return absInt(primary[i].IntegerValue) > absInt(primary[j].IntegerValue)
	})
	return primary
}

func structuralKeyString(t models.SignalType, tracked []models.BoxDetail) string {
	key := string(t) + "|"
	for i, d := range tracked {
		if i > 0 {
			key += ","
		}
		key += itoa(d.IntegerValue)
	}
	return key
}

func itoa(v int) string {
	neg := v < 0
	if neg {
		v = -v
	}
	if v == 0 {
		return "0"
	}
	var digits []byte
	for v > 0 {
		digits = append(digits, byte('0'+v%10))
		v /= 10
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
