// Package signalgen turns a surviving pattern match into a trade
// proposal: entry, ordered stop losses, ordered targets, and per-target
// risk/reward.
package signalgen

import (
	"math"
	"sort"

	"github.com/rawblock/signalengine/internal/matcher"
	"github.com/rawblock/signalengine/pkg/models"
)

// tradeRule is one row of the level-indexed trade table. Indexes are
// 0-based positions into the primary-box slice after sorting by
// |integer_value| descending.
type tradeRule struct {
	entryIdx   int
	stopIdx    int
	targetIdxs []int
}

var tradeRules = map[int]tradeRule{
	1: {entryIdx: 1, stopIdx: 0, targetIdxs: []int{0}},
	2: {entryIdx: 2, stopIdx: 1, targetIdxs: []int{0, 1}},
	3: {entryIdx: 3, stopIdx: 2, targetIdxs: []int{0, 1, 2}},
	4: {entryIdx: 4, stopIdx: 3, targetIdxs: []int{0, 1, 2, 3}},
	5: {entryIdx: 5, stopIdx: 4, targetIdxs: []int{0, 1, 2, 3, 4}},
	6: {entryIdx: 6, stopIdx: 5, targetIdxs: []int{0, 1, 2, 3, 4, 5}},
}

// Synthesize builds a Proposal from a match, or returns (nil, false) if
// validation fails (missing primary box at a required index, a
// non-finite price, or a broken ordering invariant).
func Synthesize(m matcher.PatternMatch) (*models.Proposal, bool) {
	rule, ok := tradeRules[m.Level]
	if !ok {
		return nil, false
	}

	primary := primaryBoxes(m)
	maxIdx := rule.entryIdx
	if rule.stopIdx > maxIdx {
		maxIdx = rule.stopIdx
	}
	for _, t := range rule.targetIdxs {
		if t > maxIdx {
			maxIdx = t
		}
	}
	if len(primary) <= maxIdx {
		return nil, false
	}

	isLong := m.SignalType == models.Long

	entry := priceFor(primary[rule.entryIdx], isLong, true)
	stop := priceFor(primary[rule.stopIdx], isLong, false)

	directTargets := make([]float64, 0, len(rule.targetIdxs))
	for _, idx := range rule.targetIdxs {
		directTargets = append(directTargets, priceFor(primary[idx], isLong, true))
	}

	firstBoxSize := primary[0].High - primary[0].Low
	var extension float64
	if isLong {
		extension = primary[0].High + firstBoxSize
	} else {
		extension = primary[0].Low - firstBoxSize
	}

	targets := append(directTargets, extension)
	if isLong {
		sort.Float64s(targets)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(targets)))
	}

	if !allFinite(entry, stop) || !allFinite(targets...) {
		return nil, false
	}

	if !validOrdering(isLong, entry, stop, targets) {
		return nil, false
	}

	riskReward := make([]int, len(targets))
	riskDenom := math.Abs(entry - stop)
	for i, t := range targets {
		if riskDenom == 0 {
			riskReward[i] = 0
			continue
		}
		riskReward[i] = int(math.Round(math.Abs(t-entry) / riskDenom))
	}

	targetHits := make([]*models.Hit, len(targets))

	return &models.Proposal{
		Pair:            "",
		SignalType:      m.SignalType,
		Level:           m.Level,
		PatternSequence: append([]int{}, m.Path...),
		BoxDetails:      m.BoxDetails,
		Entry:           entry,
		StopLosses:      []float64{stop},
		Targets:         targets,
		RiskReward:      riskReward,
		TargetHits:      targetHits,
		Status:          models.StatusActive,
	}, true
}

// primaryBoxes partitions box_details by sign into primary boxes (same
// sign as the signal type's convention) and sorts them by
// |integer_value| descending.
func primaryBoxes(m matcher.PatternMatch) []models.BoxDetail {
	var primary []models.BoxDetail
	for _, d := range m.BoxDetails {
		if (m.SignalType == models.Long) == (d.IntegerValue > 0) {
			primary = append(primary, d)
		}
	}
	sort.SliceStable(primary, func(i, j int) bool {
		return absInt(primary[i].IntegerValue) > absInt(primary[j].IntegerValue)
	})
	return primary
}

// priceFor extracts HIGH or LOW per direction. useHighForEntryOrTarget
// distinguishes the entry/direct-target extraction (HIGH for LONG, LOW
// for SHORT) from the stop extraction (the opposite bound).
func priceFor(d models.BoxDetail, isLong, useHighForEntryOrTarget bool) float64 {
	wantHigh := isLong == useHighForEntryOrTarget
	if wantHigh {
		return d.High
	}
	return d.Low
}

func validOrdering(isLong bool, entry, stop float64, targets []float64) bool {
	if isLong {
		if !(stop < entry) {
			return false
		}
		if !(entry < targets[0]) {
			return false
		}
		for i := 1; i < len(targets); i++ {
			if targets[i-1] > targets[i] {
				return false
			}
		}
		return true
	}

	if !(stop > entry) {
		return false
	}
	if !(entry > targets[0]) {
		return false
	}
	for i := 1; i < len(targets); i++ {
		if targets[i-1] < targets[i] {
			return false
		}
	}
	return true
}

func allFinite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
