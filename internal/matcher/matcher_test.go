package matcher

import (
	"testing"

	"github.com/rawblock/signalengine/internal/boxes"
	"github.com/rawblock/signalengine/internal/catalog"
	"github.com/rawblock/signalengine/pkg/models"
)

func setOf(values ...int) boxes.IntegerSet {
	set := boxes.IntegerSet{
		Values: make(map[int]bool, len(values)),
		Detail: make(map[int]models.BoxDetail, len(values)),
	}
	for _, v := range values {
		set.Values[v] = true
		set.Detail[v] = models.BoxDetail{IntegerValue: v, High: float64(v) + 0.5, Low: float64(v) - 0.5, Value: float64(v) * 10}
	}
	return set
}

func TestDetect_LongOrientation(t *testing.T) {
	cat := catalog.Build(catalog.BOXES, catalog.StartingPoints)
	set := setOf(2000, 1732, -1500)

	matches := Detect(set, cat)

	var found bool
	for _, m := range matches {
		if m.SignalType == models.Long && m.Path.Equal(catalog.Path{2000, 1732, -1500}) {
			found = true
			if m.Level != 1 {
				t.Errorf("level = %d, want 1", m.Level)
			}
			if len(m.BoxDetails) != 3 {
				t.Errorf("len(BoxDetails) = %d, want 3", len(m.BoxDetails))
			}
		}
	}
	if !found {
		t.Fatalf("expected LONG match for [2000,1732,-1500], got %v", matches)
	}
}

func TestDetect_ShortOrientation(t *testing.T) {
	cat := catalog.Build(catalog.BOXES, catalog.StartingPoints)
	// Negate every element of the LONG path to trigger the SHORT match.
	set := setOf(-2000, -1732, 1500)

	matches := Detect(set, cat)

	var found bool
	for _, m := range matches {
		if m.SignalType == models.Short && m.Path.Equal(catalog.Path{-2000, -1732, 1500}) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected SHORT match for negated path, got %v", matches)
	}
}

func TestDetect_NoPartialMatch(t *testing.T) {
	cat := catalog.Build(catalog.BOXES, catalog.StartingPoints)
	// Missing the final element of the path must exclude it entirely.
	set := setOf(2000, 1732)

	matches := Detect(set, cat)
	for _, m := range matches {
		if m.Path.Equal(catalog.Path{2000, 1732, -1500}) {
			t.Fatalf("expected no match when a path element is absent, got %v", m)
		}
	}
}

func TestLevel_ShortPathIsLevel1(t *testing.T) {
	adj := map[int][][]int{}
	if got := Level(catalog.Path{500}, adj); got != 1 {
		t.Errorf("single-element path level = %d, want 1", got)
	}
}

func TestLevel_TwoHopReversal(t *testing.T) {
	adj := map[int][][]int{
		5000: {{4200, -3600}, {3900}},
		3600: {{-3100}},
	}
	got := Level(catalog.Path{5000, 4200, -3600, 3100}, adj)
	if got != 2 {
		t.Errorf("level = %d, want 2", got)
	}
}

func TestLevel_StopsWhenNoCandidateMatches(t *testing.T) {
	adj := map[int][][]int{
		100: {{50, -25}},
	}
	// The tail of the path diverges from every candidate continuation,
	// so the walk must stop and still return a level >= 1.
	got := Level(catalog.Path{100, 50, 99}, adj)
	if got != 1 {
		t.Errorf("level = %d, want 1 (no matching continuation)", got)
	}
}

func TestDetect_FirstElementIndexDoesNotChangeResults(t *testing.T) {
	cat := catalog.Build(catalog.BOXES, catalog.StartingPoints)
	set := setOf(1000, 870, -750)

	matches := Detect(set, cat)
	count := 0
	for _, m := range matches {
		if m.Path.Equal(catalog.Path{1000, 870, -750}) {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one match for [1000,870,-750], got %d", count)
	}

	// Reference full scan over every catalog path, bypassing the index.
	full := 0
	for _, p := range cat.Paths {
		if _, ok := tryOrientation(p, set, 1); ok {
			full++
		}
		if _, ok := tryOrientation(p, set, -1); ok {
			full++
		}
	}
	if len(matches) != full {
		t.Fatalf("indexed scan found %d matches, full scan found %d", len(matches), full)
	}
}
