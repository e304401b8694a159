package dedup

import (
	"testing"

	"github.com/rawblock/signalengine/internal/matcher"
	"github.com/rawblock/signalengine/pkg/models"
)

func TestUpdateBox0_ClearsL1OnChange(t *testing.T) {
	s := NewInstrumentState()

	if !s.UpdateBox0(2000.5, 1999.5) {
		t.Fatal("first box0 observation must report a change")
	}

	p := &models.Proposal{SignalType: models.Long, Level: 1}
	s.RegisterL1(p)
	if len(s.l1Active[models.Long]) != 1 {
		t.Fatal("expected registered L1 proposal")
	}

	if !s.UpdateBox0(2100.5, 2099.5) {
		t.Fatal("a real box0 change must report true")
	}
	if len(s.l1Active[models.Long]) != 0 {
		t.Error("l1Active must be cleared when box0 changes")
	}
}

func TestUpdateBox0_NoopWithinTolerance(t *testing.T) {
	s := NewInstrumentState()
	s.UpdateBox0(2000.0, 1999.0)

	if s.UpdateBox0(2000.000001, 1999.000001) {
		t.Error("a change within tolerance must not report a change")
	}
}

func TestFilterPattern_SuppressesSecondL1(t *testing.T) {
	s := NewInstrumentState()
	s.UpdateBox0(100, 90)

	m := matcher.PatternMatch{SignalType: models.Long, Level: 1}
	if !s.FilterPattern(m) {
		t.Fatal("first L1 match against fresh box0 must survive")
	}

	p := &models.Proposal{SignalType: models.Long, Level: 1}
	s.RegisterL1(p)

	if s.FilterPattern(m) {
		t.Error("a second L1 match under the same box0 must be filtered")
	}
}

func TestFilterPattern_NonL1Unaffected(t *testing.T) {
	s := NewInstrumentState()
	s.UpdateBox0(100, 90)
	s.RegisterL1(&models.Proposal{SignalType: models.Long, Level: 1})

	m := matcher.PatternMatch{SignalType: models.Long, Level: 2}
	if !s.FilterPattern(m) {
		t.Error("strategy 1 only applies to level 1 matches")
	}
}

func TestSettleL1_RemovesFromActive(t *testing.T) {
	s := NewInstrumentState()
	s.UpdateBox0(100, 90)
	p := &models.Proposal{SignalType: models.Long, Level: 1}
	s.RegisterL1(p)

	s.SettleL1(p)

	if len(s.l1Active[models.Long]) != 0 {
		t.Error("settled proposal must be removed from l1Active")
	}
}

func TestRemoveSubsetDuplicates_DropsSubsetOfHigherLevel(t *testing.T) {
	higher := matcher.PatternMatch{
		Path:       []int{5000, 4200, -3600, 3100},
		SignalType: models.Long,
		Level:      2,
	}
	subset := matcher.PatternMatch{
		Path:       []int{5000, 4200},
		SignalType: models.Long,
		Level:      1,
	}

	kept := RemoveSubsetDuplicates([]matcher.PatternMatch{subset, higher})

	if len(kept) != 1 {
		t.Fatalf("got %d matches, want 1 (subset dropped): %v", len(kept), kept)
	}
	if kept[0].Level != 2 {
		t.Errorf("kept match has level %d, want 2 (the higher-level match)", kept[0].Level)
	}
}

func TestRemoveSubsetDuplicates_KeepsDisjointMatches(t *testing.T) {
	a := matcher.PatternMatch{Path: []int{1, 2, 3}, SignalType: models.Long, Level: 1}
	b := matcher.PatternMatch{Path: []int{4, 5, 6}, SignalType: models.Long, Level: 1}

	kept := RemoveSubsetDuplicates([]matcher.PatternMatch{a, b})
	if len(kept) != 2 {
		t.Fatalf("got %d matches, want 2 disjoint matches kept", len(kept))
	}
}

func TestRemoveSubsetDuplicates_SignalTypesIndependent(t *testing.T) {
	long := matcher.PatternMatch{Path: []int{1, 2}, SignalType: models.Long, Level: 2}
	short := matcher.PatternMatch{Path: []int{1, 2}, SignalType: models.Short, Level: 1}

	kept := RemoveSubsetDuplicates([]matcher.PatternMatch{long, short})
	if len(kept) != 2 {
		t.Fatalf("got %d matches, want both signal types kept independently", len(kept))
	}
}

func TestFilterStructural_FirstSeenAlwaysSurvives(t *testing.T) {
	s := NewInstrumentState()
	p := &models.Proposal{
		SignalType: models.Long,
		Level:      1,
		BoxDetails: []models.BoxDetail{{IntegerValue: 2000, High: 2000.5, Low: 1999.5}},
	}
	if !s.FilterStructural(p) {
		t.Fatal("first observation of a structural key must survive")
	}
}

func TestFilterStructural_DropsUnchangedRepeat(t *testing.T) {
	s := NewInstrumentState()
	p1 := &models.Proposal{
		SignalType: models.Long,
		Level:      1,
		BoxDetails: []models.BoxDetail{{IntegerValue: 2000, High: 2000.5, Low: 1999.5}},
	}
	s.FilterStructural(p1)

	p2 := &models.Proposal{
		SignalType: models.Long,
		Level:      1,
		BoxDetails: []models.BoxDetail{{IntegerValue: 2000, High: 2000.5, Low: 1999.5}},
	}
	if s.FilterStructural(p2) {
		t.Error("an unchanged repeat of the same structural key must be filtered")
	}
}

func TestFilterStructural_SurvivesWhenBoundsMove(t *testing.T) {
	s := NewInstrumentState()
	p1 := &models.Proposal{
		SignalType: models.Long,
		Level:      1,
		BoxDetails: []models.BoxDetail{{IntegerValue: 2000, High: 2000.5, Low: 1999.5}},
	}
	s.FilterStructural(p1)

	p2 := &models.Proposal{
		SignalType: models.Long,
		Level:      1,
		BoxDetails: []models.BoxDetail{{IntegerValue: 2000, High: 2010.5, Low: 2009.5}},
	}
	if !s.FilterStructural(p2) {
		t.Error("a structural key whose tracked bounds moved must survive")
	}
}
