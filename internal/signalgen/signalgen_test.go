package signalgen

import (
	"testing"

	"github.com/rawblock/signalengine/internal/matcher"
	"github.com/rawblock/signalengine/pkg/models"
)

func TestSynthesize_Level1Long(t *testing.T) {
	m := matcher.PatternMatch{
		SignalType: models.Long,
		Level:      1,
		Path:       []int{200, 100},
		BoxDetails: []models.BoxDetail{
			{IntegerValue: 200, High: 1780, Low: 1700},
			{IntegerValue: 100, High: 1750, Low: 1730},
		},
	}

	p, ok := Synthesize(m)
	if !ok {
		t.Fatal("expected a valid proposal")
	}

	if p.Entry != 1750 {
		t.Errorf("entry = %v, want 1750", p.Entry)
	}
	if len(p.StopLosses) != 1 || p.StopLosses[0] != 1700 {
		t.Errorf("stop = %v, want [1700]", p.StopLosses)
	}
	wantTargets := []float64{1780, 1860}
	if len(p.Targets) != len(wantTargets) {
		t.Fatalf("targets = %v, want %v", p.Targets, wantTargets)
	}
	for i, want := range wantTargets {
		if p.Targets[i] != want {
			t.Errorf("targets[%d] = %v, want %v", i, p.Targets[i], want)
		}
	}
	wantRR := []int{1, 2}
	for i, want := range wantRR {
		if p.RiskReward[i] != want {
			t.Errorf("riskReward[%d] = %d, want %d", i, p.RiskReward[i], want)
		}
	}
	if p.Status != models.StatusActive {
		t.Errorf("status = %v, want active", p.Status)
	}
	if len(p.TargetHits) != 2 || p.TargetHits[0] != nil || p.TargetHits[1] != nil {
		t.Errorf("targetHits must start unset: %v", p.TargetHits)
	}
}

func TestSynthesize_Level1Short(t *testing.T) {
	m := matcher.PatternMatch{
		SignalType: models.Short,
		Level:      1,
		Path:       []int{-200, -100},
		BoxDetails: []models.BoxDetail{
			{IntegerValue: -200, High: 1700, Low: 1550},
			{IntegerValue: -100, High: 1650, Low: 1600},
		},
	}

	p, ok := Synthesize(m)
	if !ok {
		t.Fatal("expected a valid proposal")
	}

	if p.Entry != 1600 {
		t.Errorf("entry = %v, want 1600", p.Entry)
	}
	if p.StopLosses[0] != 1700 {
		t.Errorf("stop = %v, want 1700", p.StopLosses[0])
	}
	wantTargets := []float64{1550, 1400}
	for i, want := range wantTargets {
		if p.Targets[i] != want {
			t.Errorf("targets[%d] = %v, want %v", i, p.Targets[i], want)
		}
	}
	wantRR := []int{1, 2}
	for i, want := range wantRR {
		if p.RiskReward[i] != want {
			t.Errorf("riskReward[%d] = %d, want %d", i, p.RiskReward[i], want)
		}
	}
}

func TestSynthesize_RejectsBrokenOrdering(t *testing.T) {
	// stop (primary[0].Low) ends up above entry (primary[1].High),
	// which must fail the LONG ordering invariant.
	m := matcher.PatternMatch{
		SignalType: models.Long,
		Level:      1,
		Path:       []int{200, 100},
		BoxDetails: []models.BoxDetail{
			{IntegerValue: 200, High: 1780, Low: 1990},
			{IntegerValue: 100, High: 1750, Low: 1730},
		},
	}

	if _, ok := Synthesize(m); ok {
		t.Fatal("expected Synthesize to reject a broken stop/entry ordering")
	}
}

func TestSynthesize_RejectsMissingPrimaryBox(t *testing.T) {
	// Level 3 needs at least 4 primary boxes (entryIdx=3); only one is
	// supplied.
	m := matcher.PatternMatch{
		SignalType: models.Long,
		Level:      3,
		Path:       []int{200},
		BoxDetails: []models.BoxDetail{
			{IntegerValue: 200, High: 1780, Low: 1700},
		},
	}

	if _, ok := Synthesize(m); ok {
		t.Fatal("expected Synthesize to reject an insufficient primary box set")
	}
}

func TestSynthesize_UnknownLevelRejected(t *testing.T) {
	m := matcher.PatternMatch{SignalType: models.Long, Level: 7}
	if _, ok := Synthesize(m); ok {
		t.Fatal("expected Synthesize to reject a level outside the trade rule table")
	}
}
