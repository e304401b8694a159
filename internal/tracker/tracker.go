// Package tracker maintains active proposals per instrument and drives
// them through settlement as prices arrive. A Tracker's state
// transitions are driven by exactly one per-pair executor; the mutex
// exists solely so Snapshot can be called from the API goroutine for
// the /api/status surface without racing the owning executor — it is
// never contended on the hot path itself, since no other goroutine
// ever writes.
package tracker

import (
	"sync"
	"time"

	"github.com/rawblock/signalengine/pkg/models"
)

// Delta is a persistence-worthy state transition emitted by PriceCheck,
// handed to the Store by the pipeline.
type Delta struct {
	Proposal *models.Proposal
	Kind     DeltaKind
	TargetIdx int // valid when Kind == DeltaTargetHit
}

type DeltaKind int

const (
	DeltaTargetHit DeltaKind = iota
	DeltaStopLossHit
	DeltaSettled
)

// Tracker owns the active-proposal list for one pair.
type Tracker struct {
	mu     sync.Mutex
	active []*models.Proposal
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// Register adds a newly admitted proposal to the active list.
func (t *Tracker) Register(p *models.Proposal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = append(t.active, p)
}

// PriceCheck applies one incoming price against every active proposal.
// Stop is evaluated before targets; on the same update, a stop hit
// shadows a simultaneous target hit. A nil price (empty box update) is
// a no-op.
func (t *Tracker) PriceCheck(price *float64, ts time.Time) []Delta {
	if price == nil {
		return nil
	}
	p := *price

	t.mu.Lock()
	defer t.mu.Unlock()

	var deltas []Delta
	var survivors []*models.Proposal

	for _, prop := range t.active {
		settled := t.checkOne(prop, p, ts, &deltas)
		if !settled {
			survivors = append(survivors, prop)
		}
	}
	t.active = survivors

	return deltas
}

// checkOne mutates prop in place and appends deltas; returns true if
// prop is settled, either by this price or already before the call
// (and should be removed from the active list).
func (t *Tracker) checkOne(prop *models.Proposal, price float64, ts time.Time, deltas *[]Delta) bool {
	if prop.Status != models.StatusActive {
		return true
	}

	stop := prop.StopLosses[0]
	isLong := prop.SignalType == models.Long

	stopHit := (isLong && price <= stop) || (!isLong && price >= stop)
	if stopHit {
		prop.StopLossHit = &models.Hit{Timestamp: ts, Price: price}
		prop.Status = models.StatusFailed
		prop.SettledPrice = price
		*deltas = append(*deltas, Delta{Proposal: prop, Kind: DeltaStopLossHit})
		*deltas = append(*deltas, Delta{Proposal: prop, Kind: DeltaSettled})
		return true
	}

	for i, target := range prop.Targets {
		if prop.TargetHits[i].IsSet() {
			continue
		}
		hit := (isLong && price >= target) || (!isLong && price <= target)
		if !hit {
			continue
		}
		prop.TargetHits[i] = &models.Hit{Timestamp: ts, Price: price}
		*deltas = append(*deltas, Delta{Proposal: prop, Kind: DeltaTargetHit, TargetIdx: i})
	}

	last := len(prop.Targets) - 1
	if last >= 0 && prop.TargetHits[last].IsSet() {
		prop.Status = models.StatusSuccess
		prop.SettledPrice = prop.TargetHits[last].Price
		*deltas = append(*deltas, Delta{Proposal: prop, Kind: DeltaSettled})
		return true
	}

	return false
}

// Snapshot returns the count of active proposals, for the read-only
// /api/status surface. It is the only call in this package ever made
// from outside the owning executor goroutine.
func (t *Tracker) Snapshot() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}
