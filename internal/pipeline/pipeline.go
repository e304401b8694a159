// Package pipeline composes the per-update hot path:
// Tracker.PriceCheck -> Matcher.Detect -> Dedup Strategy 1 -> Dedup
// Strategy 2 -> SignalGenerator.Synthesize -> Dedup Strategy 3 ->
// Tracker.Register -> forward. One Pipeline instance belongs to
// exactly one instrument pair and is driven by exactly one goroutine;
// it suspends only for store I/O (the tracker-delta updates after the
// price check and the insert on admission). Forwarding runs in its own
// goroutine and is fire-and-forget.
package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rawblock/signalengine/internal/boxes"
	"github.com/rawblock/signalengine/internal/catalog"
	"github.com/rawblock/signalengine/internal/dedup"
	"github.com/rawblock/signalengine/internal/matcher"
	"github.com/rawblock/signalengine/internal/signalgen"
	"github.com/rawblock/signalengine/internal/tracker"
	"github.com/rawblock/signalengine/pkg/models"
)

// Store is the persistence collaborator backing the signals table.
// Insert failures still let the proposal proceed with a locally unique
// id.
type Store interface {
	Insert(ctx context.Context, p models.ForwardPayload) (id string, err error)
	UpdateTargetHit(ctx context.Context, id string, idx int, hit models.Hit) error
	UpdateStopLossHit(ctx context.Context, id string, hit models.Hit) error
	UpdateStatus(ctx context.Context, id string, status models.Status, settledPrice float64) error
}

// Forwarder is the downstream broadcaster sink.
type Forwarder interface {
	Send(ctx context.Context, p models.ForwardPayload)
}

// EventSink receives pipeline events for the dashboard WebSocket
// mirror — purely additive, never required for correctness.
type EventSink interface {
	ProposalAdmitted(p *models.Proposal)
	ProposalSettled(p *models.Proposal)
}

// Pipeline owns one instrument's state and runs the full per-update
// sequence.
type Pipeline struct {
	Pair    string
	point   float64
	cat     *catalog.Catalog
	state   *dedup.InstrumentState
	tr      *tracker.Tracker
	store   Store
	fwd     Forwarder
	sink    EventSink
}

// New builds a Pipeline for one pair.
func New(pair string, point float64, cat *catalog.Catalog, store Store, fwd Forwarder, sink EventSink) *Pipeline {
	return &Pipeline{
		Pair:  pair,
		point: point,
		cat:   cat,
		state: dedup.NewInstrumentState(),
		tr:    tracker.New(),
		store: store,
		fwd:   fwd,
		sink:  sink,
	}
}

// Tracker exposes the per-pair Tracker for read-only snapshotting by
// the /api/status handler.
func (p *Pipeline) Tracker() *tracker.Tracker {
	return p.tr
}

// Process runs the full per-update sequence for one incoming box
// update.
func (p *Pipeline) Process(ctx context.Context, update models.BoxUpdate) {
	ts := update.Data.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	// Step 1: price check, regardless of whether this update carries
	// any boxes.
	if len(update.Data.Boxes) == 0 {
		p.tr.PriceCheck(nil, ts)
		return
	}
	price := update.Data.Price
	deltas := p.tr.PriceCheck(&price, ts)
	p.applyDeltas(ctx, deltas)

	// Step 2: normalize boxes, compute box0.
	set := boxes.Normalize(update.Data.Boxes, p.point)
	if set.Box0 == nil {
		return
	}

	// Step 3: box-0 state / L1 clearance.
	p.state.UpdateBox0(set.Box0.High, set.Box0.Low)

	// Step 4: matcher.
	matches := matcher.Detect(set, p.cat)

	// Step 5: Strategy 1 then Strategy 2.
	var survivors []matcher.PatternMatch
	for _, m := range matches {
		if p.state.FilterPattern(m) {
			survivors = append(survivors, m)
		}
	}
	survivors = dedup.RemoveSubsetDuplicates(survivors)

	// Step 6 + 7: synthesize, then Strategy 3.
	for _, m := range survivors {
		proposal, ok := signalgen.Synthesize(m)
		if !ok {
			continue
		}
		proposal.Pair = p.Pair

		if !p.state.FilterStructural(proposal) {
			continue
		}

		p.admit(ctx, proposal)
	}
}

// admit registers a synthesized proposal. The store insert is the one
// suspension point before the proposal's in-memory state is considered
// final — the in-memory transition must complete before further I/O is
// issued, and here the id itself is part of that transition; a failed
// or errored insert falls back to a locally unique id rather than
// blocking admission. Forwarding is genuinely fire-and-forget: nothing
// downstream depends on it.
func (p *Pipeline) admit(ctx context.Context, proposal *models.Proposal) {
	payload := proposal.ToForwardPayload()

	id, err := p.store.Insert(ctx, payload)
	if err != nil || id == "" {
		if err != nil {
			log.Printf("[Pipeline] store insert failed for %s: %v", p.Pair, err)
		}
		id = uuid.NewString()
	}
	proposal.ID = id

	p.tr.Register(proposal)
	p.state.RegisterL1(proposal)

	if p.sink != nil {
		p.sink.ProposalAdmitted(proposal)
	}

	go p.fwd.Send(context.Background(), payload)
}

// applyDeltas persists tracker transitions synchronously (I/O is
// allowed to suspend the per-pair executor; the in-memory transition
// already happened inside Tracker.PriceCheck before these deltas were
// returned) and mirrors settlements to the dashboard sink. A failed
// update leaves the row inconsistent but never rolls back the
// in-memory state.
func (p *Pipeline) applyDeltas(ctx context.Context, deltas []tracker.Delta) {
	for _, d := range deltas {
		prop := d.Proposal
		if prop.ID == "" {
			continue
		}

		switch d.Kind {
		case tracker.DeltaTargetHit:
			hit := *prop.TargetHits[d.TargetIdx]
			if err := p.store.UpdateTargetHit(ctx, prop.ID, d.TargetIdx, hit); err != nil {
				log.Printf("[Pipeline] store update (target hit) failed: %v", err)
			}

		case tracker.DeltaStopLossHit:
			if err := p.store.UpdateStopLossHit(ctx, prop.ID, *prop.StopLossHit); err != nil {
				log.Printf("[Pipeline] store update (stop hit) failed: %v", err)
			}

		case tracker.DeltaSettled:
			p.state.SettleL1(prop)
			if p.sink != nil {
				p.sink.ProposalSettled(prop)
			}
			if err := p.store.UpdateStatus(ctx, prop.ID, prop.Status, prop.SettledPrice); err != nil {
				log.Printf("[Pipeline] store update (status) failed: %v", err)
			}
		}
	}
}
