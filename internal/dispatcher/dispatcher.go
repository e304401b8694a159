// Package dispatcher routes inbound box updates to a per-pair executor
// goroutine, lazily spawned on first sight of a pair: task-per-pair,
// each with its own state. The Dispatcher's mutex guards only the
// routing table, never instrument state itself.
package dispatcher

import (
	"context"
	"log"
	"sync"

	"github.com/rawblock/signalengine/internal/boxes"
	"github.com/rawblock/signalengine/internal/catalog"
	"github.com/rawblock/signalengine/internal/pipeline"
	"github.com/rawblock/signalengine/pkg/models"
)

const inboxCapacity = 256

type executor struct {
	inbox chan models.BoxUpdate
	pipe  *pipeline.Pipeline
}

// Dispatcher owns one Pipeline per pair and fans inbound updates out
// to the right one, preserving per-pair arrival order while pairs run
// fully concurrently.
type Dispatcher struct {
	mu        sync.Mutex
	executors map[string]*executor

	cat       *catalog.Catalog
	points    *boxes.Registry
	store     pipeline.Store
	forwarder pipeline.Forwarder
	sink      pipeline.EventSink

	ctx context.Context
}

// New builds a Dispatcher. ctx cancellation shuts down every executor.
func New(ctx context.Context, cat *catalog.Catalog, points *boxes.Registry, store pipeline.Store, fwd pipeline.Forwarder, sink pipeline.EventSink) *Dispatcher {
	return &Dispatcher{
		executors: make(map[string]*executor),
		cat:       cat,
		points:    points,
		store:     store,
		forwarder: fwd,
		sink:      sink,
		ctx:       ctx,
	}
}

// Dispatch hands one update to its pair's executor, spawning the
// executor on first sight of that pair.
func (d *Dispatcher) Dispatch(update models.BoxUpdate) {
	ex := d.executorFor(update.Pair)
	select {
	case ex.inbox <- update:
	case <-d.ctx.Done():
	}
}

func (d *Dispatcher) executorFor(pair string) *executor {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ex, ok := d.executors[pair]; ok {
		return ex
	}

	point := d.points.Point(pair)
	pipe := pipeline.New(pair, point, d.cat, d.store, d.forwarder, d.sink)
	ex := &executor{
		inbox: make(chan models.BoxUpdate, inboxCapacity),
		pipe:  pipe,
	}
	d.executors[pair] = ex
	go d.run(pair, ex)
	return ex
}

func (d *Dispatcher) run(pair string, ex *executor) {
	log.Printf("[Dispatcher] executor started for %s", pair)
	for {
		select {
		case update, ok := <-ex.inbox:
			if !ok {
				log.Printf("[Dispatcher] executor stopped for %s", pair)
				return
			}
			ex.pipe.Process(d.ctx, update)
		case <-d.ctx.Done():
			log.Printf("[Dispatcher] executor cancelled for %s", pair)
			return
		}
	}
}

// PipelineFor returns the live Pipeline for pair, or nil if no update
// for that pair has arrived yet. Used by the /api/status snapshot.
func (d *Dispatcher) PipelineFor(pair string) *pipeline.Pipeline {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ex, ok := d.executors[pair]; ok {
		return ex.pipe
	}
	return nil
}

// Pairs returns every pair with a live executor, for the /api/status
// byPair breakdown.
func (d *Dispatcher) Pairs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.executors))
	for pair := range d.executors {
		out = append(out, pair)
	}
	return out
}
