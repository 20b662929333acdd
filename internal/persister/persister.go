// Package persister implements write-behind persistence of state
// snapshots: mutations enqueue the latest snapshot and a background
// goroutine flushes it on an interval. Only the most recent snapshot
// matters, so intermediate ones are dropped.
package persister

import (
	"context"
	"sync"
	"time"

	"github.com/patric-chuzhbe/fetchcart/internal/logger"
	"github.com/patric-chuzhbe/fetchcart/internal/models"
)

type snapshotSaver interface {
	SaveSnapshot(ctx context.Context, namespace string, snapshot *models.StateSnapshot) error
}

type queuedSnapshot struct {
	snapshot *models.StateSnapshot
	epoch    uint64
}

type Persister struct {
	queue         chan queuedSnapshot
	keeper        snapshotSaver
	namespace     string
	flushInterval time.Duration
	errorChannel  chan error

	// mu serializes keeper writes against Fence, so once Fence returns
	// no snapshot from an older store generation can reach the keeper.
	mu          sync.Mutex
	fencedEpoch uint64
}

func New(
	keeper snapshotSaver,
	namespace string,
	channelCapacity int,
	flushInterval time.Duration,
) *Persister {
	return &Persister{
		queue:         make(chan queuedSnapshot, channelCapacity),
		keeper:        keeper,
		namespace:     namespace,
		flushInterval: flushInterval,
		errorChannel:  make(chan error, channelCapacity),
	}
}

// ListenErrors forwards flush errors to the callback on a separate goroutine.
func (p *Persister) ListenErrors(callback func(error)) {
	go func() {
		for err := range p.errorChannel {
			callback(err)
		}
	}()
}

// EnqueueSnapshot hands a snapshot tagged with its store generation to the
// flusher without blocking. When the queue is full the oldest pending
// snapshot is discarded; the flusher only ever writes the most recent one
// anyway.
func (p *Persister) EnqueueSnapshot(snapshot *models.StateSnapshot, epoch uint64) {
	entry := queuedSnapshot{snapshot: snapshot, epoch: epoch}
	for {
		select {
		case p.queue <- entry:
			return
		default:
			select {
			case <-p.queue:
			default:
			}
		}
	}
}

// Fence invalidates every queued snapshot older than the given store
// generation. It waits out any keeper write already in progress, so after
// Fence returns a write-through with the cleared state cannot be
// overwritten by a stale flush.
func (p *Persister) Fence(epoch uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if epoch > p.fencedEpoch {
		p.fencedEpoch = epoch
	}
}

// flush writes the pending snapshot unless it predates the fence.
func (p *Persister) flush(ctx context.Context, pending queuedSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pending.epoch < p.fencedEpoch {
		return nil
	}

	return p.keeper.SaveSnapshot(ctx, p.namespace, pending.snapshot)
}

// Run starts the flush loop. On context cancellation the latest pending
// snapshot is written out before the loop exits.
func (p *Persister) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.flushInterval)
		defer ticker.Stop()

		var pending *queuedSnapshot

		for {
			select {
			case entry := <-p.queue:
				pending = &entry
			case <-ticker.C:
				if pending == nil {
					continue
				}
				if err := p.flush(ctx, *pending); err != nil {
					p.errorChannel <- err
					continue
				}
				pending = nil
			case <-ctx.Done():
				p.drainInto(&pending)
				if pending != nil {
					if err := p.flush(context.Background(), *pending); err != nil {
						logger.Log.Debugln("final snapshot flush failed:", err)
					}
				}
				return
			}
		}
	}()
}

func (p *Persister) drainInto(pending **queuedSnapshot) {
	for {
		select {
		case entry := <-p.queue:
			*pending = &entry
		default:
			return
		}
	}
}
