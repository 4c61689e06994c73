package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/NiranjanVenkatesan/rag-application/internal/document"
)

// ErrQueueFull is returned when the processing queue cannot accept another
// document.
var ErrQueueFull = errors.New("processing queue is full")

// Orchestrator feeds queued document IDs to a bounded pool of workers, each
// running Processor episodes one at a time.
type Orchestrator struct {
	proc    *Processor
	queue   chan uuid.UUID
	workers int
	log     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline with the given worker count and
// queue capacity.
func NewOrchestrator(proc *Processor, workers, queueSize int, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		proc:    proc,
		queue:   make(chan uuid.UUID, queueSize),
		workers: workers,
		log:     log,
	}
}

// Start launches the worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go func(worker int) {
			defer o.wg.Done()
			log := o.log.With("worker", worker)
			for {
				select {
				case <-workerCtx.Done():
					return
				case id, ok := <-o.queue:
					if !ok {
						return
					}
					o.run(workerCtx, log, id)
				}
			}
		}(i)
	}
}

func (o *Orchestrator) run(ctx context.Context, log *slog.Logger, id uuid.UUID) {
	err := o.proc.Process(ctx, id)
	if err == nil {
		return
	}
	// Refused transitions and vanished documents are normal under races
	// (cancel beat the worker, delete beat the worker); the episode logs
	// its own hard failures.
	var ste *document.StateTransitionError
	switch {
	case errors.As(err, &ste):
		log.Info("episode skipped", "doc_id", id, "reason", ste.Error())
	case errors.Is(err, document.ErrNotFound):
		log.Info("document gone before processing", "doc_id", id)
	default:
		log.Error("episode failed", "doc_id", id, "error", err)
	}
}

// Stop drains in-flight work and shuts the pool down.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a document for processing without blocking. A full queue
// returns ErrQueueFull and leaves the document PENDING.
func (o *Orchestrator) Submit(id uuid.UUID) error {
	select {
	case o.queue <- id:
		return nil
	default:
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, cap(o.queue))
	}
}

// QueueDepth returns the number of documents waiting in the queue.
func (o *Orchestrator) QueueDepth() int { return len(o.queue) }

// Processor exposes the underlying processor for direct API use.
func (o *Orchestrator) Processor() *Processor { return o.proc }
