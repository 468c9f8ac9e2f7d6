package httpstub

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"
)

// The DeliveryState type enumerates the states of a delivery's chunked loop.
type DeliveryState int32

const (
	// DeliveryIdle means the loop has not been started.
	DeliveryIdle DeliveryState = iota
	// DeliveryScheduled means the next step is queued for execution.
	DeliveryScheduled
	// DeliveryEmitting means a step is currently emitting a chunk.
	DeliveryEmitting
	// DeliveryCancelled means a step consumed a stop request and the loop
	// is paused until Resume is called.
	DeliveryCancelled
	// DeliveryFinished means the delivery ran to completion and a
	// terminal callback was emitted.
	DeliveryFinished
)

// A Delivery drives the callback sequence for a single stubbed request.
// Atomic outcomes (failures, no-content and one-shot content) are emitted
// synchronously by Deliver; streamed content enters a chunked loop whose
// steps run serially, one at a time, on the delivery's task queue. Each
// Delivery belongs to exactly one request; deliveries for different requests
// run independently of each other.
type Delivery struct {
	consumer Consumer
	outcome  Outcome
	delay    time.Duration
	log      zerolog.Logger
	onDone   func()

	tasks *taskQueue
	state atomic.Int32
	// single-shot stop request, consumed by the next scheduled step
	skip atomic.Bool

	data   []byte
	chunk  int
	offset int
}

// NewDelivery returns a delivery that will emit the given outcome, shaped by
// the Range header of the given request, to the given consumer. The delivery
// does nothing until Deliver is called.
func NewDelivery(r *http.Request, outcome Outcome, consumer Consumer, c Config) *Delivery {
	d := &Delivery{
		consumer: consumer,
		delay:    c.ChunkDelay,
		log:      zerolog.Nop(),
		tasks:    newTaskQueue(),
	}
	if d.delay == 0 {
		d.delay = DefaultChunkDelay
	}
	if c.Log != nil {
		d.log = *c.Log
	}

	// shape the outcome against the request's Range header up front so
	// Deliver and the loop steps only ever see the final form
	switch oc := outcome.(type) {
	case Failure:
		d.outcome = oc
	case Success:
		switch dl := oc.Download.(type) {
		case NoContent:
			res, _ := applyRange(r, oc.Response, nil)
			d.outcome = Success{Response: res, Download: dl}
		case Content:
			res, data := applyRange(r, oc.Response, dl.Data)
			d.outcome = Success{Response: res, Download: Content{Data: data}}
		case StreamContent:
			res, data := applyRange(r, oc.Response, dl.Data)
			d.outcome = Success{Response: res, Download: StreamContent{Data: data, ChunkSize: dl.ChunkSize}}
			d.data = data
			d.chunk = dl.ChunkSize
			if d.chunk <= 0 {
				d.chunk = len(data)
			}
		}
	}
	return d
}

// State returns the current state of the delivery's chunked loop. For atomic
// outcomes the state moves straight from DeliveryIdle to DeliveryFinished.
func (d *Delivery) State() DeliveryState {
	return DeliveryState(d.state.Load())
}

// Deliver emits the delivery's outcome to the consumer. Failures and atomic
// downloads are emitted synchronously before Deliver returns; a streamed
// download is announced synchronously (ResponseReceived) and its chunks are
// then delivered by the loop. Deliver must be called at most once.
func (d *Delivery) Deliver() {
	switch oc := d.outcome.(type) {
	case Failure:
		d.log.Debug().Err(oc.Err).Msg("delivering failure")
		d.consumer.Failed(oc.Err)
		d.finish(false)

	case Success:
		switch dl := oc.Download.(type) {
		case NoContent:
			d.consumer.ResponseReceived(oc.Response, CacheNotAllowed)
			d.consumer.Finished()
			d.finish(false)

		case Content:
			d.consumer.ResponseReceived(oc.Response, CacheNotAllowed)
			d.consumer.DataLoaded(dl.Data)
			d.consumer.Finished()
			d.finish(false)

		case StreamContent:
			d.log.Debug().Int("size", len(d.data)).Int("chunk", d.chunk).Msg("starting chunked delivery")
			d.consumer.ResponseReceived(oc.Response, CacheNotAllowed)
			if len(d.data) == 0 {
				d.consumer.Finished()
				d.finish(false)
				return
			}
			d.schedule()
		}
	}
}

// Stop requests the delivery to stop. The request is a single-shot signal:
// the next scheduled step of the chunked loop observes it, consumes it and
// skips its emission, leaving the loop paused; it does not tear the loop
// down. Use Resume to re-trigger scheduling afterwards. Stopping a delivery
// that is not streaming has no effect.
func (d *Delivery) Stop() {
	d.skip.Store(true)
}

// Resume reschedules the chunked loop after a step consumed a stop request.
// Resuming a delivery that is not paused has no effect.
func (d *Delivery) Resume() {
	if d.state.CompareAndSwap(int32(DeliveryCancelled), int32(DeliveryScheduled)) {
		d.tasks.submit(d.step)
	}
}

// schedule queues the next step of the chunked loop.
func (d *Delivery) schedule() {
	d.state.Store(int32(DeliveryScheduled))
	d.tasks.submit(d.step)
}

// step is one iteration of the chunked loop: it emits the next chunk, paces,
// advances the cursor and either finishes or reschedules itself. Steps run
// serially on the delivery's task queue, never overlapping, so chunks are
// always delivered in byte order.
func (d *Delivery) step() {
	if d.skip.CompareAndSwap(true, false) {
		d.state.Store(int32(DeliveryCancelled))
		d.log.Debug().Int("offset", d.offset).Msg("chunked delivery paused")
		return
	}
	d.state.Store(int32(DeliveryEmitting))

	n := len(d.data) - d.offset
	if n > d.chunk {
		n = d.chunk
	}
	d.consumer.DataLoaded(d.data[d.offset : d.offset+n])
	time.Sleep(d.delay)
	d.offset += n

	if d.offset >= len(d.data) {
		d.consumer.Finished()
		d.finish(true)
		return
	}
	d.schedule()
}

// finish marks the delivery terminal and runs the completion callback.
func (d *Delivery) finish(streaming bool) {
	d.state.Store(int32(DeliveryFinished))
	if streaming {
		d.log.Debug().Int("bytes", d.offset).Msg("chunked delivery finished")
	}
	if d.onDone != nil {
		d.onDone()
	}
}

// A taskQueue runs submitted tasks one at a time in submission order. It is
// the delivery engine's scheduler: at most one task executes at any moment,
// which is what keeps the chunked loop strictly serial.
type taskQueue struct {
	mu      sync.Mutex
	pending *queue.Queue
	running bool
}

func newTaskQueue() *taskQueue {
	return &taskQueue{pending: queue.New()}
}

// submit appends the task and, if no drain goroutine is active, starts one.
func (q *taskQueue) submit(task func()) {
	q.mu.Lock()
	q.pending.Add(task)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()
	go q.drain()
}

// drain executes pending tasks until the queue is empty.
func (q *taskQueue) drain() {
	for {
		q.mu.Lock()
		if q.pending.Length() == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		task := q.pending.Remove().(func())
		q.mu.Unlock()

		task()
	}
}
