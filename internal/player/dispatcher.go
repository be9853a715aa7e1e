package player

import (
	"sync"

	"github.com/PizzaHomicide/vidbridge/internal/log"
)

// dispatcher hands events to the sink on one goroutine, in the order they were posted.  Posting never blocks, so
// native callbacks are not held up by a slow sink.
type dispatcher struct {
	sink EventSink

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Event
	stopped bool
	done    chan struct{}
}

func newDispatcher(sink EventSink) *dispatcher {
	d := &dispatcher{
		sink: sink,
		done: make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

// post queues an event, reporting false when the dispatcher has been stopped
func (d *dispatcher) post(ev Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}
	d.queue = append(d.queue, ev)
	d.cond.Signal()
	return true
}

// stop discards queued events and waits for a delivery in progress to return
func (d *dispatcher) stop() {
	d.mu.Lock()
	if !d.stopped {
		if len(d.queue) > 0 {
			log.Debug("Dropping undelivered events", "count", len(d.queue))
		}
		d.stopped = true
		d.queue = nil
		d.cond.Broadcast()
	}
	d.mu.Unlock()

	<-d.done
}

func (d *dispatcher) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.stopped {
			d.cond.Wait()
		}
		if d.stopped {
			d.mu.Unlock()
			return
		}
		ev := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		log.Trace("Delivering event", "code", ev.Code, "error", ev.Err)
		d.sink.OnEvent(ev)
	}
}
