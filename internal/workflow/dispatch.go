package workflow

import (
	"log"
	"sync"
)

// dispatcher runs fire-and-forget side effects (publishes, persists,
// webhook calls) on a single background worker with a bounded queue.
// Flush blocks until every submitted task has completed, which is how
// tests observe side-effect completion instead of sleeping.
type dispatcher struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

func newDispatcher(queueSize int) *dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	d := &dispatcher{tasks: make(chan func(), queueSize)}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	for task := range d.tasks {
		task()
		d.wg.Done()
	}
}

// submit enqueues a task. When the queue is full the task runs inline on
// the caller's goroutine rather than being dropped.
func (d *dispatcher) submit(name string, fn func()) {
	d.wg.Add(1)
	select {
	case d.tasks <- fn:
	default:
		log.Printf("[workflow] dispatch queue full, running %s inline", name)
		fn()
		d.wg.Done()
	}
}

// flush waits for all submitted tasks to complete.
func (d *dispatcher) flush() {
	d.wg.Wait()
}

// close stops the worker after draining the queue.
func (d *dispatcher) close() {
	d.once.Do(func() {
		d.wg.Wait()
		close(d.tasks)
	})
}
