// Package dispatch runs a process-wide work queue for deferred message
// sends. The queue accepts opaque tasks and a single worker goroutine
// executes them in enqueue order. A failed task is logged and the loop
// keeps going; error delivery beyond the log is not this package's
// concern.
package dispatch

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Task is one deferred send. Anything with a zero-argument Send
// qualifies.
type Task interface {
	Send() error
}

// Queue is a channel-fed work loop. Create one with New; the zero
// value is not usable.
type Queue struct {
	tasks chan Task
	wg    sync.WaitGroup
	once  sync.Once
}

// New starts a Queue with the given enqueue buffer and one worker
// goroutine. Close the queue to stop the worker.
func New(buffer int) *Queue {
	q := &Queue{
		tasks: make(chan Task, buffer),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *Queue) run() {
	defer q.wg.Done()
	for t := range q.tasks {
		if err := t.Send(); err != nil {
			log.Error().Err(err).Msg("async send failed")
		}
	}
}

// Enqueue hands a task to the worker. It blocks once the buffer is
// full and panics on a closed queue, like any send on a closed
// channel.
func (q *Queue) Enqueue(t Task) {
	q.tasks <- t
}

// Close stops accepting tasks and blocks until the worker has drained
// everything already enqueued. Safe to call more than once.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.tasks)
	})
	q.wg.Wait()
}
