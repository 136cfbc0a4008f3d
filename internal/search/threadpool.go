package search

import (
	"golang.org/x/sync/errgroup"
)

// ThreadPool is the general task executor the Player submits descent tasks
// to: a fixed set of workers draining one task channel.
type ThreadPool struct {
	tasks   chan func()
	workers errgroup.Group
}

// NewThreadPool starts size workers.
func NewThreadPool(size int) *ThreadPool {
	if size < 1 {
		size = 1
	}
	t := &ThreadPool{tasks: make(chan func(), size)}
	for i := 0; i < size; i++ {
		t.workers.Go(func() error {
			for task := range t.tasks {
				task()
			}
			return nil
		})
	}
	return t
}

// Submit queues one task; it blocks when all workers are busy and the queue
// is full.
func (t *ThreadPool) Submit(task func()) {
	t.tasks <- task
}

// Close stops accepting tasks and waits for the workers to drain.
func (t *ThreadPool) Close() {
	close(t.tasks)
	_ = t.workers.Wait()
}
