package pipeline

import (
	"sync"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultQueueSize = 100

type WorkerFunction[T any] func(t *tomb.Tomb, task T) error

// WorkerPool runs a fixed number of goroutines draining a task queue.
type WorkerPool[T any] struct {
	n     int    // number of workers
	tasks chan T // task queue
	wg    sync.WaitGroup
}

// NewWorkerPool sizes a pool. Workers start on Setup.
func NewWorkerPool[T any](size, queue int) *WorkerPool[T] {
	if size < 1 {
		size = 1
	}
	if queue < 1 {
		queue = defaultQueueSize
	}
	return &WorkerPool[T]{
		n:     size,
		tasks: make(chan T, queue),
	}
}

// Setup starts the workers on t. Call it before any other goroutine is
// started on t.
func (pool *WorkerPool[T]) Setup(t *tomb.Tomb, work WorkerFunction[T]) {
	for id := range pool.n {
		pool.wg.Add(1)
		t.Go(func() error {
			defer pool.wg.Done()
			return pool.worker(t, id, work)
		})
	}
}

// AddTask queues a task, giving up once t is dying.
func (pool *WorkerPool[T]) AddTask(t *tomb.Tomb, task T) bool {
	select {
	case pool.tasks <- task:
		return true
	case <-t.Dying():
		return false
	}
}

// Close tells the workers no more tasks are coming.
func (pool *WorkerPool[T]) Close() {
	close(pool.tasks)
}

// Wait blocks until every worker has returned.
func (pool *WorkerPool[T]) Wait() {
	pool.wg.Wait()
}

// Workers wait on tasks in the queue and action them.
func (pool *WorkerPool[T]) worker(t *tomb.Tomb, id int, work WorkerFunction[T]) error {
	for task := range pool.tasks {
		if err := work(t, task); err != nil {
			log.Error().Err(err).Int("id", id).Msg("worker exiting")
			return err
		}
	}
	return nil
}
