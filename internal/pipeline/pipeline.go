package pipeline

import (
	"context"
	"errors"

	tomb "gopkg.in/tomb.v2"

	"pitchvol/internal/feed"
	"pitchvol/internal/pitch"
)

const defaultBatchSize = 1024

var ErrNilHandler = errors.New("pipeline handler is nil")

// Source yields feed records in input order.
type Source interface {
	Next() (feed.Record, bool)
	Err() error
}

// Decoded is a record with its decode outcome. Exactly one of Message and
// Err is set.
type Decoded struct {
	feed.Record
	Message pitch.Message
	Err     error
}

// Handler receives decoded records one at a time, in input order. Returning
// an error stops the run.
type Handler func(Decoded) error

type Config struct {
	Workers   int // decode goroutines, one or less decodes inline
	BatchSize int // records per task
	Queue     int // tasks buffered between stages
}

// Pipeline decodes records ahead of a single in-order consumer.
type Pipeline struct {
	cfg Config
}

// New fills in defaults for unset Config fields.
func New(cfg Config) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Queue <= 0 {
		cfg.Queue = max(cfg.Workers*2, 1)
	}
	return &Pipeline{cfg: cfg}
}

type batch struct {
	seq   int
	items []Decoded
}

// Run reads src to the end, calling handle for every record on the calling
// goroutine. It returns the first handler error, read error or context
// error.
func (p *Pipeline) Run(ctx context.Context, src Source, handle Handler) error {
	if handle == nil {
		return ErrNilHandler
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.cfg.Workers <= 1 {
		return runInline(ctx, src, handle)
	}

	t, _ := tomb.WithContext(ctx)
	pool := NewWorkerPool[*batch](p.cfg.Workers, p.cfg.Queue)
	results := make(chan *batch, p.cfg.Queue)

	// Workers first: they cannot return before the reader closes the queue,
	// so the tomb stays alive while the rest is started.
	pool.Setup(t, func(t *tomb.Tomb, b *batch) error {
		for i := range b.items {
			b.items[i].Message, b.items[i].Err = pitch.Decode(b.items[i].Text)
		}
		select {
		case results <- b:
		case <-t.Dying():
		}
		return nil
	})
	t.Go(func() error {
		pool.Wait()
		close(results)
		return nil
	})
	t.Go(func() error {
		defer pool.Close()
		return p.read(t, src, pool)
	})

	// Batches finish out of order; hold them until their turn.
	pending := make(map[int]*batch)
	next := 0
	stopped := false
	for b := range results {
		if stopped || isStopping(t) {
			stopped = true
			continue
		}
		pending[b.seq] = b
		for !stopped {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			for _, d := range ready.items {
				if err := handle(d); err != nil {
					t.Kill(err)
					stopped = true
					break
				}
			}
		}
	}
	return t.Wait()
}

func (p *Pipeline) read(t *tomb.Tomb, src Source, pool *WorkerPool[*batch]) error {
	for seq := 0; ; seq++ {
		b := &batch{seq: seq, items: make([]Decoded, 0, p.cfg.BatchSize)}
		for len(b.items) < p.cfg.BatchSize {
			rec, ok := src.Next()
			if !ok {
				break
			}
			b.items = append(b.items, Decoded{Record: rec})
		}
		if len(b.items) == 0 {
			return src.Err()
		}
		if !pool.AddTask(t, b) {
			return nil
		}
		if len(b.items) < p.cfg.BatchSize {
			return src.Err()
		}
	}
}

// isStopping reports whether t was killed before finishing normally.
func isStopping(t *tomb.Tomb) bool {
	err := t.Err()
	return err != nil && err != tomb.ErrStillAlive
}

func runInline(ctx context.Context, src Source, handle Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, ok := src.Next()
		if !ok {
			return src.Err()
		}
		d := Decoded{Record: rec}
		d.Message, d.Err = pitch.Decode(rec.Text)
		if err := handle(d); err != nil {
			return err
		}
	}
}
