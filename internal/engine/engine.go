package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pitchvol/internal/pipeline"
)

// Options tune a run. Workers above one decode ahead of the book on
// separate goroutines; the book itself is always fed in input order.
type Options struct {
	Workers   int
	BatchSize int
	Strict    bool // abort on the first malformed record
}

type Summary struct {
	Lines     uint64
	Applied   uint64
	Malformed uint64
	Elapsed   time.Duration
}

// Engine drives one run of records into an order book.
type Engine struct {
	book *OrderBook
	opts Options
}

// New returns an engine feeding book, or a fresh book when nil.
func New(book *OrderBook, opts Options) *Engine {
	if book == nil {
		book = NewOrderBook()
	}
	return &Engine{
		book: book,
		opts: opts,
	}
}

func (engine *Engine) Book() *OrderBook {
	return engine.book
}

// Run consumes src until it is exhausted. Malformed records are skipped
// unless Strict is set. Read failures from src are returned.
func (engine *Engine) Run(ctx context.Context, src pipeline.Source) (Summary, error) {
	var summary Summary
	start := time.Now()

	p := pipeline.New(pipeline.Config{
		Workers:   engine.opts.Workers,
		BatchSize: engine.opts.BatchSize,
	})
	err := p.Run(ctx, src, func(d pipeline.Decoded) error {
		return engine.handle(d, &summary)
	})
	summary.Elapsed = time.Since(start)

	stats := engine.book.Stats()
	log.Info().
		Uint64("lines", summary.Lines).
		Uint64("applied", summary.Applied).
		Uint64("malformed", summary.Malformed).
		Uint64("orphans", stats.Orphans).
		Uint64("overfills", stats.Overfills).
		Int("open orders", engine.book.OpenOrders()).
		Dur("elapsed", summary.Elapsed).
		Msg("run finished")

	return summary, err
}

func (engine *Engine) handle(d pipeline.Decoded, summary *Summary) error {
	summary.Lines++
	if d.Err != nil {
		summary.Malformed++
		if engine.opts.Strict {
			return fmt.Errorf("line %d: %w", d.Line, d.Err)
		}
		log.Warn().Err(d.Err).Int("line", d.Line).Msg("skipping malformed record")
		return nil
	}

	engine.book.Apply(d.Message)
	summary.Applied++
	return nil
}
