package report

import (
	"fmt"
	"io"

	"pitchvol/internal/engine"
)

const (
	symbolWidth   = 8
	notionalScale = 2
)

type Options struct {
	Notional bool // add an executed notional column
}

// Print writes one line per row: the symbol left justified, then its
// executed volume.
func Print(w io.Writer, rows []engine.SymbolVolume, opts Options) error {
	for _, row := range rows {
		var err error
		if opts.Notional {
			_, err = fmt.Fprintf(w, "%-*s %d %s\n", symbolWidth, row.Symbol, row.Volume, row.Notional.StringFixed(notionalScale))
		} else {
			_, err = fmt.Fprintf(w, "%-*s %d\n", symbolWidth, row.Symbol, row.Volume)
		}
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}
