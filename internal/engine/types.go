package engine

import "github.com/shopspring/decimal"

// SymbolVolume is one row of the volume ranking.
type SymbolVolume struct {
	Symbol   string
	Volume   uint64
	Notional decimal.Decimal
}

// Stats counts what the book has seen over a run.
type Stats struct {
	Adds      uint64
	Cancels   uint64
	Executes  uint64
	Trades    uint64
	Unknown   uint64
	Orphans   uint64 // Cancels and executes naming an order that is not open
	Overfills uint64 // Cancels and executes larger than the remaining quantity
	Replaced  uint64 // Adds reusing an id that was still open
}
