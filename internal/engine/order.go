package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pitchvol/internal/pitch"
)

// Order is a resting order that still has shares left to trade or cancel.
type Order struct {
	ID            string          // Order id token from the add record
	Ticker        string          // Specific asset identifier
	Side          pitch.Side      // Order side
	Price         decimal.Decimal // Limit price, zero if the feed omitted it
	Quantity      uint64          // Remaining quantity
	TotalQuantity uint64          // Quantity at add time
}

func (order Order) String() string {
	return fmt.Sprintf("%s %s %s %d/%d @ %s",
		order.ID,
		order.Ticker,
		order.Side,
		order.Quantity,
		order.TotalQuantity,
		order.Price.StringFixed(pitch.PriceScale),
	)
}
