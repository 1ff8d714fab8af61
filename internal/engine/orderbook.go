package engine

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"pitchvol/internal/pitch"
)

// volumeRanking orders symbols by volume, greatest first, then by symbol.
type volumeRanking = btree.BTreeG[SymbolVolume]

// OrderBook reconciles add, cancel, execute and trade messages into per
// symbol executed volume. It is not safe for concurrent use; messages must
// be applied in feed order.
type OrderBook struct {
	// Resting orders by order id. Every entry has Quantity > 0.
	orders map[string]*Order

	// Executed volume and notional by symbol, mirrored into ranking which is
	// sorted greatest volume first, then by symbol.
	volumes map[string]SymbolVolume
	ranking *volumeRanking

	// Some book keeping
	stats Stats
}

// NewOrderBook returns an empty book.
func NewOrderBook() *OrderBook {
	ranked := btree.NewBTreeG(func(a, b SymbolVolume) bool {
		if a.Volume != b.Volume {
			return a.Volume > b.Volume
		}
		return a.Symbol < b.Symbol
	})
	return &OrderBook{
		orders:  make(map[string]*Order),
		volumes: make(map[string]SymbolVolume),
		ranking: ranked,
	}
}

// Apply folds one message into the book. It never fails: messages naming
// orders the book does not know about are ignored, as are unknown types.
func (book *OrderBook) Apply(msg pitch.Message) {
	switch m := byValue(msg).(type) {
	case pitch.AddOrderMessage:
		book.handleAdd(m)
	case pitch.CancelOrderMessage:
		book.stats.Cancels++
		book.reduce(m.OrderID, m.Quantity, false)
	case pitch.ExecuteOrderMessage:
		book.stats.Executes++
		book.reduce(m.OrderID, m.Quantity, true)
	case pitch.TradeMessage:
		book.stats.Trades++
		book.addVolume(m.Symbol, m.Quantity, m.Price)
	default:
		book.stats.Unknown++
	}
}

// byValue dereferences pointer variants so both forms apply the same way.
func byValue(msg pitch.Message) pitch.Message {
	switch m := msg.(type) {
	case *pitch.AddOrderMessage:
		if m != nil {
			return *m
		}
	case *pitch.CancelOrderMessage:
		if m != nil {
			return *m
		}
	case *pitch.ExecuteOrderMessage:
		if m != nil {
			return *m
		}
	case *pitch.TradeMessage:
		if m != nil {
			return *m
		}
	case *pitch.UnknownMessage:
		if m != nil {
			return *m
		}
	default:
		return msg
	}
	return nil
}

func (book *OrderBook) handleAdd(m pitch.AddOrderMessage) {
	book.stats.Adds++
	if m.Quantity == 0 {
		// Nothing can ever rest at zero shares.
		log.Debug().Str("order", m.OrderID).Msg("ignoring add order for zero shares")
		return
	}
	if _, ok := book.orders[m.OrderID]; ok {
		book.stats.Replaced++
		log.Warn().
			Str("order", m.OrderID).
			Str("symbol", m.Symbol).
			Msg("add order reuses an open order id, replacing it")
	}
	book.orders[m.OrderID] = &Order{
		ID:            m.OrderID,
		Ticker:        m.Symbol,
		Side:          m.Side,
		Price:         m.Price,
		Quantity:      m.Quantity,
		TotalQuantity: m.Quantity,
	}
}

// reduce takes quantity off a resting order, removing it once nothing is
// left. Executed shares count towards the order's symbol volume.
func (book *OrderBook) reduce(orderID string, quantity uint64, executed bool) {
	order, ok := book.orders[orderID]
	if !ok {
		// The feed may start mid-session, so the add can be missing.
		book.stats.Orphans++
		log.Debug().Str("order", orderID).Bool("executed", executed).Msg("no open order")
		return
	}

	if quantity > order.Quantity {
		book.stats.Overfills++
		log.Warn().
			Str("order", orderID).
			Str("symbol", order.Ticker).
			Uint64("remaining", order.Quantity).
			Uint64("quantity", quantity).
			Bool("executed", executed).
			Msg("quantity exceeds remaining shares, clamping to zero")
		order.Quantity = 0
	} else {
		order.Quantity -= quantity
	}

	if executed {
		book.addVolume(order.Ticker, quantity, order.Price)
	}
	if order.Quantity == 0 {
		delete(book.orders, orderID)
	}
}

func (book *OrderBook) addVolume(symbol string, quantity uint64, price decimal.Decimal) {
	if quantity == 0 {
		return
	}

	entry, ok := book.volumes[symbol]
	if ok {
		book.ranking.Delete(entry)
	} else {
		entry = SymbolVolume{Symbol: symbol, Notional: decimal.Zero}
	}
	entry.Volume += quantity
	entry.Notional = entry.Notional.Add(price.Mul(decimal.NewFromInt(int64(quantity))))

	book.volumes[symbol] = entry
	book.ranking.Set(entry)
}

// TopSymbolsByVolume returns up to n symbols by executed volume, greatest
// first. Equal volumes are ordered by symbol.
func (book *OrderBook) TopSymbolsByVolume(n int) []SymbolVolume {
	if n <= 0 {
		return nil
	}
	top := make([]SymbolVolume, 0, min(n, book.ranking.Len()))
	book.ranking.Scan(func(item SymbolVolume) bool {
		top = append(top, item)
		return len(top) < n
	})
	return top
}

// Order returns a copy of the open order with the given id.
func (book *OrderBook) Order(id string) (Order, bool) {
	order, ok := book.orders[id]
	if !ok {
		return Order{}, false
	}
	return *order, true
}

// OpenOrders returns the number of resting orders.
func (book *OrderBook) OpenOrders() int {
	return len(book.orders)
}

// Volume returns the executed volume for symbol, zero if none traded.
func (book *OrderBook) Volume(symbol string) uint64 {
	return book.volumes[symbol].Volume
}

// Volumes returns a copy of the executed volume per symbol.
func (book *OrderBook) Volumes() map[string]uint64 {
	out := make(map[string]uint64, len(book.volumes))
	for symbol, entry := range book.volumes {
		out[symbol] = entry.Volume
	}
	return out
}

// Notional returns the executed value for symbol, price times shares.
func (book *OrderBook) Notional(symbol string) decimal.Decimal {
	entry, ok := book.volumes[symbol]
	if !ok {
		return decimal.Zero
	}
	return entry.Notional
}

// Stats returns the message counters seen so far.
func (book *OrderBook) Stats() Stats {
	return book.stats
}
