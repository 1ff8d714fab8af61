package engine

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"pitchvol/internal/pitch"
)

// --- Setup & Helpers --------------------------------------------------------

func add(id, symbol string, qty uint64) pitch.AddOrderMessage {
	return pitch.AddOrderMessage{OrderID: id, Symbol: symbol, Side: pitch.Buy, Quantity: qty}
}

func addAt(id, symbol string, qty uint64, price string) pitch.AddOrderMessage {
	m := add(id, symbol, qty)
	m.Price = decimal.RequireFromString(price)
	return m
}

func execute(id string, qty uint64) pitch.ExecuteOrderMessage {
	return pitch.ExecuteOrderMessage{OrderID: id, Quantity: qty}
}

func cancel(id string, qty uint64) pitch.CancelOrderMessage {
	return pitch.CancelOrderMessage{OrderID: id, Quantity: qty}
}

func trade(symbol string, qty uint64) pitch.TradeMessage {
	return pitch.TradeMessage{Symbol: symbol, Quantity: qty, Side: pitch.Sell}
}

func applyAll(book *OrderBook, msgs ...pitch.Message) {
	for _, msg := range msgs {
		book.Apply(msg)
	}
}

// --- Tests ------------------------------------------------------------------

func TestApply_AddCreatesOrder(t *testing.T) {
	book := NewOrderBook()
	book.Apply(add("I1", "AAPL", 1234))

	order, ok := book.Order("I1")
	require.True(t, ok)
	assert.Equal(t, "AAPL", order.Ticker)
	assert.Equal(t, uint64(1234), order.Quantity)
	assert.Equal(t, uint64(1234), order.TotalQuantity)
	assert.Equal(t, 1, book.OpenOrders())
	assert.Empty(t, book.Volumes())
}

func TestApply_PartialFill(t *testing.T) {
	book := NewOrderBook()
	applyAll(book, add("X", "S", 100), execute("X", 40))

	order, ok := book.Order("X")
	require.True(t, ok)
	assert.Equal(t, uint64(60), order.Quantity)
	assert.Equal(t, uint64(40), book.Volume("S"))

	book.Apply(execute("X", 60))
	_, ok = book.Order("X")
	assert.False(t, ok)
	assert.Equal(t, uint64(100), book.Volume("S"))
	assert.Equal(t, 0, book.OpenOrders())
}

func TestApply_CancelDoesNotAffectVolume(t *testing.T) {
	book := NewOrderBook()
	applyAll(book, add("Y", "T", 50), cancel("Y", 50))

	_, ok := book.Order("Y")
	assert.False(t, ok)
	assert.Equal(t, uint64(0), book.Volume("T"))
	assert.NotContains(t, book.Volumes(), "T")
}

func TestApply_PartialCancelKeepsOrder(t *testing.T) {
	book := NewOrderBook()
	applyAll(book, add("Y", "T", 50), cancel("Y", 20))

	order, ok := book.Order("Y")
	require.True(t, ok)
	assert.Equal(t, uint64(30), order.Quantity)

	book.Apply(execute("Y", 30))
	assert.Equal(t, uint64(30), book.Volume("T"))
	assert.Equal(t, 0, book.OpenOrders())
}

func TestApply_OrphansAreIgnored(t *testing.T) {
	book := NewOrderBook()
	book.Apply(add("A1", "AAPL", 10))

	assert.NotPanics(t, func() {
		applyAll(book, execute("Z", 10), cancel("Z", 10))
	})
	assert.Equal(t, 1, book.OpenOrders())
	assert.Empty(t, book.Volumes())
	assert.Equal(t, uint64(2), book.Stats().Orphans)
}

func TestApply_TradeIsIndependent(t *testing.T) {
	book := NewOrderBook()
	book.Apply(add("U1", "MSFT", 10))
	book.Apply(trade("U", 25))

	assert.Equal(t, uint64(25), book.Volume("U"))
	order, ok := book.Order("U1")
	require.True(t, ok)
	assert.Equal(t, uint64(10), order.Quantity)
}

func TestApply_EndToEnd(t *testing.T) {
	book := NewOrderBook()
	applyAll(book, add("I1", "AAPL", 1234), execute("I1", 1234))

	assert.Equal(t, map[string]uint64{"AAPL": 1234}, book.Volumes())
	assert.Equal(t, 0, book.OpenOrders())
}

func TestApply_UnknownIgnored(t *testing.T) {
	book := NewOrderBook()
	book.Apply(pitch.UnknownMessage{Code: 'B'})

	assert.Equal(t, 0, book.OpenOrders())
	assert.Empty(t, book.Volumes())
	assert.Equal(t, uint64(1), book.Stats().Unknown)
}

func TestApply_PointerMessages(t *testing.T) {
	a, e, c, tr := add("I1", "AAPL", 300), execute("I1", 100), cancel("I1", 50), trade("UYG", 10)
	book := NewOrderBook()
	applyAll(book, &a, &e, &c, &tr, &pitch.UnknownMessage{Code: 'B'})

	assert.Equal(t, map[string]uint64{"AAPL": 100, "UYG": 10}, book.Volumes())
	order, ok := book.Order("I1")
	require.True(t, ok)
	assert.Equal(t, uint64(150), order.Quantity)
	assert.Equal(t, Stats{Adds: 1, Cancels: 1, Executes: 1, Trades: 1, Unknown: 1}, book.Stats())

	var nilAdd *pitch.AddOrderMessage
	book.Apply(nilAdd)
	assert.Equal(t, uint64(2), book.Stats().Unknown)
	assert.Equal(t, 1, book.OpenOrders())
}

func TestApply_OverfillClampsToZero(t *testing.T) {
	book := NewOrderBook()
	applyAll(book, add("O1", "IBM", 10), execute("O1", 15))

	_, ok := book.Order("O1")
	assert.False(t, ok)
	assert.Equal(t, uint64(15), book.Volume("IBM"))
	assert.Equal(t, uint64(1), book.Stats().Overfills)

	applyAll(book, add("O2", "IBM", 10), cancel("O2", 11))
	_, ok = book.Order("O2")
	assert.False(t, ok)
	assert.Equal(t, uint64(15), book.Volume("IBM"))
	assert.Equal(t, uint64(2), book.Stats().Overfills)
}

func TestApply_ZeroQuantityAddNeverRests(t *testing.T) {
	book := NewOrderBook()
	book.Apply(add("Z0", "IBM", 0))

	_, ok := book.Order("Z0")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), book.Stats().Adds)
}

func TestApply_DuplicateAddReplaces(t *testing.T) {
	book := NewOrderBook()
	applyAll(book, add("D1", "IBM", 10), add("D1", "ORCL", 20))

	order, ok := book.Order("D1")
	require.True(t, ok)
	assert.Equal(t, "ORCL", order.Ticker)
	assert.Equal(t, uint64(20), order.Quantity)
	assert.Equal(t, uint64(1), book.Stats().Replaced)
}

func TestApply_Notional(t *testing.T) {
	book := NewOrderBook()
	applyAll(book,
		addAt("N1", "AAPL", 100, "182.86"),
		execute("N1", 40),
		pitch.TradeMessage{Symbol: "AAPL", Quantity: 10, Price: decimal.RequireFromString("183")},
	)

	assert.Equal(t, uint64(50), book.Volume("AAPL"))
	assert.Equal(t, "9144.40", book.Notional("AAPL").StringFixed(2))
	assert.True(t, book.Notional("NONE").IsZero())
}

func TestOrder_ReturnsCopy(t *testing.T) {
	book := NewOrderBook()
	book.Apply(add("C1", "AAPL", 10))

	order, _ := book.Order("C1")
	order.Quantity = 1

	again, _ := book.Order("C1")
	assert.Equal(t, uint64(10), again.Quantity)
}

// --- Ranking ----------------------------------------------------------------

func TestTopSymbolsByVolume_Truncates(t *testing.T) {
	book := NewOrderBook()
	for i := range 15 {
		book.Apply(trade(fmt.Sprintf("S%02d", i), uint64(100+i)))
	}

	top := book.TopSymbolsByVolume(10)
	require.Len(t, top, 10)
	assert.Equal(t, "S14", top[0].Symbol)
	assert.Equal(t, uint64(114), top[0].Volume)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Volume, top[i].Volume)
	}
}

func TestTopSymbolsByVolume_TiesBySymbol(t *testing.T) {
	book := NewOrderBook()
	applyAll(book, trade("MSFT", 10), trade("AAPL", 10), trade("IBM", 20), trade("GOOG", 10))

	top := book.TopSymbolsByVolume(10)
	symbols := make([]string, 0, len(top))
	for _, row := range top {
		symbols = append(symbols, row.Symbol)
	}
	assert.Equal(t, []string{"IBM", "AAPL", "GOOG", "MSFT"}, symbols)
}

func TestTopSymbolsByVolume_TracksUpdates(t *testing.T) {
	book := NewOrderBook()
	applyAll(book, trade("AAPL", 10), trade("IBM", 20))
	assert.Equal(t, "IBM", book.TopSymbolsByVolume(1)[0].Symbol)

	book.Apply(trade("AAPL", 15))
	top := book.TopSymbolsByVolume(5)
	require.Len(t, top, 2)
	assert.Equal(t, SymbolVolume{Symbol: "AAPL", Volume: 25, Notional: top[0].Notional}, top[0])
	assert.Equal(t, uint64(20), top[1].Volume)
}

func TestTopSymbolsByVolume_NonPositive(t *testing.T) {
	book := NewOrderBook()
	book.Apply(trade("AAPL", 10))
	assert.Empty(t, book.TopSymbolsByVolume(0))
	assert.Empty(t, book.TopSymbolsByVolume(-1))
}

// --- Properties -------------------------------------------------------------

// Random message streams over a small id space keep the book's invariants.
func TestApply_InvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := NewOrderBook()
		ids := []string{"000000000001", "000000000002", "000000000003"}
		symbols := []string{"AAPL", "IBM"}
		previous := map[string]uint64{}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for range steps {
			id := rapid.SampledFrom(ids).Draw(t, "id")
			qty := rapid.Uint64Range(0, 200).Draw(t, "qty")
			switch rapid.IntRange(0, 4).Draw(t, "kind") {
			case 0:
				book.Apply(add(id, rapid.SampledFrom(symbols).Draw(t, "symbol"), qty))
			case 1:
				book.Apply(cancel(id, qty))
			case 2:
				book.Apply(execute(id, qty))
			case 3:
				book.Apply(trade(rapid.SampledFrom(symbols).Draw(t, "symbol"), qty))
			default:
				book.Apply(pitch.UnknownMessage{Code: 'Z'})
			}

			for _, id := range ids {
				if order, ok := book.Order(id); ok {
					assert.Positive(t, order.Quantity)
					assert.LessOrEqual(t, order.Quantity, order.TotalQuantity)
				}
			}
			volumes := book.Volumes()
			for symbol, volume := range volumes {
				assert.GreaterOrEqual(t, volume, previous[symbol])
			}
			previous = volumes
		}
	})
}
