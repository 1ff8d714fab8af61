package pitch

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type MessageType byte

const (
	AddOrder     MessageType = 'A'
	CancelOrder  MessageType = 'X'
	ExecuteOrder MessageType = 'E'
	Trade        MessageType = 'P'
	Unknown      MessageType = 0
)

func (t MessageType) String() string {
	switch t {
	case AddOrder:
		return "AddOrder"
	case CancelOrder:
		return "CancelOrder"
	case ExecuteOrder:
		return "ExecuteOrder"
	case Trade:
		return "Trade"
	default:
		return "Unknown"
	}
}

type Side byte

const (
	Buy  Side = 'B'
	Sell Side = 'S'
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Message is one decoded record. The set of implementations is closed and
// every variant is passed by value.
type Message interface {
	GetType() MessageType
	message()
}

type AddOrderMessage struct {
	Timestamp uint32          // ms since midnight
	OrderID   string          // 12 bytes
	Side      Side            // 1 byte
	Quantity  uint64          // 6 bytes
	Symbol    string          // 6 bytes, padding trimmed
	Price     decimal.Decimal // 10 bytes, zero if absent
}

type CancelOrderMessage struct {
	Timestamp uint32
	OrderID   string
	Quantity  uint64 // shares cancelled
}

type ExecuteOrderMessage struct {
	Timestamp uint32
	OrderID   string
	Quantity  uint64 // shares executed
}

// TradeMessage is an off-book print. Its order id never refers to a
// resting order.
type TradeMessage struct {
	Timestamp uint32
	OrderID   string
	Side      Side
	Quantity  uint64
	Symbol    string
	Price     decimal.Decimal
}

type UnknownMessage struct {
	Timestamp uint32
	Code      byte
}

func (AddOrderMessage) GetType() MessageType     { return AddOrder }
func (CancelOrderMessage) GetType() MessageType  { return CancelOrder }
func (ExecuteOrderMessage) GetType() MessageType { return ExecuteOrder }
func (TradeMessage) GetType() MessageType        { return Trade }
func (UnknownMessage) GetType() MessageType      { return Unknown }

func (AddOrderMessage) message()     {}
func (CancelOrderMessage) message()  {}
func (ExecuteOrderMessage) message() {}
func (TradeMessage) message()        {}
func (UnknownMessage) message()      {}

// Decode maps one record, with its leading marker character already
// stripped, to a typed message. It never panics on short or garbled input.
// A record is malformed only when it is shorter than its type needs or its
// quantity is not a number. Timestamp and price are read best effort and
// left zero when unreadable.
func Decode(record string) (Message, error) {
	code, err := TypeCode(record)
	if err != nil {
		return nil, err
	}

	var msg Message
	switch MessageType(code) {
	case AddOrder:
		msg, err = parseAddOrder(record)
	case CancelOrder:
		msg, err = parseCancelOrder(record)
	case ExecuteOrder:
		msg, err = parseExecuteOrder(record)
	case Trade:
		msg, err = parseTrade(record)
	default:
		msg, err = parseUnknown(record, code)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func parseAddOrder(record string) (AddOrderMessage, error) {
	if len(record) < AddOrderRecordLen {
		return AddOrderMessage{}, malformed("add order", 0, record, ErrRecordTooShort)
	}
	qty, err := AddQuantity(record)
	if err != nil {
		return AddOrderMessage{}, err
	}

	// Lengths are checked above, the fixed fields below cannot fail.
	id, _ := OrderID(record)
	side, _ := ParseSide(record)
	symbol, _ := Symbol(record)
	return AddOrderMessage{
		Timestamp: timestampOrZero(record),
		OrderID:   id,
		Side:      side,
		Quantity:  qty,
		Symbol:    symbol,
		Price:     priceOrZero(record),
	}, nil
}

func parseCancelOrder(record string) (CancelOrderMessage, error) {
	if len(record) < CancelOrderRecordLen {
		return CancelOrderMessage{}, malformed("cancel order", 0, record, ErrRecordTooShort)
	}
	qty, err := ExecQuantity(record)
	if err != nil {
		return CancelOrderMessage{}, err
	}

	id, _ := OrderID(record)
	return CancelOrderMessage{
		Timestamp: timestampOrZero(record),
		OrderID:   id,
		Quantity:  qty,
	}, nil
}

func parseExecuteOrder(record string) (ExecuteOrderMessage, error) {
	if len(record) < ExecuteOrderRecordLen {
		return ExecuteOrderMessage{}, malformed("execute order", 0, record, ErrRecordTooShort)
	}
	qty, err := ExecQuantity(record)
	if err != nil {
		return ExecuteOrderMessage{}, err
	}

	id, _ := OrderID(record)
	return ExecuteOrderMessage{
		Timestamp: timestampOrZero(record),
		OrderID:   id,
		Quantity:  qty,
	}, nil
}

func parseTrade(record string) (TradeMessage, error) {
	if len(record) < TradeRecordLen {
		return TradeMessage{}, malformed("trade", 0, record, ErrRecordTooShort)
	}
	qty, err := AddQuantity(record)
	if err != nil {
		return TradeMessage{}, err
	}

	id, _ := OrderID(record)
	side, _ := ParseSide(record)
	symbol, _ := Symbol(record)
	return TradeMessage{
		Timestamp: timestampOrZero(record),
		OrderID:   id,
		Side:      side,
		Quantity:  qty,
		Symbol:    symbol,
		Price:     priceOrZero(record),
	}, nil
}

func parseUnknown(record string, code byte) (UnknownMessage, error) {
	return UnknownMessage{Timestamp: timestampOrZero(record), Code: code}, nil
}

// timestampOrZero reads the timestamp, falling back to zero. Only the
// record length and the quantity decide whether a record is malformed.
func timestampOrZero(record string) uint32 {
	ts, err := Timestamp(record)
	if err != nil {
		log.Debug().Err(err).Msg("unreadable timestamp, using zero")
		return 0
	}
	return ts
}

// priceOrZero reads the optional price, falling back to zero.
func priceOrZero(record string) decimal.Decimal {
	price, err := Price(record)
	if err != nil {
		log.Debug().Err(err).Msg("unreadable price, using zero")
		return decimal.Zero
	}
	return price
}
