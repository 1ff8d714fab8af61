package pitch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Record layout, offsets counted after the leading marker is stripped.
const (
	TimestampOffset = 0
	TimestampLen    = 8

	TypeOffset = 8
	TypeLen    = 1

	OrderIDOffset = 9
	OrderIDLen    = 12

	SideOffset = 21
	SideLen    = 1

	AddQuantityOffset = 22
	AddQuantityLen    = 6

	ExecQuantityOffset = 21
	ExecQuantityLen    = 6

	SymbolOffset = 28
	SymbolLen    = 6

	PriceOffset = 34
	PriceLen    = 10
	PriceScale  = 4 // implied decimal places
)

// Minimum record lengths per message type.
const (
	HeaderLen             = TypeOffset + TypeLen
	AddOrderRecordLen     = SymbolOffset + SymbolLen
	TradeRecordLen        = SymbolOffset + SymbolLen
	CancelOrderRecordLen  = ExecQuantityOffset + ExecQuantityLen
	ExecuteOrderRecordLen = ExecQuantityOffset + ExecQuantityLen
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrRecordTooShort  = errors.New("record too short")
	ErrInvalidNumber   = errors.New("invalid number")
)

// MalformedRecordError reports a record that cannot be decoded. It matches
// ErrMalformedRecord with errors.Is.
type MalformedRecordError struct {
	Field  string
	Offset int
	Record string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: %s at offset %d: %v (%q)", e.Field, e.Offset, e.Err, e.Record)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func malformed(field string, offset int, record string, err error) *MalformedRecordError {
	return &MalformedRecordError{
		Field:  field,
		Offset: offset,
		Record: record,
		Err:    err,
	}
}

func splice(record, field string, offset, length int) (string, error) {
	if len(record) < offset+length {
		return "", malformed(field, offset, record, ErrRecordTooShort)
	}
	return record[offset : offset+length], nil
}

func parseUint(record, field string, offset, length int) (uint64, error) {
	raw, err := splice(record, field, offset, length)
	if err != nil {
		return 0, err
	}
	// Fields are zero padded on the wire, some producers pad with spaces.
	digits := strings.TrimLeft(raw, " ")
	if digits == "" {
		return 0, malformed(field, offset, record, ErrInvalidNumber)
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, malformed(field, offset, record, fmt.Errorf("%w: %q", ErrInvalidNumber, raw))
	}
	return v, nil
}

// TypeCode reads the message type byte.
func TypeCode(record string) (byte, error) {
	raw, err := splice(record, "type", TypeOffset, TypeLen)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// Timestamp reads milliseconds since midnight.
func Timestamp(record string) (uint32, error) {
	v, err := parseUint(record, "timestamp", TimestampOffset, TimestampLen)
	if err != nil {
		return 0, err
	}
	// Eight digits always fit.
	return uint32(v), nil
}

// OrderID reads the 12 byte order id as is.
func OrderID(record string) (string, error) {
	return splice(record, "order id", OrderIDOffset, OrderIDLen)
}

// ParseSide reads the side indicator of an add order or trade.
func ParseSide(record string) (Side, error) {
	raw, err := splice(record, "side", SideOffset, SideLen)
	if err != nil {
		return 0, err
	}
	return Side(raw[0]), nil
}

// AddQuantity reads the share count of an add order or trade.
func AddQuantity(record string) (uint64, error) {
	return parseUint(record, "quantity", AddQuantityOffset, AddQuantityLen)
}

// ExecQuantity reads the share count of a cancel or execute.
func ExecQuantity(record string) (uint64, error) {
	return parseUint(record, "quantity", ExecQuantityOffset, ExecQuantityLen)
}

// Symbol reads the ticker with its padding trimmed.
func Symbol(record string) (string, error) {
	raw, err := splice(record, "symbol", SymbolOffset, SymbolLen)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(raw, " \t"), nil
}

// Price reads the optional price of an add order or trade. Records that end
// before the price field yield a zero price.
func Price(record string) (decimal.Decimal, error) {
	if len(record) < PriceOffset+PriceLen {
		return decimal.Zero, nil
	}
	v, err := parseUint(record, "price", PriceOffset, PriceLen)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(int64(v), -PriceScale), nil
}
