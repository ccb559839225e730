package quote

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseQuantity converts user or wire input into a non-negative integer
// quantity. Anything unparseable, negative or empty yields 0.
func ParseQuantity(v any) int {
	switch t := v.(type) {
	case int:
		return clampQuantity(int64(t))
	case int64:
		return clampQuantity(t)
	case float64:
		return clampQuantity(int64(t))
	case json.Number:
		return parseQuantityString(t.String())
	case string:
		return parseQuantityString(t)
	default:
		return 0
	}
}

func parseQuantityString(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return clampQuantity(n)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return clampQuantity(d.IntPart())
}

func clampQuantity(n int64) int {
	if n < 0 {
		return 0
	}
	const maxQuantity = 1<<31 - 1
	if n > maxQuantity {
		return maxQuantity
	}
	return int(n)
}

// Quantity is a line quantity that tolerates strings, numbers and garbage on
// the wire
type Quantity int

// UnmarshalJSON applies ParseQuantity to any JSON scalar
func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = Quantity(parseQuantityString(scalarText(data)))
	return nil
}

// ID is a numeric catalog id that tolerates numeric strings on the wire.
// Zero means the id could not be resolved.
type ID int64

// UnmarshalJSON accepts numbers and numeric strings; anything else becomes 0
func (id *ID) UnmarshalJSON(data []byte) error {
	s := scalarText(data)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		*id = 0
		return nil
	}
	*id = ID(n)
	return nil
}
