package core

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var decimalText = regexp.MustCompile(`^[+-]?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// Normalize converts driver values into something printable and comparable.
// Drivers hand back []byte for text and decimal columns (ODBC does this a lot).
func Normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return val
	}
}

// ValuesEqual compares a scanned column value against an expected literal.
// Numbers compare by value whatever their Go type; everything else compares as text.
func ValuesEqual(actual, expected any) bool {
	actual = Normalize(actual)
	expected = Normalize(expected)

	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	if a, ok := toRat(actual); ok {
		if e, ok := toRat(expected); ok {
			return a.Cmp(e) == 0
		}
	}

	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

func toRat(v any) (*big.Rat, bool) {
	switch n := v.(type) {
	case int:
		return new(big.Rat).SetInt64(int64(n)), true
	case int8:
		return new(big.Rat).SetInt64(int64(n)), true
	case int16:
		return new(big.Rat).SetInt64(int64(n)), true
	case int32:
		return new(big.Rat).SetInt64(int64(n)), true
	case int64:
		return new(big.Rat).SetInt64(n), true
	case uint:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Rat).SetUint64(n), true
	case float32:
		return ratFromFloat(float64(n))
	case float64:
		return ratFromFloat(n)
	case string:
		// Only plain decimals such as "30" or "30.00"; "0x1e", "1e3" and "030" stay text.
		s := strings.TrimSpace(n)
		if !decimalText.MatchString(s) {
			return nil, false
		}
		r, ok := new(big.Rat).SetString(s)
		return r, ok
	default:
		return nil, false
	}
}

func ratFromFloat(f float64) (*big.Rat, bool) {
	r := new(big.Rat)
	if r.SetFloat64(f) == nil {
		return nil, false
	}
	// Round-trip through the shortest decimal form so 0.1 equals "0.1"
	r, ok := r.SetString(strconv.FormatFloat(f, 'g', -1, 64))
	return r, ok
}
