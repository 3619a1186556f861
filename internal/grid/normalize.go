package grid

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeNumeric canonicalizes a numeric cell. Thousands separators and
// surrounding spaces are ignored; nil, blanks, unparsable and non-finite
// values become 0.
func NormalizeNumeric(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case json.Number:
		f = parseNumber(string(x))
	case string:
		f = parseNumber(x)
	default:
		f = parseNumber(fmt.Sprint(x))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// NormalizeText canonicalizes a text cell: nil becomes "", surrounding
// whitespace is trimmed and internal whitespace runs collapse to one space.
func NormalizeText(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		s = x
	case json.Number:
		s = string(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case bool:
		s = strconv.FormatBool(x)
	default:
		s = fmt.Sprint(x)
	}
	return strings.Join(strings.Fields(s), " ")
}

// Normalize dispatches on kind. Identity values normalize as text.
func Normalize(v any, kind Kind) any {
	if kind == KindNumeric {
		return NormalizeNumeric(v)
	}
	return NormalizeText(v)
}

// Present reports whether v holds anything at all. Unlike IsBlank, a numeric
// zero is present: "0" typed into a new row is content.
func Present(v any) bool {
	return NormalizeText(v) != ""
}

// IsBlank reports whether v normalizes to the zero value of kind.
func IsBlank(v any, kind Kind) bool {
	if kind == KindNumeric {
		return NormalizeNumeric(v) == 0
	}
	return NormalizeText(v) == ""
}
