package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the declared type of a flow table column.
type Kind string

const (
	KindInt   Kind = "int"
	KindFloat Kind = "float"
	KindText  Kind = "string"
)

// ErrCoercion is wrapped by every CoercionError.
var ErrCoercion = errors.New("coercion failed")

// CoercionError reports a cell that cannot be read as the requested kind.
type CoercionError struct {
	Kind  Kind
	Value any
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot read %s %v as %s", TypeName(e.Value), e.Value, e.Kind)
}

func (e *CoercionError) Unwrap() error { return ErrCoercion }

// naValues are the text markers read as a missing value, as pandas does.
var naValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

// IsNAText reports whether s is a missing-value marker such as "NaN" or "NULL".
func IsNAText(s string) bool {
	return naValues[strings.TrimSpace(s)]
}

// IsMissing reports whether a cell is absent or is a text missing-value
// marker. Validation and typed stores read cells through it.
func IsMissing(v any) bool {
	if s, ok := v.(string); ok {
		return IsNAText(s)
	}
	return IsAbsent(v)
}

// IsAbsent reports whether a cell holds no value. NaN floats count as absent.
func IsAbsent(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// TypeName names the dynamic type of a cell the way validation messages print it.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	case float32, float64:
		return "float"
	}
	return fmt.Sprintf("%T", v)
}

// CoerceInt reads a cell as an integer. Integral finite floats and numeric
// text are accepted; fractional values and booleans are not.
func CoerceInt(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x), nil
		}
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), nil
		}
	case float32:
		return intFromFloat(float64(x), v)
	case float64:
		return intFromFloat(x, v)
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return intFromFloat(f, v)
		}
	}
	return 0, &CoercionError{Kind: KindInt, Value: v}
}

func intFromFloat(f float64, orig any) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, &CoercionError{Kind: KindInt, Value: orig}
	}
	return int64(f), nil
}

// CoerceFloat reads a cell as a float. Integers and numeric text are accepted.
func CoerceFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, nil
		}
	}
	return 0, &CoercionError{Kind: KindFloat, Value: v}
}

// CoerceText reads a cell as text. Only string cells are text.
func CoerceText(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", &CoercionError{Kind: KindText, Value: v}
}

// Coerce dispatches to the coercion function of kind.
func Coerce(kind Kind, v any) (any, error) {
	switch kind {
	case KindInt:
		return CoerceInt(v)
	case KindFloat:
		return CoerceFloat(v)
	case KindText:
		return CoerceText(v)
	}
	return nil, fmt.Errorf("unknown kind %q: %w", kind, ErrCoercion)
}

// FormatFloat renders a float so that integral values keep a trailing ".0".
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) || strings.ContainsAny(s, ".e") {
		return s
	}
	return s + ".0"
}

// FormatValue renders a coerced value for messages and CSV output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return FormatFloat(x)
	case float32:
		return FormatFloat(float64(x))
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}
