// Package formats provides the string and number formats registered on top of
// the evaluator's built-in ones: uuid, byte, int32, int64, float, double,
// password and binary.
package formats

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/reoring/skema/engine"
)

// Matcher reports whether a value satisfies a format. Values of kinds the
// format does not describe are accepted.
type Matcher func(v any) bool

// All returns every format keyed by name.
func All() map[string]Matcher {
	return map[string]Matcher{
		"uuid":     UUID,
		"byte":     Byte,
		"int32":    Int32,
		"int64":    Int64,
		"float":    Float,
		"double":   Double,
		"password": anyString,
		"binary":   anyString,
	}
}

// Extensions returns the formats as engine extensions.
func Extensions() []engine.Extension {
	all := All()
	out := make([]engine.Extension, 0, len(all))
	for name, m := range all {
		out = append(out, engine.WithFormat(name, m))
	}
	return out
}

// UUID accepts RFC 4122 strings in the canonical hyphenated form, with an
// optional urn:uuid: prefix.
func UUID(v any) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	s = strings.TrimPrefix(strings.ToLower(s), "urn:uuid:")
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

var base64Re = regexp.MustCompile(`^(?:[A-Za-z0-9+/]{4})*(?:[A-Za-z0-9+/]{2}==|[A-Za-z0-9+/]{3}=)?$`)

// Byte accepts base64-encoded strings.
func Byte(v any) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	return base64Re.MatchString(s)
}

// Int32 accepts integers in the signed 32-bit range.
func Int32(v any) bool {
	return intInRange(v, math.MinInt32, math.MaxInt32)
}

// Int64 accepts integers in the signed 64-bit range.
func Int64(v any) bool {
	return intInRange(v, math.MinInt64, math.MaxInt64)
}

// Float accepts any number.
func Float(v any) bool {
	_, ok := number(v)
	return ok || !isNumeric(v)
}

// Double accepts any number.
func Double(v any) bool { return Float(v) }

func anyString(any) bool { return true }

func intInRange(v any, lo, hi int64) bool {
	if !isNumeric(v) {
		return true
	}
	if n, ok := v.(json.Number); ok {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return i >= lo && i <= hi
		}
	}
	f, ok := number(v)
	if !ok || f != math.Trunc(f) {
		return false
	}
	return f >= float64(lo) && f <= float64(hi)
}

func isNumeric(v any) bool {
	switch v.(type) {
	case json.Number, float64, float32, int, int32, int64:
		return true
	}
	return false
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
