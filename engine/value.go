package engine

import (
	"encoding/json"
	"math"
	"strconv"
)

// deepCopy clones maps and slices of a JSON-like tree. Scalars are shared.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = deepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = deepCopy(vv)
		}
		return out
	default:
		return v
	}
}

// isJSONTree reports whether v consists only of values the evaluator accepts
// after number normalization, so it can be validated without a round trip.
func isJSONTree(v any) bool {
	switch t := v.(type) {
	case nil, bool, string, json.Number,
		float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case map[string]any:
		for _, vv := range t {
			if !isJSONTree(vv) {
				return false
			}
		}
		return true
	case []any:
		for _, vv := range t {
			if !isJSONTree(vv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// toEvaluatorValue rewrites Go numbers into json.Number so the evaluator sees
// exact values. Maps and slices are rewritten in place; callers pass a copy.
func toEvaluatorValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, vv := range t {
			t[k] = toEvaluatorValue(vv)
		}
		return t
	case []any:
		for i, vv := range t {
			t[i] = toEvaluatorValue(vv)
		}
		return t
	case float64:
		return floatNumber(t)
	case float32:
		return floatNumber(float64(t))
	case int:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case int8:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case int16:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case int32:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case uint:
		return json.Number(strconv.FormatUint(uint64(t), 10))
	case uint8:
		return json.Number(strconv.FormatUint(uint64(t), 10))
	case uint16:
		return json.Number(strconv.FormatUint(uint64(t), 10))
	case uint32:
		return json.Number(strconv.FormatUint(uint64(t), 10))
	case uint64:
		return json.Number(strconv.FormatUint(t, 10))
	default:
		return v
	}
}

func floatNumber(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		// not representable as a JSON number; let the evaluator reject it
		return f
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// fromEvaluatorValue converts json.Number back into float64 for keyword code.
// The input is not modified.
func fromEvaluatorValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = fromEvaluatorValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = fromEvaluatorValue(vv)
		}
		return out
	default:
		return v
	}
}

// numberOf returns the numeric value of any Go or JSON number.
func numberOf(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
