// Package keywords implements the custom keywords and composition keywords
// registered by default: range, exclusiveRange, anyRequired, oneRequired,
// allRequired, prohibited, uniqueItemProperties, transform, $merge and $patch.
package keywords

import (
	"fmt"
	"math"

	"github.com/reoring/skema/engine"
)

// All returns every data keyword.
func All() []engine.Keyword {
	return []engine.Keyword{
		Range{},
		Range{Exclusive: true},
		AnyRequired{},
		OneRequired{},
		AllRequired{},
		Prohibited{},
		UniqueItemProperties{},
		Transform{},
	}
}

// Expanders returns the compile-time composition keywords.
func Expanders() []engine.Expander {
	return []engine.Expander{Merge{}, Patch{}}
}

// Extensions returns keywords and expanders as engine extensions.
func Extensions() []engine.Extension {
	var out []engine.Extension
	for _, k := range All() {
		out = append(out, engine.WithKeyword(k))
	}
	for _, x := range Expanders() {
		out = append(out, engine.WithExpander(x))
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func stringList(v any) ([]string, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of property names, got %T", v)
	}
	out := make([]string, 0, len(list))
	for _, x := range list {
		s, ok := x.(string)
		if !ok {
			return nil, fmt.Errorf("expected property name, got %T", x)
		}
		out = append(out, s)
	}
	return out, nil
}

const namesMeta = `{"type": "array", "items": {"type": "string"}}`
