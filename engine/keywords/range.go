package keywords

import (
	"fmt"

	"github.com/reoring/skema/engine"
)

// Range checks that a number lies within [min, max]. With Exclusive set it
// is the "exclusiveRange" keyword and both bounds are excluded.
type Range struct {
	Exclusive bool
}

func (r Range) Name() string {
	if r.Exclusive {
		return "exclusiveRange"
	}
	return "range"
}

func (Range) Meta() string {
	return `{"type": "array", "minItems": 2, "maxItems": 2, "items": {"type": "number"}}`
}

func (r Range) Compile(value any, _ map[string]any) (engine.Check, error) {
	bounds, ok := value.([]any)
	if !ok || len(bounds) != 2 {
		return nil, fmt.Errorf("expected [min, max], got %v", value)
	}
	lo, ok1 := toFloat(bounds[0])
	hi, ok2 := toFloat(bounds[1])
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("expected numeric bounds, got %v", value)
	}
	if lo > hi || (r.Exclusive && lo == hi) {
		return nil, fmt.Errorf("empty range [%v, %v]", lo, hi)
	}
	return func(v any) error {
		n, ok := toFloat(v)
		if !ok {
			return nil
		}
		if r.Exclusive {
			if n <= lo || n >= hi {
				return fmt.Errorf("must be > %v and < %v", lo, hi)
			}
			return nil
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be >= %v and <= %v", lo, hi)
		}
		return nil
	}, nil
}
