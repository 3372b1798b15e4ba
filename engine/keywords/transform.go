package keywords

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/reoring/skema/engine"
)

var transforms = map[string]func(string) string{
	"trim":        strings.TrimSpace,
	"trimStart":   func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) },
	"trimLeft":    func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) },
	"trimEnd":     func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) },
	"trimRight":   func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) },
	"toLowerCase": strings.ToLower,
	"toUpperCase": strings.ToUpper,
}

// Transform rewrites string data before it is checked. The keyword value
// lists the operations, applied in order.
type Transform struct{}

func (Transform) Name() string { return "transform" }

func (Transform) Meta() string {
	return `{"type": "array", "items": {"enum": ["trim", "trimStart", "trimLeft", "trimEnd", "trimRight", "toLowerCase", "toUpperCase"]}}`
}

// Compile only validates the operation list; the work happens in Mutate.
func (Transform) Compile(value any, _ map[string]any) (engine.Check, error) {
	ops, err := stringList(value)
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		if _, ok := transforms[op]; !ok {
			return nil, fmt.Errorf("unknown transform %q", op)
		}
	}
	return nil, nil
}

func (Transform) Mutate(value any, data any) any {
	s, ok := data.(string)
	if !ok {
		return data
	}
	ops, _ := value.([]any)
	for _, op := range ops {
		name, _ := op.(string)
		if fn, ok := transforms[name]; ok {
			s = fn(s)
		}
	}
	return s
}
