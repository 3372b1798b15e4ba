package keywords

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/reoring/skema/engine"
)

// AnyRequired requires at least one of the listed properties.
type AnyRequired struct{}

func (AnyRequired) Name() string { return "anyRequired" }
func (AnyRequired) Meta() string { return namesMeta }

func (AnyRequired) Compile(value any, _ map[string]any) (engine.Check, error) {
	names, err := stringList(value)
	if err != nil {
		return nil, err
	}
	return func(v any) error {
		obj, ok := v.(map[string]any)
		if !ok || countPresent(obj, names) > 0 {
			return nil
		}
		return fmt.Errorf("must have at least one of properties %s", quoted(names))
	}, nil
}

// OneRequired requires exactly one of the listed properties.
type OneRequired struct{}

func (OneRequired) Name() string { return "oneRequired" }
func (OneRequired) Meta() string { return namesMeta }

func (OneRequired) Compile(value any, _ map[string]any) (engine.Check, error) {
	names, err := stringList(value)
	if err != nil {
		return nil, err
	}
	return func(v any) error {
		obj, ok := v.(map[string]any)
		if !ok || countPresent(obj, names) == 1 {
			return nil
		}
		return fmt.Errorf("must have exactly one of properties %s", quoted(names))
	}, nil
}

// AllRequired, when true, requires every property listed in the sibling
// "properties" keyword.
type AllRequired struct{}

func (AllRequired) Name() string { return "allRequired" }
func (AllRequired) Meta() string { return `{"type": "boolean"}` }

func (AllRequired) Compile(value any, parent map[string]any) (engine.Check, error) {
	if on, _ := value.(bool); !on {
		return nil, nil
	}
	props, ok := parent["properties"].(map[string]any)
	if !ok {
		return nil, errors.New(`allRequired needs "properties"`)
	}
	names := make([]string, 0, len(props))
	for n := range props {
		names = append(names, n)
	}
	sort.Strings(names)
	return func(v any) error {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		var missing []string
		for _, n := range names {
			if _, ok := obj[n]; !ok {
				missing = append(missing, n)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing properties %s", quoted(missing))
		}
		return nil
	}, nil
}

// Prohibited rejects objects holding any of the listed properties.
type Prohibited struct{}

func (Prohibited) Name() string { return "prohibited" }
func (Prohibited) Meta() string { return namesMeta }

func (Prohibited) Compile(value any, _ map[string]any) (engine.Check, error) {
	names, err := stringList(value)
	if err != nil {
		return nil, err
	}
	return func(v any) error {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		var found []string
		for _, n := range names {
			if _, ok := obj[n]; ok {
				found = append(found, n)
			}
		}
		if len(found) > 0 {
			return fmt.Errorf("must not have properties %s", quoted(found))
		}
		return nil
	}, nil
}

func countPresent(obj map[string]any, names []string) int {
	n := 0
	for _, name := range names {
		if _, ok := obj[name]; ok {
			n++
		}
	}
	return n
}

func quoted(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(q, ", ")
}
