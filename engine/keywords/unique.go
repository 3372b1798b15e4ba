package keywords

import (
	"fmt"

	j "github.com/goccy/go-json"

	"github.com/reoring/skema/engine"
)

// UniqueItemProperties requires array items (objects) to carry distinct values
// for each listed property. Items missing the property are not compared.
type UniqueItemProperties struct{}

func (UniqueItemProperties) Name() string { return "uniqueItemProperties" }
func (UniqueItemProperties) Meta() string { return namesMeta }

func (UniqueItemProperties) Compile(value any, _ map[string]any) (engine.Check, error) {
	names, err := stringList(value)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	return func(v any) error {
		items, ok := v.([]any)
		if !ok {
			return nil
		}
		for _, name := range names {
			seen := make(map[string]int, len(items))
			for i, it := range items {
				obj, ok := it.(map[string]any)
				if !ok {
					continue
				}
				pv, ok := obj[name]
				if !ok {
					continue
				}
				key, err := j.Marshal(pv)
				if err != nil {
					continue
				}
				if prev, dup := seen[string(key)]; dup {
					return fmt.Errorf("items %d and %d have the same %q", prev, i, name)
				}
				seen[string(key)] = i
			}
		}
		return nil
	}, nil
}
