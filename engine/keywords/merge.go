package keywords

import (
	"errors"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-openapi/jsonpointer"
	j "github.com/goccy/go-json"
)

// Merge is the "$merge" keyword: {"$merge": {"source": S, "with": W}} is
// replaced by S with W applied as an RFC 7386 merge patch.
type Merge struct{}

func (Merge) Keyword() string { return "$merge" }

func (Merge) Meta() string {
	return `{
		"type": "object",
		"required": ["source", "with"],
		"additionalProperties": false,
		"properties": {
			"source": {"type": ["object", "boolean"]},
			"with": {"type": "object"}
		}
	}`
}

func (Merge) Expand(arg any, resolve func(string) (any, error)) (any, error) {
	source, with, err := operands(arg, resolve)
	if err != nil {
		return nil, err
	}
	doc, err := j.Marshal(source)
	if err != nil {
		return nil, err
	}
	patch, err := j.Marshal(with)
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	return decode(merged)
}

// Patch is the "$patch" keyword: {"$patch": {"source": S, "with": [ops]}} is
// replaced by S with the RFC 6902 operations applied.
type Patch struct{}

func (Patch) Keyword() string { return "$patch" }

func (Patch) Meta() string {
	return `{
		"type": "object",
		"required": ["source", "with"],
		"additionalProperties": false,
		"properties": {
			"source": {"type": ["object", "boolean"]},
			"with": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["op", "path"],
					"properties": {
						"op": {"enum": ["add", "remove", "replace", "move", "copy", "test"]},
						"path": {"type": "string"},
						"from": {"type": "string"}
					}
				}
			}
		}
	}`
}

func (Patch) Expand(arg any, resolve func(string) (any, error)) (any, error) {
	source, with, err := operands(arg, resolve)
	if err != nil {
		return nil, err
	}
	doc, err := j.Marshal(source)
	if err != nil {
		return nil, err
	}
	ops, err := j.Marshal(with)
	if err != nil {
		return nil, err
	}
	p, err := jsonpatch.DecodePatch(ops)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	out, err := p.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	return decode(out)
}

func operands(arg any, resolve func(string) (any, error)) (source, with any, err error) {
	m, ok := arg.(map[string]any)
	if !ok {
		return nil, nil, errors.New(`expected {"source": ..., "with": ...}`)
	}
	if source, err = deref(m["source"], resolve); err != nil {
		return nil, nil, err
	}
	if with, err = deref(m["with"], resolve); err != nil {
		return nil, nil, err
	}
	return source, with, nil
}

// deref replaces {"$ref": "key#/pointer"} with the referenced registry
// document or the node the pointer selects in it.
func deref(v any, resolve func(string) (any, error)) (any, error) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v, nil
	}
	ref, ok := m["$ref"].(string)
	if !ok {
		return v, nil
	}
	key, frag, _ := strings.Cut(ref, "#")
	if key == "" {
		return nil, fmt.Errorf("local reference %q cannot be merged", ref)
	}
	doc, err := resolve(key)
	if err != nil {
		return nil, err
	}
	if frag == "" {
		return doc, nil
	}
	p, err := jsonpointer.New(frag)
	if err != nil {
		return nil, fmt.Errorf("reference %q: %w", ref, err)
	}
	node, _, err := p.Get(doc)
	if err != nil {
		return nil, fmt.Errorf("reference %q: %w", ref, err)
	}
	return node, nil
}

func decode(raw []byte) (any, error) {
	var out any
	if err := j.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
