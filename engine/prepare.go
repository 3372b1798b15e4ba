package engine

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const maxPrepareDepth = 64

// preparer applies the data-rewriting options to a value, guided by the
// schema. It follows "$ref" and "allOf"; "anyOf"/"oneOf"/"not" branches never
// rewrite data.
type preparer struct {
	opts     Options
	set      *resourceSet
	mutators map[string]Mutator
}

func (e *Engine) prepare(s *Schema, v any) any {
	p := preparer{opts: e.opts, set: s.set, mutators: e.mutators()}
	return p.apply(s.body, s.url, v, 0)
}

func (p preparer) apply(node any, base string, v any, depth int) any {
	return p.node(node, base, v, depth, true)
}

// node rewrites v for one schema object. strip is false for allOf branches:
// undeclared properties are only removed by the schema owning the branches,
// which sees the names declared by all of them.
func (p preparer) node(node any, base string, v any, depth int, strip bool) any {
	sch, ok := node.(map[string]any)
	if !ok || depth > maxPrepareDepth {
		return v
	}
	if ref, ok := sch["$ref"].(string); ok {
		if target, targetBase, ok := p.set.resolveNode(base, ref); ok {
			return p.node(target, targetBase, v, depth+1, strip)
		}
		return v
	}
	if all, ok := sch["allOf"].([]any); ok {
		for _, sub := range all {
			v = p.node(sub, base, v, depth+1, false)
		}
	}
	if p.opts.CoerceTypes {
		if types := schemaTypes(sch["type"]); len(types) > 0 {
			v = coerce(v, types)
		}
	}

	switch t := v.(type) {
	case map[string]any:
		p.object(sch, base, t, depth)
		if strip && p.opts.RemoveAdditional {
			p.strip(sch, base, t, depth)
		}
	case []any:
		p.array(sch, base, t, depth)
	}

	for name, m := range p.mutators {
		if arg, ok := sch[name]; ok {
			v = m.Mutate(arg, v)
		}
	}
	return v
}

func (p preparer) object(sch map[string]any, base string, obj map[string]any, depth int) {
	props, _ := sch["properties"].(map[string]any)
	patterns, _ := sch["patternProperties"].(map[string]any)

	if p.opts.UseDefaults {
		for name, sub := range props {
			if _, present := obj[name]; present {
				continue
			}
			if m, ok := sub.(map[string]any); ok {
				if def, ok := m["default"]; ok {
					obj[name] = deepCopy(def)
				}
			}
		}
	}

	compiled := compilePatterns(patterns)
	additional, _ := sch["additionalProperties"].(map[string]any)
	for name, val := range obj {
		declared := false
		if sub, ok := props[name]; ok {
			obj[name] = p.apply(sub, base, val, depth+1)
			declared = true
		}
		for pat, re := range compiled {
			if re.MatchString(name) {
				obj[name] = p.apply(patterns[pat], base, obj[name], depth+1)
				declared = true
			}
		}
		if !declared && additional != nil {
			obj[name] = p.apply(additional, base, val, depth+1)
		}
	}
}

// strip deletes the properties of obj that sch does not declare. Objects
// whose schema admits extra properties through an additionalProperties
// schema (or true) are left alone, as are objects whose schema declares no
// properties at all unless additionalProperties is false.
func (p preparer) strip(sch map[string]any, base string, obj map[string]any, depth int) {
	sh := shape{names: map[string]bool{}}
	p.collect(sch, base, &sh, depth)
	if sh.open || (!sh.closed && len(sh.names) == 0 && len(sh.patterns) == 0) {
		return
	}
	for name := range obj {
		if !sh.declares(name) {
			delete(obj, name)
		}
	}
}

// shape is the union of the property declarations of a schema and its
// allOf branches.
type shape struct {
	names    map[string]bool
	patterns []*regexp.Regexp
	closed   bool
	open     bool
}

func (sh *shape) declares(name string) bool {
	if sh.names[name] {
		return true
	}
	for _, re := range sh.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func (p preparer) collect(sch map[string]any, base string, sh *shape, depth int) {
	if depth > maxPrepareDepth {
		return
	}
	if ref, ok := sch["$ref"].(string); ok {
		if target, targetBase, ok := p.set.resolveNode(base, ref); ok {
			if m, ok := target.(map[string]any); ok {
				p.collect(m, targetBase, sh, depth+1)
			}
		}
		return
	}
	if props, ok := sch["properties"].(map[string]any); ok {
		for name := range props {
			sh.names[name] = true
		}
	}
	if patterns, ok := sch["patternProperties"].(map[string]any); ok {
		for _, re := range compilePatterns(patterns) {
			sh.patterns = append(sh.patterns, re)
		}
	}
	switch a := sch["additionalProperties"].(type) {
	case bool:
		if a {
			sh.open = true
		} else {
			sh.closed = true
		}
	case map[string]any:
		sh.open = true
	}
	if all, ok := sch["allOf"].([]any); ok {
		for _, sub := range all {
			if m, ok := sub.(map[string]any); ok {
				p.collect(m, base, sh, depth+1)
			}
		}
	}
}

func compilePatterns(patterns map[string]any) map[string]*regexp.Regexp {
	if len(patterns) == 0 {
		return nil
	}
	out := make(map[string]*regexp.Regexp, len(patterns))
	for pat := range patterns {
		if re, err := regexp.Compile(pat); err == nil {
			out[pat] = re
		}
	}
	return out
}

func (p preparer) array(sch map[string]any, base string, arr []any, depth int) {
	switch items := sch["items"].(type) {
	case map[string]any:
		for i, el := range arr {
			arr[i] = p.apply(items, base, el, depth+1)
		}
	case []any:
		for i := 0; i < len(arr) && i < len(items); i++ {
			arr[i] = p.apply(items[i], base, arr[i], depth+1)
		}
	}
}

func schemaTypes(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func hasType(v any, typ string) bool {
	switch typ {
	case "null":
		return v == nil
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		_, ok := numberOf(v)
		return ok
	case "integer":
		f, ok := numberOf(v)
		return ok && f == math.Trunc(f)
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	}
	return false
}

// coerce converts a scalar to the first declared type it can represent.
// Values that already match one of the types are returned unchanged.
func coerce(v any, types []string) any {
	for _, typ := range types {
		if hasType(v, typ) {
			return v
		}
	}
	for _, typ := range types {
		if out, ok := coerceTo(v, typ); ok {
			return out
		}
	}
	return v
}

func coerceTo(v any, typ string) (any, bool) {
	switch typ {
	case "string":
		switch t := v.(type) {
		case nil:
			return "", true
		case bool:
			return strconv.FormatBool(t), true
		case json.Number:
			return t.String(), true
		}
		if f, ok := numberOf(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
	case "number", "integer":
		var f float64
		switch t := v.(type) {
		case nil:
			f = 0
		case bool:
			if t {
				f = 1
			}
		case string:
			s := strings.TrimSpace(t)
			if s == "" || s != t {
				return nil, false
			}
			n, err := strconv.ParseFloat(s, 64)
			if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
				return nil, false
			}
			f = n
		default:
			return nil, false
		}
		if typ == "integer" && f != math.Trunc(f) {
			return nil, false
		}
		return f, true
	case "boolean":
		switch t := v.(type) {
		case nil:
			return false, true
		case string:
			switch t {
			case "true":
				return true, true
			case "false":
				return false, true
			}
		default:
			if f, ok := numberOf(v); ok && (f == 0 || f == 1) {
				return f == 1, true
			}
		}
	case "null":
		switch t := v.(type) {
		case string:
			if t == "" {
				return nil, true
			}
		case bool:
			if !t {
				return nil, true
			}
		default:
			if f, ok := numberOf(v); ok && f == 0 {
				return nil, true
			}
		}
	}
	return nil, false
}
