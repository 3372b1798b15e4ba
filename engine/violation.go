package engine

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// FalseSchema is the keyword reported when data meets a boolean false schema.
const FalseSchema = "false schema"

// Violation is one failed assertion, flattened out of the evaluator's error
// tree.
type Violation struct {
	// Keyword is the failing keyword, e.g. "type" or "required".
	Keyword string
	// KeywordLocation is the JSON Pointer of the keyword relative to the
	// root schema, following "$ref"s through their "$ref" segment.
	KeywordLocation string
	// AbsoluteKeywordLocation is the resource URL plus pointer of the keyword.
	AbsoluteKeywordLocation string
	// InstanceLocation is the JSON Pointer of the failing value; "" is the root.
	InstanceLocation string
	Message          string
	// SchemaValue is the value of the failing keyword in the schema.
	SchemaValue any
	// Property names the missing or unexpected property for "required" and
	// "additionalProperties" violations.
	Property string
}

// atomicKeywords report a single violation for the whole keyword even when
// the evaluator records the failing branches as causes.
var atomicKeywords = map[string]bool{
	"anyOf":    true,
	"oneOf":    true,
	"contains": true,
}

func (e *Engine) violations(s *Schema, root *jsonschema.ValidationError, data any) []Violation {
	var leaves []*jsonschema.ValidationError
	collectLeaves(root, &leaves)

	out := make([]Violation, 0, len(leaves))
	for _, l := range leaves {
		out = append(out, s.flatten(l, data)...)
	}
	sort.SliceStable(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if x.InstanceLocation != y.InstanceLocation {
			return x.InstanceLocation < y.InstanceLocation
		}
		if x.KeywordLocation != y.KeywordLocation {
			return x.KeywordLocation < y.KeywordLocation
		}
		return x.Property < y.Property
	})
	if !e.opts.AllErrors && len(out) > 1 {
		out = out[:1]
	}
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]*jsonschema.ValidationError) {
	if len(ve.Causes) == 0 || atomicKeywords[keywordOf(ve.KeywordLocation)] {
		*out = append(*out, ve)
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

// flatten turns one evaluator error into violations, splitting keywords that
// aggregate several properties into one violation per property.
func (s *Schema) flatten(ve *jsonschema.ValidationError, data any) []Violation {
	v := Violation{
		Keyword:                 keywordOf(ve.KeywordLocation),
		KeywordLocation:         unescapePercent(ve.KeywordLocation),
		AbsoluteKeywordLocation: ve.AbsoluteKeywordLocation,
		InstanceLocation:        unescapePercent(ve.InstanceLocation),
		Message:                 ve.Message,
	}
	v.SchemaValue, _ = s.schemaValue(ve.AbsoluteKeywordLocation)

	var names []string
	switch v.Keyword {
	case "required":
		names = missingProperties(v.SchemaValue, instanceAt(data, v.InstanceLocation))
	case "additionalProperties":
		if b, ok := v.SchemaValue.(bool); ok && !b {
			parentURL := strings.TrimSuffix(ve.AbsoluteKeywordLocation, "/additionalProperties")
			parent, _ := s.schemaValue(parentURL)
			names = extraProperties(parent, instanceAt(data, v.InstanceLocation))
		}
	}
	if len(names) == 0 {
		return []Violation{v}
	}

	out := make([]Violation, 0, len(names))
	for _, n := range names {
		pv := v
		pv.Property = n
		if v.Keyword == "required" {
			pv.Message = fmt.Sprintf("missing property %q", n)
		} else {
			pv.Message = fmt.Sprintf("additional property %q not allowed", n)
		}
		out = append(out, pv)
	}
	return out
}

func (s *Schema) schemaValue(abs string) (any, bool) {
	if s.set == nil {
		return nil, false
	}
	doc, frag, _ := strings.Cut(abs, "#")
	body, ok := s.set.bodies[doc]
	if !ok {
		return nil, false
	}
	return pointerGet(body, unescapePercent(frag))
}

func instanceAt(data any, loc string) map[string]any {
	v, ok := pointerGet(data, loc)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

func missingProperties(required any, obj map[string]any) []string {
	list, ok := required.([]any)
	if !ok || obj == nil {
		return nil
	}
	var out []string
	for _, r := range list {
		name, ok := r.(string)
		if !ok {
			continue
		}
		if _, present := obj[name]; !present {
			out = append(out, name)
		}
	}
	return out
}

func extraProperties(parent any, obj map[string]any) []string {
	sch, ok := parent.(map[string]any)
	if !ok || obj == nil {
		return nil
	}
	props, _ := sch["properties"].(map[string]any)
	patterns, _ := sch["patternProperties"].(map[string]any)
	res := make([]*regexp.Regexp, 0, len(patterns))
	for p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			res = append(res, re)
		}
	}

	var out []string
	for name := range obj {
		if _, ok := props[name]; ok {
			continue
		}
		matched := false
		for _, re := range res {
			if re.MatchString(name) {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

type segKind int

const (
	segKeyword segKind = iota
	segName
	segIndex
)

var (
	schemaMaps  = map[string]bool{"properties": true, "patternProperties": true, "definitions": true, "$defs": true, "dependentSchemas": true, "dependencies": true, "dependentRequired": true}
	schemaLists = map[string]bool{"allOf": true, "anyOf": true, "oneOf": true, "prefixItems": true, "items": true, "additionalItems": true}
	refKeywords = map[string]bool{"$ref": true, "$dynamicRef": true, "$recursiveRef": true}
)

// keywordOf derives the failing keyword from a keyword location. Segments
// alternate between keywords and the property names or indexes of the
// subschemas they hold; a location ending on a subschema means the subschema
// itself is false.
func keywordOf(loc string) string {
	kw, container := FalseSchema, ""
	expect := segKeyword
	atKeyword := false
	for _, seg := range splitPointer(loc) {
		if expect == segName {
			expect, atKeyword = segKeyword, false
			if container == "dependencies" || container == "dependentRequired" {
				// property dependencies hold name lists
				expect = segIndex
			}
			continue
		}
		if expect == segIndex && isIndex(seg) {
			expect, atKeyword = segKeyword, false
			continue
		}
		kw, container, atKeyword = seg, "", true
		expect = segKeyword
		switch {
		case schemaMaps[seg]:
			expect, container = segName, seg
		case schemaLists[seg]:
			expect = segIndex
		}
	}
	switch {
	case !atKeyword && (container == "dependencies" || container == "dependentRequired"):
		return container
	case !atKeyword, refKeywords[kw]:
		return FalseSchema
	default:
		return kw
	}
}

func splitPointer(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "#")
	if ptr == "" {
		return nil
	}
	segs := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	for i, s := range segs {
		s = unescapePercent(s)
		segs[i] = strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
	}
	return segs
}

func unescapePercent(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
