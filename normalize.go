package skema

import (
	"fmt"
	"strings"

	"github.com/reoring/skema/engine"
)

var comparisons = map[string]string{
	"minimum":          ">=",
	"maximum":          "<=",
	"exclusiveMinimum": ">",
	"exclusiveMaximum": "<",
}

var limitKeywords = map[string]bool{
	"minimum": true, "maximum": true, "exclusiveMinimum": true, "exclusiveMaximum": true,
	"minLength": true, "maxLength": true,
	"minItems": true, "maxItems": true,
	"minProperties": true, "maxProperties": true,
	"minContains": true, "maxContains": true,
}

// normalize maps an engine violation to a ValidationError. It is pure.
func normalize(v engine.Violation) ValidationError {
	path := v.InstanceLocation
	if path == "" {
		path = "/"
	}
	return ValidationError{
		Keyword:    v.Keyword,
		Path:       path,
		SchemaPath: "#" + v.KeywordLocation,
		Params:     params(v),
		Message:    v.Message,
	}
}

func normalizeAll(vs []engine.Violation) Errors {
	out := make(Errors, len(vs))
	for i, v := range vs {
		out[i] = normalize(v)
	}
	return out
}

func params(v engine.Violation) map[string]any {
	switch {
	case v.Keyword == "type":
		return map[string]any{"type": typeParam(v.SchemaValue)}
	case v.Keyword == "required":
		return map[string]any{"missingProperty": v.Property}
	case v.Keyword == "additionalProperties":
		return map[string]any{"additionalProperty": v.Property}
	case v.Keyword == "enum":
		return map[string]any{"allowedValues": v.SchemaValue}
	case v.Keyword == "const":
		return map[string]any{"allowedValue": v.SchemaValue}
	case v.Keyword == "format", v.Keyword == "pattern", v.Keyword == "multipleOf":
		return map[string]any{v.Keyword: v.SchemaValue}
	case limitKeywords[v.Keyword]:
		p := map[string]any{"limit": v.SchemaValue}
		if c, ok := comparisons[v.Keyword]; ok {
			p["comparison"] = c
		}
		return p
	case v.Keyword == engine.FalseSchema:
		return map[string]any{}
	default:
		return map[string]any{v.Keyword: v.SchemaValue}
	}
}

func typeParam(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	names := make([]string, len(list))
	for i, t := range list {
		names[i] = fmt.Sprint(t)
	}
	return strings.Join(names, ",")
}

func sentinel(keyword, message string) ValidationError {
	return ValidationError{
		Keyword:    keyword,
		Path:       "/",
		SchemaPath: "",
		Params:     map[string]any{"argument": "data"},
		Message:    message,
	}
}

// EmptySchema is the error reported when no schema could be resolved.
func EmptySchema() ValidationError {
	return sentinel(KeywordEmptySchema, "objects schema is not set")
}

// InvalidArgument is the error reported when the data is absent.
func InvalidArgument() ValidationError {
	return sentinel(KeywordInvalidArgument, "data is null or undefined")
}

// InvalidSchema is the error reported when an inline schema is malformed.
func InvalidSchema(err error) ValidationError {
	e := sentinel(KeywordInvalidSchema, "schema is not valid")
	e.Params = map[string]any{"argument": "schema"}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}
