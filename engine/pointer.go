package engine

import (
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

// pointerGet evaluates an RFC 6901 pointer (as found in a URL fragment or an
// instance location) against doc. Plain-name fragments are not pointers.
func pointerGet(doc any, ptr string) (any, bool) {
	if ptr == "" {
		return doc, true
	}
	if !strings.HasPrefix(ptr, "/") {
		return nil, false
	}
	p, err := jsonpointer.New(ptr)
	if err != nil {
		return nil, false
	}
	v, _, err := p.Get(doc)
	if err != nil {
		return nil, false
	}
	return v, true
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}
