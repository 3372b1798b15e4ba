package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// frame is one open container while scanning tokens.
type frame struct {
	object bool
	keys   map[string]struct{}
	key    string // last key read; valid while a value is pending
	inKey  bool   // next string token is a key
	index  int
}

// DuplicateKeys reports the JSON Pointer of every object member whose key
// already appeared in the same object. Malformed input yields an error.
func DuplicateKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var dups []string
	var stack []frame

	// valueDone advances the parent after a complete value.
	valueDone := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.object {
			top.inKey = true
		} else {
			top.index++
		}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if len(stack) > 0 {
				return dups, io.ErrUnexpectedEOF
			}
			return dups, nil
		}
		if err != nil {
			return dups, err
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				stack = append(stack, frame{object: true, keys: map[string]struct{}{}, inKey: true})
			case '[':
				stack = append(stack, frame{})
			case '}', ']':
				stack = stack[:len(stack)-1]
				valueDone()
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].inKey {
				top := &stack[n-1]
				top.key = v
				if _, seen := top.keys[v]; seen {
					dups = append(dups, pointer(stack))
				}
				top.keys[v] = struct{}{}
				top.inKey = false
				continue
			}
			valueDone()
		default:
			valueDone()
		}
	}
}

func pointer(stack []frame) string {
	var b strings.Builder
	for _, f := range stack {
		b.WriteByte('/')
		if f.object {
			b.WriteString(strings.NewReplacer("~", "~0", "/", "~1").Replace(f.key))
		} else {
			b.WriteString(strconv.Itoa(f.index))
		}
	}
	return b.String()
}
