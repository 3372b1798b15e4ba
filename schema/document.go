// Package schema holds the schema document model shared by the loader, the
// registry and the validation engine.
package schema

import (
	"strings"
)

// Document is a parsed schema body together with its declared identifier and
// the name of the file it was read from. Documents are immutable once loaded.
type Document struct {
	// Body is the decoded JSON value: map[string]any or bool.
	Body any
	// ID is the declared "$id" (or draft-04 "id") of the body, if any.
	ID string
	// FileName is the base name of the source file, or a caller-chosen name for
	// documents that were not read from disk.
	FileName string
}

// New builds a Document from a decoded body and reads its declared identifier.
func New(body any, fileName string) Document {
	return Document{Body: body, ID: DeclaredID(body), FileName: fileName}
}

// Key returns the registry key of the document: the declared identifier when
// present, otherwise the file name.
func (d Document) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return d.FileName
}

// DeclaredID extracts "$id" (falling back to "id") from a schema body. A
// trailing empty fragment is trimmed so "user#" and "user" share a key.
func DeclaredID(body any) string {
	m, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	for _, k := range []string{"$id", "id"} {
		if s, ok := m[k].(string); ok && s != "" {
			return strings.TrimSuffix(s, "#")
		}
	}
	return ""
}
