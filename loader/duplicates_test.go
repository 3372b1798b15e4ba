package loader_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skema/loader"
)

func TestDuplicateKeys(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"none", `{"a":1,"b":{"a":2},"c":[{"a":1},{"a":2}]}`, nil},
		{"top level", `{"type":"string","type":"number"}`, []string{"/type"}},
		{"nested", `{"properties":{"id":{},"id":{"type":"string"}}}`, []string{"/properties/id"}},
		{"inside array", `{"allOf":[{},{"x":1,"x":2}]}`, []string{"/allOf/1/x"}},
		{"after nested value", `{"a":{"b":[1,2]},"c":true,"a":null}`, []string{"/a"}},
		{"escaped key", `{"a/b":1,"a/b":2}`, []string{"/a~1b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loader.DuplicateKeys([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDuplicateKeys_Malformed(t *testing.T) {
	_, err := loader.DuplicateKeys([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestParse_RejectsDuplicateKeys(t *testing.T) {
	_, err := loader.Parse(".json", []byte(`{"type":"string","type":"number"}`))
	assert.ErrorContains(t, err, "duplicate keys at /type")
}
