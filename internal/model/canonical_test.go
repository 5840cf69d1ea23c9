package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	a, err := CanonicalJSON(map[string]interface{}{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1}`, string(a))
}

func TestCanonicalJSONIsOrderIndependent(t *testing.T) {
	var v1, v2 map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"x":1,"y":{"b":2,"a":3}}`), &v1))
	require.NoError(t, json.Unmarshal([]byte(`{"y":{"a":3,"b":2},"x":1}`), &v2))

	c1, err := CanonicalJSON(v1)
	require.NoError(t, err)
	c2, err := CanonicalJSON(v2)
	require.NoError(t, err)
	assert.Equal(t, string(c1), string(c2))
}

func TestContentHashIsDeterministic(t *testing.T) {
	doc := map[string]interface{}{"rtt_open_ms": 42, "rtt_read_ms": 10}
	h1, err := ContentHash(doc)
	require.NoError(t, err)
	h2, err := ContentHash(doc)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32)
}

func TestContentHashDiffersOnDifferentContent(t *testing.T) {
	h1, err := ContentHash(map[string]interface{}{"a": 1})
	require.NoError(t, err)
	h2, err := ContentHash(map[string]interface{}{"a": 2})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
