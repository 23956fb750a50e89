package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	type item struct {
		ID    string  `json:"id"`
		Level float32 `json:"level"`
	}
	s, err := MarshalString(item{ID: "a", Level: 0.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","level":0.5}`, s)

	var out item
	require.NoError(t, Unmarshal([]byte(s), &out))
	assert.Equal(t, "a", out.ID)

	b, err := MarshalIndent(out, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  \"id\"")
}
