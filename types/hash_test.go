package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFromBytesDeterministic(t *testing.T) {
	a := HashFromBytes([]byte("governance blob"))
	b := HashFromBytes([]byte("governance blob"))
	c := HashFromBytes([]byte("different blob"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.False(t, a.IsZero())
	assert.True(t, ZeroHash.IsZero())
}

func TestHashHexRoundTrip(t *testing.T) {
	h := HashFromBytes([]byte("round trip me"))
	s := h.String()

	decoded, err := HashFromHex(s)
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestHashFromHexRejectsWrongLength(t *testing.T) {
	_, err := HashFromHex("abcd")
	assert.Error(t, err)
}

func TestHashJSONRoundTrip(t *testing.T) {
	h := HashFromBytes([]byte("json me"))
	data, err := h.MarshalJSON()
	require.NoError(t, err)

	var out Hash
	require.NoError(t, out.UnmarshalJSON(data))
	assert.Equal(t, h, out)
}
