package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	env, err := NewEnvelope(CategoryTradeData, 42, payload{Name: "x", Count: 7})
	require.NoError(t, err)
	assert.NotEmpty(t, env.MessageID)
	assert.Equal(t, CategoryTradeData, env.Category)
	assert.Equal(t, uint64(42), env.Sequence)

	b, err := env.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(b)
	require.NoError(t, err)
	assert.Equal(t, env.MessageID, decoded.MessageID)
	assert.Equal(t, env.Sequence, decoded.Sequence)

	var p payload
	require.NoError(t, decoded.Unwrap(&p))
	assert.Equal(t, payload{Name: "x", Count: 7}, p)
}

func TestEnvelopeIDsAreUnique(t *testing.T) {
	a, err := NewEnvelope(CategoryAudit, 1, "x")
	require.NoError(t, err)
	b, err := NewEnvelope(CategoryAudit, 2, "y")
	require.NoError(t, err)
	assert.NotEqual(t, a.MessageID, b.MessageID)
}

func TestDecodeEnvelopeGarbage(t *testing.T) {
	_, err := DecodeEnvelope([]byte("{not json"))
	assert.Error(t, err)
}
