package ordinals

import (
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInscriptionIdString(t *testing.T) {
	id, err := NewInscriptionIdFromString("c9a3a8a53e7b8b3ea9d5e4f6a9b6c7d8e9f0a1b2c3d4e5f60718293a4b5c6d7ei0")
	require.NoError(t, err)
	assert.Equal(t, "c9a3a8a53e7b8b3ea9d5e4f6a9b6c7d8e9f0a1b2c3d4e5f60718293a4b5c6d7ei0", id.String())
}

func TestInscriptionIdFromStringInvalid(t *testing.T) {
	_, err := NewInscriptionIdFromString("nonsense")
	assert.Error(t, err)

	_, err = NewInscriptionIdFromString("deadbeefi0")
	assert.Error(t, err)
}

func TestInscriptionIdTagValueRoundTrip(t *testing.T) {
	id := InscriptionId{
		TxHash: chainhash.Hash{0xde, 0xad, 0xbe, 0xef},
		Index:  300,
	}
	parsed, ok := NewInscriptionIdFromTagValue(id.TagValue())
	require.True(t, ok)
	assert.Equal(t, id, parsed)

	// zero index encodes as bare txid
	id.Index = 0
	assert.Len(t, id.TagValue(), chainhash.HashSize)
	parsed, ok = NewInscriptionIdFromTagValue(id.TagValue())
	require.True(t, ok)
	assert.Equal(t, id, parsed)
}

func TestInscriptionIdTagValueMalformed(t *testing.T) {
	_, ok := NewInscriptionIdFromTagValue([]byte{0x01})
	assert.False(t, ok)

	// trailing zero index byte is non-canonical
	value := make([]byte, chainhash.HashSize+1)
	_, ok = NewInscriptionIdFromTagValue(value)
	assert.False(t, ok)

	// index wider than 4 bytes
	value = make([]byte, chainhash.HashSize+5)
	value[len(value)-1] = 0x01
	_, ok = NewInscriptionIdFromTagValue(value)
	assert.False(t, ok)
}

func TestInscriptionIdJSON(t *testing.T) {
	id := InscriptionId{
		TxHash: chainhash.Hash{0x01},
		Index:  5,
	}
	data, err := json.Marshal(id)
	require.NoError(t, err)

	var parsed InscriptionId
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, id, parsed)
}
