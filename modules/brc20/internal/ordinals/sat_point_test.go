package ordinals

import (
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSatPointRoundTrip(t *testing.T) {
	satPoint := SatPoint{
		OutPoint: wire.OutPoint{
			Hash:  chainhash.Hash{0x02},
			Index: 1,
		},
		Offset: 546,
	}
	parsed, err := NewSatPointFromString(satPoint.String())
	require.NoError(t, err)
	assert.Equal(t, satPoint, parsed)
}

func TestSatPointInvalid(t *testing.T) {
	_, err := NewSatPointFromString("deadbeef:0")
	assert.ErrorIs(t, err, ErrSatPointInvalidSeparator)
}

func TestSatPointJSON(t *testing.T) {
	satPoint := SatPoint{
		OutPoint: wire.OutPoint{
			Hash:  chainhash.Hash{0x03},
			Index: 2,
		},
		Offset: 0,
	}
	data, err := json.Marshal(satPoint)
	require.NoError(t, err)

	var parsed SatPoint
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, satPoint, parsed)
}
