package ordinals

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
)

type InscriptionId struct {
	TxHash chainhash.Hash
	Index  uint32
}

func (i InscriptionId) String() string {
	return fmt.Sprintf("%si%d", i.TxHash.String(), i.Index)
}

func NewInscriptionId(txHash chainhash.Hash, index uint32) InscriptionId {
	return InscriptionId{
		TxHash: txHash,
		Index:  index,
	}
}

var ErrInscriptionIdInvalidSeparator = fmt.Errorf("invalid inscription id: must contain exactly one separator")

func NewInscriptionIdFromString(s string) (InscriptionId, error) {
	parts := strings.SplitN(s, "i", 2)
	if len(parts) != 2 {
		return InscriptionId{}, errors.WithStack(ErrInscriptionIdInvalidSeparator)
	}
	txHash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return InscriptionId{}, errors.Wrap(err, "invalid inscription id: cannot parse txHash")
	}
	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return InscriptionId{}, errors.Wrap(err, "invalid inscription id: cannot parse index")
	}
	return InscriptionId{
		TxHash: *txHash,
		Index:  uint32(index),
	}, nil
}

// NewInscriptionIdFromTagValue decodes the envelope field encoding of an
// inscription id: 32 txid bytes followed by the index as little-endian bytes
// with trailing zero bytes trimmed. Returns false for malformed values;
// malformed references are dropped, not errors.
func NewInscriptionIdFromTagValue(value []byte) (InscriptionId, bool) {
	if len(value) < chainhash.HashSize || len(value) > chainhash.HashSize+4 {
		return InscriptionId{}, false
	}
	indexBytes := value[chainhash.HashSize:]
	// trailing zero bytes are non-canonical
	if len(indexBytes) > 0 && indexBytes[len(indexBytes)-1] == 0 {
		return InscriptionId{}, false
	}
	var index uint32
	for i := len(indexBytes) - 1; i >= 0; i-- {
		index = index<<8 | uint32(indexBytes[i])
	}
	var txHash chainhash.Hash
	copy(txHash[:], value[:chainhash.HashSize])
	return InscriptionId{
		TxHash: txHash,
		Index:  index,
	}, true
}

// TagValue encodes the inscription id in envelope field encoding, the inverse
// of NewInscriptionIdFromTagValue.
func (i InscriptionId) TagValue() []byte {
	value := make([]byte, 0, chainhash.HashSize+4)
	value = append(value, i.TxHash[:]...)
	index := i.Index
	for index > 0 {
		value = append(value, byte(index))
		index >>= 8
	}
	return value
}

// MarshalJSON implements json.Marshaler
func (i InscriptionId) MarshalJSON() ([]byte, error) {
	return []byte(`"` + i.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (i *InscriptionId) UnmarshalJSON(data []byte) error {
	// data must be quoted
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("must be string")
	}
	data = data[1 : len(data)-1]
	parsed, err := NewInscriptionIdFromString(string(data))
	if err != nil {
		return errors.WithStack(err)
	}
	*i = parsed
	return nil
}
