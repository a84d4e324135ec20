package kv

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

// Table prefixes. Every key is prefix || fixed-width binary suffix so that
// prefix scans stay within one table and numeric suffixes sort correctly.
const (
	keyIndexerState = "meta/state"
	keyLatestHeight = "meta/latest_height"
	keyStats        = "meta/stats"

	prefixBlockHeader  = "blockheader/"
	prefixIndexedBlock = "indexedblock/"
	prefixUndoLog      = "undo/"

	prefixInscriptionById       = "inscription/id/"
	prefixInscriptionByNumber   = "inscription/number/"
	prefixInscriptionBySequence = "inscription/sequence/"
	prefixSatPoint              = "satpoint/"
	prefixTransfer              = "transfer/"

	prefixParents        = "parents/"
	prefixChildren       = "children/"
	prefixDelegate       = "delegate/"
	prefixDelegateSource = "delegatesrc/"

	prefixTick    = "tick/"
	prefixBalance = "balance/"

	prefixEventDeploy           = "events/deploy/"
	prefixEventMint             = "events/mint/"
	prefixEventInscribeTransfer = "events/inscribetransfer/"
	prefixEventTransferTransfer = "events/transfertransfer/"
	prefixEventProgramDeploy    = "events/programdeploy/"
	prefixEventProgramCall      = "events/programcall/"
	// inscribe-transfer events are also indexed by inscription id for the
	// settle phase lookup
	prefixInscribeTransferById = "events/inscribetransferbyid/"

	prefixOutPointValue = "outvalue/"

	prefixEVMAccount      = "evm/account/"
	prefixEVMStorage      = "evm/storage/"
	prefixEVMCode         = "evm/code/"
	prefixContractByInsc  = "evm/contract/byinsc/"
	prefixInscByContract  = "evm/contract/byaddr/"
)

func be64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func heightKey(prefix string, height uint64) []byte {
	return append([]byte(prefix), be64(height)...)
}

func inscriptionIdKey(prefix string, id ordinals.InscriptionId) []byte {
	key := make([]byte, 0, len(prefix)+chainhash.HashSize+4)
	key = append(key, prefix...)
	key = append(key, id.TxHash[:]...)
	key = binary.BigEndian.AppendUint32(key, id.Index)
	return key
}

// numberKey maps a signed display number to an order-preserving unsigned key.
func numberKey(number int64) []byte {
	return be64(uint64(number) + (1 << 63))
}

func outPointKey(prefix string, outPoint wire.OutPoint) []byte {
	key := make([]byte, 0, len(prefix)+chainhash.HashSize+4)
	key = append(key, prefix...)
	key = append(key, outPoint.Hash[:]...)
	key = binary.BigEndian.AppendUint32(key, outPoint.Index)
	return key
}

func satPointKey(satPoint ordinals.SatPoint) []byte {
	key := outPointKey(prefixSatPoint, satPoint.OutPoint)
	return binary.BigEndian.AppendUint64(key, satPoint.Offset)
}

// parseSatPointKey decodes a sat point list base key produced by satPointKey.
func parseSatPointKey(key []byte) (ordinals.SatPoint, bool) {
	suffix := key[len(prefixSatPoint):]
	if len(suffix) != chainhash.HashSize+4+8 {
		return ordinals.SatPoint{}, false
	}
	var hash chainhash.Hash
	copy(hash[:], suffix[:chainhash.HashSize])
	return ordinals.SatPoint{
		OutPoint: wire.OutPoint{
			Hash:  hash,
			Index: binary.BigEndian.Uint32(suffix[chainhash.HashSize : chainhash.HashSize+4]),
		},
		Offset: binary.BigEndian.Uint64(suffix[chainhash.HashSize+4:]),
	}, true
}

func addressKey(prefix string, address [20]byte) []byte {
	return append([]byte(prefix), address[:]...)
}

func storageKey(address [20]byte, slot [32]byte) []byte {
	key := make([]byte, 0, len(prefixEVMStorage)+20+32)
	key = append(key, prefixEVMStorage...)
	key = append(key, address[:]...)
	return append(key, slot[:]...)
}

func balanceKey(pkScript []byte, tick string) []byte {
	key := make([]byte, 0, len(prefixBalance)+len(pkScript)*2+1+len(tick))
	key = append(key, prefixBalance...)
	key = appendHex(key, pkScript)
	key = append(key, '/')
	return append(key, tick...)
}

func balancePrefix(pkScript []byte) []byte {
	key := make([]byte, 0, len(prefixBalance)+len(pkScript)*2+1)
	key = append(key, prefixBalance...)
	key = appendHex(key, pkScript)
	return append(key, '/')
}

const hexDigits = "0123456789abcdef"

func appendHex(dst, src []byte) []byte {
	for _, b := range src {
		dst = append(dst, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return dst
}
