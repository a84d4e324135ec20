package entity

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

// EventProgramDeploy records a contract deployment inscription, successful or
// rejected.
type EventProgramDeploy struct {
	Id                uint64
	InscriptionId     ordinals.InscriptionId
	InscriptionNumber int64
	TxHash            chainhash.Hash
	BlockHeight       uint64
	TxIndex           uint32
	Timestamp         time.Time

	PkScript        []byte
	Sender          [20]byte
	ContractAddress [20]byte
	Success         bool
	GasUsed         uint64
	RevertReason    string
}
