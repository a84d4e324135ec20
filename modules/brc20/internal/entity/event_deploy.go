package entity

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/shopspring/decimal"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

type EventDeploy struct {
	Id                uint64
	InscriptionId     ordinals.InscriptionId
	InscriptionNumber int64
	Tick              string
	OriginalTick      string
	TxHash            chainhash.Hash
	BlockHeight       uint64
	TxIndex           uint32
	Timestamp         time.Time

	PkScript     []byte
	SatPoint     ordinals.SatPoint
	TotalSupply  decimal.Decimal
	Decimals     uint16
	LimitPerMint decimal.Decimal
	IsSelfMint   bool
}
