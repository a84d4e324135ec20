package entity

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/shopspring/decimal"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

type EventTransferTransfer struct {
	Id                uint64
	InscriptionId     ordinals.InscriptionId
	InscriptionNumber int64
	Tick              string
	OriginalTick      string
	TxHash            chainhash.Hash
	BlockHeight       uint64
	TxIndex           uint32
	Timestamp         time.Time

	FromPkScript   []byte
	FromSatPoint   ordinals.SatPoint
	FromInputIndex uint32
	ToPkScript     []byte
	ToSatPoint     ordinals.SatPoint
	ToOutputIndex  uint32
	Amount         decimal.Decimal

	// SpentAsFee marks a transfer inscription spent as transaction fee; the
	// amount settles back to the sender.
	SpentAsFee bool
}
