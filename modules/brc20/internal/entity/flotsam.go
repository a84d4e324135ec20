package entity

import (
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

type OriginOld struct {
	OldSatPoint ordinals.SatPoint
}

type OriginNew struct {
	Cursed         bool
	CursedForBRC20 bool
	Fee            uint64
	Hidden         bool
	Parents        []ordinals.InscriptionId
	Pointer        *uint64
	Reinscription  bool
	Unbound        bool
	Vindicated     bool
	Inscription    ordinals.Inscription
}

type Flotsam struct {
	Offset        uint64
	InscriptionId ordinals.InscriptionId
	Tx            *types.Transaction
	// SentAsFee marks a flotsam that rode a fee into the coinbase tx.
	SentAsFee bool
	OriginOld *OriginOld // OriginOld and OriginNew are mutually exclusive
	OriginNew *OriginNew // OriginOld and OriginNew are mutually exclusive
}
