package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

type TickEntry struct {
	Tick                string
	OriginalTick        string
	TotalSupply         decimal.Decimal
	Decimals            uint16
	LimitPerMint        decimal.Decimal
	IsSelfMint          bool
	DeployInscriptionId ordinals.InscriptionId
	DeployedAt          time.Time
	DeployedAtHeight    uint64

	MintedAmount      decimal.Decimal
	BurnedAmount      decimal.Decimal
	CompletedAt       time.Time
	CompletedAtHeight uint64
}
