package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/common/errs"
)

type getTokenInfoRequest struct {
	Tick string `params:"tick"`
}

func (r getTokenInfoRequest) Validate() error {
	if len(r.Tick) != 4 && len(r.Tick) != 5 {
		return errs.NewPublicError("'tick' must be 4 or 5 bytes")
	}
	return nil
}

type getTokenInfoResult struct {
	Tick                string          `json:"tick"`
	OriginalTick        string          `json:"originalTick"`
	TotalSupply         decimal.Decimal `json:"totalSupply"`
	Decimals            uint16          `json:"decimals"`
	LimitPerMint        decimal.Decimal `json:"limitPerMint"`
	IsSelfMint          bool            `json:"isSelfMint"`
	DeployInscriptionId string          `json:"deployInscriptionId"`
	DeployedAt          int64           `json:"deployedAt"`
	DeployedAtHeight    uint64          `json:"deployedAtHeight"`
	MintedAmount        decimal.Decimal `json:"mintedAmount"`
	BurnedAmount        decimal.Decimal `json:"burnedAmount"`
	CompletedAt         *int64          `json:"completedAt,omitempty"`
	CompletedAtHeight   *uint64         `json:"completedAtHeight,omitempty"`
}

type getTokenInfoResponse = common.HttpResponse[getTokenInfoResult]

func (h *HttpHandler) GetTokenInfo(ctx *fiber.Ctx) (err error) {
	var req getTokenInfoRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	entry, err := h.usecase.GetTickEntryByTick(ctx.UserContext(), req.Tick)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("token not found")
		}
		return errors.Wrap(err, "error during GetTickEntryByTick")
	}

	result := getTokenInfoResult{
		Tick:                entry.Tick,
		OriginalTick:        entry.OriginalTick,
		TotalSupply:         entry.TotalSupply,
		Decimals:            entry.Decimals,
		LimitPerMint:        entry.LimitPerMint,
		IsSelfMint:          entry.IsSelfMint,
		DeployInscriptionId: entry.DeployInscriptionId.String(),
		DeployedAt:          entry.DeployedAt.Unix(),
		DeployedAtHeight:    entry.DeployedAtHeight,
		MintedAmount:        entry.MintedAmount,
		BurnedAmount:        entry.BurnedAmount,
	}
	if entry.CompletedAtHeight != 0 {
		completedAt := entry.CompletedAt.Unix()
		result.CompletedAt = &completedAt
		completedAtHeight := entry.CompletedAtHeight
		result.CompletedAtHeight = &completedAtHeight
	}

	return errors.WithStack(ctx.JSON(getTokenInfoResponse{Result: &result}))
}
