package httphandler

import (
	"encoding/hex"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/common/errs"
)

type getHoldersRequest struct {
	Tick string `params:"tick"`
}

func (r getHoldersRequest) Validate() error {
	if len(r.Tick) != 4 && len(r.Tick) != 5 {
		return errs.NewPublicError("'tick' must be 4 or 5 bytes")
	}
	return nil
}

type holder struct {
	Address          string          `json:"address"`
	PkScript         string          `json:"pkScript"`
	OverallBalance   decimal.Decimal `json:"overallBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	BlockHeight      uint64          `json:"blockHeight"`
}

type getHoldersResult struct {
	List []holder `json:"list"`
}

type getHoldersResponse = common.HttpResponse[getHoldersResult]

func (h *HttpHandler) GetHolders(ctx *fiber.Ctx) (err error) {
	var req getHoldersRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}
	tick := req.Tick

	if _, err := h.usecase.GetTickEntryByTick(ctx.UserContext(), tick); err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("token not found")
		}
		return errors.Wrap(err, "error during GetTickEntryByTick")
	}

	balances, err := h.usecase.GetBalancesByTick(ctx.UserContext(), tick)
	if err != nil {
		return errors.Wrap(err, "error during GetBalancesByTick")
	}

	holders := make([]holder, 0, len(balances))
	for _, b := range balances {
		if b.OverallBalance.IsZero() {
			continue
		}
		holders = append(holders, holder{
			Address:          addressFromPkScript(b.PkScript, h.network),
			PkScript:         hex.EncodeToString(b.PkScript),
			OverallBalance:   b.OverallBalance,
			AvailableBalance: b.AvailableBalance,
			BlockHeight:      b.BlockHeight,
		})
	}
	slices.SortFunc(holders, func(h1, h2 holder) int {
		if cmp := h2.OverallBalance.Cmp(h1.OverallBalance); cmp != 0 {
			return cmp
		}
		return strings.Compare(h1.PkScript, h2.PkScript)
	})

	resp := getHoldersResponse{
		Result: &getHoldersResult{
			List: holders,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
