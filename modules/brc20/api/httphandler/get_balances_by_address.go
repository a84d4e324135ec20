package httphandler

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/common/errs"
)

type getBalancesByAddressRequest struct {
	Wallet string `params:"wallet"`
	Tick   string `query:"tick"`
}

func (r getBalancesByAddressRequest) Validate() error {
	var errList []error
	if r.Wallet == "" {
		errList = append(errList, errors.New("'wallet' is required"))
	}
	if r.Tick != "" && len(r.Tick) != 4 && len(r.Tick) != 5 {
		errList = append(errList, errors.New("'tick' must be 4 or 5 bytes"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type balance struct {
	Tick             string          `json:"tick"`
	OverallBalance   decimal.Decimal `json:"overallBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	BlockHeight      uint64          `json:"blockHeight"`
}

type getBalancesByAddressResult struct {
	List []balance `json:"list"`
}

type getBalancesByAddressResponse = common.HttpResponse[getBalancesByAddressResult]

func (h *HttpHandler) GetBalancesByAddress(ctx *fiber.Ctx) (err error) {
	var req getBalancesByAddressRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	pkScript, ok := resolvePkScript(h.network, req.Wallet)
	if !ok {
		return errs.NewPublicError("unable to resolve pkscript from \"wallet\"")
	}

	balances, err := h.usecase.GetBalancesByPkScript(ctx.UserContext(), pkScript)
	if err != nil {
		return errors.Wrap(err, "error during GetBalancesByPkScript")
	}
	if req.Tick != "" {
		for key := range balances {
			if key != req.Tick {
				delete(balances, key)
			}
		}
	}

	balanceList := make([]balance, 0, len(balances))
	for tick, b := range balances {
		balanceList = append(balanceList, balance{
			Tick:             tick,
			OverallBalance:   b.OverallBalance,
			AvailableBalance: b.AvailableBalance,
			BlockHeight:      b.BlockHeight,
		})
	}
	slices.SortFunc(balanceList, func(b1, b2 balance) int {
		return strings.Compare(b1.Tick, b2.Tick)
	})

	resp := getBalancesByAddressResponse{
		Result: &getBalancesByAddressResult{
			List: balanceList,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
