package httphandler

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"golang.org/x/sync/errgroup"
)

type getTickEventsRequest struct {
	Tick string `params:"tick"`
}

func (r getTickEventsRequest) Validate() error {
	if len(r.Tick) != 4 && len(r.Tick) != 5 {
		return errs.NewPublicError("'tick' must be 4 or 5 bytes")
	}
	return nil
}

type tickEvent struct {
	Type              string          `json:"type"`
	InscriptionId     string          `json:"inscriptionId"`
	InscriptionNumber int64           `json:"inscriptionNumber"`
	TxHash            string          `json:"txHash"`
	BlockHeight       uint64          `json:"blockHeight"`
	TxIndex           uint32          `json:"txIndex"`
	Timestamp         int64           `json:"timestamp"`
	Amount            decimal.Decimal `json:"amount"`
	FromAddress       string          `json:"fromAddress,omitempty"`
	ToAddress         string          `json:"toAddress,omitempty"`
	SpentAsFee        bool            `json:"spentAsFee,omitempty"`
}

type getTickEventsResult struct {
	Tick   string      `json:"tick"`
	Events []tickEvent `json:"events"`
}

type getTickEventsResponse = common.HttpResponse[getTickEventsResult]

func (h *HttpHandler) GetTickEvents(ctx *fiber.Ctx) (err error) {
	var req getTickEventsRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}
	tick := req.Tick

	var (
		deploy    *entity.EventDeploy
		mints     []*entity.EventMint
		transfers []*entity.EventTransferTransfer
	)
	group, groupCtx := errgroup.WithContext(ctx.UserContext())
	group.Go(func() error {
		var err error
		deploy, err = h.usecase.GetEventDeployByTick(groupCtx, tick)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				return errs.NewPublicError("token not found")
			}
			return errors.Wrap(err, "error during GetEventDeployByTick")
		}
		return nil
	})
	group.Go(func() error {
		var err error
		mints, err = h.usecase.GetEventMintsByTick(groupCtx, tick)
		if err != nil {
			return errors.Wrap(err, "error during GetEventMintsByTick")
		}
		return nil
	})
	group.Go(func() error {
		var err error
		transfers, err = h.usecase.GetEventTransferTransfersByTick(groupCtx, tick)
		if err != nil {
			return errors.Wrap(err, "error during GetEventTransferTransfersByTick")
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return errors.WithStack(err)
	}

	events := make([]tickEvent, 0, 1+len(mints)+len(transfers))
	events = append(events, tickEvent{
		Type:              "deploy",
		InscriptionId:     deploy.InscriptionId.String(),
		InscriptionNumber: deploy.InscriptionNumber,
		TxHash:            deploy.TxHash.String(),
		BlockHeight:       deploy.BlockHeight,
		TxIndex:           deploy.TxIndex,
		Timestamp:         deploy.Timestamp.Unix(),
		Amount:            deploy.TotalSupply,
		ToAddress:         addressFromPkScript(deploy.PkScript, h.network),
	})
	for _, mint := range mints {
		events = append(events, tickEvent{
			Type:              "mint",
			InscriptionId:     mint.InscriptionId.String(),
			InscriptionNumber: mint.InscriptionNumber,
			TxHash:            mint.TxHash.String(),
			BlockHeight:       mint.BlockHeight,
			TxIndex:           mint.TxIndex,
			Timestamp:         mint.Timestamp.Unix(),
			Amount:            mint.Amount,
			ToAddress:         addressFromPkScript(mint.PkScript, h.network),
		})
	}
	for _, transfer := range transfers {
		events = append(events, tickEvent{
			Type:              "transfer",
			InscriptionId:     transfer.InscriptionId.String(),
			InscriptionNumber: transfer.InscriptionNumber,
			TxHash:            transfer.TxHash.String(),
			BlockHeight:       transfer.BlockHeight,
			TxIndex:           transfer.TxIndex,
			Timestamp:         transfer.Timestamp.Unix(),
			Amount:            transfer.Amount,
			FromAddress:       addressFromPkScript(transfer.FromPkScript, h.network),
			ToAddress:         addressFromPkScript(transfer.ToPkScript, h.network),
			SpentAsFee:        transfer.SpentAsFee,
		})
	}
	slices.SortFunc(events, func(e1, e2 tickEvent) int {
		if e1.BlockHeight != e2.BlockHeight {
			if e1.BlockHeight < e2.BlockHeight {
				return -1
			}
			return 1
		}
		if e1.TxIndex != e2.TxIndex {
			if e1.TxIndex < e2.TxIndex {
				return -1
			}
			return 1
		}
		return strings.Compare(e1.Type, e2.Type)
	})

	resp := getTickEventsResponse{
		Result: &getTickEventsResult{
			Tick:   tick,
			Events: events,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
