package httphandler

import (
	"slices"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

type getInscriptionsInOutPointRequest struct {
	Hash  string `params:"hash"`
	Index string `params:"index"`
}

type outPointInscriptions struct {
	SatPoint       string   `json:"satPoint"`
	InscriptionIds []string `json:"inscriptionIds"`
}

type getInscriptionsInOutPointResult struct {
	OutPoint string                 `json:"outPoint"`
	List     []outPointInscriptions `json:"list"`
}

type getInscriptionsInOutPointResponse = common.HttpResponse[getInscriptionsInOutPointResult]

func (h *HttpHandler) GetInscriptionsInOutPoint(ctx *fiber.Ctx) (err error) {
	var req getInscriptionsInOutPointRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}

	hash, err := chainhash.NewHashFromStr(req.Hash)
	if err != nil {
		return errs.NewPublicError("invalid transaction hash")
	}
	index, err := strconv.ParseUint(req.Index, 10, 32)
	if err != nil {
		return errs.NewPublicError("invalid output index")
	}
	outPoint := wire.OutPoint{Hash: *hash, Index: uint32(index)}

	idsBySatPoint, err := h.usecase.GetInscriptionIdsInOutPoint(ctx.UserContext(), outPoint)
	if err != nil {
		return errors.Wrap(err, "error during GetInscriptionIdsInOutPoint")
	}

	list := make([]outPointInscriptions, 0, len(idsBySatPoint))
	for satPoint, ids := range idsBySatPoint {
		list = append(list, outPointInscriptions{
			SatPoint: satPoint.String(),
			InscriptionIds: lo.Map(ids, func(id ordinals.InscriptionId, _ int) string {
				return id.String()
			}),
		})
	}
	slices.SortFunc(list, func(l1, l2 outPointInscriptions) int {
		return strings.Compare(l1.SatPoint, l2.SatPoint)
	})

	resp := getInscriptionsInOutPointResponse{
		Result: &getInscriptionsInOutPointResult{
			OutPoint: outPoint.String(),
			List:     list,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
