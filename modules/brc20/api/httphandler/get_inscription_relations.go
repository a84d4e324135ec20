package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

type getInscriptionRelationsResult struct {
	Id   string   `json:"id"`
	List []string `json:"list"`
}

type getInscriptionRelationsResponse = common.HttpResponse[getInscriptionRelationsResult]

func (h *HttpHandler) GetInscriptionParents(ctx *fiber.Ctx) (err error) {
	entry, err := h.resolveInscriptionEntry(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("inscription not found")
		}
		return errors.Wrap(err, "error during resolveInscriptionEntry")
	}

	parents, err := h.usecase.GetInscriptionParents(ctx.UserContext(), entry.Id)
	if err != nil {
		return errors.Wrap(err, "error during GetInscriptionParents")
	}
	return errors.WithStack(ctx.JSON(newRelationsResponse(entry.Id, parents)))
}

func (h *HttpHandler) GetInscriptionChildren(ctx *fiber.Ctx) (err error) {
	entry, err := h.resolveInscriptionEntry(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("inscription not found")
		}
		return errors.Wrap(err, "error during resolveInscriptionEntry")
	}

	children, err := h.usecase.GetInscriptionChildren(ctx.UserContext(), entry.Id)
	if err != nil {
		return errors.Wrap(err, "error during GetInscriptionChildren")
	}
	return errors.WithStack(ctx.JSON(newRelationsResponse(entry.Id, children)))
}

func newRelationsResponse(id ordinals.InscriptionId, relations []ordinals.InscriptionId) getInscriptionRelationsResponse {
	return getInscriptionRelationsResponse{
		Result: &getInscriptionRelationsResult{
			Id: id.String(),
			List: lo.Map(relations, func(item ordinals.InscriptionId, _ int) string {
				return item.String()
			}),
		},
	}
}
