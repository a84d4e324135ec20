package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/subfrost/brc20shrew/common/errs"
)

func (h *HttpHandler) GetInscriptionContent(ctx *fiber.Ctx) (err error) {
	entry, err := h.resolveInscriptionEntry(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("inscription not found")
		}
		return errors.Wrap(err, "error during resolveInscriptionEntry")
	}

	inscription, err := h.usecase.GetInscriptionContent(ctx.UserContext(), entry.Id)
	if err != nil {
		return errors.Wrap(err, "error during GetInscriptionContent")
	}

	if inscription.ContentType != "" {
		ctx.Set(fiber.HeaderContentType, inscription.ContentType)
	}
	return errors.WithStack(ctx.Send(inscription.Content))
}
