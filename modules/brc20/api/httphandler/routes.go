package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/v1/brc20")

	r.Get("/block", h.GetCurrentBlock)
	r.Get("/info/:tick", h.GetTokenInfo)
	r.Get("/holders/:tick", h.GetHolders)
	r.Get("/events/:tick", h.GetTickEvents)
	r.Get("/balances/wallet/:wallet", h.GetBalancesByAddress)
	r.Get("/inscriptions/outpoint/:hash/:index", h.GetInscriptionsInOutPoint)
	r.Get("/inscription/:id", h.GetInscription)
	r.Get("/inscription/:id/content", h.GetInscriptionContent)
	r.Get("/inscription/:id/parents", h.GetInscriptionParents)
	r.Get("/inscription/:id/children", h.GetInscriptionChildren)
	r.Get("/program/contract/:id", h.GetProgramContract)
	r.Get("/program/account/:address", h.GetProgramAccount)
	r.Get("/program/storage/:address/:slot", h.GetProgramStorage)
	return nil
}
