package httphandler

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
	"golang.org/x/sync/errgroup"
)

// resolveInscriptionEntry accepts an inscription id ("<txhash>i<index>") or an
// inscription number.
func (h *HttpHandler) resolveInscriptionEntry(ctx context.Context, id string) (*ordinals.InscriptionEntry, error) {
	if inscriptionId, err := ordinals.NewInscriptionIdFromString(id); err == nil {
		entry, err := h.usecase.GetInscriptionEntryById(ctx, inscriptionId)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return entry, nil
	}
	number, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, errs.NewPublicError("'id' is not a valid inscription id or number")
	}
	entry, err := h.usecase.GetInscriptionEntryByNumber(ctx, number)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return entry, nil
}

type getInscriptionResult struct {
	Id              string   `json:"id"`
	Number          int64    `json:"number"`
	SequenceNumber  uint64   `json:"sequenceNumber"`
	Cursed          bool     `json:"cursed"`
	Charms          []string `json:"charms"`
	ContentType     string   `json:"contentType"`
	ContentLength   int      `json:"contentLength"`
	Metaprotocol    string   `json:"metaprotocol,omitempty"`
	Delegate        *string  `json:"delegate,omitempty"`
	Parents         []string `json:"parents,omitempty"`
	CreatedAt       int64    `json:"createdAt"`
	CreatedAtHeight uint64   `json:"createdAtHeight"`
	TransferCount   uint32   `json:"transferCount"`
}

type getInscriptionResponse = common.HttpResponse[getInscriptionResult]

func (h *HttpHandler) GetInscription(ctx *fiber.Ctx) (err error) {
	entry, err := h.resolveInscriptionEntry(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("inscription not found")
		}
		return errors.Wrap(err, "error during resolveInscriptionEntry")
	}

	group, groupctx := errgroup.WithContext(ctx.UserContext())
	var (
		parents  []ordinals.InscriptionId
		delegate *ordinals.InscriptionId
	)
	group.Go(func() error {
		var err error
		parents, err = h.usecase.GetInscriptionParents(groupctx, entry.Id)
		if err != nil {
			return errors.Wrap(err, "error during GetInscriptionParents")
		}
		return nil
	})
	group.Go(func() error {
		var err error
		delegate, err = h.usecase.GetInscriptionDelegate(groupctx, entry.Id)
		if err != nil {
			return errors.Wrap(err, "error during GetInscriptionDelegate")
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return errors.WithStack(err)
	}

	result := getInscriptionResult{
		Id:              entry.Id.String(),
		Number:          entry.Number,
		SequenceNumber:  entry.SequenceNumber,
		Cursed:          entry.Cursed,
		Charms:          entry.Charms.Names(),
		ContentType:     entry.Inscription.ContentType,
		ContentLength:   len(entry.Inscription.Content),
		Metaprotocol:    entry.Inscription.Metaprotocol,
		CreatedAt:       entry.CreatedAt.Unix(),
		CreatedAtHeight: entry.CreatedAtHeight,
		TransferCount:   entry.TransferCount,
	}
	if delegate != nil {
		id := delegate.String()
		result.Delegate = &id
	}
	for _, parent := range parents {
		result.Parents = append(result.Parents, parent.String())
	}

	return errors.WithStack(ctx.JSON(getInscriptionResponse{Result: &result}))
}
