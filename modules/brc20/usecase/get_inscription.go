package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

func (u *Usecase) GetInscriptionEntryById(ctx context.Context, id ordinals.InscriptionId) (*ordinals.InscriptionEntry, error) {
	entry, err := u.brc20Dg.GetInscriptionEntryById(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get inscription entry by id")
	}
	return entry, nil
}

func (u *Usecase) GetInscriptionEntryByNumber(ctx context.Context, number int64) (*ordinals.InscriptionEntry, error) {
	entry, err := u.brc20Dg.GetInscriptionEntryByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get inscription entry by number")
	}
	return entry, nil
}

// GetInscriptionContent resolves the effective content of an inscription. A
// validated delegate link is followed exactly one hop; the target's own
// delegate is ignored.
func (u *Usecase) GetInscriptionContent(ctx context.Context, id ordinals.InscriptionId) (*ordinals.Inscription, error) {
	entry, err := u.brc20Dg.GetInscriptionEntryById(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get inscription entry by id")
	}

	delegate, err := u.brc20Dg.GetInscriptionDelegate(ctx, id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return &entry.Inscription, nil
		}
		return nil, errors.Wrap(err, "failed to get inscription delegate")
	}
	delegateEntry, err := u.brc20Dg.GetInscriptionEntryById(ctx, delegate)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delegate target entry")
	}
	return &delegateEntry.Inscription, nil
}

// GetInscriptionDelegate returns the validated delegate target of id, or nil
// if the inscription has no valid delegate link.
func (u *Usecase) GetInscriptionDelegate(ctx context.Context, id ordinals.InscriptionId) (*ordinals.InscriptionId, error) {
	delegate, err := u.brc20Dg.GetInscriptionDelegate(ctx, id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get inscription delegate")
	}
	return &delegate, nil
}

func (u *Usecase) GetInscriptionParents(ctx context.Context, id ordinals.InscriptionId) ([]ordinals.InscriptionId, error) {
	parents, err := u.brc20Dg.GetInscriptionParents(ctx, id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get inscription parents")
	}
	return parents, nil
}

func (u *Usecase) GetInscriptionChildren(ctx context.Context, id ordinals.InscriptionId) ([]ordinals.InscriptionId, error) {
	children, err := u.brc20Dg.GetInscriptionChildren(ctx, id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get inscription children")
	}
	return children, nil
}
