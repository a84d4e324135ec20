package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
)

func (u *Usecase) GetTickEntryByTick(ctx context.Context, tick string) (*entity.TickEntry, error) {
	entry, err := u.brc20Dg.GetTickEntryByTick(ctx, tick)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tick entry by tick")
	}
	return entry, nil
}
