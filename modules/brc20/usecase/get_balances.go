package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
)

func (u *Usecase) GetBalancesByPkScript(ctx context.Context, pkScript []byte) (map[string]*entity.Balance, error) {
	balances, err := u.brc20Dg.GetBalancesByPkScript(ctx, pkScript)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balances by pk script")
	}
	return balances, nil
}

func (u *Usecase) GetBalance(ctx context.Context, pkScript []byte, tick string) (*entity.Balance, error) {
	balance, err := u.brc20Dg.GetBalance(ctx, pkScript, tick)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	return balance, nil
}

// GetBalancesByTick returns every balance row of a tick, zero rows included.
func (u *Usecase) GetBalancesByTick(ctx context.Context, tick string) ([]*entity.Balance, error) {
	balances, err := u.brc20Dg.GetBalancesByTick(ctx, tick)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balances by tick")
	}
	return balances, nil
}
