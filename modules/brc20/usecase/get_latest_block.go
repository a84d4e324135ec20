package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/core/types"
)

func (u *Usecase) GetLatestBlock(ctx context.Context) (types.BlockHeader, error) {
	blockHeader, err := u.brc20Dg.GetLatestBlock(ctx)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "failed to get latest block")
	}
	return blockHeader, nil
}
