package usecase

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

func (u *Usecase) GetEventDeployByTick(ctx context.Context, tick string) (*entity.EventDeploy, error) {
	event, err := u.brc20Dg.GetEventDeployByTick(ctx, tick)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get deploy event by tick")
	}
	return event, nil
}

func (u *Usecase) GetEventMintsByTick(ctx context.Context, tick string) ([]*entity.EventMint, error) {
	events, err := u.brc20Dg.GetEventMintsByTick(ctx, tick)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get mint events by tick")
	}
	return events, nil
}

func (u *Usecase) GetEventTransferTransfersByTick(ctx context.Context, tick string) ([]*entity.EventTransferTransfer, error) {
	events, err := u.brc20Dg.GetEventTransferTransfersByTick(ctx, tick)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transfer events by tick")
	}
	return events, nil
}

func (u *Usecase) GetInscriptionIdsInOutPoint(ctx context.Context, outPoint wire.OutPoint) (map[ordinals.SatPoint][]ordinals.InscriptionId, error) {
	result, err := u.brc20Dg.GetInscriptionIdsInOutPoints(ctx, []wire.OutPoint{outPoint})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get inscription ids in outpoint")
	}
	return result, nil
}
