package kv

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
	"github.com/subfrost/brc20shrew/pkg/kv"
)

func (r *Repository) GetLatestBlock(_ context.Context) (types.BlockHeader, error) {
	raw, err := r.store.Get([]byte(keyLatestHeight))
	if err != nil {
		return types.BlockHeader{}, errors.WithStack(err)
	}
	if len(raw) != 8 {
		return types.BlockHeader{}, errors.Wrap(errs.InternalError, "malformed latest height")
	}
	height := binary.BigEndian.Uint64(raw)

	var model blockHeaderModel
	if err := r.getJSON(heightKey(prefixBlockHeader, height), &model); err != nil {
		return types.BlockHeader{}, errors.WithStack(err)
	}
	return mapBlockHeaderModelToType(model)
}

func (r *Repository) GetIndexedBlockByHeight(_ context.Context, height int64) (*entity.IndexedBlock, error) {
	if height < 0 {
		return nil, errors.Wrap(errs.NotFound, "height is negative")
	}
	var model indexedBlockModel
	if err := r.getJSON(heightKey(prefixIndexedBlock, uint64(height)), &model); err != nil {
		return nil, errors.WithStack(err)
	}
	return mapIndexedBlockModelToType(model)
}

func (r *Repository) GetProcessorStats(_ context.Context) (*entity.ProcessorStats, error) {
	var model processorStatsModel
	if err := r.getJSON([]byte(keyStats), &model); err != nil {
		return nil, errors.WithStack(err)
	}
	return mapProcessorStatsModelToType(model), nil
}

func (r *Repository) GetInscriptionEntryById(_ context.Context, id ordinals.InscriptionId) (*ordinals.InscriptionEntry, error) {
	var model inscriptionEntryModel
	if err := r.getJSON(inscriptionIdKey(prefixInscriptionById, id), &model); err != nil {
		return nil, errors.WithStack(err)
	}
	return mapInscriptionEntryModelToType(model)
}

func (r *Repository) GetInscriptionEntriesByIds(ctx context.Context, ids []ordinals.InscriptionId) (map[ordinals.InscriptionId]*ordinals.InscriptionEntry, error) {
	entries := make(map[ordinals.InscriptionId]*ordinals.InscriptionEntry)
	for _, id := range ids {
		entry, err := r.GetInscriptionEntryById(ctx, id)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				continue
			}
			return nil, errors.WithStack(err)
		}
		entries[id] = entry
	}
	return entries, nil
}

func (r *Repository) GetInscriptionEntryByNumber(ctx context.Context, number int64) (*ordinals.InscriptionEntry, error) {
	key := append([]byte(prefixInscriptionByNumber), numberKey(number)...)
	raw, err := r.store.Get(key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	id, ok := ordinals.NewInscriptionIdFromTagValue(raw)
	if !ok {
		return nil, errors.Wrap(errs.InternalError, "malformed inscription id in number index")
	}
	return r.GetInscriptionEntryById(ctx, id)
}

func (r *Repository) GetInscriptionEntryBySequence(ctx context.Context, sequence uint64) (*ordinals.InscriptionEntry, error) {
	key := heightKey(prefixInscriptionBySequence, sequence)
	raw, err := r.store.Get(key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	id, ok := ordinals.NewInscriptionIdFromTagValue(raw)
	if !ok {
		return nil, errors.Wrap(errs.InternalError, "malformed inscription id in sequence index")
	}
	return r.GetInscriptionEntryById(ctx, id)
}

func (r *Repository) GetInscriptionIdsInOutPoints(_ context.Context, outPoints []wire.OutPoint) (map[ordinals.SatPoint][]ordinals.InscriptionId, error) {
	result := make(map[ordinals.SatPoint][]ordinals.InscriptionId)
	for _, outPoint := range outPoints {
		prefix := outPointKey(prefixSatPoint, outPoint)
		baseLen := len(prefix) + 8
		err := r.store.Iterate(prefix, func(key, value []byte) (bool, error) {
			// skip list length counters; entries carry a "/<index>" suffix
			if len(key) == baseLen {
				return true, nil
			}
			satPoint, ok := parseSatPointKey(key[:baseLen])
			if !ok {
				return false, errors.Wrap(errs.InternalError, "malformed sat point key")
			}
			id, ok := ordinals.NewInscriptionIdFromTagValue(value)
			if !ok {
				return false, errors.Wrap(errs.InternalError, "malformed inscription id in sat point index")
			}
			result[satPoint] = append(result[satPoint], id)
			return true, nil
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return result, nil
}

func (r *Repository) getInscriptionIdList(key []byte) ([]ordinals.InscriptionId, error) {
	values, err := kv.GetList(r.store, key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ids := make([]ordinals.InscriptionId, 0, len(values))
	for _, value := range values {
		id, ok := ordinals.NewInscriptionIdFromTagValue(value)
		if !ok {
			return nil, errors.Wrap(errs.InternalError, "malformed inscription id in relation index")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Repository) GetInscriptionParents(_ context.Context, id ordinals.InscriptionId) ([]ordinals.InscriptionId, error) {
	return r.getInscriptionIdList(inscriptionIdKey(prefixParents, id))
}

func (r *Repository) GetInscriptionChildren(_ context.Context, id ordinals.InscriptionId) ([]ordinals.InscriptionId, error) {
	return r.getInscriptionIdList(inscriptionIdKey(prefixChildren, id))
}

func (r *Repository) GetDelegateSources(_ context.Context, id ordinals.InscriptionId) ([]ordinals.InscriptionId, error) {
	return r.getInscriptionIdList(inscriptionIdKey(prefixDelegateSource, id))
}

// GetInscriptionDelegate returns the validated delegate target of source.
func (r *Repository) GetInscriptionDelegate(_ context.Context, source ordinals.InscriptionId) (ordinals.InscriptionId, error) {
	raw, err := r.store.Get(inscriptionIdKey(prefixDelegate, source))
	if err != nil {
		return ordinals.InscriptionId{}, errors.WithStack(err)
	}
	id, ok := ordinals.NewInscriptionIdFromTagValue(raw)
	if !ok {
		return ordinals.InscriptionId{}, errors.Wrap(errs.InternalError, "malformed delegate link")
	}
	return id, nil
}

func (r *Repository) GetTickEntryByTick(_ context.Context, tick string) (*entity.TickEntry, error) {
	var model tickEntryModel
	if err := r.getJSON(append([]byte(prefixTick), tick...), &model); err != nil {
		return nil, errors.WithStack(err)
	}
	return mapTickEntryModelToType(model)
}

func (r *Repository) GetTickEntriesByTicks(ctx context.Context, ticks []string) (map[string]*entity.TickEntry, error) {
	entries := make(map[string]*entity.TickEntry)
	for _, tick := range ticks {
		entry, err := r.GetTickEntryByTick(ctx, tick)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				continue
			}
			return nil, errors.WithStack(err)
		}
		entries[tick] = entry
	}
	return entries, nil
}

func (r *Repository) GetBalance(_ context.Context, pkScript []byte, tick string) (*entity.Balance, error) {
	var model balanceModel
	if err := r.getJSON(balanceKey(pkScript, tick), &model); err != nil {
		return nil, errors.WithStack(err)
	}
	return mapBalanceModelToType(model)
}

func (r *Repository) GetBalancesByPkScript(_ context.Context, pkScript []byte) (map[string]*entity.Balance, error) {
	balances := make(map[string]*entity.Balance)
	err := r.store.Iterate(balancePrefix(pkScript), func(_, value []byte) (bool, error) {
		var model balanceModel
		if err := unmarshalJSON(value, &model); err != nil {
			return false, errors.WithStack(err)
		}
		balance, err := mapBalanceModelToType(model)
		if err != nil {
			return false, errors.WithStack(err)
		}
		balances[balance.Tick] = balance
		return true, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return balances, nil
}

// GetBalancesByTick scans the whole balance table; the query surface accepts
// the full-table cost, the processor never calls this.
func (r *Repository) GetBalancesByTick(_ context.Context, tick string) ([]*entity.Balance, error) {
	suffix := []byte("/" + tick)
	balances := make([]*entity.Balance, 0)
	err := r.store.Iterate([]byte(prefixBalance), func(key, value []byte) (bool, error) {
		if !bytes.HasSuffix(key, suffix) {
			return true, nil
		}
		var model balanceModel
		if err := unmarshalJSON(value, &model); err != nil {
			return false, errors.WithStack(err)
		}
		balance, err := mapBalanceModelToType(model)
		if err != nil {
			return false, errors.WithStack(err)
		}
		balances = append(balances, balance)
		return true, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return balances, nil
}

func (r *Repository) GetEventDeployByTick(_ context.Context, tick string) (*entity.EventDeploy, error) {
	var deploy *entity.EventDeploy
	err := r.store.Iterate([]byte(prefixEventDeploy), func(_, value []byte) (bool, error) {
		var model eventDeployModel
		if err := unmarshalJSON(value, &model); err != nil {
			return false, errors.WithStack(err)
		}
		if model.Tick != tick {
			return true, nil
		}
		event, err := mapEventDeployModelToType(model)
		if err != nil {
			return false, errors.WithStack(err)
		}
		deploy = event
		return false, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if deploy == nil {
		return nil, errors.Wrapf(errs.NotFound, "no deploy event for tick %q", tick)
	}
	return deploy, nil
}

func (r *Repository) GetEventMintsByTick(_ context.Context, tick string) ([]*entity.EventMint, error) {
	mints := make([]*entity.EventMint, 0)
	err := r.store.Iterate([]byte(prefixEventMint), func(_, value []byte) (bool, error) {
		var model eventMintModel
		if err := unmarshalJSON(value, &model); err != nil {
			return false, errors.WithStack(err)
		}
		if model.Tick != tick {
			return true, nil
		}
		event, err := mapEventMintModelToType(model)
		if err != nil {
			return false, errors.WithStack(err)
		}
		mints = append(mints, event)
		return true, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return mints, nil
}

func (r *Repository) GetEventTransferTransfersByTick(_ context.Context, tick string) ([]*entity.EventTransferTransfer, error) {
	transfers := make([]*entity.EventTransferTransfer, 0)
	err := r.store.Iterate([]byte(prefixEventTransferTransfer), func(_, value []byte) (bool, error) {
		var model eventTransferTransferModel
		if err := unmarshalJSON(value, &model); err != nil {
			return false, errors.WithStack(err)
		}
		if model.Tick != tick {
			return true, nil
		}
		event, err := mapEventTransferTransferModelToType(model)
		if err != nil {
			return false, errors.WithStack(err)
		}
		transfers = append(transfers, event)
		return true, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return transfers, nil
}

func (r *Repository) GetEventInscribeTransferByInscriptionId(_ context.Context, id ordinals.InscriptionId) (*entity.EventInscribeTransfer, error) {
	var model eventInscribeTransferModel
	if err := r.getJSON(inscriptionIdKey(prefixInscribeTransferById, id), &model); err != nil {
		return nil, errors.WithStack(err)
	}
	return mapEventInscribeTransferModelToType(model)
}

func (r *Repository) GetOutPointValues(_ context.Context, outPoints []wire.OutPoint) (map[wire.OutPoint]uint64, error) {
	values := make(map[wire.OutPoint]uint64)
	for _, outPoint := range outPoints {
		raw, err := r.store.Get(outPointKey(prefixOutPointValue, outPoint))
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				continue
			}
			return nil, errors.WithStack(err)
		}
		if len(raw) != 8 {
			return nil, errors.Wrap(errs.InternalError, "malformed outpoint value")
		}
		values[outPoint] = binary.BigEndian.Uint64(raw)
	}
	return values, nil
}
