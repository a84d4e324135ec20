package kv

import (
	"context"
	"encoding/binary"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
	"github.com/subfrost/brc20shrew/pkg/kv"
)

func (r *Repository) SetLatestBlock(_ context.Context, header types.BlockHeader) error {
	if err := r.putJSON(heightKey(prefixBlockHeader, uint64(header.Height)), mapBlockHeaderToModel(header)); err != nil {
		return errors.WithStack(err)
	}
	return r.put([]byte(keyLatestHeight), be64(uint64(header.Height)))
}

func (r *Repository) CreateIndexedBlock(_ context.Context, block *entity.IndexedBlock) error {
	// the undo log for this transaction is filed under this block's height
	r.txHeight = lo.ToPtr(block.Height)
	return r.putJSON(heightKey(prefixIndexedBlock, block.Height), mapIndexedBlockToModel(block))
}

func (r *Repository) CreateProcessorStats(_ context.Context, stats *entity.ProcessorStats) error {
	return r.putJSON([]byte(keyStats), mapProcessorStatsToModel(stats))
}

func (r *Repository) CreateInscriptionEntries(_ context.Context, blockHeight uint64, entries []*ordinals.InscriptionEntry) error {
	for _, entry := range entries {
		if err := r.putJSON(inscriptionIdKey(prefixInscriptionById, entry.Id), mapInscriptionEntryToModel(entry)); err != nil {
			return errors.WithStack(err)
		}
		numberIndexKey := append([]byte(prefixInscriptionByNumber), numberKey(entry.Number)...)
		if err := r.put(numberIndexKey, entry.Id.TagValue()); err != nil {
			return errors.WithStack(err)
		}
		if err := r.put(heightKey(prefixInscriptionBySequence, entry.SequenceNumber), entry.Id.TagValue()); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (r *Repository) CreateInscriptionEntryStates(_ context.Context, blockHeight uint64, entryStates []*ordinals.InscriptionEntry) error {
	for _, entry := range entryStates {
		if err := r.putJSON(inscriptionIdKey(prefixInscriptionById, entry.Id), mapInscriptionEntryToModel(entry)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (r *Repository) CreateInscriptionTransfers(_ context.Context, transfers []*entity.InscriptionTransfer) error {
	for _, transfer := range transfers {
		key := inscriptionIdKey(prefixTransfer, transfer.InscriptionId)
		key = binary.BigEndian.AppendUint32(key, transfer.TransferCount)
		if err := r.putJSON(key, mapInscriptionTransferToModel(transfer)); err != nil {
			return errors.WithStack(err)
		}
		if err := r.relocateSatPoint(transfer.InscriptionId, transfer.OldSatPoint, transfer.NewSatPoint); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// relocateSatPoint removes the inscription from its old sat point list and
// appends it to the new one. A zero-hash old sat point marks a freshly
// created inscription with no prior location.
func (r *Repository) relocateSatPoint(id ordinals.InscriptionId, oldSatPoint, newSatPoint ordinals.SatPoint) error {
	zeroOutPoint := wire.OutPoint{}
	if oldSatPoint.OutPoint != zeroOutPoint {
		oldKey := satPointKey(oldSatPoint)
		ids, err := r.getInscriptionIdList(oldKey)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := r.deleteList(oldKey); err != nil {
			return errors.WithStack(err)
		}
		for _, existing := range ids {
			if existing == id {
				continue
			}
			if err := kv.AppendList(r.journaled(), oldKey, existing.TagValue()); err != nil {
				return errors.WithStack(err)
			}
		}
	}
	return errors.WithStack(kv.AppendList(r.journaled(), satPointKey(newSatPoint), id.TagValue()))
}

func (r *Repository) CreateInscriptionParents(_ context.Context, blockHeight uint64, child ordinals.InscriptionId, parents []ordinals.InscriptionId) error {
	for _, parent := range parents {
		if err := kv.AppendList(r.journaled(), inscriptionIdKey(prefixParents, child), parent.TagValue()); err != nil {
			return errors.WithStack(err)
		}
		if err := kv.AppendList(r.journaled(), inscriptionIdKey(prefixChildren, parent), child.TagValue()); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (r *Repository) CreateInscriptionDelegate(_ context.Context, blockHeight uint64, source ordinals.InscriptionId, delegate ordinals.InscriptionId) error {
	if err := r.put(inscriptionIdKey(prefixDelegate, source), delegate.TagValue()); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(kv.AppendList(r.journaled(), inscriptionIdKey(prefixDelegateSource, delegate), source.TagValue()))
}

func (r *Repository) CreateTickEntries(_ context.Context, blockHeight uint64, entries []*entity.TickEntry) error {
	for _, entry := range entries {
		if err := r.putJSON(append([]byte(prefixTick), entry.Tick...), mapTickEntryToModel(entry)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (r *Repository) CreateTickEntryStates(_ context.Context, blockHeight uint64, entryStates []*entity.TickEntry) error {
	for _, entry := range entryStates {
		if err := r.putJSON(append([]byte(prefixTick), entry.Tick...), mapTickEntryToModel(entry)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (r *Repository) CreateBalances(_ context.Context, balances []*entity.Balance) error {
	for _, balance := range balances {
		if err := r.putJSON(balanceKey(balance.PkScript, balance.Tick), mapBalanceToModel(balance)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (r *Repository) CreateEventDeploys(_ context.Context, events []*entity.EventDeploy) error {
	for _, event := range events {
		if err := r.putJSON(heightKey(prefixEventDeploy, event.Id), mapEventDeployToModel(event)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (r *Repository) CreateEventMints(_ context.Context, events []*entity.EventMint) error {
	for _, event := range events {
		if err := r.putJSON(heightKey(prefixEventMint, event.Id), mapEventMintToModel(event)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (r *Repository) CreateEventInscribeTransfers(_ context.Context, events []*entity.EventInscribeTransfer) error {
	for _, event := range events {
		if err := r.putJSON(heightKey(prefixEventInscribeTransfer, event.Id), mapEventInscribeTransferToModel(event)); err != nil {
			return errors.WithStack(err)
		}
		if err := r.putJSON(inscriptionIdKey(prefixInscribeTransferById, event.InscriptionId), mapEventInscribeTransferToModel(event)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (r *Repository) CreateEventTransferTransfers(_ context.Context, events []*entity.EventTransferTransfer) error {
	for _, event := range events {
		if err := r.putJSON(heightKey(prefixEventTransferTransfer, event.Id), mapEventTransferTransferToModel(event)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (r *Repository) CreateOutPointValues(_ context.Context, values map[wire.OutPoint]uint64) error {
	for outPoint, value := range values {
		if err := r.put(outPointKey(prefixOutPointValue, outPoint), be64(value)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
