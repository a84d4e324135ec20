package datagateway

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

type BRC20DataGateway interface {
	BRC20ReaderDataGateway
	BRC20WriterDataGateway

	// BeginBRC20Tx returns a new BRC20DataGateway with transaction enabled. All write operations performed in this datagateway must be committed to persist changes.
	BeginBRC20Tx(ctx context.Context) (BRC20DataGatewayWithTx, error)
}

type BRC20DataGatewayWithTx interface {
	BRC20DataGateway
	ProgramDataGateway
	Tx
}

type BRC20ReaderDataGateway interface {
	GetLatestBlock(ctx context.Context) (types.BlockHeader, error)
	GetIndexedBlockByHeight(ctx context.Context, height int64) (*entity.IndexedBlock, error)
	GetProcessorStats(ctx context.Context) (*entity.ProcessorStats, error)

	GetInscriptionEntryById(ctx context.Context, id ordinals.InscriptionId) (*ordinals.InscriptionEntry, error)
	GetInscriptionEntriesByIds(ctx context.Context, ids []ordinals.InscriptionId) (map[ordinals.InscriptionId]*ordinals.InscriptionEntry, error)
	GetInscriptionEntryByNumber(ctx context.Context, number int64) (*ordinals.InscriptionEntry, error)
	GetInscriptionEntryBySequence(ctx context.Context, sequence uint64) (*ordinals.InscriptionEntry, error)
	GetInscriptionIdsInOutPoints(ctx context.Context, outPoints []wire.OutPoint) (map[ordinals.SatPoint][]ordinals.InscriptionId, error)
	GetInscriptionParents(ctx context.Context, id ordinals.InscriptionId) ([]ordinals.InscriptionId, error)
	GetInscriptionChildren(ctx context.Context, id ordinals.InscriptionId) ([]ordinals.InscriptionId, error)
	// GetInscriptionDelegate returns the validated delegate target of source.
	GetInscriptionDelegate(ctx context.Context, source ordinals.InscriptionId) (ordinals.InscriptionId, error)
	// GetDelegateSources returns inscription ids whose delegate link targets id.
	GetDelegateSources(ctx context.Context, id ordinals.InscriptionId) ([]ordinals.InscriptionId, error)

	GetTickEntryByTick(ctx context.Context, tick string) (*entity.TickEntry, error)
	GetTickEntriesByTicks(ctx context.Context, ticks []string) (map[string]*entity.TickEntry, error)
	GetBalance(ctx context.Context, pkScript []byte, tick string) (*entity.Balance, error)
	GetBalancesByPkScript(ctx context.Context, pkScript []byte) (map[string]*entity.Balance, error)

	// GetBalancesByTick and the per-tick event getters scan their whole table;
	// they serve the query surface only.
	GetBalancesByTick(ctx context.Context, tick string) ([]*entity.Balance, error)
	GetEventDeployByTick(ctx context.Context, tick string) (*entity.EventDeploy, error)
	GetEventMintsByTick(ctx context.Context, tick string) ([]*entity.EventMint, error)
	GetEventTransferTransfersByTick(ctx context.Context, tick string) ([]*entity.EventTransferTransfer, error)

	GetEventInscribeTransferByInscriptionId(ctx context.Context, id ordinals.InscriptionId) (*entity.EventInscribeTransfer, error)
	GetOutPointValues(ctx context.Context, outPoints []wire.OutPoint) (map[wire.OutPoint]uint64, error)
}

type BRC20WriterDataGateway interface {
	// SetLatestBlock records the full header of the newest processed block so
	// reorg detection can compare hashes without refetching.
	SetLatestBlock(ctx context.Context, header types.BlockHeader) error
	CreateIndexedBlock(ctx context.Context, block *entity.IndexedBlock) error
	CreateProcessorStats(ctx context.Context, stats *entity.ProcessorStats) error

	CreateInscriptionEntries(ctx context.Context, blockHeight uint64, entries []*ordinals.InscriptionEntry) error
	CreateInscriptionEntryStates(ctx context.Context, blockHeight uint64, entryStates []*ordinals.InscriptionEntry) error
	CreateInscriptionTransfers(ctx context.Context, transfers []*entity.InscriptionTransfer) error
	// CreateInscriptionParents records parent->child and child->parent links in
	// insertion order.
	CreateInscriptionParents(ctx context.Context, blockHeight uint64, child ordinals.InscriptionId, parents []ordinals.InscriptionId) error
	// CreateInscriptionDelegate records a validated delegate link.
	CreateInscriptionDelegate(ctx context.Context, blockHeight uint64, source ordinals.InscriptionId, delegate ordinals.InscriptionId) error

	CreateTickEntries(ctx context.Context, blockHeight uint64, entries []*entity.TickEntry) error
	CreateTickEntryStates(ctx context.Context, blockHeight uint64, entryStates []*entity.TickEntry) error
	CreateBalances(ctx context.Context, balances []*entity.Balance) error

	CreateEventDeploys(ctx context.Context, events []*entity.EventDeploy) error
	CreateEventMints(ctx context.Context, events []*entity.EventMint) error
	CreateEventInscribeTransfers(ctx context.Context, events []*entity.EventInscribeTransfer) error
	CreateEventTransferTransfers(ctx context.Context, events []*entity.EventTransferTransfer) error

	CreateOutPointValues(ctx context.Context, values map[wire.OutPoint]uint64) error

	// DeleteDataSinceHeight reverts all indexed data at and above the given
	// height by replaying per-block undo logs from the tip downwards.
	DeleteDataSinceHeight(ctx context.Context, height uint64) error
}
