package brc20

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/core/indexer"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/brc20"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/datagateway"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/evm"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
	"github.com/subfrost/brc20shrew/pkg/logger"
	"github.com/subfrost/brc20shrew/pkg/logger/slogx"
	"github.com/subfrost/brc20shrew/pkg/lru"
)

// Make sure to implement the Bitcoin Processor interface
var _ indexer.Processor[*types.Block] = (*Processor)(nil)

// TransactionOutputFetcher resolves outputs of transactions confirmed before
// indexing started. Optional; without it unknown input values resolve to zero.
type TransactionOutputFetcher interface {
	GetTransactionOutputs(ctx context.Context, txHash chainhash.Hash) ([]*types.TxOut, error)
}

type Processor struct {
	brc20Dg        datagateway.BRC20DataGateway
	indexerInfoDg  datagateway.IndexerInfoDataGateway
	txOutFetcher   TransactionOutputFetcher
	network        common.Network
	bridgeContract evm.Address
	cleanupFuncs   []func(context.Context) error

	// block states
	flotsamsSentAsFee []*entity.Flotsam
	blockReward       uint64
	// blockSatPoints tracks inscription locations written earlier in the same
	// block; consumedSatPoints marks locations already spent within the block.
	blockSatPoints    map[ordinals.SatPoint][]ordinals.InscriptionId
	consumedSatPoints map[ordinals.SatPoint]struct{}

	// processor stats
	cursedInscriptionCount  uint64
	blessedInscriptionCount uint64
	lostSats                uint64

	// event id counters
	eventDeployCount           uint64
	eventMintCount             uint64
	eventInscribeTransferCount uint64
	eventTransferTransferCount uint64
	eventProgramDeployCount    uint64
	eventProgramCallCount      uint64

	// cache
	outPointValueCache *lru.Cache[wire.OutPoint, uint64]

	// flush buffers - inscription states
	newInscriptionTransfers   []*entity.InscriptionTransfer
	newInscriptionEntries     map[ordinals.InscriptionId]*ordinals.InscriptionEntry
	newInscriptionEntryStates map[ordinals.InscriptionId]*ordinals.InscriptionEntry
	newInscriptionParents     map[ordinals.InscriptionId][]ordinals.InscriptionId
	newInscriptionDelegates   map[ordinals.InscriptionId]ordinals.InscriptionId
	newOutPointValues         map[wire.OutPoint]uint64

	// flush buffers - brc20 states
	newTickEntries            map[string]*entity.TickEntry
	newTickEntryStates        map[string]*entity.TickEntry
	newEventDeploys           []*entity.EventDeploy
	newEventMints             []*entity.EventMint
	newEventInscribeTransfers []*entity.EventInscribeTransfer
	newEventTransferTransfers []*entity.EventTransferTransfer
	newBalances               map[string]map[string]*entity.Balance

	// flush buffers - program states
	newEventProgramDeploys []*entity.EventProgramDeploy
	newEventProgramCalls   []*entity.EventProgramCall
	pendingPrograms        []*brc20.ProgPayload

	eventHashString string
}

// TODO: move this to config
const outPointValueCacheSize = 100000

func NewProcessor(brc20Dg datagateway.BRC20DataGateway, indexerInfoDg datagateway.IndexerInfoDataGateway, txOutFetcher TransactionOutputFetcher, network common.Network, bridgeContract evm.Address, cleanupFuncs []func(context.Context) error) (*Processor, error) {
	outPointValueCache, err := lru.New[wire.OutPoint, uint64](outPointValueCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create outPointValueCache")
	}

	p := &Processor{
		brc20Dg:        brc20Dg,
		indexerInfoDg:  indexerInfoDg,
		txOutFetcher:   txOutFetcher,
		network:        network,
		bridgeContract: bridgeContract,
		cleanupFuncs:   cleanupFuncs,

		outPointValueCache: outPointValueCache,
	}
	p.resetBlockStates()
	return p, nil
}

func (p *Processor) resetBlockStates() {
	p.flotsamsSentAsFee = make([]*entity.Flotsam, 0)
	p.blockReward = 0
	p.blockSatPoints = make(map[ordinals.SatPoint][]ordinals.InscriptionId)
	p.consumedSatPoints = make(map[ordinals.SatPoint]struct{})

	p.newInscriptionTransfers = make([]*entity.InscriptionTransfer, 0)
	p.newInscriptionEntries = make(map[ordinals.InscriptionId]*ordinals.InscriptionEntry)
	p.newInscriptionEntryStates = make(map[ordinals.InscriptionId]*ordinals.InscriptionEntry)
	p.newInscriptionParents = make(map[ordinals.InscriptionId][]ordinals.InscriptionId)
	p.newInscriptionDelegates = make(map[ordinals.InscriptionId]ordinals.InscriptionId)
	p.newOutPointValues = make(map[wire.OutPoint]uint64)

	p.newTickEntries = make(map[string]*entity.TickEntry)
	p.newTickEntryStates = make(map[string]*entity.TickEntry)
	p.newEventDeploys = make([]*entity.EventDeploy, 0)
	p.newEventMints = make([]*entity.EventMint, 0)
	p.newEventInscribeTransfers = make([]*entity.EventInscribeTransfer, 0)
	p.newEventTransferTransfers = make([]*entity.EventTransferTransfer, 0)
	p.newBalances = make(map[string]map[string]*entity.Balance)

	p.newEventProgramDeploys = make([]*entity.EventProgramDeploy, 0)
	p.newEventProgramCalls = make([]*entity.EventProgramCall, 0)
	p.pendingPrograms = make([]*brc20.ProgPayload, 0)

	p.eventHashString = ""
}

func (p *Processor) loadStats(stats *entity.ProcessorStats) {
	p.cursedInscriptionCount = stats.CursedInscriptionCount
	p.blessedInscriptionCount = stats.BlessedInscriptionCount
	p.lostSats = stats.LostSats
	p.eventDeployCount = stats.EventDeployCount
	p.eventMintCount = stats.EventMintCount
	p.eventInscribeTransferCount = stats.EventInscribeTransfer
	p.eventTransferTransferCount = stats.EventTransferTransfer
	p.eventProgramDeployCount = stats.EventProgramDeploy
	p.eventProgramCallCount = stats.EventProgramCall
}

// VerifyStates implements indexer.Processor.
func (p *Processor) VerifyStates(ctx context.Context) error {
	indexerState, err := p.indexerInfoDg.GetLatestIndexerState(ctx)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "failed to get latest indexer state")
	}
	// if not found, create indexer state
	if errors.Is(err, errs.NotFound) {
		if err := p.indexerInfoDg.CreateIndexerState(ctx, entity.IndexerState{
			ClientVersion:    ClientVersion,
			DBVersion:        DBVersion,
			EventHashVersion: EventHashVersion,
			Network:          p.network,
		}); err != nil {
			return errors.Wrap(err, "failed to set indexer state")
		}
	} else {
		if indexerState.DBVersion != DBVersion {
			return errors.Wrapf(errs.ConflictSetting, "db version mismatch: current version is %d, expected %d. Please reset the database", indexerState.DBVersion, DBVersion)
		}
		if indexerState.EventHashVersion != EventHashVersion {
			return errors.Wrapf(errs.ConflictSetting, "event hash version mismatch: current version is %d, expected %d. Please reset the database", indexerState.EventHashVersion, EventHashVersion)
		}
		if indexerState.Network != p.network {
			return errors.Wrapf(errs.ConflictSetting, "network mismatch: latest indexed network is %q, configured network is %q. Please reset the database to change networks", indexerState.Network, p.network)
		}
	}

	stats, err := p.brc20Dg.GetProcessorStats(ctx)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "failed to get processor stats")
		}
		stats = &entity.ProcessorStats{
			BlockHeight: uint64(startingBlockHeader[p.network].Height),
		}
	}
	p.loadStats(stats)
	return nil
}

// CurrentBlock implements indexer.Processor.
func (p *Processor) CurrentBlock(ctx context.Context) (types.BlockHeader, error) {
	blockHeader, err := p.brc20Dg.GetLatestBlock(ctx)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return startingBlockHeader[p.network], nil
		}
		return types.BlockHeader{}, errors.Wrap(err, "failed to get latest block")
	}
	return blockHeader, nil
}

// GetIndexedBlock implements indexer.Processor.
func (p *Processor) GetIndexedBlock(ctx context.Context, height int64) (types.BlockHeader, error) {
	block, err := p.brc20Dg.GetIndexedBlockByHeight(ctx, height)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "failed to get indexed block")
	}
	return types.BlockHeader{
		Height: int64(block.Height),
		Hash:   block.Hash,
	}, nil
}

// Name implements indexer.Processor.
func (p *Processor) Name() string {
	return "brc20"
}

// RevertData implements indexer.Processor.
func (p *Processor) RevertData(ctx context.Context, from int64) error {
	if err := p.brc20Dg.DeleteDataSinceHeight(ctx, uint64(from)); err != nil {
		return errors.Wrap(err, "failed to delete data since height")
	}

	// reload counters from the restored stats row
	stats, err := p.brc20Dg.GetProcessorStats(ctx)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "failed to get processor stats")
		}
		stats = &entity.ProcessorStats{
			BlockHeight: uint64(startingBlockHeader[p.network].Height),
		}
	}
	p.loadStats(stats)
	p.resetBlockStates()

	logger.InfoContext(ctx, "Reverted data",
		slogx.Int64("since", from),
		slogx.Uint64("stats_height", stats.BlockHeight),
	)
	return nil
}

func (p *Processor) Shutdown(ctx context.Context) error {
	var cleanupErrs []error
	for _, cleanup := range p.cleanupFuncs {
		if err := cleanup(ctx); err != nil {
			cleanupErrs = append(cleanupErrs, err)
		}
	}
	return errors.WithStack(errors.Join(cleanupErrs...))
}
