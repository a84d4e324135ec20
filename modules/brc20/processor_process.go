package brc20

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
	"github.com/subfrost/brc20shrew/pkg/logger"
	"github.com/subfrost/brc20shrew/pkg/logger/slogx"
)

// Process implements indexer.Processor.
func (p *Processor) Process(ctx context.Context, blocks []*types.Block) error {
	for _, block := range blocks {
		ctx := logger.WithContext(ctx, slogx.Uint64("height", uint64(block.Header.Height)))
		logger.DebugContext(ctx, "Processing new block")
		p.blockReward = p.getBlockSubsidy(uint64(block.Header.Height))
		p.flotsamsSentAsFee = make([]*entity.Flotsam, 0)
		p.blockSatPoints = make(map[ordinals.SatPoint][]ordinals.InscriptionId)
		p.consumedSatPoints = make(map[ordinals.SatPoint]struct{})

		// put coinbase tx (first tx) at the end of block
		transactions := append(slices.Clone(block.Transactions[1:]), block.Transactions[0])
		for _, tx := range transactions {
			if err := p.processInscriptionTx(ctx, tx, block.Header); err != nil {
				return errors.Wrap(err, "failed to process tx")
			}
		}

		// sort transfers by tx index, fee status, output index, output sat offset
		slices.SortFunc(p.newInscriptionTransfers, func(t1, t2 *entity.InscriptionTransfer) int {
			if t1.TxIndex != t2.TxIndex {
				return int(t1.TxIndex) - int(t2.TxIndex)
			}
			if t1.SentAsFee != t2.SentAsFee {
				// transfers sent as fee are ordered after non-fees
				if t1.SentAsFee {
					return 1
				}
				return -1
			}
			if t1.NewSatPoint.OutPoint.Index != t2.NewSatPoint.OutPoint.Index {
				return int(t1.NewSatPoint.OutPoint.Index) - int(t2.NewSatPoint.OutPoint.Index)
			}
			return int(t1.NewSatPoint.Offset) - int(t2.NewSatPoint.Offset)
		})

		if err := p.processBRC20States(ctx, p.newInscriptionTransfers, block.Header); err != nil {
			return errors.Wrap(err, "failed to process brc20 states")
		}

		if err := p.flushBlock(ctx, block.Header); err != nil {
			return errors.Wrap(err, "failed to flush block")
		}

		logger.DebugContext(ctx, "Inserted new block")
	}
	return nil
}

func (p *Processor) flushBlock(ctx context.Context, blockHeader types.BlockHeader) error {
	brc20DgTx, err := p.brc20Dg.BeginBRC20Tx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := brc20DgTx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "failed to rollback transaction",
				slogx.Error(err),
				slogx.String("event", "rollback_brc20_insertion"),
			)
		}
	}()

	blockHeight := uint64(blockHeader.Height)

	// contract executions run inside the block transaction so their state
	// lands in the same atomic flush
	if err := p.runPendingPrograms(ctx, brc20DgTx, blockHeader); err != nil {
		return errors.Wrap(err, "failed to run pending program payloads")
	}

	if err := brc20DgTx.SetLatestBlock(ctx, blockHeader); err != nil {
		return errors.Wrap(err, "failed to set latest block")
	}

	// calculate event hash
	{
		eventHashString := p.eventHashString
		if len(eventHashString) > 0 && eventHashString[len(eventHashString)-1:] == eventHashSeparator {
			eventHashString = eventHashString[:len(eventHashString)-1]
		}
		eventHash := chainhash.Hash(sha256.Sum256([]byte(eventHashString)))

		var prevCumulativeEventHash chainhash.Hash
		prevIndexedBlock, err := brc20DgTx.GetIndexedBlockByHeight(ctx, blockHeader.Height-1)
		if err != nil && !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "failed to get previous indexed block")
		}
		if prevIndexedBlock != nil {
			prevCumulativeEventHash = prevIndexedBlock.CumulativeEventHash
		}
		cumulativeEventHash := eventHash
		if prevCumulativeEventHash != (chainhash.Hash{}) {
			cumulativeEventHash = chainhash.Hash(sha256.Sum256([]byte(
				hex.EncodeToString(prevCumulativeEventHash[:]) + hex.EncodeToString(eventHash[:]),
			)))
		}
		if err := brc20DgTx.CreateIndexedBlock(ctx, &entity.IndexedBlock{
			Height:              blockHeight,
			Hash:                blockHeader.Hash,
			EventHash:           eventHash,
			CumulativeEventHash: cumulativeEventHash,
		}); err != nil {
			return errors.Wrap(err, "failed to create indexed block")
		}
		p.eventHashString = ""
	}

	// flush new inscription entries
	{
		if err := brc20DgTx.CreateInscriptionEntries(ctx, blockHeight, lo.Values(p.newInscriptionEntries)); err != nil {
			return errors.Wrap(err, "failed to create inscription entries")
		}
	}

	// flush new inscription entry states
	{
		if err := brc20DgTx.CreateInscriptionEntryStates(ctx, blockHeight, lo.Values(p.newInscriptionEntryStates)); err != nil {
			return errors.Wrap(err, "failed to create inscription entry states")
		}
	}

	// flush new inscription transfers
	{
		if err := brc20DgTx.CreateInscriptionTransfers(ctx, p.newInscriptionTransfers); err != nil {
			return errors.Wrap(err, "failed to create inscription transfers")
		}
	}

	// flush validated relationships; the children and delegate-source lists
	// are persisted in append order, so map keys must be iterated in a fixed
	// order for identical blocks to produce identical stores
	{
		children := lo.Keys(p.newInscriptionParents)
		slices.SortFunc(children, compareInscriptionIds)
		for _, child := range children {
			if err := brc20DgTx.CreateInscriptionParents(ctx, blockHeight, child, p.newInscriptionParents[child]); err != nil {
				return errors.Wrap(err, "failed to create inscription parents")
			}
		}
		sources := lo.Keys(p.newInscriptionDelegates)
		slices.SortFunc(sources, compareInscriptionIds)
		for _, source := range sources {
			if err := brc20DgTx.CreateInscriptionDelegate(ctx, blockHeight, source, p.newInscriptionDelegates[source]); err != nil {
				return errors.Wrap(err, "failed to create inscription delegate")
			}
		}
	}

	// flush processor stats
	{
		stats := &entity.ProcessorStats{
			BlockHeight:             blockHeight,
			CursedInscriptionCount:  p.cursedInscriptionCount,
			BlessedInscriptionCount: p.blessedInscriptionCount,
			LostSats:                p.lostSats,
			EventDeployCount:        p.eventDeployCount,
			EventMintCount:          p.eventMintCount,
			EventInscribeTransfer:   p.eventInscribeTransferCount,
			EventTransferTransfer:   p.eventTransferTransferCount,
			EventProgramDeploy:      p.eventProgramDeployCount,
			EventProgramCall:        p.eventProgramCallCount,
		}
		if err := brc20DgTx.CreateProcessorStats(ctx, stats); err != nil {
			return errors.Wrap(err, "failed to create processor stats")
		}
	}

	// flush new tick entries
	{
		if err := brc20DgTx.CreateTickEntries(ctx, blockHeight, lo.Values(p.newTickEntries)); err != nil {
			return errors.Wrap(err, "failed to create tick entries")
		}
		if err := brc20DgTx.CreateTickEntryStates(ctx, blockHeight, lo.Values(p.newTickEntryStates)); err != nil {
			return errors.Wrap(err, "failed to create tick entry states")
		}
	}

	// flush new events
	{
		if err := brc20DgTx.CreateEventDeploys(ctx, p.newEventDeploys); err != nil {
			return errors.Wrap(err, "failed to create event deploys")
		}
		if err := brc20DgTx.CreateEventMints(ctx, p.newEventMints); err != nil {
			return errors.Wrap(err, "failed to create event mints")
		}
		if err := brc20DgTx.CreateEventInscribeTransfers(ctx, p.newEventInscribeTransfers); err != nil {
			return errors.Wrap(err, "failed to create event inscribe transfers")
		}
		if err := brc20DgTx.CreateEventTransferTransfers(ctx, p.newEventTransferTransfers); err != nil {
			return errors.Wrap(err, "failed to create event transfer transfers")
		}
		if err := brc20DgTx.CreateEventProgramDeploys(ctx, p.newEventProgramDeploys); err != nil {
			return errors.Wrap(err, "failed to create event program deploys")
		}
		if err := brc20DgTx.CreateEventProgramCalls(ctx, p.newEventProgramCalls); err != nil {
			return errors.Wrap(err, "failed to create event program calls")
		}
	}

	// flush new balances
	{
		newBalances := make([]*entity.Balance, 0)
		for _, tickBalances := range p.newBalances {
			for _, balance := range tickBalances {
				newBalances = append(newBalances, balance)
			}
		}
		if err := brc20DgTx.CreateBalances(ctx, newBalances); err != nil {
			return errors.Wrap(err, "failed to create balances")
		}
	}

	// flush outpoint values
	{
		if err := brc20DgTx.CreateOutPointValues(ctx, p.newOutPointValues); err != nil {
			return errors.Wrap(err, "failed to create outpoint values")
		}
	}

	if err := brc20DgTx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	p.resetBlockStates()
	return nil
}

func compareInscriptionIds(a, b ordinals.InscriptionId) int {
	if cmp := bytes.Compare(a.TxHash[:], b.TxHash[:]); cmp != 0 {
		return cmp
	}
	return int(a.Index) - int(b.Index)
}

func (p *Processor) getOutPointValues(ctx context.Context, outPoints []wire.OutPoint) (map[wire.OutPoint]uint64, error) {
	outPointValues := make(map[wire.OutPoint]uint64)

	outPointsToFetch := make([]wire.OutPoint, 0)
	for _, outPoint := range outPoints {
		if value, ok := p.newOutPointValues[outPoint]; ok {
			outPointValues[outPoint] = value
			continue
		}
		if value, ok := p.outPointValueCache.Get(outPoint); ok {
			outPointValues[outPoint] = value
			continue
		}
		outPointsToFetch = append(outPointsToFetch, outPoint)
	}
	if len(outPointsToFetch) == 0 {
		return outPointValues, nil
	}

	stored, err := p.brc20Dg.GetOutPointValues(ctx, outPointsToFetch)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get outpoint values")
	}
	for outPoint, value := range stored {
		outPointValues[outPoint] = value
		p.outPointValueCache.Add(outPoint, value)
	}

	// values never indexed (outputs confirmed before the starting height) are
	// resolved through the node when a fetcher is wired
	if p.txOutFetcher != nil {
		for _, outPoint := range outPointsToFetch {
			if _, ok := outPointValues[outPoint]; ok {
				continue
			}
			txOuts, err := p.txOutFetcher.GetTransactionOutputs(ctx, outPoint.Hash)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to get transaction outputs, hash: %s", outPoint.Hash)
			}
			for i, txOut := range txOuts {
				p.outPointValueCache.Add(wire.OutPoint{Hash: outPoint.Hash, Index: uint32(i)}, uint64(txOut.Value))
			}
			if int(outPoint.Index) < len(txOuts) {
				outPointValues[outPoint] = uint64(txOuts[outPoint.Index].Value)
			}
		}
	}
	return outPointValues, nil
}
