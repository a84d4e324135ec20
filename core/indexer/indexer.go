package indexer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/core/datasources"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/pkg/logger"
	"github.com/subfrost/brc20shrew/pkg/logger/slogx"
)

const (
	maxReorgLookBack = 1000

	// pollingInterval is the default polling interval for the indexer polling worker
	pollingInterval = 15 * time.Second
)

// Input is a unit of work delivered by a datasource.
type Input interface {
	BlockHeader() types.BlockHeader
}

type Processor[T Input] interface {
	Name() string

	// VerifyStates checks data integrity (e.g. client/db versions) before the
	// indexer starts and initializes state on first run.
	VerifyStates(ctx context.Context) error

	// Process processes the input data and indexes it.
	Process(ctx context.Context, inputs []T) error

	// CurrentBlock returns the latest indexed block header.
	CurrentBlock(ctx context.Context) (types.BlockHeader, error)

	// GetIndexedBlock returns the indexed block header by the specified block height.
	GetIndexedBlock(ctx context.Context, height int64) (types.BlockHeader, error)

	// RevertData reverts synced data from the specified block height for re-indexing.
	RevertData(ctx context.Context, from int64) error

	Shutdown(ctx context.Context) error
}

// Indexer generic indexer for fetching and processing data
type Indexer[T Input] struct {
	Processor    Processor[T]
	Datasource   datasources.Datasource[T]
	currentBlock types.BlockHeader

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// New create new generic indexer
func New[T Input](processor Processor[T], datasource datasources.Datasource[T]) *Indexer[T] {
	return &Indexer[T]{
		Processor:  processor,
		Datasource: datasource,

		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (i *Indexer[T]) Shutdown() error {
	return i.ShutdownWithContext(context.Background())
}

func (i *Indexer[T]) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return i.ShutdownWithContext(ctx)
}

func (i *Indexer[T]) ShutdownWithContext(ctx context.Context) (err error) {
	i.quitOnce.Do(func() {
		close(i.quit)
		select {
		case <-i.done:
		case <-time.After(180 * time.Second):
			err = errors.Wrap(errs.Timeout, "indexer shutdown timeout")
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "indexer shutdown context canceled")
		}
	})
	return
}

func (i *Indexer[T]) Run(ctx context.Context) (err error) {
	defer close(i.done)

	ctx = logger.WithContext(ctx,
		slog.String("package", "indexer"),
		slog.String("processor", i.Processor.Name()),
		slog.String("datasource", i.Datasource.Name()),
	)

	if err := i.Processor.VerifyStates(ctx); err != nil {
		return errors.Wrap(err, "failed to verify states")
	}

	// set to -1 to start from genesis block
	i.currentBlock, err = i.Processor.CurrentBlock(ctx)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "can't init state, failed to get indexer current block")
		}
		i.currentBlock.Height = -1
	}

	ticker := time.NewTicker(pollingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-i.quit:
			logger.InfoContext(ctx, "Got quit signal, stopping indexer")
			if err := i.Processor.Shutdown(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown processor", slogx.Error(err))
				return errors.Wrap(err, "processor shutdown failed")
			}
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := i.process(ctx); err != nil {
				logger.ErrorContext(ctx, "Indexer failed while processing", slogx.Error(err))
				return errors.Wrap(err, "process failed")
			}
			logger.DebugContext(ctx, "Waiting for next polling interval")
		}
	}
}

func (i *Indexer[T]) process(ctx context.Context) (err error) {
	from := i.currentBlock.Height + 1

	logger.DebugContext(ctx, "Start fetching input data", slog.Int64("from", from))
	inputs, err := i.Datasource.Fetch(ctx, from, -1)
	if err != nil {
		return errors.Wrap(err, "failed to fetch input data")
	}
	if len(inputs) == 0 {
		return nil
	}

	firstInputHeader := inputs[0].BlockHeader()

	startAt := time.Now()
	ctx = logger.WithContext(ctx,
		slogx.Int64("from", firstInputHeader.Height),
		slogx.Int64("to", inputs[len(inputs)-1].BlockHeader().Height),
	)

	// validate reorg from first input
	if i.currentBlock.Height >= 0 && !firstInputHeader.PrevBlock.IsEqual(&i.currentBlock.Hash) {
		return i.revertReorg(ctx)
	}

	// validate input is continuous and no reorg
	for n := 1; n < len(inputs); n++ {
		header := inputs[n].BlockHeader()
		prevHeader := inputs[n-1].BlockHeader()
		if header.Height != prevHeader.Height+1 {
			return errors.Wrapf(errs.InternalError, "input is not continuous, input[%d] height: %d, input[%d] height: %d", n-1, prevHeader.Height, n, header.Height)
		}

		if !header.PrevBlock.IsEqual(&prevHeader.Hash) {
			logger.WarnContext(ctx, "Chain reorganization occurred in the middle of batch fetching inputs, need to try to fetch again")

			// end current round
			return nil
		}
	}

	ctx = logger.WithContext(ctx, slog.Int("total_inputs", len(inputs)))

	logger.InfoContext(ctx, "Processing inputs")
	if err := i.Processor.Process(ctx, inputs); err != nil {
		return errors.WithStack(err)
	}

	// Update current state
	i.currentBlock = inputs[len(inputs)-1].BlockHeader()

	logger.InfoContext(ctx, "Processed inputs successfully",
		slogx.String("event", "processed_inputs"),
		slogx.Int64("current_block", i.currentBlock.Height),
		slogx.Duration("duration", time.Since(startAt)),
	)
	return nil
}

// revertReorg walks back from the current block to find the fork point, then
// reverts all indexed data above it. The next round re-fetches from there.
func (i *Indexer[T]) revertReorg(ctx context.Context) error {
	logger.WarnContext(ctx, "Detected chain reorganization. Searching for fork point...",
		slogx.String("event", "reorg_detected"),
		slogx.Stringer("current_hash", i.currentBlock.Hash),
	)

	var (
		start                  = time.Now()
		targetHeight           = i.currentBlock.Height
		beforeReorgBlockHeader = types.BlockHeader{
			Height: -1,
		}
	)
	for n := 0; n < maxReorgLookBack && targetHeight >= 0; n++ {
		indexedHeader, err := i.Processor.GetIndexedBlock(ctx, targetHeight)
		if err != nil {
			return errors.Wrapf(err, "failed to get indexed block, height: %d", targetHeight)
		}

		remoteHeader, err := i.Datasource.GetBlockHeader(ctx, targetHeight)
		if err != nil {
			return errors.Wrapf(err, "failed to get remote block header, height: %d", targetHeight)
		}

		// Found fork point
		if indexedHeader.Hash.IsEqual(&remoteHeader.Hash) {
			beforeReorgBlockHeader = remoteHeader
			break
		}

		// Walk back to find fork point
		targetHeight -= 1
	}

	// Reorg look back limit reached
	if beforeReorgBlockHeader.Height < 0 {
		return errors.Wrap(errs.InternalError, "reorg look back limit reached")
	}

	logger.InfoContext(ctx, "Found reorg fork point, starting to revert data...",
		slogx.String("event", "reorg_forkpoint"),
		slogx.Int64("since", beforeReorgBlockHeader.Height+1),
		slogx.Int64("total_blocks", i.currentBlock.Height-beforeReorgBlockHeader.Height),
		slogx.Duration("search_duration", time.Since(start)),
	)

	// Revert all data since the reorg block
	start = time.Now()
	if err := i.Processor.RevertData(ctx, beforeReorgBlockHeader.Height+1); err != nil {
		return errors.Wrap(err, "failed to revert data")
	}

	// Set current block to before reorg block and
	// end current round to fetch again
	i.currentBlock = beforeReorgBlockHeader
	logger.InfoContext(ctx, "Fixing chain reorganization completed",
		slogx.Int64("current_block", i.currentBlock.Height),
		slogx.Duration("duration", time.Since(start)),
	)
	return nil
}
