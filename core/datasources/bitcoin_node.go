package datasources

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/subfrost/brc20shrew/core/types"
)

// maxBlocksPerFetch bounds a single fetch round so that block processing
// commits progress incrementally during initial sync.
const maxBlocksPerFetch = 100

// Make sure to implement the Datasource interface
var _ Datasource[*types.Block] = (*BitcoinNodeDatasource)(nil)

// BitcoinNodeDatasource fetches blocks from a Bitcoin node over JSON-RPC.
type BitcoinNodeDatasource struct {
	btcclient *rpcclient.Client
}

func NewBitcoinNode(btcclient *rpcclient.Client) *BitcoinNodeDatasource {
	return &BitcoinNodeDatasource{btcclient: btcclient}
}

func (d *BitcoinNodeDatasource) Name() string {
	return "bitcoin-node"
}

// Fetch returns fully-parsed blocks for the height range [from, to].
//
//   - from: block height to start fetching, if -1, it will start from genesis block
//   - to: block height to stop fetching, if -1, it will fetch until the latest block
func (d *BitcoinNodeDatasource) Fetch(ctx context.Context, from, to int64) ([]*types.Block, error) {
	start, end, skip, err := d.prepareRange(from, to)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare fetch range")
	}
	if skip {
		return []*types.Block{}, nil
	}

	blocks := make([]*types.Block, 0, end-start+1)
	for height := start; height <= end; height++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "context done")
		}

		hash, err := d.btcclient.GetBlockHash(height)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get block hash, height: %d", height)
		}
		msgBlock, err := d.btcclient.GetBlock(hash)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get block, height: %d", height)
		}
		blocks = append(blocks, types.ParseMsgBlock(msgBlock, height))
	}
	return blocks, nil
}

func (d *BitcoinNodeDatasource) GetBlockHeader(ctx context.Context, height int64) (types.BlockHeader, error) {
	if err := ctx.Err(); err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "context done")
	}
	hash, err := d.btcclient.GetBlockHash(height)
	if err != nil {
		return types.BlockHeader{}, errors.Wrapf(err, "failed to get block hash, height: %d", height)
	}
	header, err := d.btcclient.GetBlockHeader(hash)
	if err != nil {
		return types.BlockHeader{}, errors.Wrapf(err, "failed to get block header, height: %d", height)
	}
	return types.BlockHeader{
		Hash:       header.BlockHash(),
		Height:     height,
		Version:    header.Version,
		PrevBlock:  header.PrevBlock,
		MerkleRoot: header.MerkleRoot,
		Timestamp:  header.Timestamp,
		Bits:       header.Bits,
		Nonce:      header.Nonce,
	}, nil
}

// GetTransactionOutputs returns the outputs of a confirmed transaction. Used
// to resolve input values for outputs created before indexing started.
func (d *BitcoinNodeDatasource) GetTransactionOutputs(ctx context.Context, txHash chainhash.Hash) ([]*types.TxOut, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "context done")
	}
	tx, err := d.btcclient.GetRawTransaction(&txHash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get transaction, hash: %s", txHash)
	}
	return lo.Map(tx.MsgTx().TxOut, func(txOut *wire.TxOut, _ int) *types.TxOut {
		return types.ParseTxOut(txOut)
	}), nil
}

func (d *BitcoinNodeDatasource) prepareRange(fromHeight, toHeight int64) (start, end int64, skip bool, err error) {
	start = fromHeight
	end = toHeight

	// get current bitcoin block height
	latestBlockHeight, err := d.btcclient.GetBlockCount()
	if err != nil {
		return -1, -1, false, errors.Wrap(err, "failed to get block count")
	}

	// set start to genesis block height
	if start < 0 {
		start = 0
	}

	// set end to current bitcoin block height if
	// - end is -1
	// - end is greater than current bitcoin block height
	if end < 0 || end > latestBlockHeight {
		end = latestBlockHeight
	}

	if end-start+1 > maxBlocksPerFetch {
		end = start + maxBlocksPerFetch - 1
	}

	// if start is greater than end, skip this round
	if start > end {
		return -1, -1, true, nil
	}

	return start, end, false, nil
}
