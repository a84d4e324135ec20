package kv

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/datagateway"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
	"github.com/subfrost/brc20shrew/pkg/kv/leveldb"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	store := leveldb.NewMemory()
	t.Cleanup(func() { _ = store.Close() })
	return NewRepository(store)
}

func testHeader(height int64, seed byte) types.BlockHeader {
	return types.BlockHeader{
		Hash:      chainhash.Hash{seed},
		Height:    height,
		PrevBlock: chainhash.Hash{seed - 1},
		Timestamp: time.Unix(1700000000+height, 0).UTC(),
	}
}

func commitBlock(t *testing.T, repo *Repository, height uint64, writes func(tx datagateway.BRC20DataGatewayWithTx)) {
	t.Helper()
	ctx := context.Background()
	tx, err := repo.BeginBRC20Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetLatestBlock(ctx, testHeader(int64(height), byte(height+1))))
	require.NoError(t, tx.CreateIndexedBlock(ctx, &entity.IndexedBlock{
		Height: height,
		Hash:   chainhash.Hash{byte(height + 1)},
	}))
	if writes != nil {
		writes(tx)
	}
	require.NoError(t, tx.Commit(ctx))
}

func TestTxCommitAndRollback(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	tx, err := repo.BeginBRC20Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetLatestBlock(ctx, testHeader(0, 1)))
	require.NoError(t, tx.CreateIndexedBlock(ctx, &entity.IndexedBlock{Height: 0, Hash: chainhash.Hash{1}}))

	// nothing visible before commit
	_, err = repo.GetLatestBlock(ctx)
	assert.True(t, errors.Is(err, errs.NotFound))

	require.NoError(t, tx.Commit(ctx))
	header, err := repo.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), header.Height)

	// rolled-back writes never become visible
	tx, err = repo.BeginBRC20Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetLatestBlock(ctx, testHeader(1, 2)))
	require.NoError(t, tx.Rollback(ctx))

	header, err = repo.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), header.Height)
}

func TestDeleteDataSinceHeight(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	tickV1 := &entity.TickEntry{
		Tick:         "ordi",
		OriginalTick: "ordi",
		TotalSupply:  decimal.NewFromInt(1000),
		LimitPerMint: decimal.NewFromInt(10),
		DeployInscriptionId: ordinals.InscriptionId{
			TxHash: chainhash.Hash{0xaa},
		},
		MintedAmount: decimal.Zero,
		BurnedAmount: decimal.Zero,
	}
	commitBlock(t, repo, 0, func(tx datagateway.BRC20DataGatewayWithTx) {
		require.NoError(t, tx.CreateTickEntries(ctx, 0, []*entity.TickEntry{tickV1}))
	})

	tickV2 := *tickV1
	tickV2.MintedAmount = decimal.NewFromInt(10)
	commitBlock(t, repo, 1, func(tx datagateway.BRC20DataGatewayWithTx) {
		require.NoError(t, tx.CreateTickEntryStates(ctx, 1, []*entity.TickEntry{&tickV2}))
	})

	entry, err := repo.GetTickEntryByTick(ctx, "ordi")
	require.NoError(t, err)
	assert.True(t, entry.MintedAmount.Equal(decimal.NewFromInt(10)))

	// revert block 1: minted amount and latest block roll back
	require.NoError(t, repo.DeleteDataSinceHeight(ctx, 1))

	entry, err = repo.GetTickEntryByTick(ctx, "ordi")
	require.NoError(t, err)
	assert.True(t, entry.MintedAmount.IsZero())

	header, err := repo.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), header.Height)

	// revert block 0: everything gone
	require.NoError(t, repo.DeleteDataSinceHeight(ctx, 0))
	_, err = repo.GetTickEntryByTick(ctx, "ordi")
	assert.True(t, errors.Is(err, errs.NotFound))
	_, err = repo.GetLatestBlock(ctx)
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestSatPointRelocation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id := ordinals.InscriptionId{TxHash: chainhash.Hash{0x01}, Index: 0}
	firstSatPoint := ordinals.SatPoint{
		OutPoint: wire.OutPoint{Hash: chainhash.Hash{0x01}, Index: 0},
		Offset:   0,
	}
	secondSatPoint := ordinals.SatPoint{
		OutPoint: wire.OutPoint{Hash: chainhash.Hash{0x02}, Index: 1},
		Offset:   330,
	}

	commitBlock(t, repo, 0, func(tx datagateway.BRC20DataGatewayWithTx) {
		require.NoError(t, tx.CreateInscriptionTransfers(ctx, []*entity.InscriptionTransfer{{
			InscriptionId: id,
			NewSatPoint:   firstSatPoint,
			TransferCount: 1,
		}}))
	})

	found, err := repo.GetInscriptionIdsInOutPoints(ctx, []wire.OutPoint{firstSatPoint.OutPoint})
	require.NoError(t, err)
	assert.Equal(t, []ordinals.InscriptionId{id}, found[firstSatPoint])

	commitBlock(t, repo, 1, func(tx datagateway.BRC20DataGatewayWithTx) {
		require.NoError(t, tx.CreateInscriptionTransfers(ctx, []*entity.InscriptionTransfer{{
			InscriptionId: id,
			OldSatPoint:   firstSatPoint,
			NewSatPoint:   secondSatPoint,
			TransferCount: 2,
		}}))
	})

	found, err = repo.GetInscriptionIdsInOutPoints(ctx, []wire.OutPoint{firstSatPoint.OutPoint, secondSatPoint.OutPoint})
	require.NoError(t, err)
	assert.Empty(t, found[firstSatPoint])
	assert.Equal(t, []ordinals.InscriptionId{id}, found[secondSatPoint])
}

func TestInscriptionEntryIndexes(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	entry := &ordinals.InscriptionEntry{
		Id:             ordinals.InscriptionId{TxHash: chainhash.Hash{0x07}, Index: 1},
		Number:         -5,
		SequenceNumber: 12,
		Cursed:         true,
		CreatedAt:      time.Unix(1700000000, 0).UTC(),
	}
	commitBlock(t, repo, 0, func(tx datagateway.BRC20DataGatewayWithTx) {
		require.NoError(t, tx.CreateInscriptionEntries(ctx, 0, []*ordinals.InscriptionEntry{entry}))
	})

	byId, err := repo.GetInscriptionEntryById(ctx, entry.Id)
	require.NoError(t, err)
	assert.Equal(t, entry, byId)

	byNumber, err := repo.GetInscriptionEntryByNumber(ctx, -5)
	require.NoError(t, err)
	assert.Equal(t, entry.Id, byNumber.Id)

	bySequence, err := repo.GetInscriptionEntryBySequence(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, entry.Id, bySequence.Id)
}

func TestContractMappingIsInvertible(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id := ordinals.InscriptionId{TxHash: chainhash.Hash{0x11}, Index: 0}
	address := [20]byte{0xca, 0xfe}
	commitBlock(t, repo, 0, func(tx datagateway.BRC20DataGatewayWithTx) {
		repoTx := tx.(*Repository)
		require.NoError(t, repoTx.CreateContractMapping(ctx, id, address))
	})

	gotAddress, err := repo.GetContractAddressByInscriptionId(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, address, gotAddress)

	gotId, err := repo.GetInscriptionIdByContractAddress(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, id, gotId)
}

func TestBalancesByPkScript(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	pkScript := []byte{0x51, 0x20, 0xaa}
	commitBlock(t, repo, 0, func(tx datagateway.BRC20DataGatewayWithTx) {
		require.NoError(t, tx.CreateBalances(ctx, []*entity.Balance{
			{
				PkScript:         pkScript,
				Tick:             "ordi",
				OverallBalance:   decimal.NewFromInt(100),
				AvailableBalance: decimal.NewFromInt(60),
			},
			{
				PkScript:         pkScript,
				Tick:             "sats",
				OverallBalance:   decimal.NewFromInt(7),
				AvailableBalance: decimal.NewFromInt(7),
			},
		}))
	})

	balances, err := repo.GetBalancesByPkScript(ctx, pkScript)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.True(t, balances["ordi"].AvailableBalance.Equal(decimal.NewFromInt(60)))
	assert.True(t, balances["sats"].OverallBalance.Equal(decimal.NewFromInt(7)))
}

func TestBalancesByTick(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	commitBlock(t, repo, 0, func(tx datagateway.BRC20DataGatewayWithTx) {
		require.NoError(t, tx.CreateBalances(ctx, []*entity.Balance{
			{
				PkScript:         []byte{0x51, 0x20, 0xaa},
				Tick:             "ordi",
				OverallBalance:   decimal.NewFromInt(100),
				AvailableBalance: decimal.NewFromInt(100),
			},
			{
				PkScript:         []byte{0x51, 0x20, 0xbb},
				Tick:             "ordi",
				OverallBalance:   decimal.NewFromInt(40),
				AvailableBalance: decimal.NewFromInt(10),
			},
			{
				PkScript:         []byte{0x51, 0x20, 0xcc},
				Tick:             "sats",
				OverallBalance:   decimal.NewFromInt(7),
				AvailableBalance: decimal.NewFromInt(7),
			},
		}))
	})

	balances, err := repo.GetBalancesByTick(ctx, "ordi")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	for _, balance := range balances {
		assert.Equal(t, "ordi", balance.Tick)
	}

	balances, err = repo.GetBalancesByTick(ctx, "pepe")
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestEventsByTick(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	deployId := ordinals.InscriptionId{TxHash: chainhash.Hash{0x21}, Index: 0}
	mintId := ordinals.InscriptionId{TxHash: chainhash.Hash{0x22}, Index: 0}
	transferId := ordinals.InscriptionId{TxHash: chainhash.Hash{0x23}, Index: 0}
	pkScript := []byte{0x51, 0x20, 0xaa}

	commitBlock(t, repo, 0, func(tx datagateway.BRC20DataGatewayWithTx) {
		require.NoError(t, tx.CreateEventDeploys(ctx, []*entity.EventDeploy{{
			InscriptionId: deployId,
			Tick:          "ordi",
			OriginalTick:  "ordi",
			TxHash:        deployId.TxHash,
			Timestamp:     time.Unix(1700000000, 0).UTC(),
			PkScript:      pkScript,
			TotalSupply:   decimal.NewFromInt(1000),
			LimitPerMint:  decimal.NewFromInt(10),
		}}))
		require.NoError(t, tx.CreateEventMints(ctx, []*entity.EventMint{
			{
				InscriptionId: mintId,
				Tick:          "ordi",
				OriginalTick:  "ordi",
				TxHash:        mintId.TxHash,
				Timestamp:     time.Unix(1700000000, 0).UTC(),
				PkScript:      pkScript,
				Amount:        decimal.NewFromInt(10),
			},
			{
				InscriptionId: mintId,
				Tick:          "sats",
				OriginalTick:  "sats",
				TxHash:        mintId.TxHash,
				Timestamp:     time.Unix(1700000000, 0).UTC(),
				PkScript:      pkScript,
				Amount:        decimal.NewFromInt(1),
			},
		}))
		require.NoError(t, tx.CreateEventTransferTransfers(ctx, []*entity.EventTransferTransfer{{
			InscriptionId: transferId,
			Tick:          "ordi",
			OriginalTick:  "ordi",
			TxHash:        transferId.TxHash,
			Timestamp:     time.Unix(1700000000, 0).UTC(),
			FromPkScript:  pkScript,
			ToPkScript:    []byte{0x51, 0x20, 0xbb},
			Amount:        decimal.NewFromInt(5),
		}}))
	})

	deploy, err := repo.GetEventDeployByTick(ctx, "ordi")
	require.NoError(t, err)
	assert.Equal(t, deployId, deploy.InscriptionId)
	assert.True(t, deploy.TotalSupply.Equal(decimal.NewFromInt(1000)))

	_, err = repo.GetEventDeployByTick(ctx, "pepe")
	assert.True(t, errors.Is(err, errs.NotFound))

	mints, err := repo.GetEventMintsByTick(ctx, "ordi")
	require.NoError(t, err)
	require.Len(t, mints, 1)
	assert.True(t, mints[0].Amount.Equal(decimal.NewFromInt(10)))

	transfers, err := repo.GetEventTransferTransfersByTick(ctx, "ordi")
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, transferId, transfers[0].InscriptionId)
	assert.True(t, transfers[0].Amount.Equal(decimal.NewFromInt(5)))
}
