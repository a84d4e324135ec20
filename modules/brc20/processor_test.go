package brc20

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/evm"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
	kvrepo "github.com/subfrost/brc20shrew/modules/brc20/internal/repository/kv"
	"github.com/subfrost/brc20shrew/modules/brc20/usecase"
	"github.com/subfrost/brc20shrew/pkg/kv/leveldb"
)

var testTimestamp = time.Unix(1700000000, 0)

type testHarness struct {
	t         *testing.T
	ctx       context.Context
	repo      *kvrepo.Repository
	processor *Processor
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	ctx := context.Background()
	repo := kvrepo.NewRepository(leveldb.NewMemory())
	processor, err := NewProcessor(repo, repo, nil, common.NetworkMainnet, evm.Address{}, nil)
	require.NoError(t, err)
	require.NoError(t, processor.VerifyStates(ctx))
	return &testHarness{
		t:         t,
		ctx:       ctx,
		repo:      repo,
		processor: processor,
	}
}

// fund registers an outpoint value as if its tx was indexed earlier.
func (h *testHarness) fund(name string, value uint64) wire.OutPoint {
	outPoint := wire.OutPoint{Hash: chainhash.HashH([]byte("fund-" + name))}
	h.processor.outPointValueCache.Add(outPoint, value)
	return outPoint
}

func (h *testHarness) process(blocks ...*types.Block) {
	h.t.Helper()
	require.NoError(h.t, h.processor.Process(h.ctx, blocks))
}

func testPkScript(seed byte) []byte {
	// p2tr-shaped script, the content is irrelevant to the ledger
	script := []byte{txscript.OP_1, txscript.OP_DATA_32}
	for i := 0; i < 32; i++ {
		script = append(script, seed)
	}
	return script
}

func txHashFromName(name string) chainhash.Hash {
	return chainhash.HashH([]byte("tx-" + name))
}

func makeTx(name string, txIns []*types.TxIn, txOuts []*types.TxOut) *types.Transaction {
	return &types.Transaction{
		TxHash:  txHashFromName(name),
		Version: 2,
		TxIn:    txIns,
		TxOut:   txOuts,
	}
}

func plainInput(outPoint wire.OutPoint) *types.TxIn {
	return &types.TxIn{
		PreviousOutTxHash: outPoint.Hash,
		PreviousOutIndex:  outPoint.Index,
	}
}

func envelopeInput(outPoint wire.OutPoint, tapScript []byte) *types.TxIn {
	return &types.TxIn{
		PreviousOutTxHash: outPoint.Hash,
		PreviousOutIndex:  outPoint.Index,
		Witness:           wire.TxWitness{tapScript, {}},
	}
}

type inscriptionFields struct {
	contentType string
	content     []byte
	parents     []ordinals.InscriptionId
	delegate    *ordinals.InscriptionId
}

func envelopeScript(fields inscriptionFields) []byte {
	builder := ordinals.NewPushScriptBuilder().
		AddOp(txscript.OP_FALSE).
		AddOp(txscript.OP_IF).
		AddData([]byte("ord"))
	if fields.contentType != "" {
		builder.AddData(ordinals.TagContentType.Bytes()).
			AddData([]byte(fields.contentType))
	}
	for _, parent := range fields.parents {
		builder.AddData(ordinals.TagParent.Bytes()).
			AddData(parent.TagValue())
	}
	if fields.delegate != nil {
		builder.AddData(ordinals.TagDelegate.Bytes()).
			AddData(fields.delegate.TagValue())
	}
	if fields.content != nil {
		builder.AddData(ordinals.TagBody.Bytes()).
			AddData(fields.content)
	}
	builder.AddOp(txscript.OP_ENDIF)
	return utils.Must(builder.Script())
}

func brc20Script(payload string) []byte {
	return envelopeScript(inscriptionFields{
		contentType: "text/plain;charset=utf-8",
		content:     []byte(payload),
	})
}

// buildBlock assembles a block whose coinbase claims subsidy plus feeClaim.
func buildBlock(height int64, feeClaim uint64, txs ...*types.Transaction) *types.Block {
	blockHash := chainhash.HashH([]byte(fmt.Sprintf("block-%d", height)))
	header := types.BlockHeader{
		Hash:      blockHash,
		Height:    height,
		Timestamp: testTimestamp,
	}

	coinbaseValue := coinbaseSubsidy(height) + feeClaim
	coinbase := &types.Transaction{
		TxHash:  chainhash.HashH([]byte(fmt.Sprintf("coinbase-%d", height))),
		Version: 2,
		TxIn: []*types.TxIn{{
			PreviousOutTxHash: chainhash.Hash{},
			PreviousOutIndex:  wire.MaxPrevOutIndex,
		}},
		TxOut: []*types.TxOut{{
			PkScript: testPkScript(0xee),
			Value:    int64(coinbaseValue),
		}},
	}

	transactions := append([]*types.Transaction{coinbase}, txs...)
	for i, tx := range transactions {
		tx.BlockHeight = height
		tx.BlockHash = blockHash
		tx.Index = uint32(i)
	}
	return &types.Block{
		Header:       header,
		Transactions: transactions,
	}
}

func coinbaseSubsidy(height int64) uint64 {
	switch {
	case height < 840000:
		return 625000000
	default:
		return 312500000
	}
}

func inscriptionIdOfTx(name string) ordinals.InscriptionId {
	return ordinals.InscriptionId{TxHash: txHashFromName(name), Index: 0}
}

func TestProcessorDeployAndMint(t *testing.T) {
	h := newTestHarness(t)
	addrA := testPkScript(0x01)

	deployOut := h.fund("deploy", 10000)
	mint1Out := h.fund("mint1", 10000)
	mint2Out := h.fund("mint2", 10000)
	mint3Out := h.fund("mint3", 10000)
	mint4Out := h.fund("mint4", 10000)

	h.process(buildBlock(780000, 0,
		makeTx("deploy", []*types.TxIn{
			envelopeInput(deployOut, brc20Script(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"1000","lim":"1000"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))

	tickEntry, err := h.repo.GetTickEntryByTick(h.ctx, "ordi")
	require.NoError(t, err)
	assert.Equal(t, "ordi", tickEntry.Tick)
	assert.True(t, decimal.NewFromInt(1000).Equal(tickEntry.TotalSupply))
	assert.True(t, tickEntry.MintedAmount.IsZero())
	assert.False(t, tickEntry.IsSelfMint)

	h.process(buildBlock(780001, 0,
		makeTx("mint1", []*types.TxIn{
			envelopeInput(mint1Out, brc20Script(`{"p":"brc-20","op":"mint","tick":"ordi","amt":"100"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
		makeTx("mint2", []*types.TxIn{
			envelopeInput(mint2Out, brc20Script(`{"p":"brc-20","op":"mint","tick":"ordi","amt":"200"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))

	tickEntry, err = h.repo.GetTickEntryByTick(h.ctx, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(tickEntry.MintedAmount))

	// a mint that would exceed the remaining supply is rejected outright
	h.process(buildBlock(780002, 0,
		makeTx("mint3", []*types.TxIn{
			envelopeInput(mint3Out, brc20Script(`{"p":"brc-20","op":"mint","tick":"ordi","amt":"900"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))
	tickEntry, err = h.repo.GetTickEntryByTick(h.ctx, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(tickEntry.MintedAmount))

	// a mint fitting the remaining headroom completes the supply
	h.process(buildBlock(780003, 0,
		makeTx("mint4", []*types.TxIn{
			envelopeInput(mint4Out, brc20Script(`{"p":"brc-20","op":"mint","tick":"ordi","amt":"700"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))
	tickEntry, err = h.repo.GetTickEntryByTick(h.ctx, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(tickEntry.MintedAmount))
	assert.Equal(t, uint64(780003), tickEntry.CompletedAtHeight)

	balance, err := h.repo.GetBalance(h.ctx, addrA, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(balance.OverallBalance))
	assert.True(t, decimal.NewFromInt(1000).Equal(balance.AvailableBalance))

	// duplicate deploy of the same tick is ignored
	dupOut := h.fund("dup", 10000)
	h.process(buildBlock(780004, 0,
		makeTx("dup-deploy", []*types.TxIn{
			envelopeInput(dupOut, brc20Script(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"9999"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))
	tickEntry, err = h.repo.GetTickEntryByTick(h.ctx, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(tickEntry.TotalSupply))
	assert.Equal(t, inscriptionIdOfTx("deploy"), tickEntry.DeployInscriptionId)
}

func setupMintedTick(h *testHarness, addr []byte) {
	deployOut := h.fund("deploy", 10000)
	mintOut := h.fund("mint", 10000)
	h.process(
		buildBlock(780000, 0,
			makeTx("deploy", []*types.TxIn{
				envelopeInput(deployOut, brc20Script(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"1000","lim":"1000"}`)),
			}, []*types.TxOut{{PkScript: addr, Value: 10000}}),
		),
		buildBlock(780001, 0,
			makeTx("mint", []*types.TxIn{
				envelopeInput(mintOut, brc20Script(`{"p":"brc-20","op":"mint","tick":"ordi","amt":"1000"}`)),
			}, []*types.TxOut{{PkScript: addr, Value: 10000}}),
		),
	)
}

func TestProcessorTwoPhaseTransfer(t *testing.T) {
	h := newTestHarness(t)
	addrA := testPkScript(0x01)
	addrB := testPkScript(0x02)
	addrC := testPkScript(0x03)
	setupMintedTick(h, addrA)

	transferOut := h.fund("transfer", 10000)
	h.process(buildBlock(780002, 0,
		makeTx("transfer", []*types.TxIn{
			envelopeInput(transferOut, brc20Script(`{"p":"brc-20","op":"transfer","tick":"ordi","amt":"300"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))

	// inscribing escrows the amount from the available balance
	balanceA, err := h.repo.GetBalance(h.ctx, addrA, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(balanceA.OverallBalance))
	assert.True(t, decimal.NewFromInt(700).Equal(balanceA.AvailableBalance))

	inscribeEvent, err := h.repo.GetEventInscribeTransferByInscriptionId(h.ctx, inscriptionIdOfTx("transfer"))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(inscribeEvent.Amount))

	// spending the transfer inscription settles the amount to the receiver
	h.process(buildBlock(780003, 0,
		makeTx("settle", []*types.TxIn{
			plainInput(wire.OutPoint{Hash: txHashFromName("transfer"), Index: 0}),
		}, []*types.TxOut{{PkScript: addrB, Value: 9000}}),
	))

	balanceA, err = h.repo.GetBalance(h.ctx, addrA, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(700).Equal(balanceA.OverallBalance))
	assert.True(t, decimal.NewFromInt(700).Equal(balanceA.AvailableBalance))

	balanceB, err := h.repo.GetBalance(h.ctx, addrB, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(balanceB.OverallBalance))
	assert.True(t, decimal.NewFromInt(300).Equal(balanceB.AvailableBalance))

	// moving the settled inscription again has no ledger effect
	h.process(buildBlock(780004, 0,
		makeTx("move-again", []*types.TxIn{
			plainInput(wire.OutPoint{Hash: txHashFromName("settle"), Index: 0}),
		}, []*types.TxOut{{PkScript: addrC, Value: 8000}}),
	))

	balanceB, err = h.repo.GetBalance(h.ctx, addrB, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(balanceB.OverallBalance))
	balanceC, err := h.repo.GetBalance(h.ctx, addrC, "ordi")
	if err == nil {
		assert.True(t, balanceC.OverallBalance.IsZero())
	}
}

func TestProcessorTransferSpentAsFee(t *testing.T) {
	h := newTestHarness(t)
	addrA := testPkScript(0x01)
	addrC := testPkScript(0x03)
	setupMintedTick(h, addrA)

	transferOut := h.fund("transfer", 10000)
	h.process(buildBlock(780002, 0,
		makeTx("transfer", []*types.TxIn{
			envelopeInput(transferOut, brc20Script(`{"p":"brc-20","op":"transfer","tick":"ordi","amt":"300"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))

	balanceA, err := h.repo.GetBalance(h.ctx, addrA, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(700).Equal(balanceA.AvailableBalance))

	// the inscription sits at offset 10000 (after the first input) but the
	// outputs only cover 8000 sats, so it rides the fee into the coinbase
	feedOut := h.fund("feed", 10000)
	h.process(buildBlock(780003, 12000,
		makeTx("spend-as-fee", []*types.TxIn{
			plainInput(feedOut),
			plainInput(wire.OutPoint{Hash: txHashFromName("transfer"), Index: 0}),
		}, []*types.TxOut{{PkScript: addrC, Value: 8000}}),
	))

	// the escrowed amount returns to the sender
	balanceA, err = h.repo.GetBalance(h.ctx, addrA, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(balanceA.OverallBalance))
	assert.True(t, decimal.NewFromInt(1000).Equal(balanceA.AvailableBalance))

	balanceC, err := h.repo.GetBalance(h.ctx, addrC, "ordi")
	if err == nil {
		assert.True(t, balanceC.OverallBalance.IsZero())
	}
}

func TestProcessorCursedAndJubilee(t *testing.T) {
	doubleEnvelope := func() []byte {
		first := envelopeScript(inscriptionFields{
			contentType: "text/plain",
			content:     []byte("first"),
		})
		second := envelopeScript(inscriptionFields{
			contentType: "text/plain",
			content:     []byte("second"),
		})
		return append(first, second...)
	}

	t.Run("pre_jubilee_second_envelope_is_cursed", func(t *testing.T) {
		h := newTestHarness(t)
		revealOut := h.fund("reveal", 10000)
		h.process(buildBlock(780000, 0,
			makeTx("reveal", []*types.TxIn{
				envelopeInput(revealOut, doubleEnvelope()),
			}, []*types.TxOut{{PkScript: testPkScript(0x01), Value: 10000}}),
		))

		blessed, err := h.repo.GetInscriptionEntryById(h.ctx, ordinals.InscriptionId{TxHash: txHashFromName("reveal"), Index: 0})
		require.NoError(t, err)
		assert.Equal(t, int64(0), blessed.Number)
		assert.False(t, blessed.Cursed)

		cursed, err := h.repo.GetInscriptionEntryById(h.ctx, ordinals.InscriptionId{TxHash: txHashFromName("reveal"), Index: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(-1), cursed.Number)
		assert.True(t, cursed.Cursed)
		assert.True(t, cursed.CursedForBRC20)
		assert.True(t, cursed.Charms.Has(ordinals.CharmCursed))
	})

	t.Run("at_jubilee_would_be_cursed_is_vindicated", func(t *testing.T) {
		h := newTestHarness(t)
		revealOut := h.fund("reveal", 10000)
		h.process(buildBlock(824544, 0,
			makeTx("reveal", []*types.TxIn{
				envelopeInput(revealOut, doubleEnvelope()),
			}, []*types.TxOut{{PkScript: testPkScript(0x01), Value: 10000}}),
		))

		vindicated, err := h.repo.GetInscriptionEntryById(h.ctx, ordinals.InscriptionId{TxHash: txHashFromName("reveal"), Index: 1})
		require.NoError(t, err)
		assert.False(t, vindicated.Cursed)
		assert.Equal(t, int64(1), vindicated.Number)
		assert.True(t, vindicated.Charms.Has(ordinals.CharmVindicated))
		// the protocol-level verdict stays cursed
		assert.True(t, vindicated.CursedForBRC20)
	})
}

func TestProcessorSelfMint(t *testing.T) {
	h := newTestHarness(t)
	addrA := testPkScript(0x01)

	deployOut := h.fund("deploy", 10000)
	h.process(buildBlock(837100, 0,
		makeTx("deploy", []*types.TxIn{
			envelopeInput(deployOut, brc20Script(`{"p":"brc-20","op":"deploy","tick":"ordii","max":"1000","lim":"1000","self_mint":"true"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))

	tickEntry, err := h.repo.GetTickEntryByTick(h.ctx, "ordii")
	require.NoError(t, err)
	assert.True(t, tickEntry.IsSelfMint)
	deployId := inscriptionIdOfTx("deploy")

	// a mint without the deploy inscription as parent is rejected
	mint1Out := h.fund("mint1", 10000)
	h.process(buildBlock(837101, 0,
		makeTx("orphan-mint", []*types.TxIn{
			envelopeInput(mint1Out, brc20Script(`{"p":"brc-20","op":"mint","tick":"ordii","amt":"100"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))
	tickEntry, err = h.repo.GetTickEntryByTick(h.ctx, "ordii")
	require.NoError(t, err)
	assert.True(t, tickEntry.MintedAmount.IsZero())

	// parent references are honored only when the reveal tx spends the output
	// holding the parent inscription
	mint2Out := h.fund("mint2", 10000)
	mintScript := envelopeScript(inscriptionFields{
		contentType: "text/plain;charset=utf-8",
		content:     []byte(`{"p":"brc-20","op":"mint","tick":"ordii","amt":"100"}`),
		parents:     []ordinals.InscriptionId{deployId},
	})
	h.process(buildBlock(837102, 0,
		makeTx("parent-mint", []*types.TxIn{
			envelopeInput(mint2Out, mintScript),
			plainInput(wire.OutPoint{Hash: txHashFromName("deploy"), Index: 0}),
		}, []*types.TxOut{{PkScript: addrA, Value: 18000}}),
	))
	tickEntry, err = h.repo.GetTickEntryByTick(h.ctx, "ordii")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(tickEntry.MintedAmount))

	parents, err := h.repo.GetInscriptionParents(h.ctx, inscriptionIdOfTx("parent-mint"))
	require.NoError(t, err)
	assert.Equal(t, []ordinals.InscriptionId{deployId}, parents)
}

func TestProcessorTickCaseSensitivity(t *testing.T) {
	h := newTestHarness(t)
	addrA := testPkScript(0x01)

	// ticks differing only in case deploy as distinct tokens
	h.process(buildBlock(780000, 0,
		makeTx("deploy-lower", []*types.TxIn{
			envelopeInput(h.fund("deploy-lower", 10000), brc20Script(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"1000","lim":"1000"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
		makeTx("deploy-upper", []*types.TxIn{
			envelopeInput(h.fund("deploy-upper", 10000), brc20Script(`{"p":"brc-20","op":"deploy","tick":"ORDI","max":"500"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))

	lower, err := h.repo.GetTickEntryByTick(h.ctx, "ordi")
	require.NoError(t, err)
	assert.Equal(t, inscriptionIdOfTx("deploy-lower"), lower.DeployInscriptionId)
	assert.True(t, decimal.NewFromInt(1000).Equal(lower.TotalSupply))

	upper, err := h.repo.GetTickEntryByTick(h.ctx, "ORDI")
	require.NoError(t, err)
	assert.Equal(t, inscriptionIdOfTx("deploy-upper"), upper.DeployInscriptionId)
	assert.True(t, decimal.NewFromInt(500).Equal(upper.TotalSupply))

	_, err = h.repo.GetTickEntryByTick(h.ctx, "Ordi")
	assert.Error(t, err)

	// each mint moves only the exactly matching ticker
	h.process(buildBlock(780001, 0,
		makeTx("mint-lower", []*types.TxIn{
			envelopeInput(h.fund("mint-lower", 10000), brc20Script(`{"p":"brc-20","op":"mint","tick":"ordi","amt":"100"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
		makeTx("mint-upper", []*types.TxIn{
			envelopeInput(h.fund("mint-upper", 10000), brc20Script(`{"p":"brc-20","op":"mint","tick":"ORDI","amt":"50"}`)),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))

	lower, err = h.repo.GetTickEntryByTick(h.ctx, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(lower.MintedAmount))
	upper, err = h.repo.GetTickEntryByTick(h.ctx, "ORDI")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(upper.MintedAmount))

	balanceLower, err := h.repo.GetBalance(h.ctx, addrA, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(balanceLower.OverallBalance))
	balanceUpper, err := h.repo.GetBalance(h.ctx, addrA, "ORDI")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(balanceUpper.OverallBalance))
}

func TestProcessorSharedParentChildren(t *testing.T) {
	h := newTestHarness(t)
	addrA := testPkScript(0x01)

	parentOut := h.fund("parent", 10000)
	h.process(buildBlock(780000, 0,
		makeTx("parent", []*types.TxIn{
			envelopeInput(parentOut, envelopeScript(inscriptionFields{contentType: "text/plain", content: []byte("parent")})),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))
	parentId := inscriptionIdOfTx("parent")

	childScript := func(name string) []byte {
		return envelopeScript(inscriptionFields{
			contentType: "text/plain",
			content:     []byte(name),
			parents:     []ordinals.InscriptionId{parentId},
		})
	}

	// the parent inscription rides through each child's reveal tx in turn, so
	// all three children of one parent land in a single block
	h.process(buildBlock(780001, 0,
		makeTx("child-a", []*types.TxIn{
			envelopeInput(h.fund("child-a", 10000), childScript("child-a")),
			plainInput(wire.OutPoint{Hash: txHashFromName("parent"), Index: 0}),
		}, []*types.TxOut{{PkScript: addrA, Value: 20000}}),
		makeTx("child-b", []*types.TxIn{
			envelopeInput(h.fund("child-b", 10000), childScript("child-b")),
			plainInput(wire.OutPoint{Hash: txHashFromName("child-a"), Index: 0}),
		}, []*types.TxOut{{PkScript: addrA, Value: 30000}}),
		makeTx("child-c", []*types.TxIn{
			envelopeInput(h.fund("child-c", 10000), childScript("child-c")),
			plainInput(wire.OutPoint{Hash: txHashFromName("child-b"), Index: 0}),
		}, []*types.TxOut{{PkScript: addrA, Value: 40000}}),
	))

	for _, name := range []string{"child-a", "child-b", "child-c"} {
		parents, err := h.repo.GetInscriptionParents(h.ctx, inscriptionIdOfTx(name))
		require.NoError(t, err)
		assert.Equal(t, []ordinals.InscriptionId{parentId}, parents, name)
	}

	// children sharing one parent in a block are persisted in id order;
	// replaying the same block must reproduce the same list
	expected := []ordinals.InscriptionId{
		inscriptionIdOfTx("child-a"),
		inscriptionIdOfTx("child-b"),
		inscriptionIdOfTx("child-c"),
	}
	slices.SortFunc(expected, compareInscriptionIds)
	children, err := h.repo.GetInscriptionChildren(h.ctx, parentId)
	require.NoError(t, err)
	assert.Equal(t, expected, children)
}

func TestProcessorDelegates(t *testing.T) {
	h := newTestHarness(t)
	addrA := testPkScript(0x01)
	uc := usecase.New(h.repo, h.repo)

	h.process(buildBlock(780000, 0,
		makeTx("target-u", []*types.TxIn{
			envelopeInput(h.fund("target-u", 10000), envelopeScript(inscriptionFields{contentType: "text/plain", content: []byte("u")})),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))
	uId := inscriptionIdOfTx("target-u")

	h.process(buildBlock(780001, 0,
		makeTx("target-t", []*types.TxIn{
			envelopeInput(h.fund("target-t", 10000), envelopeScript(inscriptionFields{contentType: "text/plain", content: []byte("t"), delegate: &uId})),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))
	tId := inscriptionIdOfTx("target-t")

	missing := ordinals.InscriptionId{TxHash: chainhash.HashH([]byte("missing")), Index: 0}
	selfId := inscriptionIdOfTx("self-link")
	h.process(buildBlock(780002, 0,
		makeTx("src-a", []*types.TxIn{
			envelopeInput(h.fund("src-a", 10000), envelopeScript(inscriptionFields{contentType: "text/plain", content: []byte("a"), delegate: &tId})),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
		makeTx("src-b", []*types.TxIn{
			envelopeInput(h.fund("src-b", 10000), envelopeScript(inscriptionFields{contentType: "text/plain", content: []byte("b"), delegate: &tId})),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
		makeTx("dangling", []*types.TxIn{
			envelopeInput(h.fund("dangling", 10000), envelopeScript(inscriptionFields{contentType: "text/plain", content: []byte("d"), delegate: &missing})),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
		makeTx("self-link", []*types.TxIn{
			envelopeInput(h.fund("self-link", 10000), envelopeScript(inscriptionFields{contentType: "text/plain", content: []byte("s"), delegate: &selfId})),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))

	// valid links are recorded
	delegate, err := h.repo.GetInscriptionDelegate(h.ctx, inscriptionIdOfTx("src-a"))
	require.NoError(t, err)
	assert.Equal(t, tId, delegate)

	// a dangling target and a link closing a cycle are both dropped
	_, err = h.repo.GetInscriptionDelegate(h.ctx, inscriptionIdOfTx("dangling"))
	assert.Error(t, err)
	_, err = h.repo.GetInscriptionDelegate(h.ctx, inscriptionIdOfTx("self-link"))
	assert.Error(t, err)

	// content resolution follows exactly one hop; the target's own delegate
	// is ignored
	content, err := uc.GetInscriptionContent(h.ctx, inscriptionIdOfTx("src-a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("t"), content.Content)

	content, err = uc.GetInscriptionContent(h.ctx, tId)
	require.NoError(t, err)
	assert.Equal(t, []byte("u"), content.Content)

	// inscriptions without a valid link render their own content
	content, err = uc.GetInscriptionContent(h.ctx, inscriptionIdOfTx("dangling"))
	require.NoError(t, err)
	assert.Equal(t, []byte("d"), content.Content)

	// sources delegating to one target in a block are listed in id order
	expected := []ordinals.InscriptionId{inscriptionIdOfTx("src-a"), inscriptionIdOfTx("src-b")}
	slices.SortFunc(expected, compareInscriptionIds)
	sources, err := h.repo.GetDelegateSources(h.ctx, tId)
	require.NoError(t, err)
	assert.Equal(t, expected, sources)
}

func progScript(t *testing.T, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return envelopeScript(inscriptionFields{
		contentType: "application/json",
		content:     raw,
	})
}

func TestProcessorProgramDeployAndCall(t *testing.T) {
	h := newTestHarness(t)
	addrA := testPkScript(0x01)

	// runtime stores 42 at slot 0; the init stub CODECOPYs and returns it
	initCode := "6006600c60003960066000f3602a60005500"

	deployOut := h.fund("prog-deploy", 10000)
	h.process(buildBlock(780000, 0,
		makeTx("prog-deploy", []*types.TxIn{
			envelopeInput(deployOut, progScript(t, map[string]string{
				"p": "brc20-prog", "op": "deploy", "d": "0x" + initCode,
			})),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))

	deployId := inscriptionIdOfTx("prog-deploy")
	contractAddress, err := h.repo.GetContractAddressByInscriptionId(h.ctx, deployId)
	require.NoError(t, err)
	assert.Equal(t, evm.ContractAddress(evm.SenderAddress(deployId), 0), contractAddress)

	// deployer account carries the bumped nonce
	sender, err := h.repo.GetAccount(h.ctx, evm.SenderAddress(deployId))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sender.Nonce)

	callOut := h.fund("prog-call", 10000)
	h.process(buildBlock(780001, 0,
		makeTx("prog-call", []*types.TxIn{
			envelopeInput(callOut, progScript(t, map[string]string{
				"p": "brc20-prog", "op": "call", "i": deployId.String(), "d": "0x",
			})),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))

	value, err := h.repo.GetStorageValue(h.ctx, contractAddress, [32]byte{})
	require.NoError(t, err)
	expected := [32]byte{}
	expected[31] = 0x2a
	assert.Equal(t, expected, value)
}

func TestProcessorProgramCallMissingTarget(t *testing.T) {
	h := newTestHarness(t)
	addrA := testPkScript(0x01)

	missing := ordinals.InscriptionId{TxHash: chainhash.HashH([]byte("missing")), Index: 0}
	callOut := h.fund("prog-call", 10000)
	h.process(buildBlock(780000, 0,
		makeTx("prog-call", []*types.TxIn{
			envelopeInput(callOut, progScript(t, map[string]string{
				"p": "brc20-prog", "op": "call", "i": missing.String(), "d": "0x",
			})),
		}, []*types.TxOut{{PkScript: addrA, Value: 10000}}),
	))

	// the block still flushes with a failed program call event
	indexedBlock, err := h.repo.GetIndexedBlockByHeight(h.ctx, 780000)
	require.NoError(t, err)
	assert.NotEqual(t, chainhash.Hash{}, indexedBlock.EventHash)
}

func TestProcessorEventHashDeterminism(t *testing.T) {
	buildScenario := func() []*types.Block {
		return []*types.Block{
			buildBlock(780000, 0,
				makeTx("deploy", []*types.TxIn{
					envelopeInput(wire.OutPoint{Hash: chainhash.HashH([]byte("fund-deploy"))}, brc20Script(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"1000","lim":"1000"}`)),
				}, []*types.TxOut{{PkScript: testPkScript(0x01), Value: 10000}}),
			),
			buildBlock(780001, 0,
				makeTx("mint", []*types.TxIn{
					envelopeInput(wire.OutPoint{Hash: chainhash.HashH([]byte("fund-mint"))}, brc20Script(`{"p":"brc-20","op":"mint","tick":"ordi","amt":"500"}`)),
				}, []*types.TxOut{{PkScript: testPkScript(0x01), Value: 10000}}),
				makeTx("transfer", []*types.TxIn{
					envelopeInput(wire.OutPoint{Hash: chainhash.HashH([]byte("fund-transfer"))}, brc20Script(`{"p":"brc-20","op":"transfer","tick":"ordi","amt":"200"}`)),
				}, []*types.TxOut{{PkScript: testPkScript(0x01), Value: 10000}}),
			),
		}
	}

	run := func() *entity.IndexedBlock {
		h := newTestHarness(t)
		h.fund("deploy", 10000)
		h.fund("mint", 10000)
		h.fund("transfer", 10000)
		h.process(buildScenario()...)

		indexedBlock, err := h.repo.GetIndexedBlockByHeight(h.ctx, 780001)
		require.NoError(t, err)
		return indexedBlock
	}

	first := run()
	second := run()
	assert.NotEqual(t, chainhash.Hash{}, first.EventHash)
	assert.Equal(t, first.EventHash, second.EventHash)
	assert.Equal(t, first.CumulativeEventHash, second.CumulativeEventHash)
}

func TestProcessorRevertData(t *testing.T) {
	h := newTestHarness(t)
	addrA := testPkScript(0x01)
	setupMintedTick(h, addrA)

	balance, err := h.repo.GetBalance(h.ctx, addrA, "ordi")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(balance.OverallBalance))

	// reverting the mint block restores the pre-mint state
	require.NoError(t, h.processor.RevertData(h.ctx, 780001))

	_, err = h.repo.GetBalance(h.ctx, addrA, "ordi")
	assert.Error(t, err)

	tickEntry, err := h.repo.GetTickEntryByTick(h.ctx, "ordi")
	require.NoError(t, err)
	assert.True(t, tickEntry.MintedAmount.IsZero())
}

func TestIsBRC20Inscription(t *testing.T) {
	assert.True(t, isBRC20Inscription(ordinals.Inscription{ContentType: "text/plain"}))
	assert.True(t, isBRC20Inscription(ordinals.Inscription{ContentType: "text/plain;charset=utf-8"}))
	assert.True(t, isBRC20Inscription(ordinals.Inscription{ContentType: "application/json"}))
	assert.True(t, isBRC20Inscription(ordinals.Inscription{ContentType: "image/png", Content: []byte(`{"p":"brc-20"}`)}))
	assert.False(t, isBRC20Inscription(ordinals.Inscription{ContentType: "image/png", Content: []byte{0x89, 0x50}}))
	assert.False(t, isBRC20Inscription(ordinals.Inscription{}))
}

func TestParseBridgeContract(t *testing.T) {
	address, err := parseBridgeContract("")
	require.NoError(t, err)
	assert.Equal(t, evm.Address{}, address)

	raw := "00112233445566778899aabbccddeeff00112233"
	address, err = parseBridgeContract("0x" + raw)
	require.NoError(t, err)
	assert.Equal(t, raw, hex.EncodeToString(address[:]))

	_, err = parseBridgeContract("0xdeadbeef")
	assert.Error(t, err)
}
