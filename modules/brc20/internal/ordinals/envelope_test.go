package ordinals

import (
	"testing"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/subfrost/brc20shrew/core/types"
)

func TestParseEnvelopesFromTx(t *testing.T) {
	testTx := func(t *testing.T, tx *types.Transaction, expected []*Envelope) {
		t.Helper()

		envelopes := ParseEnvelopesFromTx(tx)
		assert.Equal(t, expected, envelopes)
	}
	testParseWitness := func(t *testing.T, tapScript []byte, expected []*Envelope) {
		t.Helper()

		tx := &types.Transaction{
			Version:  2,
			LockTime: 0,
			TxIn: []*types.TxIn{
				{
					Witness: wire.TxWitness{
						tapScript,
						{},
					},
				},
			},
		}
		testTx(t, tx, expected)
	}
	testEnvelope := func(t *testing.T, payload [][]byte, expected []*Envelope) {
		t.Helper()

		builder := NewPushScriptBuilder().
			AddOp(txscript.OP_FALSE).
			AddOp(txscript.OP_IF)
		for _, data := range payload {
			builder.AddData(data)
		}
		builder.AddOp(txscript.OP_ENDIF)
		script, err := builder.Script()
		assert.NoError(t, err)

		testParseWitness(t, script, expected)
	}

	t.Run("empty_witness", func(t *testing.T) {
		testTx(t, &types.Transaction{
			Version:  2,
			LockTime: 0,
			TxIn: []*types.TxIn{{
				Witness: wire.TxWitness{},
			}},
		}, []*Envelope{})
	})
	t.Run("ignore_key_path_spends", func(t *testing.T) {
		testTx(t, &types.Transaction{
			Version:  2,
			LockTime: 0,
			TxIn: []*types.TxIn{{
				Witness: wire.TxWitness{
					utils.Must(NewPushScriptBuilder().
						AddOp(txscript.OP_FALSE).
						AddOp(txscript.OP_IF).
						AddData(protocolId).
						AddOp(txscript.OP_ENDIF).
						Script()),
				},
			}},
		}, []*Envelope{})
	})
	t.Run("parse_from_tapscript", func(t *testing.T) {
		testParseWitness(
			t,
			utils.Must(NewPushScriptBuilder().
				AddOp(txscript.OP_FALSE).
				AddOp(txscript.OP_IF).
				AddData(protocolId).
				AddOp(txscript.OP_ENDIF).
				Script()),
			[]*Envelope{{}},
		)
	})
	t.Run("with_content_type_and_body", func(t *testing.T) {
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagContentType.Bytes(),
				[]byte("text/plain;charset=utf-8"),
				TagBody.Bytes(),
				[]byte("ord"),
			},
			[]*Envelope{
				{
					Inscription: Inscription{
						Content:     []byte("ord"),
						ContentType: "text/plain;charset=utf-8",
					},
				},
			},
		)
	})
	t.Run("body_in_multiple_pushes", func(t *testing.T) {
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagContentType.Bytes(),
				[]byte("text/plain;charset=utf-8"),
				TagBody.Bytes(),
				[]byte("foo"),
				[]byte("bar"),
			},
			[]*Envelope{
				{
					Inscription: Inscription{
						Content:     []byte("foobar"),
						ContentType: "text/plain;charset=utf-8",
					},
				},
			},
		)
	})
	t.Run("no_body", func(t *testing.T) {
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagContentType.Bytes(),
				[]byte("text/plain;charset=utf-8"),
			},
			[]*Envelope{
				{
					Inscription: Inscription{
						ContentType: "text/plain;charset=utf-8",
					},
				},
			},
		)
	})
	t.Run("duplicate_field", func(t *testing.T) {
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagNop.Bytes(),
				{},
				TagNop.Bytes(),
				{},
			},
			[]*Envelope{
				{
					DuplicateField: true,
				},
			},
		)
	})
	t.Run("incomplete_field", func(t *testing.T) {
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagNop.Bytes(),
			},
			[]*Envelope{
				{
					IncompleteField: true,
				},
			},
		)
	})
	t.Run("unknown_even_fields", func(t *testing.T) {
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagUnbound.Bytes(),
				{0x00},
			},
			[]*Envelope{
				{
					UnrecognizedEvenField: true,
				},
			},
		)
	})
	t.Run("pointer_field_is_recognized", func(t *testing.T) {
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagPointer.Bytes(),
				{0x01},
			},
			[]*Envelope{
				{
					Inscription: Inscription{
						Pointer: lo.ToPtr(uint64(1)),
					},
				},
			},
		)
	})
	t.Run("single_parent", func(t *testing.T) {
		parent := InscriptionId{
			TxHash: chainhash.Hash{0x01},
			Index:  0,
		}
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagParent.Bytes(),
				parent.TagValue(),
			},
			[]*Envelope{
				{
					Inscription: Inscription{
						Parents: []InscriptionId{parent},
					},
				},
			},
		)
	})
	t.Run("repeated_parent_tags_accumulate", func(t *testing.T) {
		parent0 := InscriptionId{TxHash: chainhash.Hash{0x01}, Index: 0}
		parent1 := InscriptionId{TxHash: chainhash.Hash{0x02}, Index: 7}
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagParent.Bytes(),
				parent0.TagValue(),
				TagParent.Bytes(),
				parent1.TagValue(),
			},
			[]*Envelope{
				{
					Inscription: Inscription{
						Parents: []InscriptionId{parent0, parent1},
					},
				},
			},
		)
	})
	t.Run("malformed_parent_is_dropped", func(t *testing.T) {
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagParent.Bytes(),
				{0x01, 0x02, 0x03},
			},
			[]*Envelope{{}},
		)
	})
	t.Run("parent_with_trailing_zero_index_is_dropped", func(t *testing.T) {
		value := make([]byte, chainhash.HashSize+1)
		value[0] = 0x01
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagParent.Bytes(),
				value,
			},
			[]*Envelope{{}},
		)
	})
	t.Run("delegate_field_is_recognized", func(t *testing.T) {
		delegate := InscriptionId{TxHash: chainhash.Hash{0xab}, Index: 2}
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagDelegate.Bytes(),
				delegate.TagValue(),
			},
			[]*Envelope{
				{
					Inscription: Inscription{
						Delegate: &delegate,
					},
				},
			},
		)
	})
	t.Run("metadata_is_flattened_from_chunks", func(t *testing.T) {
		testEnvelope(
			t,
			[][]byte{
				protocolId,
				TagMetadata.Bytes(),
				{0x00},
				TagMetadata.Bytes(),
				{0x01},
			},
			[]*Envelope{
				{
					Inscription: Inscription{
						Metadata: []byte{0x00, 0x01},
					},
					DuplicateField: true,
				},
			},
		)
	})
	t.Run("pushnum_opcode_sets_flag", func(t *testing.T) {
		script := utils.Must(NewPushScriptBuilder().
			AddOp(txscript.OP_FALSE).
			AddOp(txscript.OP_IF).
			AddData(protocolId).
			AddData(TagBody.Bytes()).
			AddOp(txscript.OP_3).
			AddOp(txscript.OP_ENDIF).
			Script())
		testParseWitness(
			t,
			script,
			[]*Envelope{
				{
					Inscription: Inscription{
						Content: []byte{0x03},
					},
					PushNum: true,
				},
			},
		)
	})
	t.Run("stuttering", func(t *testing.T) {
		script := utils.Must(NewPushScriptBuilder().
			AddOp(txscript.OP_FALSE).
			AddOp(txscript.OP_FALSE).
			AddOp(txscript.OP_IF).
			AddData(protocolId).
			AddOp(txscript.OP_ENDIF).
			Script())
		testParseWitness(
			t,
			script,
			[]*Envelope{
				{
					Stutter: true,
				},
			},
		)
	})
	t.Run("no_endif", func(t *testing.T) {
		testParseWitness(
			t,
			utils.Must(NewPushScriptBuilder().
				AddOp(txscript.OP_FALSE).
				AddOp(txscript.OP_IF).
				AddData(protocolId).
				Script()),
			[]*Envelope{},
		)
	})
	t.Run("wrong_protocol_identifier", func(t *testing.T) {
		testEnvelope(
			t,
			[][]byte{
				[]byte("foo"),
			},
			[]*Envelope{},
		)
	})
	t.Run("multiple_inscriptions_in_a_single_witness", func(t *testing.T) {
		testParseWitness(
			t,
			utils.Must(NewPushScriptBuilder().
				AddOp(txscript.OP_FALSE).
				AddOp(txscript.OP_IF).
				AddData(protocolId).
				AddData(TagBody.Bytes()).
				AddData([]byte("foo")).
				AddOp(txscript.OP_ENDIF).
				AddOp(txscript.OP_FALSE).
				AddOp(txscript.OP_IF).
				AddData(protocolId).
				AddData(TagBody.Bytes()).
				AddData([]byte("bar")).
				AddOp(txscript.OP_ENDIF).
				Script()),
			[]*Envelope{
				{
					Inscription: Inscription{
						Content: []byte("foo"),
					},
				},
				{
					Inscription: Inscription{
						Content: []byte("bar"),
					},
					Offset: 1,
				},
			},
		)
	})
	t.Run("extract_from_second_input", func(t *testing.T) {
		testTx(
			t,
			&types.Transaction{
				Version:  2,
				LockTime: 0,
				TxIn: []*types.TxIn{{}, {
					Witness: wire.TxWitness{
						utils.Must(NewPushScriptBuilder().
							AddOp(txscript.OP_FALSE).
							AddOp(txscript.OP_IF).
							AddData(protocolId).
							AddData(TagBody.Bytes()).
							AddData([]byte("ord")).
							AddOp(txscript.OP_ENDIF).
							Script()),
						{},
					},
				}},
			},
			[]*Envelope{
				{
					Inscription: Inscription{
						Content: []byte("ord"),
					},
					InputIndex: 1,
				},
			},
		)
	})
}
