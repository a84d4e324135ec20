package brc20

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
)

func transferWithContent(content string) *entity.InscriptionTransfer {
	return &entity.InscriptionTransfer{
		Content: []byte(content),
	}
}

func TestParsePayloadDeploy(t *testing.T) {
	t.Run("basic_deploy", func(t *testing.T) {
		payload, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"21000000","lim":"1000"}`))
		require.NoError(t, err)
		assert.Equal(t, OperationDeploy, payload.Op)
		assert.Equal(t, "ordi", payload.Tick)
		assert.True(t, payload.Max.Equal(decimal.NewFromInt(21000000)))
		assert.True(t, payload.Lim.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, uint16(18), payload.Dec)
		assert.False(t, payload.SelfMint)
	})
	t.Run("tick_case_is_preserved", func(t *testing.T) {
		payload, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"deploy","tick":"ORDI","max":"100"}`))
		require.NoError(t, err)
		assert.Equal(t, "ORDI", payload.Tick)
		assert.Equal(t, "ORDI", payload.OriginalTick)
	})
	t.Run("lim_defaults_to_max", func(t *testing.T) {
		payload, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"100"}`))
		require.NoError(t, err)
		assert.True(t, payload.Lim.Equal(decimal.NewFromInt(100)))
	})
	t.Run("dec_over_18_rejected", func(t *testing.T) {
		_, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"100","dec":"19"}`))
		assert.ErrorIs(t, err, ErrInvalidDec)
	})
	t.Run("max_over_uint64_rejected", func(t *testing.T) {
		_, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"18446744073709551616"}`))
		assert.ErrorIs(t, err, ErrNumberOverflow)
	})
	t.Run("zero_max_rejected", func(t *testing.T) {
		_, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"0"}`))
		assert.ErrorIs(t, err, ErrInvalidMax)
	})
	t.Run("five_byte_tick_requires_self_mint", func(t *testing.T) {
		_, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"deploy","tick":"hello","max":"100"}`))
		assert.ErrorIs(t, err, ErrInvalidSelfMint)

		payload, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"deploy","tick":"hello","max":"100","self_mint":"true"}`))
		require.NoError(t, err)
		assert.True(t, payload.SelfMint)
	})
	t.Run("self_mint_zero_max_means_unlimited", func(t *testing.T) {
		payload, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"deploy","tick":"hello","max":"0","self_mint":"true"}`))
		require.NoError(t, err)
		assert.True(t, payload.Max.Equal(maxNumber))
		assert.True(t, payload.Lim.Equal(maxNumber))
	})
	t.Run("too_many_decimals_rejected", func(t *testing.T) {
		_, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"100.001","dec":"2"}`))
		assert.Error(t, err)
	})
}

func TestParsePayloadMintTransfer(t *testing.T) {
	t.Run("mint", func(t *testing.T) {
		payload, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"mint","tick":"ordi","amt":"1000"}`))
		require.NoError(t, err)
		assert.Equal(t, OperationMint, payload.Op)
		assert.True(t, payload.Amt.Equal(decimal.NewFromInt(1000)))
	})
	t.Run("transfer", func(t *testing.T) {
		payload, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"transfer","tick":"ordi","amt":"12.5"}`))
		require.NoError(t, err)
		assert.Equal(t, OperationTransfer, payload.Op)
		assert.True(t, payload.Amt.Equal(decimal.NewFromFloat(12.5)))
	})
	t.Run("missing_amt_rejected", func(t *testing.T) {
		_, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"mint","tick":"ordi"}`))
		assert.ErrorIs(t, err, ErrInvalidAmt)
	})
	t.Run("negative_amt_rejected", func(t *testing.T) {
		_, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"mint","tick":"ordi","amt":"-5"}`))
		assert.Error(t, err)
	})
}

func TestParsePayloadInvalid(t *testing.T) {
	t.Run("not_json", func(t *testing.T) {
		_, err := ParsePayload(transferWithContent(`hello`))
		assert.Error(t, err)
	})
	t.Run("wrong_protocol", func(t *testing.T) {
		_, err := ParsePayload(transferWithContent(`{"p":"brc-21","op":"mint","tick":"ordi","amt":"1"}`))
		assert.ErrorIs(t, err, ErrInvalidProtocol)
	})
	t.Run("wrong_operation", func(t *testing.T) {
		_, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"burn","tick":"ordi","amt":"1"}`))
		assert.ErrorIs(t, err, ErrInvalidOperation)
	})
	t.Run("bad_tick_length", func(t *testing.T) {
		_, err := ParsePayload(transferWithContent(`{"p":"brc-20","op":"mint","tick":"toolong","amt":"1"}`))
		assert.ErrorIs(t, err, ErrInvalidTickLength)
	})
}

func TestParseProgPayload(t *testing.T) {
	t.Run("deploy", func(t *testing.T) {
		payload, err := ParseProgPayload(transferWithContent(`{"p":"brc20-prog","op":"deploy","d":"0x6001600101"}`))
		require.NoError(t, err)
		assert.Equal(t, ProgOperationDeploy, payload.Op)
		assert.Equal(t, []byte{0x60, 0x01, 0x60, 0x01, 0x01}, payload.Data)
	})
	t.Run("call", func(t *testing.T) {
		target := "c9a3a8a53e7b8b3ea9d5e4f6a9b6c7d8e9f0a1b2c3d4e5f60718293a4b5c6d7ei0"
		payload, err := ParseProgPayload(transferWithContent(`{"p":"brc20-prog","op":"call","i":"` + target + `","d":"deadbeef"}`))
		require.NoError(t, err)
		assert.Equal(t, ProgOperationCall, payload.Op)
		assert.Equal(t, target, payload.TargetId.String())
	})
	t.Run("call_without_target_rejected", func(t *testing.T) {
		_, err := ParseProgPayload(transferWithContent(`{"p":"brc20-prog","op":"call","d":"deadbeef"}`))
		assert.ErrorIs(t, err, ErrInvalidProgTarget)
	})
	t.Run("wrong_protocol", func(t *testing.T) {
		_, err := ParseProgPayload(transferWithContent(`{"p":"brc-20","op":"deploy","d":"00"}`))
		assert.ErrorIs(t, err, ErrInvalidProgProtocol)
	})
	t.Run("bad_hex", func(t *testing.T) {
		_, err := ParseProgPayload(transferWithContent(`{"p":"brc20-prog","op":"deploy","d":"zz"}`))
		assert.ErrorIs(t, err, ErrInvalidProgData)
	})
}
