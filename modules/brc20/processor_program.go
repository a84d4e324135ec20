package brc20

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/core/types"
	internalbrc20 "github.com/subfrost/brc20shrew/modules/brc20/internal/brc20"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/datagateway"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/evm"
	"github.com/subfrost/brc20shrew/pkg/logger"
	"github.com/subfrost/brc20shrew/pkg/logger/slogx"
)

// runPendingPrograms executes the block's contract deploy and call payloads in
// transfer order. State writes go through the same transaction as the block
// flush, so a failed flush rolls contract state back with everything else.
func (p *Processor) runPendingPrograms(ctx context.Context, brc20DgTx datagateway.BRC20DataGatewayWithTx, blockHeader types.BlockHeader) error {
	blockHeight := uint64(blockHeader.Height)
	for _, payload := range p.pendingPrograms {
		transfer := payload.Transfer
		entry, err := p.getInscriptionEntryById(ctx, transfer.InscriptionId)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				continue
			}
			return errors.Wrap(err, "failed to get inscription entry")
		}

		sender := evm.SenderAddress(transfer.InscriptionId)
		state := evm.NewStateDB(ctx, brc20DgTx)
		vm := evm.NewEVM(state, evm.BlockContext{
			Height:    blockHeight,
			Timestamp: uint64(blockHeader.Timestamp.Unix()),
		}, sender, &processorLedgerHooks{p: p, ctx: ctx, blockHeight: blockHeight}, p.bridgeContract)

		switch payload.Op {
		case internalbrc20.ProgOperationDeploy:
			result, err := vm.Deploy(payload.Data)
			if err != nil {
				return errors.Wrap(err, "failed to execute contract deployment")
			}
			if result.Success {
				if err := state.Commit(); err != nil {
					return errors.Wrap(err, "failed to commit contract state")
				}
				if err := brc20DgTx.CreateContractMapping(ctx, transfer.InscriptionId, result.ContractAddress); err != nil {
					return errors.Wrap(err, "failed to create contract mapping")
				}
			}

			p.eventProgramDeployCount++
			event := &entity.EventProgramDeploy{
				Id:                p.eventProgramDeployCount,
				InscriptionId:     transfer.InscriptionId,
				InscriptionNumber: entry.Number,
				TxHash:            transfer.TxHash,
				BlockHeight:       blockHeight,
				TxIndex:           transfer.TxIndex,
				Timestamp:         blockHeader.Timestamp,
				PkScript:          transfer.NewPkScript,
				Sender:            sender,
				ContractAddress:   result.ContractAddress,
				Success:           result.Success,
				GasUsed:           result.GasUsed,
				RevertReason:      result.RevertReason,
			}
			p.newEventProgramDeploys = append(p.newEventProgramDeploys, event)
			p.appendEventHash(getEventProgramDeployString(event))

			logger.DebugContext(ctx, "Executed contract deployment",
				slogx.Stringer("inscription_id", transfer.InscriptionId),
				slogx.Bool("success", result.Success),
				slogx.Uint64("gas_used", result.GasUsed),
			)
		case internalbrc20.ProgOperationCall:
			contractAddress, err := brc20DgTx.GetContractAddressByInscriptionId(ctx, payload.TargetId)
			if err != nil && !errors.Is(err, errs.NotFound) {
				return errors.Wrap(err, "failed to get contract address")
			}

			var result *evm.ExecutionResult
			if errors.Is(err, errs.NotFound) {
				// a call targeting an unknown deploy inscription records a
				// failed event instead of aborting the block
				result = &evm.ExecutionResult{
					Success:      false,
					RevertReason: "no contract deployed by target inscription",
				}
			} else {
				result, err = vm.Call(contractAddress, payload.Data)
				if err != nil {
					return errors.Wrap(err, "failed to execute contract call")
				}
				if result.Success {
					if err := state.Commit(); err != nil {
						return errors.Wrap(err, "failed to commit contract state")
					}
				}
			}

			p.eventProgramCallCount++
			event := &entity.EventProgramCall{
				Id:                p.eventProgramCallCount,
				InscriptionId:     transfer.InscriptionId,
				InscriptionNumber: entry.Number,
				TxHash:            transfer.TxHash,
				BlockHeight:       blockHeight,
				TxIndex:           transfer.TxIndex,
				Timestamp:         blockHeader.Timestamp,
				PkScript:          transfer.NewPkScript,
				Sender:            sender,
				ContractAddress:   contractAddress,
				TargetId:          payload.TargetId,
				Success:           result.Success,
				GasUsed:           result.GasUsed,
				RevertReason:      result.RevertReason,
				ReturnData:        result.ReturnData,
			}
			p.newEventProgramCalls = append(p.newEventProgramCalls, event)
			p.appendEventHash(getEventProgramCallString(event))

			logger.DebugContext(ctx, "Executed contract call",
				slogx.Stringer("inscription_id", transfer.InscriptionId),
				slogx.Stringer("target_id", payload.TargetId),
				slogx.Bool("success", result.Success),
				slogx.Uint64("gas_used", result.GasUsed),
			)
		}
	}
	return nil
}

// ledgerScale converts between token decimals and the 18-decimal integers
// exposed to contracts.
const ledgerScale = 18

// processorLedgerHooks exposes the in-flight block's balance state to native
// contracts. Adjustments land in the processor's balance buffers and flush
// with the rest of the block.
type processorLedgerHooks struct {
	p           *Processor
	ctx         context.Context
	blockHeight uint64
}

var _ evm.LedgerHooks = (*processorLedgerHooks)(nil)

func (h *processorLedgerHooks) OverallBalance(tick string, pkScript []byte) (*uint256.Int, error) {
	balance, err := h.p.getBalance(h.ctx, pkScript, tick)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	scaled, overflow := uint256.FromBig(balance.OverallBalance.Shift(ledgerScale).BigInt())
	if overflow {
		return nil, errors.New("balance overflows 256 bits")
	}
	return scaled, nil
}

func (h *processorLedgerHooks) AdjustBalance(tick string, pkScript []byte, amount *uint256.Int, credit bool) error {
	if _, err := h.p.getTickEntry(h.ctx, tick); err != nil {
		if errors.Is(err, errs.NotFound) {
			return errors.Errorf("unknown tick %q", tick)
		}
		return errors.Wrap(err, "failed to get tick entry")
	}
	delta := decimal.NewFromBigInt(amount.ToBig(), -ledgerScale)

	if !credit {
		balance, err := h.p.getBalance(h.ctx, pkScript, tick)
		if err != nil {
			return errors.Wrap(err, "failed to get balance")
		}
		if balance.AvailableBalance.LessThan(delta) {
			return errors.New("insufficient balance for debit")
		}
	}
	return h.p.updateBalance(h.ctx, pkScript, tick, h.blockHeight, func(b *entity.Balance) {
		if credit {
			b.OverallBalance = b.OverallBalance.Add(delta)
			b.AvailableBalance = b.AvailableBalance.Add(delta)
		} else {
			b.OverallBalance = b.OverallBalance.Sub(delta)
			b.AvailableBalance = b.AvailableBalance.Sub(delta)
		}
	})
}
