package brc20

import (
	"context"
	"encoding/hex"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/brc20"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
	"github.com/subfrost/brc20shrew/pkg/logger"
	"github.com/subfrost/brc20shrew/pkg/logger/slogx"
)

func (p *Processor) processBRC20States(ctx context.Context, transfers []*entity.InscriptionTransfer, blockHeader types.BlockHeader) error {
	for _, transfer := range transfers {
		entry, err := p.getInscriptionEntryById(ctx, transfer.InscriptionId)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				continue
			}
			return errors.Wrap(err, "failed to get inscription entry")
		}
		if entry.CursedForBRC20 {
			continue
		}

		switch transfer.TransferCount {
		case 1:
			// reveal phase. invalid payloads are skipped silently.
			payload, err := brc20.ParsePayload(transfer)
			if err != nil {
				progPayload, progErr := brc20.ParseProgPayload(transfer)
				if progErr != nil {
					continue
				}
				p.pendingPrograms = append(p.pendingPrograms, progPayload)
				continue
			}
			switch payload.Op {
			case brc20.OperationDeploy:
				if err := p.processDeploy(ctx, payload, entry, blockHeader); err != nil {
					return errors.Wrap(err, "failed to process deploy")
				}
			case brc20.OperationMint:
				if err := p.processMint(ctx, payload, entry, blockHeader); err != nil {
					return errors.Wrap(err, "failed to process mint")
				}
			case brc20.OperationTransfer:
				if err := p.processInscribeTransfer(ctx, payload, entry, blockHeader); err != nil {
					return errors.Wrap(err, "failed to process inscribe transfer")
				}
			}
		case 2:
			if err := p.processTransferTransfer(ctx, transfer, entry, blockHeader); err != nil {
				return errors.Wrap(err, "failed to process transfer transfer")
			}
		}
	}
	return nil
}

func (p *Processor) processDeploy(ctx context.Context, payload *brc20.Payload, entry *ordinals.InscriptionEntry, blockHeader types.BlockHeader) error {
	blockHeight := uint64(blockHeader.Height)
	_, err := p.getTickEntry(ctx, payload.Tick)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "failed to get tick entry")
	}
	// first deploy of a tick wins
	if err == nil {
		return nil
	}
	if len(payload.OriginalTick) == 5 && !brc20.IsSelfMintActivated(blockHeight, p.network) {
		return nil
	}

	tickEntry := &entity.TickEntry{
		Tick:                payload.Tick,
		OriginalTick:        payload.OriginalTick,
		TotalSupply:         payload.Max,
		Decimals:            payload.Dec,
		LimitPerMint:        payload.Lim,
		IsSelfMint:          payload.SelfMint,
		DeployInscriptionId: payload.Transfer.InscriptionId,
		DeployedAt:          blockHeader.Timestamp,
		DeployedAtHeight:    blockHeight,
		MintedAmount:        decimal.Zero,
		BurnedAmount:        decimal.Zero,
	}
	p.newTickEntries[payload.Tick] = tickEntry
	p.newTickEntryStates[payload.Tick] = tickEntry

	p.eventDeployCount++
	event := &entity.EventDeploy{
		Id:                p.eventDeployCount,
		InscriptionId:     payload.Transfer.InscriptionId,
		InscriptionNumber: entry.Number,
		Tick:              payload.Tick,
		OriginalTick:      payload.OriginalTick,
		TxHash:            payload.Transfer.TxHash,
		BlockHeight:       blockHeight,
		TxIndex:           payload.Transfer.TxIndex,
		Timestamp:         blockHeader.Timestamp,
		PkScript:          payload.Transfer.NewPkScript,
		SatPoint:          payload.Transfer.NewSatPoint,
		TotalSupply:       payload.Max,
		Decimals:          payload.Dec,
		LimitPerMint:      payload.Lim,
		IsSelfMint:        payload.SelfMint,
	}
	p.newEventDeploys = append(p.newEventDeploys, event)
	p.appendEventHash(getEventDeployString(event))
	return nil
}

func (p *Processor) processMint(ctx context.Context, payload *brc20.Payload, entry *ordinals.InscriptionEntry, blockHeader types.BlockHeader) error {
	blockHeight := uint64(blockHeader.Height)
	tickEntry, err := p.getTickEntry(ctx, payload.Tick)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil
		}
		return errors.Wrap(err, "failed to get tick entry")
	}
	if -payload.Amt.Exponent() > int32(tickEntry.Decimals) {
		return nil
	}
	if payload.Amt.GreaterThan(tickEntry.LimitPerMint) {
		return nil
	}
	if payload.Amt.IsZero() {
		return nil
	}
	// a mint that would overflow the supply is rejected outright, no partial
	// fill of the remaining headroom
	if tickEntry.MintedAmount.Add(payload.Amt).GreaterThan(tickEntry.TotalSupply) {
		return nil
	}

	var parentId *ordinals.InscriptionId
	if tickEntry.IsSelfMint {
		parents, err := p.getInscriptionParents(ctx, entry.Id)
		if err != nil {
			return errors.Wrap(err, "failed to get inscription parents")
		}
		var matched bool
		for _, parent := range parents {
			if parent == tickEntry.DeployInscriptionId {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}
		parentId = &tickEntry.DeployInscriptionId
	}

	tickEntry.MintedAmount = tickEntry.MintedAmount.Add(payload.Amt)
	if tickEntry.MintedAmount.GreaterThanOrEqual(tickEntry.TotalSupply) {
		tickEntry.CompletedAt = blockHeader.Timestamp
		tickEntry.CompletedAtHeight = blockHeight
	}
	p.newTickEntryStates[payload.Tick] = tickEntry

	if err := p.updateBalance(ctx, payload.Transfer.NewPkScript, payload.Tick, blockHeight, func(b *entity.Balance) {
		b.OverallBalance = b.OverallBalance.Add(payload.Amt)
		b.AvailableBalance = b.AvailableBalance.Add(payload.Amt)
	}); err != nil {
		return errors.Wrap(err, "failed to update balance")
	}

	p.eventMintCount++
	event := &entity.EventMint{
		Id:                p.eventMintCount,
		InscriptionId:     payload.Transfer.InscriptionId,
		InscriptionNumber: entry.Number,
		Tick:              payload.Tick,
		OriginalTick:      payload.OriginalTick,
		TxHash:            payload.Transfer.TxHash,
		BlockHeight:       blockHeight,
		TxIndex:           payload.Transfer.TxIndex,
		Timestamp:         blockHeader.Timestamp,
		PkScript:          payload.Transfer.NewPkScript,
		Amount:            payload.Amt,
		ParentId:          parentId,
	}
	p.newEventMints = append(p.newEventMints, event)
	p.appendEventHash(getEventMintString(event, tickEntry.Decimals))
	return nil
}

func (p *Processor) processInscribeTransfer(ctx context.Context, payload *brc20.Payload, entry *ordinals.InscriptionEntry, blockHeader types.BlockHeader) error {
	blockHeight := uint64(blockHeader.Height)
	tickEntry, err := p.getTickEntry(ctx, payload.Tick)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil
		}
		return errors.Wrap(err, "failed to get tick entry")
	}
	if -payload.Amt.Exponent() > int32(tickEntry.Decimals) {
		return nil
	}
	if payload.Amt.IsZero() {
		return nil
	}

	balance, err := p.getBalance(ctx, payload.Transfer.NewPkScript, payload.Tick)
	if err != nil {
		return errors.Wrap(err, "failed to get balance")
	}
	if balance.AvailableBalance.LessThan(payload.Amt) {
		return nil
	}
	if err := p.updateBalance(ctx, payload.Transfer.NewPkScript, payload.Tick, blockHeight, func(b *entity.Balance) {
		b.AvailableBalance = b.AvailableBalance.Sub(payload.Amt)
	}); err != nil {
		return errors.Wrap(err, "failed to update balance")
	}

	p.eventInscribeTransferCount++
	event := &entity.EventInscribeTransfer{
		Id:                p.eventInscribeTransferCount,
		InscriptionId:     payload.Transfer.InscriptionId,
		InscriptionNumber: entry.Number,
		Tick:              payload.Tick,
		OriginalTick:      payload.OriginalTick,
		TxHash:            payload.Transfer.TxHash,
		BlockHeight:       blockHeight,
		TxIndex:           payload.Transfer.TxIndex,
		Timestamp:         blockHeader.Timestamp,
		PkScript:          payload.Transfer.NewPkScript,
		SatPoint:          payload.Transfer.NewSatPoint,
		OutputIndex:       payload.Transfer.NewSatPoint.OutPoint.Index,
		SatsAmount:        payload.Transfer.NewOutputValue,
		Amount:            payload.Amt,
	}
	p.newEventInscribeTransfers = append(p.newEventInscribeTransfers, event)
	p.appendEventHash(getEventInscribeTransferString(event, tickEntry.Decimals))
	return nil
}

func (p *Processor) processTransferTransfer(ctx context.Context, transfer *entity.InscriptionTransfer, entry *ordinals.InscriptionEntry, blockHeader types.BlockHeader) error {
	blockHeight := uint64(blockHeader.Height)
	inscribeEvent, err := p.getEventInscribeTransferByInscriptionId(ctx, transfer.InscriptionId)
	if err != nil {
		// the transfer inscription never passed the inscribe phase
		if errors.Is(err, errs.NotFound) {
			return nil
		}
		return errors.Wrap(err, "failed to get inscribe transfer event")
	}
	tickEntry, err := p.getTickEntry(ctx, inscribeEvent.Tick)
	if err != nil {
		return errors.Wrap(err, "failed to get tick entry")
	}

	if transfer.SentAsFee {
		// amount returns to the sender's available balance
		if err := p.updateBalance(ctx, inscribeEvent.PkScript, inscribeEvent.Tick, blockHeight, func(b *entity.Balance) {
			b.AvailableBalance = b.AvailableBalance.Add(inscribeEvent.Amount)
		}); err != nil {
			return errors.Wrap(err, "failed to update balance")
		}
	} else {
		if err := p.updateBalance(ctx, inscribeEvent.PkScript, inscribeEvent.Tick, blockHeight, func(b *entity.Balance) {
			b.OverallBalance = b.OverallBalance.Sub(inscribeEvent.Amount)
		}); err != nil {
			return errors.Wrap(err, "failed to update balance")
		}
		if err := p.updateBalance(ctx, transfer.NewPkScript, inscribeEvent.Tick, blockHeight, func(b *entity.Balance) {
			b.OverallBalance = b.OverallBalance.Add(inscribeEvent.Amount)
			b.AvailableBalance = b.AvailableBalance.Add(inscribeEvent.Amount)
		}); err != nil {
			return errors.Wrap(err, "failed to update balance")
		}
		if isPkScriptBurned(transfer.NewPkScript) {
			tickEntry.BurnedAmount = tickEntry.BurnedAmount.Add(inscribeEvent.Amount)
			p.newTickEntryStates[inscribeEvent.Tick] = tickEntry
		}
	}

	p.eventTransferTransferCount++
	event := &entity.EventTransferTransfer{
		Id:                p.eventTransferTransferCount,
		InscriptionId:     transfer.InscriptionId,
		InscriptionNumber: entry.Number,
		Tick:              inscribeEvent.Tick,
		OriginalTick:      inscribeEvent.OriginalTick,
		TxHash:            transfer.TxHash,
		BlockHeight:       blockHeight,
		TxIndex:           transfer.TxIndex,
		Timestamp:         blockHeader.Timestamp,
		FromPkScript:      inscribeEvent.PkScript,
		FromSatPoint:      inscribeEvent.SatPoint,
		ToPkScript:        transfer.NewPkScript,
		ToSatPoint:        transfer.NewSatPoint,
		ToOutputIndex:     transfer.NewSatPoint.OutPoint.Index,
		Amount:            inscribeEvent.Amount,
		SpentAsFee:        transfer.SentAsFee,
	}
	p.newEventTransferTransfers = append(p.newEventTransferTransfers, event)
	p.appendEventHash(getEventTransferTransferString(event, tickEntry.Decimals))

	logger.DebugContext(ctx, "Settled transfer inscription",
		slogx.Stringer("inscription_id", transfer.InscriptionId),
		slogx.String("tick", inscribeEvent.Tick),
		slogx.Bool("spent_as_fee", transfer.SentAsFee),
	)
	return nil
}

func (p *Processor) getTickEntry(ctx context.Context, tick string) (*entity.TickEntry, error) {
	if entry, ok := p.newTickEntryStates[tick]; ok {
		return entry, nil
	}
	entry, err := p.brc20Dg.GetTickEntryByTick(ctx, tick)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return entry, nil
}

func (p *Processor) getInscriptionParents(ctx context.Context, id ordinals.InscriptionId) ([]ordinals.InscriptionId, error) {
	if parents, ok := p.newInscriptionParents[id]; ok {
		return parents, nil
	}
	parents, err := p.brc20Dg.GetInscriptionParents(ctx, id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return parents, nil
}

func (p *Processor) getEventInscribeTransferByInscriptionId(ctx context.Context, id ordinals.InscriptionId) (*entity.EventInscribeTransfer, error) {
	for _, event := range p.newEventInscribeTransfers {
		if event.InscriptionId == id {
			return event, nil
		}
	}
	event, err := p.brc20Dg.GetEventInscribeTransferByInscriptionId(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return event, nil
}

func (p *Processor) getBalance(ctx context.Context, pkScript []byte, tick string) (*entity.Balance, error) {
	pkScriptHex := hex.EncodeToString(pkScript)
	if tickBalances, ok := p.newBalances[pkScriptHex]; ok {
		if balance, ok := tickBalances[tick]; ok {
			return balance, nil
		}
	}
	balance, err := p.brc20Dg.GetBalance(ctx, pkScript, tick)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return &entity.Balance{
				PkScript:         pkScript,
				Tick:             tick,
				OverallBalance:   decimal.Zero,
				AvailableBalance: decimal.Zero,
			}, nil
		}
		return nil, errors.WithStack(err)
	}
	return balance, nil
}

func (p *Processor) updateBalance(ctx context.Context, pkScript []byte, tick string, blockHeight uint64, update func(b *entity.Balance)) error {
	balance, err := p.getBalance(ctx, pkScript, tick)
	if err != nil {
		return errors.Wrap(err, "failed to get balance")
	}
	newBalance := &entity.Balance{
		PkScript:         balance.PkScript,
		Tick:             balance.Tick,
		BlockHeight:      blockHeight,
		OverallBalance:   balance.OverallBalance,
		AvailableBalance: balance.AvailableBalance,
	}
	update(newBalance)

	pkScriptHex := hex.EncodeToString(pkScript)
	if _, ok := p.newBalances[pkScriptHex]; !ok {
		p.newBalances[pkScriptHex] = make(map[string]*entity.Balance)
	}
	p.newBalances[pkScriptHex][tick] = newBalance
	return nil
}
