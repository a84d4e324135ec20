package brc20

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

func (p *Processor) processInscriptionTx(ctx context.Context, tx *types.Transaction, blockHeader types.BlockHeader) error {
	floatingInscriptions := make([]*entity.Flotsam, 0)
	envelopes := ordinals.ParseEnvelopesFromTx(tx)
	totalInputValue := uint64(0)
	totalOutputValue := lo.SumBy(tx.TxOut, func(txOut *types.TxOut) uint64 { return uint64(txOut.Value) })
	inscribeOffsets := make(map[uint64]*struct {
		inscriptionId ordinals.InscriptionId
		count         int
	})
	idCounter := uint32(0)
	isCoinbase := tx.IsCoinbase()

	inputValues, err := p.getOutPointValues(ctx, lo.FilterMap(tx.TxIn, func(txIn *types.TxIn, _ int) (wire.OutPoint, bool) {
		if txIn.PreviousOutTxHash == common.ZeroHash {
			return wire.OutPoint{}, false
		}
		return wire.OutPoint{Hash: txIn.PreviousOutTxHash, Index: txIn.PreviousOutIndex}, true
	}))
	if err != nil {
		return errors.Wrap(err, "failed to get outpoint values")
	}

	// input-carried inscriptions are the only valid parent references
	inputInscriptionIds := make(map[ordinals.InscriptionId]struct{})

	for i, input := range tx.TxIn {
		// coinbase input carries the subsidy, never inscriptions
		if input.PreviousOutTxHash == common.ZeroHash {
			totalInputValue += p.getBlockSubsidy(uint64(tx.BlockHeight))
			continue
		}
		inputOutPoint := wire.OutPoint{
			Hash:  input.PreviousOutTxHash,
			Index: input.PreviousOutIndex,
		}
		inputValue := inputValues[inputOutPoint]

		inscriptions, err := p.getInscriptionsInOutPoint(ctx, inputOutPoint)
		if err != nil {
			return errors.Wrap(err, "failed to get inscriptions in outpoint")
		}
		for satPoint, inscriptionIds := range inscriptions {
			offset := totalInputValue + satPoint.Offset
			for _, inscriptionId := range inscriptionIds {
				floatingInscriptions = append(floatingInscriptions, &entity.Flotsam{
					Offset:        offset,
					InscriptionId: inscriptionId,
					Tx:            tx,
					OriginOld: &entity.OriginOld{
						OldSatPoint: satPoint,
					},
				})
				inputInscriptionIds[inscriptionId] = struct{}{}
				if _, ok := inscribeOffsets[offset]; !ok {
					inscribeOffsets[offset] = &struct {
						inscriptionId ordinals.InscriptionId
						count         int
					}{inscriptionId, 0}
				}
				inscribeOffsets[offset].count++
			}
		}

		// offset on output to inscribe new inscriptions from this input
		offset := totalInputValue
		totalInputValue += inputValue

		envelopesInInput := lo.Filter(envelopes, func(envelope *ordinals.Envelope, _ int) bool {
			return envelope.InputIndex == uint32(i)
		})
		for _, envelope := range envelopesInInput {
			inscriptionId := ordinals.InscriptionId{
				TxHash: tx.TxHash,
				Index:  idCounter,
			}
			var cursed, cursedForBRC20 bool
			if envelope.UnrecognizedEvenField ||
				envelope.DuplicateField ||
				envelope.IncompleteField ||
				envelope.InputIndex != 0 ||
				envelope.Offset != 0 ||
				envelope.Inscription.Pointer != nil ||
				envelope.PushNum ||
				envelope.Stutter {
				cursed = true
				cursedForBRC20 = true
			}
			if initial, ok := inscribeOffsets[offset]; !cursed && ok {
				if initial.count > 1 {
					cursed = true // reinscription
					cursedForBRC20 = true
				} else {
					initialEntry, err := p.getInscriptionEntryById(ctx, initial.inscriptionId)
					if err != nil {
						return errors.Wrap(err, "failed to get inscription entry")
					}
					// reinscribing on top of a blessed inscription is a curse
					if !initialEntry.Cursed {
						cursed = true
						cursedForBRC20 = true
					}
					if initialEntry.CursedForBRC20 {
						cursedForBRC20 = true
					}
				}
			}
			// at and after the jubilee height would-be-cursed inscriptions are
			// blessed; CursedForBRC20 keeps the protocol-level verdict
			var vindicated bool
			if cursed && uint64(tx.BlockHeight) >= ordinals.GetJubileeHeight(p.network) {
				cursed = false
				vindicated = true
			}

			unbound := inputValue == 0 || envelope.UnrecognizedEvenField
			inscribeOffset := offset
			if envelope.Inscription.Pointer != nil && *envelope.Inscription.Pointer < totalOutputValue {
				inscribeOffset = *envelope.Inscription.Pointer
			}

			floatingInscriptions = append(floatingInscriptions, &entity.Flotsam{
				Offset:        inscribeOffset,
				InscriptionId: inscriptionId,
				Tx:            tx,
				OriginNew: &entity.OriginNew{
					Reinscription:  inscribeOffsets[inscribeOffset] != nil,
					Cursed:         cursed,
					CursedForBRC20: cursedForBRC20,
					Vindicated:     vindicated,
					Fee:            0,
					Hidden:         false,
					Parents:        envelope.Inscription.Parents,
					Pointer:        envelope.Inscription.Pointer,
					Unbound:        unbound,
					Inscription:    envelope.Inscription,
				},
			})

			if _, ok := inscribeOffsets[inscribeOffset]; !ok {
				inscribeOffsets[inscribeOffset] = &struct {
					inscriptionId ordinals.InscriptionId
					count         int
				}{inscriptionId, 0}
			}
			inscribeOffsets[inscribeOffset].count++
			idCounter++
		}
	}

	// drop parent references not carried by this tx's inputs
	for _, flotsam := range floatingInscriptions {
		if flotsam.OriginNew != nil && len(flotsam.OriginNew.Parents) > 0 {
			flotsam.OriginNew.Parents = lo.Filter(flotsam.OriginNew.Parents, func(parent ordinals.InscriptionId, _ int) bool {
				_, ok := inputInscriptionIds[parent]
				return ok
			})
		}
	}

	// split the tx fee evenly between new inscriptions
	if idCounter > 0 {
		for _, flotsam := range floatingInscriptions {
			if flotsam.OriginNew != nil {
				flotsam.OriginNew.Fee = (totalInputValue - totalOutputValue) / uint64(idCounter)
			}
		}
	}

	// the coinbase tx picks up inscriptions sent as fee earlier in the block
	if isCoinbase {
		floatingInscriptions = append(floatingInscriptions, p.flotsamsSentAsFee...)
	}
	slices.SortStableFunc(floatingInscriptions, func(i, j *entity.Flotsam) int {
		return int(i.Offset) - int(j.Offset)
	})

	type location struct {
		satPoint  ordinals.SatPoint
		flotsam   *entity.Flotsam
		sentAsFee bool
	}
	newLocations := make([]*location, 0)
	outputValue := uint64(0)
	curIncrIdx := 0
	for outIndex, txOut := range tx.TxOut {
		end := outputValue + uint64(txOut.Value)

		// place all inscriptions that land in this output
		for curIncrIdx < len(floatingInscriptions) && floatingInscriptions[curIncrIdx].Offset < end {
			newSatPoint := ordinals.SatPoint{
				OutPoint: wire.OutPoint{
					Hash:  tx.TxHash,
					Index: uint32(outIndex),
				},
				Offset: floatingInscriptions[curIncrIdx].Offset - outputValue,
			}
			newLocations = append(newLocations, &location{
				satPoint:  newSatPoint,
				flotsam:   floatingInscriptions[curIncrIdx],
				sentAsFee: floatingInscriptions[curIncrIdx].SentAsFee,
			})
			curIncrIdx++
		}

		outputValue = end

		outPoint := wire.OutPoint{Hash: tx.TxHash, Index: uint32(outIndex)}
		p.newOutPointValues[outPoint] = uint64(txOut.Value)
		p.outPointValueCache.Add(outPoint, uint64(txOut.Value))
	}

	for _, loc := range newLocations {
		if err := p.updateInscriptionLocation(ctx, loc.satPoint, loc.flotsam, loc.sentAsFee, tx, blockHeader); err != nil {
			return errors.Wrap(err, "failed to update inscription location")
		}
	}

	if isCoinbase {
		// leftover inscriptions in the coinbase are lost permanently
		for _, flotsam := range floatingInscriptions[curIncrIdx:] {
			newSatPoint := ordinals.SatPoint{
				OutPoint: wire.OutPoint{},
				Offset:   p.lostSats + flotsam.Offset - totalOutputValue,
			}
			if err := p.updateInscriptionLocation(ctx, newSatPoint, flotsam, flotsam.SentAsFee, tx, blockHeader); err != nil {
				return errors.Wrap(err, "failed to update inscription location")
			}
		}
		p.lostSats += p.blockReward - totalOutputValue
	} else {
		// leftover inscriptions in non-coinbase txs ride the fee to the
		// coinbase of this block
		for _, flotsam := range floatingInscriptions[curIncrIdx:] {
			flotsam.Offset = p.blockReward + flotsam.Offset - totalOutputValue
			flotsam.SentAsFee = true
			p.flotsamsSentAsFee = append(p.flotsamsSentAsFee, flotsam)
		}
		p.blockReward += totalInputValue - totalOutputValue
	}
	return nil
}

func (p *Processor) updateInscriptionLocation(ctx context.Context, newSatPoint ordinals.SatPoint, flotsam *entity.Flotsam, sentAsFee bool, tx *types.Transaction, blockHeader types.BlockHeader) error {
	var newPkScript []byte
	var newOutputValue uint64
	isLost := newSatPoint.OutPoint == wire.OutPoint{}
	if !isLost {
		txOut := tx.TxOut[newSatPoint.OutPoint.Index]
		newPkScript = txOut.PkScript
		newOutputValue = uint64(txOut.Value)
	}

	if flotsam.OriginOld != nil {
		entry, err := p.getInscriptionEntryById(ctx, flotsam.InscriptionId)
		if err != nil {
			// inscriptions without an entry were never tracked (non-brc20)
			if errors.Is(err, errs.NotFound) {
				return nil
			}
			return errors.Wrap(err, "failed to get inscription entry")
		}
		entry.TransferCount++
		if isLost {
			entry.Charms.Set(ordinals.CharmLost)
		}
		if isPkScriptBurned(newPkScript) {
			entry.Charms.Set(ordinals.CharmBurned)
		}

		// relocations past the limit no longer matter to the ledger
		if entry.TransferCount <= transferCountLimit {
			p.newInscriptionTransfers = append(p.newInscriptionTransfers, &entity.InscriptionTransfer{
				InscriptionId:  flotsam.InscriptionId,
				BlockHeight:    uint64(tx.BlockHeight),
				TxIndex:        tx.Index,
				TxHash:         tx.TxHash,
				Content:        entry.Inscription.Content,
				OldSatPoint:    flotsam.OriginOld.OldSatPoint,
				NewSatPoint:    newSatPoint,
				NewPkScript:    newPkScript,
				NewOutputValue: newOutputValue,
				SentAsFee:      sentAsFee,
				TransferCount:  entry.TransferCount,
			})
			p.newInscriptionEntryStates[entry.Id] = entry
		}
		p.consumedSatPoints[flotsam.OriginOld.OldSatPoint] = struct{}{}
		p.blockSatPoints[newSatPoint] = append(p.blockSatPoints[newSatPoint], flotsam.InscriptionId)
		return nil
	}

	if flotsam.OriginNew != nil {
		origin := flotsam.OriginNew
		var inscriptionNumber int64
		sequenceNumber := p.cursedInscriptionCount + p.blessedInscriptionCount
		if origin.Cursed {
			inscriptionNumber = -int64(p.cursedInscriptionCount + 1)
			p.cursedInscriptionCount++
		} else {
			inscriptionNumber = int64(p.blessedInscriptionCount)
			p.blessedInscriptionCount++
		}

		// track only payload-bearing inscriptions to save space
		if isBRC20Inscription(origin.Inscription) {
			var charms ordinals.Charm
			if origin.Cursed {
				charms.Set(ordinals.CharmCursed)
			}
			if origin.Vindicated {
				charms.Set(ordinals.CharmVindicated)
			}
			if origin.Reinscription {
				charms.Set(ordinals.CharmReinscription)
			}
			if origin.Unbound {
				charms.Set(ordinals.CharmUnbound)
			}
			if isLost {
				charms.Set(ordinals.CharmLost)
			}
			if isPkScriptBurned(newPkScript) {
				charms.Set(ordinals.CharmBurned)
			}

			entry := &ordinals.InscriptionEntry{
				Id:              flotsam.InscriptionId,
				Number:          inscriptionNumber,
				SequenceNumber:  sequenceNumber,
				Cursed:          origin.Cursed,
				CursedForBRC20:  origin.CursedForBRC20,
				Charms:          charms,
				CreatedAt:       blockHeader.Timestamp,
				CreatedAtHeight: uint64(tx.BlockHeight),
				Inscription:     origin.Inscription,
				TransferCount:   1, // the reveal counts as the first transfer
			}
			p.newInscriptionTransfers = append(p.newInscriptionTransfers, &entity.InscriptionTransfer{
				InscriptionId:  flotsam.InscriptionId,
				BlockHeight:    uint64(tx.BlockHeight),
				TxIndex:        tx.Index,
				TxHash:         tx.TxHash,
				Content:        origin.Inscription.Content,
				OldSatPoint:    ordinals.SatPoint{},
				NewSatPoint:    newSatPoint,
				NewPkScript:    newPkScript,
				NewOutputValue: newOutputValue,
				SentAsFee:      sentAsFee,
				TransferCount:  1,
			})
			p.newInscriptionEntries[entry.Id] = entry
			p.newInscriptionEntryStates[entry.Id] = entry
			p.blockSatPoints[newSatPoint] = append(p.blockSatPoints[newSatPoint], flotsam.InscriptionId)

			if err := p.resolveRelations(ctx, entry); err != nil {
				return errors.Wrap(err, "failed to resolve inscription relations")
			}
		}
		return nil
	}
	panic("unreachable")
}

// getInscriptionsInOutPoint merges persisted locations with locations written
// earlier in the same block, minus those already spent within the block.
func (p *Processor) getInscriptionsInOutPoint(ctx context.Context, outPoint wire.OutPoint) (map[ordinals.SatPoint][]ordinals.InscriptionId, error) {
	result, err := p.brc20Dg.GetInscriptionIdsInOutPoints(ctx, []wire.OutPoint{outPoint})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get inscriptions by outpoint")
	}
	for satPoint, ids := range p.blockSatPoints {
		if satPoint.OutPoint == outPoint {
			result[satPoint] = append(result[satPoint], ids...)
		}
	}
	for satPoint := range result {
		if _, consumed := p.consumedSatPoints[satPoint]; consumed {
			delete(result, satPoint)
		}
	}
	return result, nil
}

func (p *Processor) getInscriptionEntryById(ctx context.Context, inscriptionId ordinals.InscriptionId) (*ordinals.InscriptionEntry, error) {
	if entry, ok := p.newInscriptionEntryStates[inscriptionId]; ok {
		return entry, nil
	}
	entry, err := p.brc20Dg.GetInscriptionEntryById(ctx, inscriptionId)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return entry, nil
}

func isBRC20Inscription(inscription ordinals.Inscription) bool {
	if inscription.ContentType != "" {
		contentType := inscription.ContentType
		if lo.Contains([]string{"text/plain", "application/json"}, contentType) {
			return true
		}
		prefixes := []string{"text/plain;", "application/json;"}
		for _, prefix := range prefixes {
			if strings.HasPrefix(contentType, prefix) {
				return true
			}
		}
	}
	// anything that parses as json may carry a payload
	if inscription.Content != nil {
		var parsed interface{}
		if err := json.Unmarshal(inscription.Content, &parsed); err == nil {
			return true
		}
	}
	return false
}

func isPkScriptBurned(pkScript []byte) bool {
	return len(pkScript) > 0 && pkScript[0] == 0x6a // OP_RETURN
}

func (p *Processor) getBlockSubsidy(blockHeight uint64) uint64 {
	return uint64(blockchain.CalcBlockSubsidy(int32(blockHeight), p.network.ChainParams()))
}
