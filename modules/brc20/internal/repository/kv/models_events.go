package kv

import (
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

type eventDeployModel struct {
	Id                uint64          `json:"id"`
	InscriptionId     string          `json:"inscription_id"`
	InscriptionNumber int64           `json:"inscription_number"`
	Tick              string          `json:"tick"`
	OriginalTick      string          `json:"original_tick"`
	TxHash            string          `json:"tx_hash"`
	BlockHeight       uint64          `json:"block_height"`
	TxIndex           uint32          `json:"tx_index"`
	Timestamp         time.Time       `json:"timestamp"`
	PkScript          string          `json:"pk_script"`
	SatPoint          string          `json:"sat_point"`
	TotalSupply       decimal.Decimal `json:"total_supply"`
	Decimals          uint16          `json:"decimals"`
	LimitPerMint      decimal.Decimal `json:"limit_per_mint"`
	IsSelfMint        bool            `json:"is_self_mint"`
}

func mapEventDeployToModel(src *entity.EventDeploy) eventDeployModel {
	return eventDeployModel{
		Id:                src.Id,
		InscriptionId:     src.InscriptionId.String(),
		InscriptionNumber: src.InscriptionNumber,
		Tick:              src.Tick,
		OriginalTick:      src.OriginalTick,
		TxHash:            src.TxHash.String(),
		BlockHeight:       src.BlockHeight,
		TxIndex:           src.TxIndex,
		Timestamp:         src.Timestamp,
		PkScript:          hex.EncodeToString(src.PkScript),
		SatPoint:          src.SatPoint.String(),
		TotalSupply:       src.TotalSupply,
		Decimals:          src.Decimals,
		LimitPerMint:      src.LimitPerMint,
		IsSelfMint:        src.IsSelfMint,
	}
}

type eventMintModel struct {
	Id                uint64          `json:"id"`
	InscriptionId     string          `json:"inscription_id"`
	InscriptionNumber int64           `json:"inscription_number"`
	Tick              string          `json:"tick"`
	OriginalTick      string          `json:"original_tick"`
	TxHash            string          `json:"tx_hash"`
	BlockHeight       uint64          `json:"block_height"`
	TxIndex           uint32          `json:"tx_index"`
	Timestamp         time.Time       `json:"timestamp"`
	PkScript          string          `json:"pk_script"`
	Amount            decimal.Decimal `json:"amount"`
	ParentId          *string         `json:"parent_id,omitempty"`
}

func mapEventMintToModel(src *entity.EventMint) eventMintModel {
	var parentId *string
	if src.ParentId != nil {
		s := src.ParentId.String()
		parentId = &s
	}
	return eventMintModel{
		Id:                src.Id,
		InscriptionId:     src.InscriptionId.String(),
		InscriptionNumber: src.InscriptionNumber,
		Tick:              src.Tick,
		OriginalTick:      src.OriginalTick,
		TxHash:            src.TxHash.String(),
		BlockHeight:       src.BlockHeight,
		TxIndex:           src.TxIndex,
		Timestamp:         src.Timestamp,
		PkScript:          hex.EncodeToString(src.PkScript),
		Amount:            src.Amount,
		ParentId:          parentId,
	}
}

func mapEventDeployModelToType(src eventDeployModel) (*entity.EventDeploy, error) {
	id, err := ordinals.NewInscriptionIdFromString(src.InscriptionId)
	if err != nil {
		return nil, errors.Wrap(err, "invalid inscription id")
	}
	txHash, err := chainhash.NewHashFromStr(src.TxHash)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tx hash")
	}
	satPoint, err := ordinals.NewSatPointFromString(src.SatPoint)
	if err != nil {
		return nil, errors.Wrap(err, "invalid sat point")
	}
	pkScript, err := hex.DecodeString(src.PkScript)
	if err != nil {
		return nil, errors.Wrap(err, "invalid pk script")
	}
	return &entity.EventDeploy{
		Id:                src.Id,
		InscriptionId:     id,
		InscriptionNumber: src.InscriptionNumber,
		Tick:              src.Tick,
		OriginalTick:      src.OriginalTick,
		TxHash:            *txHash,
		BlockHeight:       src.BlockHeight,
		TxIndex:           src.TxIndex,
		Timestamp:         src.Timestamp,
		PkScript:          pkScript,
		SatPoint:          satPoint,
		TotalSupply:       src.TotalSupply,
		Decimals:          src.Decimals,
		LimitPerMint:      src.LimitPerMint,
		IsSelfMint:        src.IsSelfMint,
	}, nil
}

func mapEventMintModelToType(src eventMintModel) (*entity.EventMint, error) {
	id, err := ordinals.NewInscriptionIdFromString(src.InscriptionId)
	if err != nil {
		return nil, errors.Wrap(err, "invalid inscription id")
	}
	txHash, err := chainhash.NewHashFromStr(src.TxHash)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tx hash")
	}
	pkScript, err := hex.DecodeString(src.PkScript)
	if err != nil {
		return nil, errors.Wrap(err, "invalid pk script")
	}
	var parentId *ordinals.InscriptionId
	if src.ParentId != nil {
		parent, err := ordinals.NewInscriptionIdFromString(*src.ParentId)
		if err != nil {
			return nil, errors.Wrap(err, "invalid parent id")
		}
		parentId = &parent
	}
	return &entity.EventMint{
		Id:                src.Id,
		InscriptionId:     id,
		InscriptionNumber: src.InscriptionNumber,
		Tick:              src.Tick,
		OriginalTick:      src.OriginalTick,
		TxHash:            *txHash,
		BlockHeight:       src.BlockHeight,
		TxIndex:           src.TxIndex,
		Timestamp:         src.Timestamp,
		PkScript:          pkScript,
		Amount:            src.Amount,
		ParentId:          parentId,
	}, nil
}

type eventInscribeTransferModel struct {
	Id                uint64          `json:"id"`
	InscriptionId     string          `json:"inscription_id"`
	InscriptionNumber int64           `json:"inscription_number"`
	Tick              string          `json:"tick"`
	OriginalTick      string          `json:"original_tick"`
	TxHash            string          `json:"tx_hash"`
	BlockHeight       uint64          `json:"block_height"`
	TxIndex           uint32          `json:"tx_index"`
	Timestamp         time.Time       `json:"timestamp"`
	PkScript          string          `json:"pk_script"`
	SatPoint          string          `json:"sat_point"`
	OutputIndex       uint32          `json:"output_index"`
	SatsAmount        uint64          `json:"sats_amount"`
	Amount            decimal.Decimal `json:"amount"`
}

func mapEventInscribeTransferToModel(src *entity.EventInscribeTransfer) eventInscribeTransferModel {
	return eventInscribeTransferModel{
		Id:                src.Id,
		InscriptionId:     src.InscriptionId.String(),
		InscriptionNumber: src.InscriptionNumber,
		Tick:              src.Tick,
		OriginalTick:      src.OriginalTick,
		TxHash:            src.TxHash.String(),
		BlockHeight:       src.BlockHeight,
		TxIndex:           src.TxIndex,
		Timestamp:         src.Timestamp,
		PkScript:          hex.EncodeToString(src.PkScript),
		SatPoint:          src.SatPoint.String(),
		OutputIndex:       src.OutputIndex,
		SatsAmount:        src.SatsAmount,
		Amount:            src.Amount,
	}
}

func mapEventInscribeTransferModelToType(src eventInscribeTransferModel) (*entity.EventInscribeTransfer, error) {
	id, err := ordinals.NewInscriptionIdFromString(src.InscriptionId)
	if err != nil {
		return nil, errors.Wrap(err, "invalid inscription id")
	}
	txHash, err := chainhash.NewHashFromStr(src.TxHash)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tx hash")
	}
	satPoint, err := ordinals.NewSatPointFromString(src.SatPoint)
	if err != nil {
		return nil, errors.Wrap(err, "invalid sat point")
	}
	pkScript, err := hex.DecodeString(src.PkScript)
	if err != nil {
		return nil, errors.Wrap(err, "invalid pk script")
	}
	return &entity.EventInscribeTransfer{
		Id:                src.Id,
		InscriptionId:     id,
		InscriptionNumber: src.InscriptionNumber,
		Tick:              src.Tick,
		OriginalTick:      src.OriginalTick,
		TxHash:            *txHash,
		BlockHeight:       src.BlockHeight,
		TxIndex:           src.TxIndex,
		Timestamp:         src.Timestamp,
		PkScript:          pkScript,
		SatPoint:          satPoint,
		OutputIndex:       src.OutputIndex,
		SatsAmount:        src.SatsAmount,
		Amount:            src.Amount,
	}, nil
}

type eventTransferTransferModel struct {
	Id                uint64          `json:"id"`
	InscriptionId     string          `json:"inscription_id"`
	InscriptionNumber int64           `json:"inscription_number"`
	Tick              string          `json:"tick"`
	OriginalTick      string          `json:"original_tick"`
	TxHash            string          `json:"tx_hash"`
	BlockHeight       uint64          `json:"block_height"`
	TxIndex           uint32          `json:"tx_index"`
	Timestamp         time.Time       `json:"timestamp"`
	FromPkScript      string          `json:"from_pk_script"`
	FromSatPoint      string          `json:"from_sat_point"`
	FromInputIndex    uint32          `json:"from_input_index"`
	ToPkScript        string          `json:"to_pk_script"`
	ToSatPoint        string          `json:"to_sat_point"`
	ToOutputIndex     uint32          `json:"to_output_index"`
	Amount            decimal.Decimal `json:"amount"`
	SpentAsFee        bool            `json:"spent_as_fee"`
}

func mapEventTransferTransferToModel(src *entity.EventTransferTransfer) eventTransferTransferModel {
	return eventTransferTransferModel{
		Id:                src.Id,
		InscriptionId:     src.InscriptionId.String(),
		InscriptionNumber: src.InscriptionNumber,
		Tick:              src.Tick,
		OriginalTick:      src.OriginalTick,
		TxHash:            src.TxHash.String(),
		BlockHeight:       src.BlockHeight,
		TxIndex:           src.TxIndex,
		Timestamp:         src.Timestamp,
		FromPkScript:      hex.EncodeToString(src.FromPkScript),
		FromSatPoint:      src.FromSatPoint.String(),
		FromInputIndex:    src.FromInputIndex,
		ToPkScript:        hex.EncodeToString(src.ToPkScript),
		ToSatPoint:        src.ToSatPoint.String(),
		ToOutputIndex:     src.ToOutputIndex,
		Amount:            src.Amount,
		SpentAsFee:        src.SpentAsFee,
	}
}

func mapEventTransferTransferModelToType(src eventTransferTransferModel) (*entity.EventTransferTransfer, error) {
	id, err := ordinals.NewInscriptionIdFromString(src.InscriptionId)
	if err != nil {
		return nil, errors.Wrap(err, "invalid inscription id")
	}
	txHash, err := chainhash.NewHashFromStr(src.TxHash)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tx hash")
	}
	fromPkScript, err := hex.DecodeString(src.FromPkScript)
	if err != nil {
		return nil, errors.Wrap(err, "invalid from pk script")
	}
	fromSatPoint, err := ordinals.NewSatPointFromString(src.FromSatPoint)
	if err != nil {
		return nil, errors.Wrap(err, "invalid from sat point")
	}
	toPkScript, err := hex.DecodeString(src.ToPkScript)
	if err != nil {
		return nil, errors.Wrap(err, "invalid to pk script")
	}
	toSatPoint, err := ordinals.NewSatPointFromString(src.ToSatPoint)
	if err != nil {
		return nil, errors.Wrap(err, "invalid to sat point")
	}
	return &entity.EventTransferTransfer{
		Id:                src.Id,
		InscriptionId:     id,
		InscriptionNumber: src.InscriptionNumber,
		Tick:              src.Tick,
		OriginalTick:      src.OriginalTick,
		TxHash:            *txHash,
		BlockHeight:       src.BlockHeight,
		TxIndex:           src.TxIndex,
		Timestamp:         src.Timestamp,
		FromPkScript:      fromPkScript,
		FromSatPoint:      fromSatPoint,
		FromInputIndex:    src.FromInputIndex,
		ToPkScript:        toPkScript,
		ToSatPoint:        toSatPoint,
		ToOutputIndex:     src.ToOutputIndex,
		Amount:            src.Amount,
		SpentAsFee:        src.SpentAsFee,
	}, nil
}

type eventProgramDeployModel struct {
	Id                uint64    `json:"id"`
	InscriptionId     string    `json:"inscription_id"`
	InscriptionNumber int64     `json:"inscription_number"`
	TxHash            string    `json:"tx_hash"`
	BlockHeight       uint64    `json:"block_height"`
	TxIndex           uint32    `json:"tx_index"`
	Timestamp         time.Time `json:"timestamp"`
	PkScript          string    `json:"pk_script"`
	Sender            string    `json:"sender"`
	ContractAddress   string    `json:"contract_address"`
	Success           bool      `json:"success"`
	GasUsed           uint64    `json:"gas_used"`
	RevertReason      string    `json:"revert_reason,omitempty"`
}

func mapEventProgramDeployToModel(src *entity.EventProgramDeploy) eventProgramDeployModel {
	return eventProgramDeployModel{
		Id:                src.Id,
		InscriptionId:     src.InscriptionId.String(),
		InscriptionNumber: src.InscriptionNumber,
		TxHash:            src.TxHash.String(),
		BlockHeight:       src.BlockHeight,
		TxIndex:           src.TxIndex,
		Timestamp:         src.Timestamp,
		PkScript:          hex.EncodeToString(src.PkScript),
		Sender:            hex.EncodeToString(src.Sender[:]),
		ContractAddress:   hex.EncodeToString(src.ContractAddress[:]),
		Success:           src.Success,
		GasUsed:           src.GasUsed,
		RevertReason:      src.RevertReason,
	}
}

type eventProgramCallModel struct {
	Id                uint64    `json:"id"`
	InscriptionId     string    `json:"inscription_id"`
	InscriptionNumber int64     `json:"inscription_number"`
	TxHash            string    `json:"tx_hash"`
	BlockHeight       uint64    `json:"block_height"`
	TxIndex           uint32    `json:"tx_index"`
	Timestamp         time.Time `json:"timestamp"`
	PkScript          string    `json:"pk_script"`
	Sender            string    `json:"sender"`
	ContractAddress   string    `json:"contract_address"`
	TargetId          string    `json:"target_id"`
	Success           bool      `json:"success"`
	GasUsed           uint64    `json:"gas_used"`
	RevertReason      string    `json:"revert_reason,omitempty"`
	ReturnData        []byte    `json:"return_data,omitempty"`
}

func mapEventProgramCallToModel(src *entity.EventProgramCall) eventProgramCallModel {
	return eventProgramCallModel{
		Id:                src.Id,
		InscriptionId:     src.InscriptionId.String(),
		InscriptionNumber: src.InscriptionNumber,
		TxHash:            src.TxHash.String(),
		BlockHeight:       src.BlockHeight,
		TxIndex:           src.TxIndex,
		Timestamp:         src.Timestamp,
		PkScript:          hex.EncodeToString(src.PkScript),
		Sender:            hex.EncodeToString(src.Sender[:]),
		ContractAddress:   hex.EncodeToString(src.ContractAddress[:]),
		TargetId:          src.TargetId.String(),
		Success:           src.Success,
		GasUsed:           src.GasUsed,
		RevertReason:      src.RevertReason,
		ReturnData:        src.ReturnData,
	}
}
