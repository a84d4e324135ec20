package kv

import (
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

// Stored values are JSON documents. Hashes, scripts, and ids are stored as
// strings so the documents stay readable under inspection tooling.

type blockHeaderModel struct {
	Hash       string    `json:"hash"`
	Height     int64     `json:"height"`
	Version    int32     `json:"version"`
	PrevBlock  string    `json:"prev_block"`
	MerkleRoot string    `json:"merkle_root"`
	Timestamp  time.Time `json:"timestamp"`
	Bits       uint32    `json:"bits"`
	Nonce      uint32    `json:"nonce"`
}

func mapBlockHeaderToModel(src types.BlockHeader) blockHeaderModel {
	return blockHeaderModel{
		Hash:       src.Hash.String(),
		Height:     src.Height,
		Version:    src.Version,
		PrevBlock:  src.PrevBlock.String(),
		MerkleRoot: src.MerkleRoot.String(),
		Timestamp:  src.Timestamp,
		Bits:       src.Bits,
		Nonce:      src.Nonce,
	}
}

func mapBlockHeaderModelToType(src blockHeaderModel) (types.BlockHeader, error) {
	hash, err := chainhash.NewHashFromStr(src.Hash)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "invalid block hash")
	}
	prevBlock, err := chainhash.NewHashFromStr(src.PrevBlock)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "invalid prev block hash")
	}
	merkleRoot, err := chainhash.NewHashFromStr(src.MerkleRoot)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "invalid merkle root")
	}
	return types.BlockHeader{
		Hash:       *hash,
		Height:     src.Height,
		Version:    src.Version,
		PrevBlock:  *prevBlock,
		MerkleRoot: *merkleRoot,
		Timestamp:  src.Timestamp,
		Bits:       src.Bits,
		Nonce:      src.Nonce,
	}, nil
}

type indexedBlockModel struct {
	Height              uint64 `json:"height"`
	Hash                string `json:"hash"`
	EventHash           string `json:"event_hash"`
	CumulativeEventHash string `json:"cumulative_event_hash"`
}

func mapIndexedBlockToModel(src *entity.IndexedBlock) indexedBlockModel {
	return indexedBlockModel{
		Height:              src.Height,
		Hash:                src.Hash.String(),
		EventHash:           src.EventHash.String(),
		CumulativeEventHash: src.CumulativeEventHash.String(),
	}
}

func mapIndexedBlockModelToType(src indexedBlockModel) (*entity.IndexedBlock, error) {
	hash, err := chainhash.NewHashFromStr(src.Hash)
	if err != nil {
		return nil, errors.Wrap(err, "invalid block hash")
	}
	eventHash, err := chainhash.NewHashFromStr(src.EventHash)
	if err != nil {
		return nil, errors.Wrap(err, "invalid event hash")
	}
	cumulativeEventHash, err := chainhash.NewHashFromStr(src.CumulativeEventHash)
	if err != nil {
		return nil, errors.Wrap(err, "invalid cumulative event hash")
	}
	return &entity.IndexedBlock{
		Height:              src.Height,
		Hash:                *hash,
		EventHash:           *eventHash,
		CumulativeEventHash: *cumulativeEventHash,
	}, nil
}

type indexerStateModel struct {
	CreatedAt        time.Time `json:"created_at"`
	ClientVersion    string    `json:"client_version"`
	DBVersion        int32     `json:"db_version"`
	EventHashVersion int32     `json:"event_hash_version"`
	Network          string    `json:"network"`
}

func mapIndexerStateToModel(src entity.IndexerState) indexerStateModel {
	return indexerStateModel{
		CreatedAt:        src.CreatedAt,
		ClientVersion:    src.ClientVersion,
		DBVersion:        src.DBVersion,
		EventHashVersion: src.EventHashVersion,
		Network:          src.Network.String(),
	}
}

func mapIndexerStateModelToType(src indexerStateModel) entity.IndexerState {
	return entity.IndexerState{
		CreatedAt:        src.CreatedAt,
		ClientVersion:    src.ClientVersion,
		DBVersion:        src.DBVersion,
		EventHashVersion: src.EventHashVersion,
		Network:          common.Network(src.Network),
	}
}

type inscriptionModel struct {
	Content         []byte   `json:"content,omitempty"`
	ContentEncoding string   `json:"content_encoding,omitempty"`
	ContentType     string   `json:"content_type,omitempty"`
	Delegate        *string  `json:"delegate,omitempty"`
	Metadata        []byte   `json:"metadata,omitempty"`
	Metaprotocol    string   `json:"metaprotocol,omitempty"`
	Parents         []string `json:"parents,omitempty"`
	Pointer         *uint64  `json:"pointer,omitempty"`
}

type inscriptionEntryModel struct {
	Id              string           `json:"id"`
	Number          int64            `json:"number"`
	SequenceNumber  uint64           `json:"sequence_number"`
	Cursed          bool             `json:"cursed"`
	CursedForBRC20  bool             `json:"cursed_for_brc20"`
	Charms          uint16           `json:"charms"`
	CreatedAt       time.Time        `json:"created_at"`
	CreatedAtHeight uint64           `json:"created_at_height"`
	Inscription     inscriptionModel `json:"inscription"`
	TransferCount   uint32           `json:"transfer_count"`
}

func mapInscriptionEntryToModel(src *ordinals.InscriptionEntry) inscriptionEntryModel {
	var delegate *string
	if src.Inscription.Delegate != nil {
		delegate = lo.ToPtr(src.Inscription.Delegate.String())
	}
	return inscriptionEntryModel{
		Id:              src.Id.String(),
		Number:          src.Number,
		SequenceNumber:  src.SequenceNumber,
		Cursed:          src.Cursed,
		CursedForBRC20:  src.CursedForBRC20,
		Charms:          uint16(src.Charms),
		CreatedAt:       src.CreatedAt,
		CreatedAtHeight: src.CreatedAtHeight,
		Inscription: inscriptionModel{
			Content:         src.Inscription.Content,
			ContentEncoding: src.Inscription.ContentEncoding,
			ContentType:     src.Inscription.ContentType,
			Delegate:        delegate,
			Metadata:        src.Inscription.Metadata,
			Metaprotocol:    src.Inscription.Metaprotocol,
			Parents: lo.Map(src.Inscription.Parents, func(id ordinals.InscriptionId, _ int) string {
				return id.String()
			}),
			Pointer: src.Inscription.Pointer,
		},
		TransferCount: src.TransferCount,
	}
}

func mapInscriptionEntryModelToType(src inscriptionEntryModel) (*ordinals.InscriptionEntry, error) {
	id, err := ordinals.NewInscriptionIdFromString(src.Id)
	if err != nil {
		return nil, errors.Wrap(err, "invalid inscription id")
	}
	var delegate *ordinals.InscriptionId
	if src.Inscription.Delegate != nil {
		parsed, err := ordinals.NewInscriptionIdFromString(*src.Inscription.Delegate)
		if err != nil {
			return nil, errors.Wrap(err, "invalid delegate id")
		}
		delegate = &parsed
	}
	parents := make([]ordinals.InscriptionId, 0, len(src.Inscription.Parents))
	for _, raw := range src.Inscription.Parents {
		parsed, err := ordinals.NewInscriptionIdFromString(raw)
		if err != nil {
			return nil, errors.Wrap(err, "invalid parent id")
		}
		parents = append(parents, parsed)
	}
	if len(parents) == 0 {
		parents = nil
	}
	return &ordinals.InscriptionEntry{
		Id:              id,
		Number:          src.Number,
		SequenceNumber:  src.SequenceNumber,
		Cursed:          src.Cursed,
		CursedForBRC20:  src.CursedForBRC20,
		Charms:          ordinals.Charm(src.Charms),
		CreatedAt:       src.CreatedAt,
		CreatedAtHeight: src.CreatedAtHeight,
		Inscription: ordinals.Inscription{
			Content:         src.Inscription.Content,
			ContentEncoding: src.Inscription.ContentEncoding,
			ContentType:     src.Inscription.ContentType,
			Delegate:        delegate,
			Metadata:        src.Inscription.Metadata,
			Metaprotocol:    src.Inscription.Metaprotocol,
			Parents:         parents,
			Pointer:         src.Inscription.Pointer,
		},
		TransferCount: src.TransferCount,
	}, nil
}

type inscriptionTransferModel struct {
	InscriptionId  string `json:"inscription_id"`
	BlockHeight    uint64 `json:"block_height"`
	TxIndex        uint32 `json:"tx_index"`
	TxHash         string `json:"tx_hash"`
	Content        []byte `json:"content,omitempty"`
	FromInputIndex uint32 `json:"from_input_index"`
	OldSatPoint    string `json:"old_sat_point"`
	NewSatPoint    string `json:"new_sat_point"`
	NewPkScript    string `json:"new_pk_script"`
	NewOutputValue uint64 `json:"new_output_value"`
	SentAsFee      bool   `json:"sent_as_fee"`
	TransferCount  uint32 `json:"transfer_count"`
}

func mapInscriptionTransferToModel(src *entity.InscriptionTransfer) inscriptionTransferModel {
	return inscriptionTransferModel{
		InscriptionId:  src.InscriptionId.String(),
		BlockHeight:    src.BlockHeight,
		TxIndex:        src.TxIndex,
		TxHash:         src.TxHash.String(),
		Content:        src.Content,
		FromInputIndex: src.FromInputIndex,
		OldSatPoint:    src.OldSatPoint.String(),
		NewSatPoint:    src.NewSatPoint.String(),
		NewPkScript:    hex.EncodeToString(src.NewPkScript),
		NewOutputValue: src.NewOutputValue,
		SentAsFee:      src.SentAsFee,
		TransferCount:  src.TransferCount,
	}
}

func mapInscriptionTransferModelToType(src inscriptionTransferModel) (*entity.InscriptionTransfer, error) {
	id, err := ordinals.NewInscriptionIdFromString(src.InscriptionId)
	if err != nil {
		return nil, errors.Wrap(err, "invalid inscription id")
	}
	txHash, err := chainhash.NewHashFromStr(src.TxHash)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tx hash")
	}
	oldSatPoint, err := ordinals.NewSatPointFromString(src.OldSatPoint)
	if err != nil {
		return nil, errors.Wrap(err, "invalid old sat point")
	}
	newSatPoint, err := ordinals.NewSatPointFromString(src.NewSatPoint)
	if err != nil {
		return nil, errors.Wrap(err, "invalid new sat point")
	}
	pkScript, err := hex.DecodeString(src.NewPkScript)
	if err != nil {
		return nil, errors.Wrap(err, "invalid pk script")
	}
	return &entity.InscriptionTransfer{
		InscriptionId:  id,
		BlockHeight:    src.BlockHeight,
		TxIndex:        src.TxIndex,
		TxHash:         *txHash,
		Content:        src.Content,
		FromInputIndex: src.FromInputIndex,
		OldSatPoint:    oldSatPoint,
		NewSatPoint:    newSatPoint,
		NewPkScript:    pkScript,
		NewOutputValue: src.NewOutputValue,
		SentAsFee:      src.SentAsFee,
		TransferCount:  src.TransferCount,
	}, nil
}

type tickEntryModel struct {
	Tick                string          `json:"tick"`
	OriginalTick        string          `json:"original_tick"`
	TotalSupply         decimal.Decimal `json:"total_supply"`
	Decimals            uint16          `json:"decimals"`
	LimitPerMint        decimal.Decimal `json:"limit_per_mint"`
	IsSelfMint          bool            `json:"is_self_mint"`
	DeployInscriptionId string          `json:"deploy_inscription_id"`
	DeployedAt          time.Time       `json:"deployed_at"`
	DeployedAtHeight    uint64          `json:"deployed_at_height"`
	MintedAmount        decimal.Decimal `json:"minted_amount"`
	BurnedAmount        decimal.Decimal `json:"burned_amount"`
	CompletedAt         time.Time       `json:"completed_at,omitempty"`
	CompletedAtHeight   uint64          `json:"completed_at_height,omitempty"`
}

func mapTickEntryToModel(src *entity.TickEntry) tickEntryModel {
	return tickEntryModel{
		Tick:                src.Tick,
		OriginalTick:        src.OriginalTick,
		TotalSupply:         src.TotalSupply,
		Decimals:            src.Decimals,
		LimitPerMint:        src.LimitPerMint,
		IsSelfMint:          src.IsSelfMint,
		DeployInscriptionId: src.DeployInscriptionId.String(),
		DeployedAt:          src.DeployedAt,
		DeployedAtHeight:    src.DeployedAtHeight,
		MintedAmount:        src.MintedAmount,
		BurnedAmount:        src.BurnedAmount,
		CompletedAt:         src.CompletedAt,
		CompletedAtHeight:   src.CompletedAtHeight,
	}
}

func mapTickEntryModelToType(src tickEntryModel) (*entity.TickEntry, error) {
	deployInscriptionId, err := ordinals.NewInscriptionIdFromString(src.DeployInscriptionId)
	if err != nil {
		return nil, errors.Wrap(err, "invalid deploy inscription id")
	}
	return &entity.TickEntry{
		Tick:                src.Tick,
		OriginalTick:        src.OriginalTick,
		TotalSupply:         src.TotalSupply,
		Decimals:            src.Decimals,
		LimitPerMint:        src.LimitPerMint,
		IsSelfMint:          src.IsSelfMint,
		DeployInscriptionId: deployInscriptionId,
		DeployedAt:          src.DeployedAt,
		DeployedAtHeight:    src.DeployedAtHeight,
		MintedAmount:        src.MintedAmount,
		BurnedAmount:        src.BurnedAmount,
		CompletedAt:         src.CompletedAt,
		CompletedAtHeight:   src.CompletedAtHeight,
	}, nil
}

type balanceModel struct {
	PkScript         string          `json:"pk_script"`
	Tick             string          `json:"tick"`
	BlockHeight      uint64          `json:"block_height"`
	OverallBalance   decimal.Decimal `json:"overall_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

func mapBalanceToModel(src *entity.Balance) balanceModel {
	return balanceModel{
		PkScript:         hex.EncodeToString(src.PkScript),
		Tick:             src.Tick,
		BlockHeight:      src.BlockHeight,
		OverallBalance:   src.OverallBalance,
		AvailableBalance: src.AvailableBalance,
	}
}

func mapBalanceModelToType(src balanceModel) (*entity.Balance, error) {
	pkScript, err := hex.DecodeString(src.PkScript)
	if err != nil {
		return nil, errors.Wrap(err, "invalid pk script")
	}
	return &entity.Balance{
		PkScript:         pkScript,
		Tick:             src.Tick,
		BlockHeight:      src.BlockHeight,
		OverallBalance:   src.OverallBalance,
		AvailableBalance: src.AvailableBalance,
	}, nil
}

type processorStatsModel struct {
	BlockHeight             uint64 `json:"block_height"`
	CursedInscriptionCount  uint64 `json:"cursed_inscription_count"`
	BlessedInscriptionCount uint64 `json:"blessed_inscription_count"`
	LostSats                uint64 `json:"lost_sats"`
	EventDeployCount        uint64 `json:"event_deploy_count"`
	EventMintCount          uint64 `json:"event_mint_count"`
	EventInscribeTransfer   uint64 `json:"event_inscribe_transfer_count"`
	EventTransferTransfer   uint64 `json:"event_transfer_transfer_count"`
	EventProgramDeploy      uint64 `json:"event_program_deploy_count"`
	EventProgramCall        uint64 `json:"event_program_call_count"`
}

func mapProcessorStatsToModel(src *entity.ProcessorStats) processorStatsModel {
	return processorStatsModel(*src)
}

func mapProcessorStatsModelToType(src processorStatsModel) *entity.ProcessorStats {
	return lo.ToPtr(entity.ProcessorStats(src))
}

type evmAccountModel struct {
	Address  string `json:"address"`
	Nonce    uint64 `json:"nonce"`
	Balance  string `json:"balance"`
	CodeHash string `json:"code_hash"`
}

func mapEVMAccountToModel(src *entity.EVMAccount) evmAccountModel {
	balance := src.Balance
	if balance == nil {
		balance = uint256.NewInt(0)
	}
	return evmAccountModel{
		Address:  hex.EncodeToString(src.Address[:]),
		Nonce:    src.Nonce,
		Balance:  balance.Hex(),
		CodeHash: hex.EncodeToString(src.CodeHash[:]),
	}
}

func mapEVMAccountModelToType(src evmAccountModel) (*entity.EVMAccount, error) {
	addressBytes, err := hex.DecodeString(src.Address)
	if err != nil || len(addressBytes) != 20 {
		return nil, errors.Wrap(errors.New("invalid address"), "failed to decode account")
	}
	codeHashBytes, err := hex.DecodeString(src.CodeHash)
	if err != nil || len(codeHashBytes) != 32 {
		return nil, errors.Wrap(errors.New("invalid code hash"), "failed to decode account")
	}
	balance, err := uint256.FromHex(src.Balance)
	if err != nil {
		return nil, errors.Wrap(err, "invalid balance")
	}
	account := &entity.EVMAccount{
		Nonce:   src.Nonce,
		Balance: balance,
	}
	copy(account.Address[:], addressBytes)
	copy(account.CodeHash[:], codeHashBytes)
	return account, nil
}
