package datagateway

import (
	"context"

	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

// ProgramDataGateway persists contract execution state: accounts, storage,
// bytecode, and the two-way mapping between deploy inscriptions and contract
// addresses.
type ProgramDataGateway interface {
	ProgramReaderDataGateway
	ProgramWriterDataGateway
}

type ProgramReaderDataGateway interface {
	GetAccount(ctx context.Context, address [20]byte) (*entity.EVMAccount, error)
	GetStorageValue(ctx context.Context, address [20]byte, slot [32]byte) ([32]byte, error)
	GetCode(ctx context.Context, codeHash [32]byte) ([]byte, error)
	GetContractAddressByInscriptionId(ctx context.Context, id ordinals.InscriptionId) ([20]byte, error)
	GetInscriptionIdByContractAddress(ctx context.Context, address [20]byte) (ordinals.InscriptionId, error)
}

type ProgramWriterDataGateway interface {
	SetAccount(ctx context.Context, account *entity.EVMAccount) error
	SetStorageValue(ctx context.Context, address [20]byte, slot [32]byte, value [32]byte) error
	SetCode(ctx context.Context, codeHash [32]byte, code []byte) error
	// CreateContractMapping writes both directions of the inscription/contract
	// mapping; one is never written without the other.
	CreateContractMapping(ctx context.Context, id ordinals.InscriptionId, address [20]byte) error

	CreateEventProgramDeploys(ctx context.Context, events []*entity.EventProgramDeploy) error
	CreateEventProgramCalls(ctx context.Context, events []*entity.EventProgramCall) error
}
