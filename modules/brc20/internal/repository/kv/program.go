package kv

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

func (r *Repository) GetAccount(_ context.Context, address [20]byte) (*entity.EVMAccount, error) {
	var model evmAccountModel
	if err := r.getJSON(addressKey(prefixEVMAccount, address), &model); err != nil {
		return nil, errors.WithStack(err)
	}
	return mapEVMAccountModelToType(model)
}

func (r *Repository) GetStorageValue(_ context.Context, address [20]byte, slot [32]byte) ([32]byte, error) {
	raw, err := r.store.Get(storageKey(address, slot))
	if err != nil {
		return [32]byte{}, errors.WithStack(err)
	}
	if len(raw) != 32 {
		return [32]byte{}, errors.Wrap(errs.InternalError, "malformed storage value")
	}
	var value [32]byte
	copy(value[:], raw)
	return value, nil
}

func (r *Repository) GetCode(_ context.Context, codeHash [32]byte) ([]byte, error) {
	code, err := r.store.Get(append([]byte(prefixEVMCode), codeHash[:]...))
	return code, errors.WithStack(err)
}

func (r *Repository) GetContractAddressByInscriptionId(_ context.Context, id ordinals.InscriptionId) ([20]byte, error) {
	raw, err := r.store.Get(inscriptionIdKey(prefixContractByInsc, id))
	if err != nil {
		return [20]byte{}, errors.WithStack(err)
	}
	if len(raw) != 20 {
		return [20]byte{}, errors.Wrap(errs.InternalError, "malformed contract address")
	}
	var address [20]byte
	copy(address[:], raw)
	return address, nil
}

func (r *Repository) GetInscriptionIdByContractAddress(_ context.Context, address [20]byte) (ordinals.InscriptionId, error) {
	raw, err := r.store.Get(addressKey(prefixInscByContract, address))
	if err != nil {
		return ordinals.InscriptionId{}, errors.WithStack(err)
	}
	id, ok := ordinals.NewInscriptionIdFromTagValue(raw)
	if !ok {
		return ordinals.InscriptionId{}, errors.Wrap(errs.InternalError, "malformed inscription id in contract mapping")
	}
	return id, nil
}

func (r *Repository) SetAccount(_ context.Context, account *entity.EVMAccount) error {
	return r.putJSON(addressKey(prefixEVMAccount, account.Address), mapEVMAccountToModel(account))
}

func (r *Repository) SetStorageValue(_ context.Context, address [20]byte, slot [32]byte, value [32]byte) error {
	return r.put(storageKey(address, slot), value[:])
}

func (r *Repository) SetCode(_ context.Context, codeHash [32]byte, code []byte) error {
	return r.put(append([]byte(prefixEVMCode), codeHash[:]...), code)
}

func (r *Repository) CreateContractMapping(_ context.Context, id ordinals.InscriptionId, address [20]byte) error {
	// both directions are written together; one is never valid without the other
	if err := r.put(inscriptionIdKey(prefixContractByInsc, id), address[:]); err != nil {
		return errors.WithStack(err)
	}
	return r.put(addressKey(prefixInscByContract, address), id.TagValue())
}

func (r *Repository) CreateEventProgramDeploys(_ context.Context, events []*entity.EventProgramDeploy) error {
	for _, event := range events {
		if err := r.putJSON(heightKey(prefixEventProgramDeploy, event.Id), mapEventProgramDeployToModel(event)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (r *Repository) CreateEventProgramCalls(_ context.Context, events []*entity.EventProgramCall) error {
	for _, event := range events {
		if err := r.putJSON(heightKey(prefixEventProgramCall, event.Id), mapEventProgramCallToModel(event)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
