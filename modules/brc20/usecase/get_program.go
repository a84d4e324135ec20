package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

func (u *Usecase) GetProgramAccount(ctx context.Context, address [20]byte) (*entity.EVMAccount, error) {
	account, err := u.programDg.GetAccount(ctx, address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get program account")
	}
	return account, nil
}

func (u *Usecase) GetProgramCode(ctx context.Context, codeHash [32]byte) ([]byte, error) {
	code, err := u.programDg.GetCode(ctx, codeHash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get program code")
	}
	return code, nil
}

func (u *Usecase) GetProgramStorageValue(ctx context.Context, address [20]byte, slot [32]byte) ([32]byte, error) {
	value, err := u.programDg.GetStorageValue(ctx, address, slot)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "failed to get program storage value")
	}
	return value, nil
}

func (u *Usecase) GetContractAddressByInscriptionId(ctx context.Context, id ordinals.InscriptionId) ([20]byte, error) {
	address, err := u.programDg.GetContractAddressByInscriptionId(ctx, id)
	if err != nil {
		return [20]byte{}, errors.Wrap(err, "failed to get contract address by inscription id")
	}
	return address, nil
}
