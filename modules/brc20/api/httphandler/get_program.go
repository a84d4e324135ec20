package httphandler

import (
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

func parseHexBytes(s string, size int) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "not valid hex")
	}
	if len(raw) != size {
		return nil, errors.Errorf("expected %d bytes, got %d", size, len(raw))
	}
	return raw, nil
}

type getProgramContractResult struct {
	InscriptionId   string `json:"inscriptionId"`
	ContractAddress string `json:"contractAddress"`
}

type getProgramContractResponse = common.HttpResponse[getProgramContractResult]

func (h *HttpHandler) GetProgramContract(ctx *fiber.Ctx) (err error) {
	inscriptionId, err := ordinals.NewInscriptionIdFromString(ctx.Params("id"))
	if err != nil {
		return errs.NewPublicError("'id' is not a valid inscription id")
	}

	address, err := h.usecase.GetContractAddressByInscriptionId(ctx.UserContext(), inscriptionId)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("no contract deployed by this inscription")
		}
		return errors.Wrap(err, "error during GetContractAddressByInscriptionId")
	}

	resp := getProgramContractResponse{
		Result: &getProgramContractResult{
			InscriptionId:   inscriptionId.String(),
			ContractAddress: "0x" + hex.EncodeToString(address[:]),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}

type getProgramAccountResult struct {
	Address  string `json:"address"`
	Nonce    uint64 `json:"nonce"`
	Balance  string `json:"balance"`
	CodeHash string `json:"codeHash"`
	Code     string `json:"code"`
}

type getProgramAccountResponse = common.HttpResponse[getProgramAccountResult]

func (h *HttpHandler) GetProgramAccount(ctx *fiber.Ctx) (err error) {
	raw, err := parseHexBytes(ctx.Params("address"), 20)
	if err != nil {
		return errs.WithPublicMessage(err, "invalid 'address'")
	}
	var address [20]byte
	copy(address[:], raw)

	account, err := h.usecase.GetProgramAccount(ctx.UserContext(), address)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("account not found")
		}
		return errors.Wrap(err, "error during GetProgramAccount")
	}

	result := getProgramAccountResult{
		Address:  "0x" + hex.EncodeToString(account.Address[:]),
		Nonce:    account.Nonce,
		Balance:  account.Balance.Dec(),
		CodeHash: "0x" + hex.EncodeToString(account.CodeHash[:]),
	}
	code, err := h.usecase.GetProgramCode(ctx.UserContext(), account.CodeHash)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "error during GetProgramCode")
	}
	if len(code) > 0 {
		result.Code = "0x" + hex.EncodeToString(code)
	}

	return errors.WithStack(ctx.JSON(getProgramAccountResponse{Result: &result}))
}

type getProgramStorageResult struct {
	Address string `json:"address"`
	Slot    string `json:"slot"`
	Value   string `json:"value"`
}

type getProgramStorageResponse = common.HttpResponse[getProgramStorageResult]

func (h *HttpHandler) GetProgramStorage(ctx *fiber.Ctx) (err error) {
	rawAddress, err := parseHexBytes(ctx.Params("address"), 20)
	if err != nil {
		return errs.WithPublicMessage(err, "invalid 'address'")
	}
	rawSlot, err := parseHexBytes(ctx.Params("slot"), 32)
	if err != nil {
		return errs.WithPublicMessage(err, "invalid 'slot'")
	}
	var address [20]byte
	var slot [32]byte
	copy(address[:], rawAddress)
	copy(slot[:], rawSlot)

	value, err := h.usecase.GetProgramStorageValue(ctx.UserContext(), address, slot)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			value = [32]byte{}
		} else {
			return errors.Wrap(err, "error during GetProgramStorageValue")
		}
	}

	resp := getProgramStorageResponse{
		Result: &getProgramStorageResult{
			Address: "0x" + hex.EncodeToString(address[:]),
			Slot:    "0x" + hex.EncodeToString(slot[:]),
			Value:   "0x" + hex.EncodeToString(value[:]),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
