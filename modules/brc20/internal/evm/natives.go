package evm

import (
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
)

const (
	gasNativeBalance = 800
	gasNativeLedger  = 5000

	ledgerOpCredit = 0x01
	ledgerOpDebit  = 0x02
)

// callNative dispatches calls to the reserved native addresses. Natives have
// no code and no storage; their behavior is fixed by the protocol.
func (e *EVM) callNative(caller, target Address, input []byte, gas uint64, static bool) ([]byte, uint64, error) {
	switch target {
	case AddressBalanceNative:
		if gas < gasNativeBalance {
			return nil, 0, ErrOutOfGas
		}
		ret, err := e.nativeBalance(input)
		return ret, gas - gasNativeBalance, err
	case AddressLedgerNative:
		if static {
			return nil, gas, errWriteProtection
		}
		if gas < gasNativeLedger {
			return nil, 0, ErrOutOfGas
		}
		ret, err := e.nativeLedger(caller, input)
		return ret, gas - gasNativeLedger, err
	case AddressTxNative, AddressSigNative:
		return []byte(errNativeNotSupported.Error()), gas, errNativeNotSupported
	}
	return nil, gas, errors.New("evm: unknown native address")
}

// nativeBalance input layout: 1-byte tick length, the tick bytes, then the
// holder pkScript. Returns the overall ledger balance as a 32-byte word,
// scaled to 18 decimals.
func (e *EVM) nativeBalance(input []byte) ([]byte, error) {
	tick, pkScript, err := splitTickInput(input)
	if err != nil {
		return nil, err
	}
	if e.ledger == nil {
		return nil, errNativeNotSupported
	}
	balance, err := e.ledger.OverallBalance(tick, pkScript)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	word := balance.Bytes32()
	return word[:], nil
}

// nativeLedger input layout: 1-byte op (credit/debit), 32-byte amount,
// 1-byte tick length, the tick bytes, then the holder pkScript. Only the
// designated bridge contract may call it; everything else reverts.
func (e *EVM) nativeLedger(caller Address, input []byte) ([]byte, error) {
	if e.bridge == (Address{}) || caller != e.bridge {
		return nil, errExecutionReverted
	}
	if e.ledger == nil {
		return nil, errNativeNotSupported
	}
	if len(input) < 1+32+1 {
		return nil, errExecutionReverted
	}
	op := input[0]
	amount := new(uint256.Int).SetBytes(input[1:33])
	tick, pkScript, err := splitTickInput(input[33:])
	if err != nil {
		return nil, err
	}
	var credit bool
	switch op {
	case ledgerOpCredit:
		credit = true
	case ledgerOpDebit:
		credit = false
	default:
		return nil, errExecutionReverted
	}
	if err := e.ledger.AdjustBalance(tick, pkScript, amount, credit); err != nil {
		// ledger refusals (eg. debit over balance) surface as reverts
		return []byte(err.Error()), errExecutionReverted
	}
	return nil, nil
}

func splitTickInput(input []byte) (string, []byte, error) {
	if len(input) < 1 {
		return "", nil, errExecutionReverted
	}
	tickLen := int(input[0])
	if tickLen == 0 || len(input) < 1+tickLen+1 {
		return "", nil, errExecutionReverted
	}
	tick := string(input[1 : 1+tickLen])
	pkScript := input[1+tickLen:]
	return tick, pkScript, nil
}
