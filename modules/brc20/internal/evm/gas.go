package evm

import "github.com/cockroachdb/errors"

// Gas costs are a fixed deterministic schedule. They exist to bound execution,
// not to price a fee market, so the table is deliberately flat: no warm/cold
// access distinction and no refunds.
const (
	gasQuickStep   = 2
	gasFastestStep = 3
	gasFastStep    = 5
	gasMidStep     = 8
	gasSlowStep    = 10
	gasExtStep     = 20

	gasSha3        = 30
	gasSha3Word    = 6
	gasCopyWord    = 3
	gasMemoryWord  = 3
	gasSLoad       = 200
	gasSStore      = 5000
	gasJumpDest    = 1
	gasBalance     = 400
	gasExtCode     = 700
	gasCallBase    = 700
	gasCallNewAcct = 25000
	gasCreate      = 32000
	gasCodeDeposit = 200
	gasLogBase     = 375
	gasLogTopic    = 375
	gasLogDataByte = 8
	gasExpByte     = 50
)

var ErrOutOfGas = errors.New("evm: out of gas")

// chargeMemory charges for expanding frame memory to cover [offset, offset+size)
// and performs the expansion. Linear cost per fresh word.
func (f *frame) chargeMemory(offset, size uint64) error {
	if size == 0 {
		return nil
	}
	need := offset + size
	if need < offset {
		return ErrOutOfGas
	}
	current := f.mem.len()
	if need <= current {
		return nil
	}
	words := (need + 31) / 32
	grown := words*32 - current
	if err := f.useGas((grown + 31) / 32 * gasMemoryWord); err != nil {
		return err
	}
	f.mem.resize(need)
	return nil
}

func (f *frame) useGas(amount uint64) error {
	if f.gas < amount {
		f.gas = 0
		return ErrOutOfGas
	}
	f.gas -= amount
	return nil
}

func copyGas(size uint64) uint64 {
	return (size + 31) / 32 * gasCopyWord
}
