package evm

import (
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
)

type frame struct {
	evm     *EVM
	address Address
	caller  Address
	code    []byte
	input   []byte
	gas     uint64
	value   *uint256.Int
	static  bool

	stack      *stack
	mem        *memory
	dests      map[uint64]struct{}
	returnData []byte
}

func newFrame(evm *EVM, address, caller Address, code, input []byte, gas uint64, value *uint256.Int, static bool) *frame {
	return &frame{
		evm:     evm,
		address: address,
		caller:  caller,
		code:    code,
		input:   input,
		gas:     gas,
		value:   value,
		static:  static,
		stack:   newStack(),
		mem:     newMemory(),
		dests:   jumpDests(code),
	}
}

func (f *frame) require(n int) error {
	if f.stack.len() < n {
		return errStackUnderflow
	}
	return nil
}

func (f *frame) pushBytes(b []byte) error {
	if f.stack.len() >= stackLimit {
		return errStackOverflow
	}
	f.stack.push(new(uint256.Int).SetBytes(b))
	return nil
}

func (f *frame) pushUint64(v uint64) error {
	if f.stack.len() >= stackLimit {
		return errStackOverflow
	}
	f.stack.push(uint256.NewInt(v))
	return nil
}

func (f *frame) pushAddress(a Address) error {
	return f.pushBytes(a[:])
}

// memOperands pops an (offset, size) pair and charges memory expansion.
func (f *frame) memOperands() (uint64, uint64, error) {
	if err := f.require(2); err != nil {
		return 0, 0, err
	}
	offsetWord := f.stack.pop()
	sizeWord := f.stack.pop()
	if !sizeWord.IsUint64() || (!sizeWord.IsZero() && !offsetWord.IsUint64()) {
		return 0, 0, ErrOutOfGas
	}
	offset, size := offsetWord.Uint64(), sizeWord.Uint64()
	if err := f.chargeMemory(offset, size); err != nil {
		return 0, 0, err
	}
	return offset, size, nil
}

// run executes the frame's code to completion. A nil error means STOP or
// RETURN; errExecutionReverted carries the revert payload in the return value.
func (f *frame) run() ([]byte, error) {
	var pc uint64
	for pc < uint64(len(f.code)) {
		op := f.code[pc]
		switch {
		case op == opStop:
			return nil, nil

		case op == opPush0:
			if err := f.useGas(gasQuickStep); err != nil {
				return nil, err
			}
			if err := f.pushUint64(0); err != nil {
				return nil, err
			}

		case op >= opPush1 && op <= opPush32:
			if err := f.useGas(gasFastestStep); err != nil {
				return nil, err
			}
			n := uint64(op - opPush1 + 1)
			end := pc + 1 + n
			if end > uint64(len(f.code)) {
				end = uint64(len(f.code))
			}
			if err := f.pushBytes(rightPad(f.code[pc+1:end], int(n))); err != nil {
				return nil, err
			}
			pc += n

		case op >= opDup1 && op <= opDup16:
			if err := f.useGas(gasFastestStep); err != nil {
				return nil, err
			}
			n := int(op - opDup1 + 1)
			if err := f.require(n); err != nil {
				return nil, err
			}
			if f.stack.len() >= stackLimit {
				return nil, errStackOverflow
			}
			f.stack.dup(n)

		case op >= opSwap1 && op <= opSwap16:
			if err := f.useGas(gasFastestStep); err != nil {
				return nil, err
			}
			n := int(op - opSwap1 + 1)
			if err := f.require(n + 1); err != nil {
				return nil, err
			}
			f.stack.swap(n)

		case op >= opLog0 && op <= opLog4:
			// logs are charged and consumed but not recorded; execution state
			// is the only observable output
			if f.static {
				return nil, errWriteProtection
			}
			topics := int(op - opLog0)
			if err := f.require(2 + topics); err != nil {
				return nil, err
			}
			offset, size, err := f.memOperands()
			if err != nil {
				return nil, err
			}
			for i := 0; i < topics; i++ {
				f.stack.pop()
			}
			cost := uint64(gasLogBase) + uint64(topics)*gasLogTopic + size*gasLogDataByte
			if err := f.useGas(cost); err != nil {
				return nil, err
			}
			_ = f.mem.get(offset, size)

		default:
			stop, ret, err := f.step(op, &pc)
			if err != nil {
				return ret, err
			}
			if stop {
				return ret, nil
			}
		}
		pc++
	}
	return nil, nil
}

// step handles the non-range opcodes. It returns stop=true with the return
// payload for RETURN.
func (f *frame) step(op byte, pc *uint64) (bool, []byte, error) {
	state := f.evm.state
	switch op {
	case opAdd, opSub, opMul, opDiv, opSDiv, opMod, opSMod, opAnd, opOr, opXor,
		opLt, opGt, opSLt, opSGt, opEq, opByte, opShl, opShr, opSar, opSignExtend:
		if err := f.require(2); err != nil {
			return false, nil, err
		}
		cost := uint64(gasFastestStep)
		switch op {
		case opDiv, opSDiv, opMod, opSMod, opSignExtend:
			cost = gasFastStep
		}
		if err := f.useGas(cost); err != nil {
			return false, nil, err
		}
		x := f.stack.pop()
		y := f.stack.peek(0)
		switch op {
		case opAdd:
			y.Add(&x, y)
		case opSub:
			y.Sub(&x, y)
		case opMul:
			y.Mul(&x, y)
		case opDiv:
			y.Div(&x, y)
		case opSDiv:
			y.SDiv(&x, y)
		case opMod:
			y.Mod(&x, y)
		case opSMod:
			y.SMod(&x, y)
		case opAnd:
			y.And(&x, y)
		case opOr:
			y.Or(&x, y)
		case opXor:
			y.Xor(&x, y)
		case opLt:
			boolToWord(y, x.Lt(y))
		case opGt:
			boolToWord(y, x.Gt(y))
		case opSLt:
			boolToWord(y, x.Slt(y))
		case opSGt:
			boolToWord(y, x.Sgt(y))
		case opEq:
			boolToWord(y, x.Eq(y))
		case opByte:
			y.Byte(&x)
		case opShl:
			y.Lsh(y, shiftAmount(&x))
		case opShr:
			y.Rsh(y, shiftAmount(&x))
		case opSar:
			if x.GtUint64(255) {
				y.SRsh(y, 255)
				y.SRsh(y, 1)
			} else {
				y.SRsh(y, uint(x.Uint64()))
			}
		case opSignExtend:
			y.ExtendSign(y, &x)
		}

	case opAddMod, opMulMod:
		if err := f.require(3); err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasMidStep); err != nil {
			return false, nil, err
		}
		x := f.stack.pop()
		y := f.stack.pop()
		m := f.stack.peek(0)
		if op == opAddMod {
			m.AddMod(&x, &y, m)
		} else {
			m.MulMod(&x, &y, m)
		}

	case opExp:
		if err := f.require(2); err != nil {
			return false, nil, err
		}
		base := f.stack.pop()
		exponent := f.stack.peek(0)
		cost := uint64(gasSlowStep) + uint64(exponent.ByteLen())*gasExpByte
		if err := f.useGas(cost); err != nil {
			return false, nil, err
		}
		exponent.Exp(&base, exponent)

	case opIsZero, opNot:
		if err := f.require(1); err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasFastestStep); err != nil {
			return false, nil, err
		}
		x := f.stack.peek(0)
		if op == opIsZero {
			boolToWord(x, x.IsZero())
		} else {
			x.Not(x)
		}

	case opSha3:
		offset, size, err := f.memOperands()
		if err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasSha3 + (size+31)/32*gasSha3Word); err != nil {
			return false, nil, err
		}
		digest := Keccak256(f.mem.get(offset, size))
		if err := f.pushBytes(digest[:]); err != nil {
			return false, nil, err
		}

	case opAddress:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushAddress(f.address); err != nil {
			return false, nil, err
		}

	case opCaller:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushAddress(f.caller); err != nil {
			return false, nil, err
		}

	case opOrigin:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushAddress(f.evm.origin); err != nil {
			return false, nil, err
		}

	case opCallValue:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if f.stack.len() >= stackLimit {
			return false, nil, errStackOverflow
		}
		f.stack.push(f.value.Clone())

	case opBalance, opSelfBalance:
		address := f.address
		if op == opBalance {
			if err := f.require(1); err != nil {
				return false, nil, err
			}
			if err := f.useGas(gasBalance); err != nil {
				return false, nil, err
			}
			word := f.stack.pop()
			address = wordToAddress(&word)
		} else {
			if err := f.useGas(gasFastStep); err != nil {
				return false, nil, err
			}
		}
		balance, err := state.GetBalance(address)
		if err != nil {
			return false, nil, err
		}
		if f.stack.len() >= stackLimit {
			return false, nil, errStackOverflow
		}
		f.stack.push(balance)

	case opCallDataLoad:
		if err := f.require(1); err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasFastestStep); err != nil {
			return false, nil, err
		}
		offsetWord := f.stack.peek(0)
		var chunk [32]byte
		if offsetWord.IsUint64() && offsetWord.Uint64() < uint64(len(f.input)) {
			copy(chunk[:], f.input[offsetWord.Uint64():])
		}
		offsetWord.SetBytes(chunk[:])

	case opCallDataSize:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushUint64(uint64(len(f.input))); err != nil {
			return false, nil, err
		}

	case opCallDataCopy, opCodeCopy, opReturnDataCopy:
		if err := f.require(3); err != nil {
			return false, nil, err
		}
		destWord := f.stack.pop()
		srcWord := f.stack.pop()
		sizeWord := f.stack.pop()
		if !sizeWord.IsUint64() || (!sizeWord.IsZero() && !destWord.IsUint64()) {
			return false, nil, ErrOutOfGas
		}
		size := sizeWord.Uint64()
		if err := f.useGas(gasFastestStep + copyGas(size)); err != nil {
			return false, nil, err
		}
		if err := f.chargeMemory(destWord.Uint64(), size); err != nil {
			return false, nil, err
		}
		var src []byte
		switch op {
		case opCallDataCopy:
			src = f.input
		case opCodeCopy:
			src = f.code
		case opReturnDataCopy:
			src = f.returnData
			end := new(uint256.Int).AddUint64(&srcWord, size)
			if !end.IsUint64() || end.Uint64() > uint64(len(src)) {
				return false, nil, errReturnDataOutside
			}
		}
		chunk := make([]byte, size)
		if srcWord.IsUint64() && srcWord.Uint64() < uint64(len(src)) {
			copy(chunk, src[srcWord.Uint64():])
		}
		f.mem.set(destWord.Uint64(), chunk)

	case opCodeSize:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushUint64(uint64(len(f.code))); err != nil {
			return false, nil, err
		}

	case opExtCodeSize, opExtCodeHash:
		if err := f.require(1); err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasExtCode); err != nil {
			return false, nil, err
		}
		word := f.stack.pop()
		address := wordToAddress(&word)
		if op == opExtCodeSize {
			code, err := state.GetCode(address)
			if err != nil {
				return false, nil, err
			}
			if err := f.pushUint64(uint64(len(code))); err != nil {
				return false, nil, err
			}
		} else {
			exists, err := state.Exists(address)
			if err != nil {
				return false, nil, err
			}
			if !exists {
				if err := f.pushUint64(0); err != nil {
					return false, nil, err
				}
			} else {
				codeHash, err := state.GetCodeHash(address)
				if err != nil {
					return false, nil, err
				}
				if err := f.pushBytes(codeHash[:]); err != nil {
					return false, nil, err
				}
			}
		}

	case opExtCodeCopy:
		if err := f.require(4); err != nil {
			return false, nil, err
		}
		addrWord := f.stack.pop()
		destWord := f.stack.pop()
		srcWord := f.stack.pop()
		sizeWord := f.stack.pop()
		if !sizeWord.IsUint64() || (!sizeWord.IsZero() && !destWord.IsUint64()) {
			return false, nil, ErrOutOfGas
		}
		size := sizeWord.Uint64()
		if err := f.useGas(gasExtCode + copyGas(size)); err != nil {
			return false, nil, err
		}
		if err := f.chargeMemory(destWord.Uint64(), size); err != nil {
			return false, nil, err
		}
		code, err := state.GetCode(wordToAddress(&addrWord))
		if err != nil {
			return false, nil, err
		}
		chunk := make([]byte, size)
		if srcWord.IsUint64() && srcWord.Uint64() < uint64(len(code)) {
			copy(chunk, code[srcWord.Uint64():])
		}
		f.mem.set(destWord.Uint64(), chunk)

	case opReturnDataSize:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushUint64(uint64(len(f.returnData))); err != nil {
			return false, nil, err
		}

	case opGasPrice, opBaseFee, opBlockHash, opCoinbase, opPrevRandao:
		// no fee market, no block hash oracle; these resolve to zero
		cost := uint64(gasQuickStep)
		if op == opBlockHash {
			if err := f.require(1); err != nil {
				return false, nil, err
			}
			f.stack.pop()
			cost = gasExtStep
		}
		if err := f.useGas(cost); err != nil {
			return false, nil, err
		}
		if err := f.pushUint64(0); err != nil {
			return false, nil, err
		}

	case opTimestamp:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushUint64(f.evm.block.Timestamp); err != nil {
			return false, nil, err
		}

	case opNumber:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushUint64(f.evm.block.Height); err != nil {
			return false, nil, err
		}

	case opGasLimit:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushUint64(ExecutionGasBudget); err != nil {
			return false, nil, err
		}

	case opChainId:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushUint64(chainId); err != nil {
			return false, nil, err
		}

	case opPop:
		if err := f.require(1); err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		f.stack.pop()

	case opMLoad:
		if err := f.require(1); err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasFastestStep); err != nil {
			return false, nil, err
		}
		offsetWord := f.stack.peek(0)
		if !offsetWord.IsUint64() {
			return false, nil, ErrOutOfGas
		}
		offset := offsetWord.Uint64()
		if err := f.chargeMemory(offset, 32); err != nil {
			return false, nil, err
		}
		offsetWord.SetBytes(f.mem.get(offset, 32))

	case opMStore, opMStore8:
		if err := f.require(2); err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasFastestStep); err != nil {
			return false, nil, err
		}
		offsetWord := f.stack.pop()
		valueWord := f.stack.pop()
		if !offsetWord.IsUint64() {
			return false, nil, ErrOutOfGas
		}
		offset := offsetWord.Uint64()
		if op == opMStore {
			if err := f.chargeMemory(offset, 32); err != nil {
				return false, nil, err
			}
			word := valueWord.Bytes32()
			f.mem.set(offset, word[:])
		} else {
			if err := f.chargeMemory(offset, 1); err != nil {
				return false, nil, err
			}
			f.mem.setByte(offset, byte(valueWord.Uint64()))
		}

	case opSLoad:
		if err := f.require(1); err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasSLoad); err != nil {
			return false, nil, err
		}
		slotWord := f.stack.peek(0)
		value, err := state.GetState(f.address, slotWord.Bytes32())
		if err != nil {
			return false, nil, err
		}
		slotWord.SetBytes(value[:])

	case opSStore:
		if f.static {
			return false, nil, errWriteProtection
		}
		if err := f.require(2); err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasSStore); err != nil {
			return false, nil, err
		}
		slotWord := f.stack.pop()
		valueWord := f.stack.pop()
		if err := state.SetState(f.address, slotWord.Bytes32(), valueWord.Bytes32()); err != nil {
			return false, nil, err
		}

	case opJump, opJumpI:
		n := 1
		if op == opJumpI {
			n = 2
		}
		if err := f.require(n); err != nil {
			return false, nil, err
		}
		cost := uint64(gasMidStep)
		if op == opJumpI {
			cost = gasSlowStep
		}
		if err := f.useGas(cost); err != nil {
			return false, nil, err
		}
		destWord := f.stack.pop()
		jump := true
		if op == opJumpI {
			condition := f.stack.pop()
			jump = !condition.IsZero()
		}
		if jump {
			if !destWord.IsUint64() {
				return false, nil, errInvalidJump
			}
			dest := destWord.Uint64()
			if _, ok := f.dests[dest]; !ok {
				return false, nil, errInvalidJump
			}
			// run() increments pc after step returns
			*pc = dest - 1
		}

	case opPC:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushUint64(*pc); err != nil {
			return false, nil, err
		}

	case opMSize:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushUint64(f.mem.len()); err != nil {
			return false, nil, err
		}

	case opGas:
		if err := f.useGas(gasQuickStep); err != nil {
			return false, nil, err
		}
		if err := f.pushUint64(f.gas); err != nil {
			return false, nil, err
		}

	case opJumpDest:
		if err := f.useGas(gasJumpDest); err != nil {
			return false, nil, err
		}

	case opCreate:
		if f.static {
			return false, nil, errWriteProtection
		}
		if err := f.require(3); err != nil {
			return false, nil, err
		}
		valueWord := f.stack.pop()
		offset, size, err := f.memOperands()
		if err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasCreate); err != nil {
			return false, nil, err
		}
		if !valueWord.IsZero() {
			// created contracts cannot be endowed; there is no native coin
			if err := f.pushUint64(0); err != nil {
				return false, nil, err
			}
			break
		}
		initCode := f.mem.get(offset, size)
		nonce, err := state.GetNonce(f.address)
		if err != nil {
			return false, nil, err
		}
		if err := state.SetNonce(f.address, nonce+1); err != nil {
			return false, nil, err
		}
		address := ContractAddress(f.address, nonce)
		ret, leftover, err := f.evm.create(f.address, initCode, f.gas, address)
		f.gas = leftover
		f.returnData = nil
		if err != nil {
			if !recoverable(err) {
				return false, nil, err
			}
			f.returnData = ret
			if err := f.pushUint64(0); err != nil {
				return false, nil, err
			}
		} else {
			if err := f.pushAddress(address); err != nil {
				return false, nil, err
			}
		}

	case opCall, opStaticCall, opDelegateCall:
		argCount := 7
		if op != opCall {
			argCount = 6
		}
		if err := f.require(argCount); err != nil {
			return false, nil, err
		}
		gasWord := f.stack.pop()
		addrWord := f.stack.pop()
		value := uint256.NewInt(0)
		if op == opCall {
			v := f.stack.pop()
			value = &v
		}
		inOffset, inSize, err := f.memOperands()
		if err != nil {
			return false, nil, err
		}
		outOffset, outSize, err := f.memOperands()
		if err != nil {
			return false, nil, err
		}
		if err := f.useGas(gasCallBase); err != nil {
			return false, nil, err
		}
		if op == opCall && !value.IsZero() && f.static {
			return false, nil, errWriteProtection
		}

		// 63/64 rule bounds the gas forwarded to the callee
		available := f.gas - f.gas/64
		callGas := available
		if gasWord.IsUint64() && gasWord.Uint64() < available {
			callGas = gasWord.Uint64()
		}
		f.gas -= callGas

		target := wordToAddress(&addrWord)
		input := f.mem.get(inOffset, inSize)

		var ret []byte
		var leftover uint64
		switch op {
		case opCall:
			ret, leftover, err = f.evm.call(f.address, target, input, value, callGas, f.static)
		case opStaticCall:
			ret, leftover, err = f.evm.call(f.address, target, input, uint256.NewInt(0), callGas, true)
		case opDelegateCall:
			ret, leftover, err = f.evm.delegateCall(f, target, input, callGas)
		}
		f.gas += leftover
		f.returnData = ret
		success := err == nil
		if err != nil && !recoverable(err) {
			return false, nil, err
		}
		if outSize > 0 && len(ret) > 0 {
			chunk := ret
			if uint64(len(chunk)) > outSize {
				chunk = chunk[:outSize]
			}
			f.mem.set(outOffset, chunk)
		}
		var flag uint64
		if success {
			flag = 1
		}
		if err := f.pushUint64(flag); err != nil {
			return false, nil, err
		}

	case opReturn:
		offset, size, err := f.memOperands()
		if err != nil {
			return false, nil, err
		}
		return true, f.mem.get(offset, size), nil

	case opRevert:
		offset, size, err := f.memOperands()
		if err != nil {
			return false, nil, err
		}
		return false, f.mem.get(offset, size), errExecutionReverted

	default:
		return false, nil, errInvalidOpcode
	}
	return false, nil, nil
}

// recoverable reports whether a callee failure is observable to the caller as
// success=0 rather than aborting the caller too. State read errors abort.
func recoverable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, errExecutionReverted),
		errors.Is(err, ErrOutOfGas),
		errors.Is(err, ErrDepthExceeded),
		errors.Is(err, ErrCodeSizeExceeded),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, errInvalidJump),
		errors.Is(err, errInvalidOpcode),
		errors.Is(err, errStackUnderflow),
		errors.Is(err, errStackOverflow),
		errors.Is(err, errWriteProtection),
		errors.Is(err, errReturnDataOutside),
		errors.Is(err, errNativeNotSupported):
		return true
	}
	return false
}

func boolToWord(word *uint256.Int, v bool) {
	if v {
		word.SetOne()
	} else {
		word.Clear()
	}
}

func shiftAmount(word *uint256.Int) uint {
	if word.GtUint64(256) {
		return 256
	}
	return uint(word.Uint64())
}

func wordToAddress(word *uint256.Int) Address {
	b := word.Bytes32()
	var address Address
	copy(address[:], b[12:])
	return address
}

func rightPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}
