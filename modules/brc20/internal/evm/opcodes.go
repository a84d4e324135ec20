package evm

// Opcode values follow the canonical EVM instruction set through the Shanghai
// revision. Opcodes not listed here are invalid and abort execution.
const (
	opStop       = 0x00
	opAdd        = 0x01
	opMul        = 0x02
	opSub        = 0x03
	opDiv        = 0x04
	opSDiv       = 0x05
	opMod        = 0x06
	opSMod       = 0x07
	opAddMod     = 0x08
	opMulMod     = 0x09
	opExp        = 0x0a
	opSignExtend = 0x0b

	opLt     = 0x10
	opGt     = 0x11
	opSLt    = 0x12
	opSGt    = 0x13
	opEq     = 0x14
	opIsZero = 0x15
	opAnd    = 0x16
	opOr     = 0x17
	opXor    = 0x18
	opNot    = 0x19
	opByte   = 0x1a
	opShl    = 0x1b
	opShr    = 0x1c
	opSar    = 0x1d

	opSha3 = 0x20

	opAddress        = 0x30
	opBalance        = 0x31
	opOrigin         = 0x32
	opCaller         = 0x33
	opCallValue      = 0x34
	opCallDataLoad   = 0x35
	opCallDataSize   = 0x36
	opCallDataCopy   = 0x37
	opCodeSize       = 0x38
	opCodeCopy       = 0x39
	opGasPrice       = 0x3a
	opExtCodeSize    = 0x3b
	opExtCodeCopy    = 0x3c
	opReturnDataSize = 0x3d
	opReturnDataCopy = 0x3e
	opExtCodeHash    = 0x3f

	opBlockHash   = 0x40
	opCoinbase    = 0x41
	opTimestamp   = 0x42
	opNumber      = 0x43
	opPrevRandao  = 0x44
	opGasLimit    = 0x45
	opChainId     = 0x46
	opSelfBalance = 0x47
	opBaseFee     = 0x48

	opPop      = 0x50
	opMLoad    = 0x51
	opMStore   = 0x52
	opMStore8  = 0x53
	opSLoad    = 0x54
	opSStore   = 0x55
	opJump     = 0x56
	opJumpI    = 0x57
	opPC       = 0x58
	opMSize    = 0x59
	opGas      = 0x5a
	opJumpDest = 0x5b

	opPush0  = 0x5f
	opPush1  = 0x60
	opPush32 = 0x7f
	opDup1   = 0x80
	opDup16  = 0x8f
	opSwap1  = 0x90
	opSwap16 = 0x9f

	opLog0 = 0xa0
	opLog4 = 0xa4

	opCreate       = 0xf0
	opCall         = 0xf1
	opReturn       = 0xf3
	opDelegateCall = 0xf4
	opStaticCall   = 0xfa
	opRevert       = 0xfd
	opInvalid      = 0xfe
)

// jumpDests scans code once and marks every JUMPDEST that is not inside push
// data. JUMP/JUMPI only accept marked destinations.
func jumpDests(code []byte) map[uint64]struct{} {
	dests := make(map[uint64]struct{})
	for pc := uint64(0); pc < uint64(len(code)); pc++ {
		op := code[pc]
		if op == opJumpDest {
			dests[pc] = struct{}{}
		} else if op >= opPush1 && op <= opPush32 {
			pc += uint64(op - opPush1 + 1)
		}
	}
	return dests
}
