package ordinals

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// PushScriptBuilder builds scripts whose data pushes use OP_PUSHDATA* or
// OP_DATA_* opcodes only, matching how inscription envelopes are assembled.
// Empty data pushes are encoded as OP_0.
type PushScriptBuilder struct {
	script []byte
	err    error
}

func NewPushScriptBuilder() *PushScriptBuilder {
	return &PushScriptBuilder{}
}

func pushDataToBytes(data []byte) []byte {
	if len(data) == 0 {
		return []byte{txscript.OP_0}
	}
	script := make([]byte, 0, len(data)+5)
	dataLen := len(data)
	switch {
	case dataLen < txscript.OP_PUSHDATA1:
		script = append(script, byte(txscript.OP_DATA_1-1+dataLen))
	case dataLen <= 0xff:
		script = append(script, txscript.OP_PUSHDATA1, byte(dataLen))
	case dataLen <= 0xffff:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(dataLen))
		script = append(script, txscript.OP_PUSHDATA2)
		script = append(script, buf...)
	default:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(dataLen))
		script = append(script, txscript.OP_PUSHDATA4)
		script = append(script, buf...)
	}
	return append(script, data...)
}

// AddData pushes the passed data to the end of the script with a canonical
// data push opcode. Pushes larger than the maximum script element size fail
// the builder.
func (b *PushScriptBuilder) AddData(data []byte) *PushScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(data) > txscript.MaxScriptElementSize {
		b.err = txscript.ErrScriptNotCanonical(fmt.Sprintf(
			"adding a data element of %d bytes would exceed the maximum allowed script element size of %d",
			len(data), txscript.MaxScriptElementSize))
		return b
	}
	b.script = append(b.script, pushDataToBytes(data)...)
	return b
}

// AddOp pushes the passed opcode to the end of the script.
func (b *PushScriptBuilder) AddOp(opcode byte) *PushScriptBuilder {
	if b.err != nil {
		return b
	}
	b.script = append(b.script, opcode)
	return b
}

// Script returns the built script, or the script up to the first error along
// with that error.
func (b *PushScriptBuilder) Script() ([]byte, error) {
	return b.script, b.err
}
