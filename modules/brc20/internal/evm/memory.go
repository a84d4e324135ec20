package evm

// memory is the byte-addressed scratch space of a call frame. It grows in
// 32-byte words and never shrinks within a frame.
type memory struct {
	data []byte
}

func newMemory() *memory {
	return &memory{}
}

func (m *memory) len() uint64 {
	return uint64(len(m.data))
}

// resize grows memory to hold at least size bytes, rounded up to a word.
func (m *memory) resize(size uint64) {
	words := (size + 31) / 32
	need := words * 32
	if uint64(len(m.data)) < need {
		m.data = append(m.data, make([]byte, need-uint64(len(m.data)))...)
	}
}

func (m *memory) set(offset uint64, value []byte) {
	if len(value) == 0 {
		return
	}
	m.resize(offset + uint64(len(value)))
	copy(m.data[offset:], value)
}

func (m *memory) setByte(offset uint64, value byte) {
	m.resize(offset + 1)
	m.data[offset] = value
}

// get returns a copy of memory[offset:offset+size], growing as needed.
func (m *memory) get(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	m.resize(offset + size)
	out := make([]byte, size)
	copy(out, m.data[offset:offset+size])
	return out
}
