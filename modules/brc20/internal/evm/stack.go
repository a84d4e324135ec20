package evm

import "github.com/holiman/uint256"

const stackLimit = 1024

type stack struct {
	data []uint256.Int
}

func newStack() *stack {
	return &stack{data: make([]uint256.Int, 0, 16)}
}

func (s *stack) len() int {
	return len(s.data)
}

func (s *stack) push(value *uint256.Int) {
	s.data = append(s.data, *value)
}

func (s *stack) pop() uint256.Int {
	value := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return value
}

// peek returns a pointer to the n-th element from the top, zero-based.
func (s *stack) peek(n int) *uint256.Int {
	return &s.data[len(s.data)-1-n]
}

func (s *stack) dup(n int) {
	s.data = append(s.data, s.data[len(s.data)-n])
}

func (s *stack) swap(n int) {
	top := len(s.data) - 1
	s.data[top], s.data[top-n] = s.data[top-n], s.data[top]
}
