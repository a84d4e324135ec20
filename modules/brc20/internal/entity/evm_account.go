package entity

import "github.com/holiman/uint256"

// EVMAccount is the persisted state of a contract execution account.
type EVMAccount struct {
	Address  [20]byte
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash [32]byte
}
