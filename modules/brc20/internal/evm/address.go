package evm

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

// Address is a 20-byte contract execution address.
type Address = [20]byte

// Hash is a 32-byte word used for code hashes and storage slots.
type Hash = [32]byte

// Keccak256 returns the legacy Keccak-256 digest of data.
func Keccak256(data ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var digest Hash
	h.Sum(digest[:0])
	return digest
}

const senderDomain = "brc20-prog/sender"

// SenderAddress derives the deterministic execution sender for an inscription.
// The same inscription id always yields the same sender on every node.
func SenderAddress(id ordinals.InscriptionId) Address {
	digest := Keccak256([]byte(senderDomain), []byte(id.String()))
	var address Address
	copy(address[:], digest[12:])
	return address
}

// ContractAddress derives the address of a contract created by sender at the
// given account nonce.
func ContractAddress(sender Address, nonce uint64) Address {
	digest := Keccak256(sender[:], binary.BigEndian.AppendUint64(nil, nonce))
	var address Address
	copy(address[:], digest[12:])
	return address
}

// Native contract addresses. These are reserved: user contracts can never be
// created at them because contract addresses are derived from keccak digests.
var (
	// AddressBalanceNative returns the ledger balance for (tick, pkScript).
	AddressBalanceNative = Address{19: 0xff}
	// AddressLedgerNative credits or debits the ledger. Only the designated
	// bridge contract may call it.
	AddressLedgerNative = Address{19: 0xfe}
	// AddressTxNative exposes transaction introspection. Not yet implemented:
	// calls revert.
	AddressTxNative = Address{19: 0xfd}
	// AddressSigNative exposes signature verification. Not yet implemented:
	// calls revert.
	AddressSigNative = Address{19: 0xfc}
)

func isNativeAddress(address Address) bool {
	switch address {
	case AddressBalanceNative, AddressLedgerNative, AddressTxNative, AddressSigNative:
		return true
	}
	return false
}
