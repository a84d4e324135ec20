package evm

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/datagateway"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
)

// emptyCodeHash is keccak256 of the empty byte string.
var emptyCodeHash = Keccak256(nil)

type accountState struct {
	nonce    uint64
	balance  *uint256.Int
	codeHash Hash
	code     []byte
	exists   bool
}

type journalEntry func()

// StateDB is a journaled account/storage overlay on top of the persisted
// program state. All mutations during execution land in the overlay; Commit
// writes them through the datagateway. Snapshots capture overlay positions so
// reverted call frames roll back cheaply.
type StateDB struct {
	ctx context.Context
	dg  datagateway.ProgramDataGateway

	accounts map[Address]*accountState
	storage  map[Address]map[Hash]Hash
	// origin records the value each cached slot had when first loaded;
	// Commit writes only slots that differ, so reads never materialize
	// storage keys
	origin  map[Address]map[Hash]Hash
	journal []journalEntry
}

func NewStateDB(ctx context.Context, dg datagateway.ProgramDataGateway) *StateDB {
	return &StateDB{
		ctx:      ctx,
		dg:       dg,
		accounts: make(map[Address]*accountState),
		storage:  make(map[Address]map[Hash]Hash),
		origin:   make(map[Address]map[Hash]Hash),
	}
}

func (s *StateDB) Snapshot() int {
	return len(s.journal)
}

func (s *StateDB) RevertToSnapshot(snapshot int) {
	for i := len(s.journal) - 1; i >= snapshot; i-- {
		s.journal[i]()
	}
	s.journal = s.journal[:snapshot]
}

func (s *StateDB) loadAccount(address Address) (*accountState, error) {
	if account, ok := s.accounts[address]; ok {
		return account, nil
	}
	account := &accountState{
		balance:  uint256.NewInt(0),
		codeHash: emptyCodeHash,
	}
	stored, err := s.dg.GetAccount(s.ctx, address)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return nil, errors.WithStack(err)
		}
	} else {
		account.nonce = stored.Nonce
		if stored.Balance != nil {
			account.balance = stored.Balance.Clone()
		}
		account.codeHash = stored.CodeHash
		account.exists = true
		if stored.CodeHash != emptyCodeHash {
			code, err := s.dg.GetCode(s.ctx, stored.CodeHash)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			account.code = code
		}
	}
	s.accounts[address] = account
	return account, nil
}

func (s *StateDB) Exists(address Address) (bool, error) {
	account, err := s.loadAccount(address)
	if err != nil {
		return false, err
	}
	return account.exists, nil
}

func (s *StateDB) GetNonce(address Address) (uint64, error) {
	account, err := s.loadAccount(address)
	if err != nil {
		return 0, err
	}
	return account.nonce, nil
}

func (s *StateDB) SetNonce(address Address, nonce uint64) error {
	account, err := s.loadAccount(address)
	if err != nil {
		return err
	}
	prevNonce, prevExists := account.nonce, account.exists
	s.journal = append(s.journal, func() {
		account.nonce = prevNonce
		account.exists = prevExists
	})
	account.nonce = nonce
	account.exists = true
	return nil
}

func (s *StateDB) GetBalance(address Address) (*uint256.Int, error) {
	account, err := s.loadAccount(address)
	if err != nil {
		return nil, err
	}
	return account.balance.Clone(), nil
}

func (s *StateDB) AddBalance(address Address, amount *uint256.Int) error {
	account, err := s.loadAccount(address)
	if err != nil {
		return err
	}
	prevBalance, prevExists := account.balance, account.exists
	s.journal = append(s.journal, func() {
		account.balance = prevBalance
		account.exists = prevExists
	})
	account.balance = new(uint256.Int).Add(prevBalance, amount)
	account.exists = true
	return nil
}

func (s *StateDB) SubBalance(address Address, amount *uint256.Int) error {
	account, err := s.loadAccount(address)
	if err != nil {
		return err
	}
	if account.balance.Lt(amount) {
		return errors.New("balance underflow")
	}
	prevBalance := account.balance
	s.journal = append(s.journal, func() {
		account.balance = prevBalance
	})
	account.balance = new(uint256.Int).Sub(prevBalance, amount)
	return nil
}

func (s *StateDB) GetCode(address Address) ([]byte, error) {
	account, err := s.loadAccount(address)
	if err != nil {
		return nil, err
	}
	return account.code, nil
}

func (s *StateDB) GetCodeHash(address Address) (Hash, error) {
	account, err := s.loadAccount(address)
	if err != nil {
		return Hash{}, err
	}
	return account.codeHash, nil
}

func (s *StateDB) SetCode(address Address, code []byte) error {
	account, err := s.loadAccount(address)
	if err != nil {
		return err
	}
	prevCode, prevHash, prevExists := account.code, account.codeHash, account.exists
	s.journal = append(s.journal, func() {
		account.code = prevCode
		account.codeHash = prevHash
		account.exists = prevExists
	})
	account.code = code
	account.codeHash = Keccak256(code)
	account.exists = true
	return nil
}

func (s *StateDB) GetState(address Address, slot Hash) (Hash, error) {
	if slots, ok := s.storage[address]; ok {
		if value, ok := slots[slot]; ok {
			return value, nil
		}
	}
	value, err := s.dg.GetStorageValue(s.ctx, address, slot)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			value = Hash{}
		} else {
			return Hash{}, errors.WithStack(err)
		}
	}
	if s.storage[address] == nil {
		s.storage[address] = make(map[Hash]Hash)
		s.origin[address] = make(map[Hash]Hash)
	}
	s.storage[address][slot] = value
	s.origin[address][slot] = value
	return value, nil
}

func (s *StateDB) SetState(address Address, slot Hash, value Hash) error {
	prev, err := s.GetState(address, slot)
	if err != nil {
		return err
	}
	slots := s.storage[address]
	s.journal = append(s.journal, func() {
		slots[slot] = prev
	})
	slots[slot] = value
	return nil
}

// Commit writes the overlay through the datagateway. Called once per
// successfully executed inscription; reverted executions never reach it.
func (s *StateDB) Commit() error {
	for address, account := range s.accounts {
		if !account.exists {
			continue
		}
		if account.codeHash != emptyCodeHash && account.code != nil {
			if err := s.dg.SetCode(s.ctx, account.codeHash, account.code); err != nil {
				return errors.WithStack(err)
			}
		}
		err := s.dg.SetAccount(s.ctx, &entity.EVMAccount{
			Address:  address,
			Nonce:    account.nonce,
			Balance:  account.balance.Clone(),
			CodeHash: account.codeHash,
		})
		if err != nil {
			return errors.WithStack(err)
		}
	}
	for address, slots := range s.storage {
		for slot, value := range slots {
			if value == s.origin[address][slot] {
				continue
			}
			if err := s.dg.SetStorageValue(s.ctx, address, slot, value); err != nil {
				return errors.WithStack(err)
			}
		}
	}
	return nil
}
