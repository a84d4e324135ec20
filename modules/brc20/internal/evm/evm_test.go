package evm

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

// memProgramStore is an in-memory ProgramDataGateway for interpreter tests.
type memProgramStore struct {
	accounts map[Address]entity.EVMAccount
	storage  map[Address]map[Hash]Hash
	code     map[Hash][]byte
}

func newMemProgramStore() *memProgramStore {
	return &memProgramStore{
		accounts: make(map[Address]entity.EVMAccount),
		storage:  make(map[Address]map[Hash]Hash),
		code:     make(map[Hash][]byte),
	}
}

func (m *memProgramStore) GetAccount(_ context.Context, address Address) (*entity.EVMAccount, error) {
	account, ok := m.accounts[address]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	return &account, nil
}

func (m *memProgramStore) GetStorageValue(_ context.Context, address Address, slot Hash) (Hash, error) {
	if slots, ok := m.storage[address]; ok {
		if value, ok := slots[slot]; ok {
			return value, nil
		}
	}
	return Hash{}, errors.WithStack(errs.NotFound)
}

func (m *memProgramStore) GetCode(_ context.Context, codeHash Hash) ([]byte, error) {
	code, ok := m.code[codeHash]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	return code, nil
}

func (m *memProgramStore) GetContractAddressByInscriptionId(_ context.Context, _ ordinals.InscriptionId) (Address, error) {
	return Address{}, errors.WithStack(errs.NotFound)
}

func (m *memProgramStore) GetInscriptionIdByContractAddress(_ context.Context, _ Address) (ordinals.InscriptionId, error) {
	return ordinals.InscriptionId{}, errors.WithStack(errs.NotFound)
}

func (m *memProgramStore) SetAccount(_ context.Context, account *entity.EVMAccount) error {
	m.accounts[account.Address] = *account
	return nil
}

func (m *memProgramStore) SetStorageValue(_ context.Context, address Address, slot Hash, value Hash) error {
	if m.storage[address] == nil {
		m.storage[address] = make(map[Hash]Hash)
	}
	m.storage[address][slot] = value
	return nil
}

func (m *memProgramStore) SetCode(_ context.Context, codeHash Hash, code []byte) error {
	m.code[codeHash] = code
	return nil
}

func (m *memProgramStore) CreateContractMapping(_ context.Context, _ ordinals.InscriptionId, _ Address) error {
	return nil
}

func (m *memProgramStore) CreateEventProgramDeploys(_ context.Context, _ []*entity.EventProgramDeploy) error {
	return nil
}

func (m *memProgramStore) CreateEventProgramCalls(_ context.Context, _ []*entity.EventProgramCall) error {
	return nil
}

type memLedger struct {
	balances map[string]*uint256.Int
}

func (l *memLedger) key(tick string, pkScript []byte) string {
	return tick + "/" + string(pkScript)
}

func (l *memLedger) OverallBalance(tick string, pkScript []byte) (*uint256.Int, error) {
	if balance, ok := l.balances[l.key(tick, pkScript)]; ok {
		return balance.Clone(), nil
	}
	return uint256.NewInt(0), nil
}

func (l *memLedger) AdjustBalance(tick string, pkScript []byte, amount *uint256.Int, credit bool) error {
	key := l.key(tick, pkScript)
	balance, ok := l.balances[key]
	if !ok {
		balance = uint256.NewInt(0)
	}
	if credit {
		l.balances[key] = new(uint256.Int).Add(balance, amount)
		return nil
	}
	if balance.Lt(amount) {
		return errors.New("debit exceeds balance")
	}
	l.balances[key] = new(uint256.Int).Sub(balance, amount)
	return nil
}

func testSender(seed byte) Address {
	return SenderAddress(ordinals.InscriptionId{TxHash: chainhash.Hash{seed}, Index: 0})
}

// wrapInitCode prefixes runtime code with an init stub that CODECOPYs the
// runtime code and returns it.
func wrapInitCode(runtime []byte) []byte {
	n := byte(len(runtime))
	init := []byte{
		opPush1, n, opPush1, 0x0c, opPush1, 0x00, opCodeCopy,
		opPush1, n, opPush1, 0x00, opReturn,
	}
	return append(init, runtime...)
}

func TestAddressDerivation(t *testing.T) {
	t.Run("sender_is_deterministic", func(t *testing.T) {
		id := ordinals.InscriptionId{TxHash: chainhash.Hash{0x42}, Index: 3}
		assert.Equal(t, SenderAddress(id), SenderAddress(id))
		assert.NotEqual(t, SenderAddress(id), SenderAddress(ordinals.InscriptionId{TxHash: chainhash.Hash{0x42}, Index: 4}))
	})

	t.Run("contract_address_varies_with_nonce", func(t *testing.T) {
		sender := testSender(1)
		assert.NotEqual(t, ContractAddress(sender, 0), ContractAddress(sender, 1))
	})
}

func TestCallArithmetic(t *testing.T) {
	ctx := context.Background()
	state := NewStateDB(ctx, newMemProgramStore())

	// (2 + 3) stored to memory and returned
	runtime := []byte{
		opPush1, 0x02, opPush1, 0x03, opAdd,
		opPush1, 0x00, opMStore,
		opPush1, 0x20, opPush1, 0x00, opReturn,
	}
	sender := testSender(1)
	vm := NewEVM(state, BlockContext{Height: 100}, sender, nil, Address{})

	deployed, err := vm.Deploy(wrapInitCode(runtime))
	require.NoError(t, err)
	require.True(t, deployed.Success)

	result, err := vm.Call(deployed.ContractAddress, nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.ReturnData, 32)
	assert.Equal(t, uint64(5), new(uint256.Int).SetBytes(result.ReturnData).Uint64())
	assert.Greater(t, result.GasUsed, uint64(0))
}

func TestStoragePersistsAcrossCommit(t *testing.T) {
	ctx := context.Background()
	store := newMemProgramStore()

	// slot 0 incremented on every call
	counter := []byte{
		opPush0, opSLoad, opPush1, 0x01, opAdd, opPush0, opSStore, opStop,
	}
	sender := testSender(2)

	state := NewStateDB(ctx, store)
	vm := NewEVM(state, BlockContext{Height: 100}, sender, nil, Address{})
	deployed, err := vm.Deploy(wrapInitCode(counter))
	require.NoError(t, err)
	require.True(t, deployed.Success)

	result, err := vm.Call(deployed.ContractAddress, nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NoError(t, state.Commit())

	// fresh overlay sees committed state
	state = NewStateDB(ctx, store)
	vm = NewEVM(state, BlockContext{Height: 101}, sender, nil, Address{})
	result, err = vm.Call(deployed.ContractAddress, nil)
	require.NoError(t, err)
	require.True(t, result.Success)

	value, err := state.GetState(deployed.ContractAddress, Hash{})
	require.NoError(t, err)
	assert.Equal(t, byte(2), value[31])
}

func TestCommitSkipsUntouchedSlots(t *testing.T) {
	t.Run("read_only_slot_stays_absent", func(t *testing.T) {
		ctx := context.Background()
		store := newMemProgramStore()

		// loads slot 5 and stops without ever storing
		runtime := []byte{opPush1, 0x05, opSLoad, opStop}
		sender := testSender(11)
		state := NewStateDB(ctx, store)
		vm := NewEVM(state, BlockContext{Height: 100}, sender, nil, Address{})
		deployed, err := vm.Deploy(wrapInitCode(runtime))
		require.NoError(t, err)
		require.True(t, deployed.Success)

		result, err := vm.Call(deployed.ContractAddress, nil)
		require.NoError(t, err)
		require.True(t, result.Success)
		require.NoError(t, state.Commit())

		var slot Hash
		slot[31] = 0x05
		_, err = store.GetStorageValue(ctx, deployed.ContractAddress, slot)
		assert.True(t, errors.Is(err, errs.NotFound))
	})

	t.Run("zero_write_to_absent_slot_stays_absent", func(t *testing.T) {
		ctx := context.Background()
		store := newMemProgramStore()

		// stores zero into a slot that was never set
		runtime := []byte{opPush0, opPush0, opSStore, opStop}
		sender := testSender(12)
		state := NewStateDB(ctx, store)
		vm := NewEVM(state, BlockContext{Height: 100}, sender, nil, Address{})
		deployed, err := vm.Deploy(wrapInitCode(runtime))
		require.NoError(t, err)
		require.True(t, deployed.Success)

		result, err := vm.Call(deployed.ContractAddress, nil)
		require.NoError(t, err)
		require.True(t, result.Success)
		require.NoError(t, state.Commit())

		_, err = store.GetStorageValue(ctx, deployed.ContractAddress, Hash{})
		assert.True(t, errors.Is(err, errs.NotFound))
	})
}

func TestRevertRollsBackState(t *testing.T) {
	ctx := context.Background()
	state := NewStateDB(ctx, newMemProgramStore())

	// writes slot 0 then reverts; the write must not survive
	runtime := []byte{
		opPush1, 0x07, opPush0, opSStore,
		opPush1, 0x00, opPush1, 0x00, opRevert,
	}
	sender := testSender(3)
	vm := NewEVM(state, BlockContext{Height: 100}, sender, nil, Address{})
	deployed, err := vm.Deploy(wrapInitCode(runtime))
	require.NoError(t, err)
	require.True(t, deployed.Success)

	result, err := vm.Call(deployed.ContractAddress, nil)
	require.NoError(t, err)
	assert.False(t, result.Success)

	value, err := state.GetState(deployed.ContractAddress, Hash{})
	require.NoError(t, err)
	assert.Equal(t, Hash{}, value)
}

func TestFailedDeployInstallsNoCode(t *testing.T) {
	ctx := context.Background()
	state := NewStateDB(ctx, newMemProgramStore())

	sender := testSender(4)
	vm := NewEVM(state, BlockContext{Height: 100}, sender, nil, Address{})
	result, err := vm.Deploy([]byte{opPush1, 0x00, opPush1, 0x00, opRevert})
	require.NoError(t, err)
	assert.False(t, result.Success)

	code, err := state.GetCode(result.ContractAddress)
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestInvalidJumpFaults(t *testing.T) {
	ctx := context.Background()
	state := NewStateDB(ctx, newMemProgramStore())

	sender := testSender(5)
	vm := NewEVM(state, BlockContext{Height: 100}, sender, nil, Address{})
	result, err := vm.Deploy(wrapInitCode([]byte{opPush1, 0x03, opJump, opStop}))
	require.NoError(t, err)
	require.True(t, result.Success)

	called, err := vm.Call(result.ContractAddress, nil)
	require.NoError(t, err)
	assert.False(t, called.Success)
	assert.Contains(t, called.RevertReason, "invalid jump")
}

func TestOutOfGasAborts(t *testing.T) {
	ctx := context.Background()
	state := NewStateDB(ctx, newMemProgramStore())

	// JUMPDEST; PUSH0 JUMP loops forever until the budget runs out
	runtime := []byte{opJumpDest, opPush0, opJump}
	sender := testSender(6)
	vm := NewEVM(state, BlockContext{Height: 100}, sender, nil, Address{})
	deployed, err := vm.Deploy(wrapInitCode(runtime))
	require.NoError(t, err)
	require.True(t, deployed.Success)

	result, err := vm.Call(deployed.ContractAddress, nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.RevertReason, "out of gas")
	assert.Equal(t, uint64(ExecutionGasBudget), result.GasUsed)
}

func TestBalanceNative(t *testing.T) {
	ctx := context.Background()
	state := NewStateDB(ctx, newMemProgramStore())
	pkScript := []byte{0x51, 0x20, 0xaa}
	ledger := &memLedger{balances: map[string]*uint256.Int{
		"ordi/" + string(pkScript): uint256.NewInt(1234),
	}}

	sender := testSender(7)
	vm := NewEVM(state, BlockContext{Height: 100}, sender, ledger, Address{})

	input := append([]byte{4}, append([]byte("ordi"), pkScript...)...)
	ret, leftover, err := vm.callNative(sender, AddressBalanceNative, input, 10000, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), new(uint256.Int).SetBytes(ret).Uint64())
	assert.Less(t, leftover, uint64(10000))
}

func TestLedgerNativeIsBridgeOnly(t *testing.T) {
	ctx := context.Background()
	state := NewStateDB(ctx, newMemProgramStore())
	pkScript := []byte{0x51, 0x20, 0xbb}
	ledger := &memLedger{balances: map[string]*uint256.Int{}}

	sender := testSender(8)
	bridge := Address{0xb1}
	vm := NewEVM(state, BlockContext{Height: 100}, sender, ledger, bridge)

	amount := uint256.NewInt(50).Bytes32()
	input := append([]byte{ledgerOpCredit}, amount[:]...)
	input = append(input, 4)
	input = append(input, []byte("ordi")...)
	input = append(input, pkScript...)

	// non-bridge callers revert
	_, _, err := vm.callNative(sender, AddressLedgerNative, input, 10000, false)
	assert.True(t, errors.Is(err, errExecutionReverted))

	// the bridge succeeds and the ledger moves
	_, _, err = vm.callNative(bridge, AddressLedgerNative, input, 10000, false)
	require.NoError(t, err)
	balance, err := ledger.OverallBalance("ordi", pkScript)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), balance.Uint64())

	// a debit past the balance reverts
	debit := append([]byte{ledgerOpDebit}, amount[:]...)
	debit = append(debit, 4)
	debit = append(debit, []byte("ordi")...)
	debit = append(debit, pkScript...)
	_, _, err = vm.callNative(bridge, AddressLedgerNative, debit, 10000, false)
	require.NoError(t, err)
	_, _, err = vm.callNative(bridge, AddressLedgerNative, debit, 10000, false)
	assert.True(t, errors.Is(err, errExecutionReverted))
}

func TestUnimplementedNativesRevert(t *testing.T) {
	ctx := context.Background()
	state := NewStateDB(ctx, newMemProgramStore())
	sender := testSender(9)
	vm := NewEVM(state, BlockContext{Height: 100}, sender, nil, Address{})

	for _, target := range []Address{AddressTxNative, AddressSigNative} {
		_, _, err := vm.callNative(sender, target, nil, 10000, false)
		assert.True(t, errors.Is(err, errNativeNotSupported))
	}
}

func TestNestedCallRevertIsIsolated(t *testing.T) {
	ctx := context.Background()
	state := NewStateDB(ctx, newMemProgramStore())
	sender := testSender(10)
	vm := NewEVM(state, BlockContext{Height: 100}, sender, nil, Address{})

	// child always reverts
	child, err := vm.Deploy(wrapInitCode([]byte{opPush1, 0x00, opPush1, 0x00, opRevert}))
	require.NoError(t, err)
	require.True(t, child.Success)

	// parent stores 9 in slot 0, calls the child, ignores the result and stops
	parent := []byte{
		opPush1, 0x09, opPush0, opSStore,
		opPush1, 0x00, opPush1, 0x00, // ret size, ret offset
		opPush1, 0x00, opPush1, 0x00, // args size, args offset
		opPush1, 0x00, // value
	}
	parent = append(parent, opPush1+19)
	parent = append(parent, child.ContractAddress[:]...)
	parent = append(parent, opPush1, 0xff, opCall, opPop, opStop)
	deployed, err := vm.Deploy(wrapInitCode(parent))
	require.NoError(t, err)
	require.True(t, deployed.Success, deployed.RevertReason)

	result, err := vm.Call(deployed.ContractAddress, nil)
	require.NoError(t, err)
	require.True(t, result.Success, result.RevertReason)

	// the parent's write survives even though the child reverted
	value, err := state.GetState(deployed.ContractAddress, Hash{})
	require.NoError(t, err)
	assert.Equal(t, byte(9), value[31])
}
