package kv_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/pkg/kv"
	"github.com/subfrost/brc20shrew/pkg/kv/leveldb"
)

func TestFlusherReadThrough(t *testing.T) {
	store := leveldb.NewMemory()
	defer store.Close()
	require.NoError(t, store.Put([]byte("a"), []byte("stored")))

	flusher := kv.NewFlusher(store)

	value, err := flusher.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("stored"), value)

	require.NoError(t, flusher.Put([]byte("a"), []byte("pending")))
	value, err = flusher.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("pending"), value)

	// underlying store is untouched until Flush
	value, err = store.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("stored"), value)

	require.NoError(t, flusher.Delete([]byte("a")))
	_, err = flusher.Get([]byte("a"))
	assert.True(t, errors.Is(err, errs.NotFound))

	require.NoError(t, flusher.Flush())
	_, err = store.Get([]byte("a"))
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestFlusherReset(t *testing.T) {
	store := leveldb.NewMemory()
	defer store.Close()

	flusher := kv.NewFlusher(store)
	require.NoError(t, flusher.Put([]byte("x"), []byte("1")))
	flusher.Reset()
	require.NoError(t, flusher.Flush())

	_, err := store.Get([]byte("x"))
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestFlusherIterateMergesOverlay(t *testing.T) {
	store := leveldb.NewMemory()
	defer store.Close()
	require.NoError(t, store.Put([]byte("k/a"), []byte("1")))
	require.NoError(t, store.Put([]byte("k/c"), []byte("3")))
	require.NoError(t, store.Put([]byte("k/e"), []byte("5")))

	flusher := kv.NewFlusher(store)
	require.NoError(t, flusher.Put([]byte("k/b"), []byte("2")))
	require.NoError(t, flusher.Put([]byte("k/c"), []byte("3b")))
	require.NoError(t, flusher.Delete([]byte("k/e")))
	require.NoError(t, flusher.Put([]byte("k/f"), []byte("6")))

	gotKeys := make([]string, 0)
	gotValues := make([]string, 0)
	err := flusher.Iterate([]byte("k/"), func(key, value []byte) (bool, error) {
		gotKeys = append(gotKeys, string(key))
		gotValues = append(gotValues, string(value))
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"k/a", "k/b", "k/c", "k/f"}, gotKeys)
	assert.Equal(t, []string{"1", "2", "3b", "6"}, gotValues)
}

func TestListHelpers(t *testing.T) {
	store := leveldb.NewMemory()
	defer store.Close()

	key := []byte("children/abc")
	length, err := kv.ListLength(store, key)
	require.NoError(t, err)
	assert.Zero(t, length)

	require.NoError(t, kv.AppendList(store, key, []byte("first")))
	require.NoError(t, kv.AppendList(store, key, []byte("second")))
	require.NoError(t, kv.AppendList(store, key, []byte("third")))

	length, err = kv.ListLength(store, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), length)

	values, err := kv.GetList(store, key)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("first"), []byte("second"), []byte("third")}, values)
}

func TestLevelDBBatchIsAtomicView(t *testing.T) {
	store := leveldb.NewMemory()
	defer store.Close()
	require.NoError(t, store.Put([]byte("gone"), []byte("x")))

	err := store.WriteBatch([]kv.Op{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("gone"), Delete: true},
	})
	require.NoError(t, err)

	value, err := store.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), value)
	_, err = store.Get([]byte("gone"))
	assert.True(t, errors.Is(err, errs.NotFound))
}
