// Package kv defines the ordered key-value store contract consumed by the
// indexing core. The core never owns a persistence engine; it is handed a
// Store and performs all reads and writes through it.
package kv

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/common/errs"
)

// Store is an ordered byte-string key-value store.
//
// Get returns errs.NotFound (wrapped) for absent keys; an absent key is never
// conflated with an empty value.
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error

	// Iterate calls fn for every key with the given prefix in ascending key
	// order. Iteration stops when fn returns false or an error.
	Iterate(prefix []byte, fn func(key, value []byte) (bool, error)) error

	Close() error
}

// Op is a single write operation in a batch.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// BatchWriter is implemented by stores that can apply a set of writes
// atomically.
type BatchWriter interface {
	WriteBatch(ops []Op) error
}

// list entries are stored under key || "/" || big-endian counter so that a
// prefix scan yields them in insertion order. The counter lives at the bare key.
const listSeparator = byte('/')

func listEntryKey(key []byte, index uint64) []byte {
	entryKey := make([]byte, 0, len(key)+9)
	entryKey = append(entryKey, key...)
	entryKey = append(entryKey, listSeparator)
	entryKey = binary.BigEndian.AppendUint64(entryKey, index)
	return entryKey
}

// AppendList appends value to the log-structured list stored at key.
func AppendList(s Store, key, value []byte) error {
	length, err := ListLength(s, key)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := s.Put(listEntryKey(key, length), value); err != nil {
		return errors.Wrap(err, "failed to put list entry")
	}
	if err := s.Put(key, binary.BigEndian.AppendUint64(nil, length+1)); err != nil {
		return errors.Wrap(err, "failed to put list length")
	}
	return nil
}

// ListLength returns the number of entries in the list stored at key.
func ListLength(s Store, key []byte) (uint64, error) {
	raw, err := s.Get(key)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return 0, nil
		}
		return 0, errors.WithStack(err)
	}
	if len(raw) != 8 {
		return 0, errors.Wrapf(errs.InternalError, "malformed list length for key %x", key)
	}
	return binary.BigEndian.Uint64(raw), nil
}

// GetList returns all entries of the list stored at key in insertion order.
func GetList(s Store, key []byte) ([][]byte, error) {
	prefix := append(append([]byte{}, key...), listSeparator)
	values := make([][]byte, 0)
	err := s.Iterate(prefix, func(_, value []byte) (bool, error) {
		values = append(values, append([]byte{}, value...))
		return true, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return values, nil
}
