// Package leveldb provides a LevelDB-backed implementation of the kv.Store
// contract, with an in-memory mode for tests.
package leveldb

import (
	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/pkg/kv"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

type Store struct {
	db *leveldb.DB
}

var (
	_ kv.Store       = (*Store)(nil)
	_ kv.BatchWriter = (*Store)(nil)
)

// New opens (or creates) a LevelDB database at the given path.
func New(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open leveldb")
	}
	return &Store{db: db}, nil
}

// NewMemory opens a LevelDB database backed by in-memory storage.
func NewMemory() *Store {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		// in-memory open cannot fail with default options
		panic(err)
	}
	return &Store{db: db}
}

func (s *Store) Get(key []byte) ([]byte, error) {
	value, err := s.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, errors.Wrapf(errs.NotFound, "key %x", key)
		}
		return nil, errors.Wrap(err, "leveldb get failed")
	}
	return value, nil
}

func (s *Store) Put(key, value []byte) error {
	return errors.Wrap(s.db.Put(key, value, nil), "leveldb put failed")
}

func (s *Store) Delete(key []byte) error {
	return errors.Wrap(s.db.Delete(key, nil), "leveldb delete failed")
}

func (s *Store) Iterate(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		key := append([]byte{}, iter.Key()...)
		value := append([]byte{}, iter.Value()...)
		next, err := fn(key, value)
		if err != nil {
			return errors.WithStack(err)
		}
		if !next {
			break
		}
	}
	return errors.Wrap(iter.Error(), "leveldb iteration failed")
}

func (s *Store) WriteBatch(ops []kv.Op) error {
	batch := new(leveldb.Batch)
	for _, op := range ops {
		if op.Delete {
			batch.Delete(op.Key)
		} else {
			batch.Put(op.Key, op.Value)
		}
	}
	return errors.Wrap(s.db.Write(batch, nil), "leveldb batch write failed")
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "leveldb close failed")
}
