package kv

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/common/errs"
)

type pendingWrite struct {
	value   []byte
	deleted bool
}

// Flusher buffers writes on top of a Store and applies them in a single batch.
// Reads see pending writes first, then fall through to the underlying store,
// so a block's state transition can reference its own effects before commit.
// Either Flush applies every buffered write or none becomes visible.
type Flusher struct {
	store   Store
	pending map[string]pendingWrite
}

var _ Store = (*Flusher)(nil)

func NewFlusher(store Store) *Flusher {
	return &Flusher{
		store:   store,
		pending: make(map[string]pendingWrite),
	}
}

func (f *Flusher) Get(key []byte) ([]byte, error) {
	if w, ok := f.pending[string(key)]; ok {
		if w.deleted {
			return nil, errors.Wrapf(errs.NotFound, "key %x", key)
		}
		return w.value, nil
	}
	value, err := f.store.Get(key)
	return value, errors.WithStack(err)
}

func (f *Flusher) Put(key, value []byte) error {
	f.pending[string(key)] = pendingWrite{value: append([]byte{}, value...)}
	return nil
}

func (f *Flusher) Delete(key []byte) error {
	f.pending[string(key)] = pendingWrite{deleted: true}
	return nil
}

// Iterate merges the underlying store's view with pending writes, preserving
// ascending key order.
func (f *Flusher) Iterate(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	overlayKeys := make([]string, 0)
	for key := range f.pending {
		if strings.HasPrefix(key, string(prefix)) {
			overlayKeys = append(overlayKeys, key)
		}
	}
	sort.Strings(overlayKeys)

	idx := 0
	emitOverlayBefore := func(limit string, unbounded bool) (bool, error) {
		for idx < len(overlayKeys) && (unbounded || overlayKeys[idx] < limit) {
			w := f.pending[overlayKeys[idx]]
			key := overlayKeys[idx]
			idx++
			if w.deleted {
				continue
			}
			next, err := fn([]byte(key), w.value)
			if err != nil || !next {
				return next, errors.WithStack(err)
			}
		}
		return true, nil
	}

	err := f.store.Iterate(prefix, func(key, value []byte) (bool, error) {
		next, err := emitOverlayBefore(string(key), false)
		if err != nil || !next {
			return next, errors.WithStack(err)
		}
		// pending writes shadow the stored value
		if w, ok := f.pending[string(key)]; ok {
			if idx < len(overlayKeys) && overlayKeys[idx] == string(key) {
				idx++
			}
			if w.deleted {
				return true, nil
			}
			return fn(key, w.value)
		}
		return fn(key, value)
	})
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = emitOverlayBefore("", true)
	return errors.WithStack(err)
}

// Flush applies all buffered writes to the underlying store as one batch and
// resets the buffer.
func (f *Flusher) Flush() error {
	keys := make([]string, 0, len(f.pending))
	for key := range f.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ops := make([]Op, 0, len(keys))
	for _, key := range keys {
		w := f.pending[key]
		ops = append(ops, Op{Key: []byte(key), Value: w.value, Delete: w.deleted})
	}

	if batcher, ok := f.store.(BatchWriter); ok {
		if err := batcher.WriteBatch(ops); err != nil {
			return errors.Wrap(err, "failed to write batch")
		}
	} else {
		for _, op := range ops {
			if op.Delete {
				if err := f.store.Delete(op.Key); err != nil {
					return errors.Wrap(err, "failed to delete key")
				}
				continue
			}
			if err := f.store.Put(op.Key, op.Value); err != nil {
				return errors.Wrap(err, "failed to put key")
			}
		}
	}
	f.pending = make(map[string]pendingWrite)
	return nil
}

// Reset discards all buffered writes.
func (f *Flusher) Reset() {
	f.pending = make(map[string]pendingWrite)
}

func (f *Flusher) Close() error {
	return f.store.Close()
}
