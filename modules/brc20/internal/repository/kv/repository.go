// Package kv implements the brc20 datagateways on an ordered key-value store.
// All block writes are buffered and committed as a single batch; each commit
// also records a per-block undo log so chain reorganizations can be reverted
// without replaying from genesis.
package kv

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/datagateway"
	"github.com/subfrost/brc20shrew/pkg/kv"
)

type undoEntry struct {
	Key   string  `json:"key"`
	Value *string `json:"value,omitempty"` // hex; nil if the key did not exist
}

type Repository struct {
	store kv.Store

	// transaction state; nil outside BeginBRC20Tx
	base     kv.Store
	flusher  *kv.Flusher
	journal  map[string]*undoEntry
	txHeight *uint64
}

var (
	_ datagateway.BRC20DataGateway       = (*Repository)(nil)
	_ datagateway.BRC20DataGatewayWithTx = (*Repository)(nil)
	_ datagateway.ProgramDataGateway     = (*Repository)(nil)
	_ datagateway.IndexerInfoDataGateway = (*Repository)(nil)
)

func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) BeginBRC20Tx(_ context.Context) (datagateway.BRC20DataGatewayWithTx, error) {
	if r.flusher != nil {
		return nil, errors.Wrap(errs.ConflictSetting, "transaction already in progress")
	}
	flusher := kv.NewFlusher(r.store)
	return &Repository{
		store:   flusher,
		base:    r.store,
		flusher: flusher,
		journal: make(map[string]*undoEntry),
	}, nil
}

func (r *Repository) Commit(_ context.Context) error {
	if r.flusher == nil {
		return errors.Wrap(errs.ConflictSetting, "not in a transaction")
	}
	if r.txHeight != nil {
		entries := make([]*undoEntry, 0, len(r.journal))
		for _, entry := range r.journal {
			entries = append(entries, entry)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		raw, err := json.Marshal(entries)
		if err != nil {
			return errors.Wrap(err, "failed to marshal undo log")
		}
		if err := r.flusher.Put(heightKey(prefixUndoLog, *r.txHeight), raw); err != nil {
			return errors.Wrap(err, "failed to stage undo log")
		}
	}
	if err := r.flusher.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush block writes")
	}
	r.journal = make(map[string]*undoEntry)
	r.txHeight = nil
	return nil
}

func (r *Repository) Rollback(_ context.Context) error {
	if r.flusher == nil {
		return errors.Wrap(errs.ConflictSetting, "not in a transaction")
	}
	r.flusher.Reset()
	r.journal = make(map[string]*undoEntry)
	r.txHeight = nil
	return nil
}

// put writes through the live view, capturing the pre-transaction value of
// each key the first time it is touched.
func (r *Repository) put(key, value []byte) error {
	if err := r.recordUndo(key); err != nil {
		return err
	}
	return errors.WithStack(r.store.Put(key, value))
}

func (r *Repository) delete(key []byte) error {
	if err := r.recordUndo(key); err != nil {
		return err
	}
	return errors.WithStack(r.store.Delete(key))
}

func (r *Repository) recordUndo(key []byte) error {
	if r.journal == nil {
		return nil
	}
	keyStr := string(key)
	if _, ok := r.journal[keyStr]; ok {
		return nil
	}
	prior, err := r.base.Get(key)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "failed to read prior value")
		}
		r.journal[keyStr] = &undoEntry{Key: hex.EncodeToString(key)}
		return nil
	}
	value := hex.EncodeToString(prior)
	r.journal[keyStr] = &undoEntry{Key: hex.EncodeToString(key), Value: &value}
	return nil
}

// journaledStore adapts the repository's journaled writes to the kv.Store
// contract so list helpers can be reused inside a transaction.
type journaledStore struct {
	r *Repository
}

func (s journaledStore) Get(key []byte) ([]byte, error) { return s.r.store.Get(key) }
func (s journaledStore) Put(key, value []byte) error    { return s.r.put(key, value) }
func (s journaledStore) Delete(key []byte) error        { return s.r.delete(key) }
func (s journaledStore) Close() error                   { return nil }
func (s journaledStore) Iterate(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	return s.r.store.Iterate(prefix, fn)
}

func (r *Repository) journaled() kv.Store {
	return journaledStore{r: r}
}

func (r *Repository) putJSON(key []byte, model any) error {
	raw, err := json.Marshal(model)
	if err != nil {
		return errors.Wrap(err, "failed to marshal value")
	}
	return r.put(key, raw)
}

func unmarshalJSON(raw []byte, model any) error {
	return errors.Wrap(json.Unmarshal(raw, model), "failed to unmarshal value")
}

func (r *Repository) getJSON(key []byte, model any) error {
	raw, err := r.store.Get(key)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrap(json.Unmarshal(raw, model), "failed to unmarshal value")
}

// deleteList removes a list's counter and every entry.
func (r *Repository) deleteList(key []byte) error {
	keysToDelete := make([][]byte, 0)
	prefix := append(append([]byte{}, key...), '/')
	err := r.store.Iterate(prefix, func(entryKey, _ []byte) (bool, error) {
		keysToDelete = append(keysToDelete, append([]byte{}, entryKey...))
		return true, nil
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := r.store.Get(key); err == nil {
		keysToDelete = append(keysToDelete, key)
	} else if !errors.Is(err, errs.NotFound) {
		return errors.WithStack(err)
	}
	for _, k := range keysToDelete {
		if err := r.delete(k); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// DeleteDataSinceHeight reverts all state at and above the given height by
// applying per-block undo logs from the tip downwards. Each block's reversal
// is flushed atomically.
func (r *Repository) DeleteDataSinceHeight(ctx context.Context, height uint64) error {
	for {
		latest, err := r.GetLatestBlock(ctx)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				return nil
			}
			return errors.WithStack(err)
		}
		if latest.Height < int64(height) {
			return nil
		}
		if err := r.revertBlock(uint64(latest.Height)); err != nil {
			return errors.Wrapf(err, "failed to revert block %d", latest.Height)
		}
	}
}

func (r *Repository) revertBlock(height uint64) error {
	undoKey := heightKey(prefixUndoLog, height)
	raw, err := r.store.Get(undoKey)
	if err != nil {
		return errors.Wrapf(err, "missing undo log for height %d", height)
	}
	var entries []*undoEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return errors.Wrap(err, "failed to unmarshal undo log")
	}

	flusher := kv.NewFlusher(r.store)
	for _, entry := range entries {
		key, err := hex.DecodeString(entry.Key)
		if err != nil {
			return errors.Wrap(err, "malformed undo log key")
		}
		if entry.Value == nil {
			if err := flusher.Delete(key); err != nil {
				return errors.WithStack(err)
			}
			continue
		}
		value, err := hex.DecodeString(*entry.Value)
		if err != nil {
			return errors.Wrap(err, "malformed undo log value")
		}
		if err := flusher.Put(key, value); err != nil {
			return errors.WithStack(err)
		}
	}
	if err := flusher.Delete(undoKey); err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrap(flusher.Flush(), "failed to flush block reversal")
}
