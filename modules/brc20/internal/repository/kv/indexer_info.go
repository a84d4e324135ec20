package kv

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
)

func (r *Repository) GetLatestIndexerState(_ context.Context) (entity.IndexerState, error) {
	var model indexerStateModel
	if err := r.getJSON([]byte(keyIndexerState), &model); err != nil {
		return entity.IndexerState{}, errors.WithStack(err)
	}
	return mapIndexerStateModelToType(model), nil
}

func (r *Repository) CreateIndexerState(_ context.Context, state entity.IndexerState) error {
	return r.putJSON([]byte(keyIndexerState), mapIndexerStateToModel(state))
}
