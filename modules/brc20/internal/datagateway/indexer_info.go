package datagateway

import (
	"context"

	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
)

type IndexerInfoDataGateway interface {
	GetLatestIndexerState(ctx context.Context) (entity.IndexerState, error)
	CreateIndexerState(ctx context.Context, state entity.IndexerState) error
}
