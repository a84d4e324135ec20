package datasources

import (
	"context"

	"github.com/subfrost/brc20shrew/core/types"
)

// Datasource is an interface for indexer data sources.
type Datasource[T any] interface {
	Name() string

	// Fetch returns inputs for the height range [from, to]. A negative from
	// starts at the genesis block; a negative to ends at the latest block.
	Fetch(ctx context.Context, from, to int64) ([]T, error)

	GetBlockHeader(ctx context.Context, height int64) (types.BlockHeader, error)
}
