package datagateway

import "context"

type Tx interface {
	// Commit commits the transaction. All changes made since Begin are persisted atomically.
	Commit(ctx context.Context) error
	// Rollback discards all changes made since Begin.
	Rollback(ctx context.Context) error
}
