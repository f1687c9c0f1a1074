package sqlstore

import "github.com/goliatone/go-bankid/core"

var (
	_ core.TransactionStore    = (*TransactionStore)(nil)
	_ core.TransactionConsumer = (*TransactionStore)(nil)
	_ core.TransactionStore    = (*CachedTransactionStore)(nil)
	_ core.TransactionConsumer = (*CachedTransactionStore)(nil)
)
