package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions.
//
// Reads made through repositories with the transaction context observe the
// transaction's own writes. Writes become visible together on commit, or not at all.
type TransactionManager interface {
	// ExecTx executes a function within a transaction. If fn returns an error
	// nothing it wrote is committed.
	ExecTx(ctx context.Context, fn TxFn) error
}
