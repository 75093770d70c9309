package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager provides a thin abstraction to execute a function within
// a database transaction, passing the underlying transaction handle via `qx`.
//
// Use-case interfaces stay clean (no transaction types leaking out) while
// repository methods that accept `qx any` can detect a tx implementation-side
// and run tx-bound Exec/Query as needed. Repositories MUST gracefully accept
// nil qx (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, qx any) error) error
}
