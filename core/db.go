package core

import "context"

// Transactor runs a unit of work inside a single storage transaction.
//
// The transaction handle travels in the context given to fn; repositories called with that
// context join the transaction. fn returning an error (or panicking) rolls everything back,
// otherwise the transaction is committed before RunInTx returns. Nested calls join the
// outer transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
