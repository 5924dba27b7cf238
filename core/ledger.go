package core

import (
	"context"

	"tax-token-program/core/model"

	"github.com/ethereum/go-ethereum/common"
)

// Txn is the view of the ledger an operation gets for the duration of one
// call. Everything done through a Txn passed to Ledger.Update is applied
// together or not at all.
type Txn interface {
	State(addr common.Address) (*model.State, error)
	PutState(addr common.Address, state *model.State) error
	// Transfer moves amount from one token account to another. It fails with
	// model.ErrUnauthorized when authority may not debit from and with
	// model.ErrInsufficientFunds when the balance is short.
	Transfer(from, to, authority common.Address, amount uint64) error
}

// Ledger runs fn against the stored records. Implementations refuse to
// start when ctx is already done.
type Ledger interface {
	View(ctx context.Context, fn func(Txn) error) error
	Update(ctx context.Context, fn func(Txn) error) error
}

type Authenticator interface {
	Authenticate(ctx context.Context, sig model.Signature) error
}

// Clock reports seconds since the Unix epoch. Implementations must never go
// backwards.
type Clock interface {
	Now(ctx context.Context) (uint64, error)
}
