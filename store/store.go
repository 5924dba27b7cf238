package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"tax-token-program/core"
	"tax-token-program/core/model"

	errorsmod "cosmossdk.io/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/sirupsen/logrus"
)

var (
	statePrefix   = []byte("state/")
	accountPrefix = []byte("account/")
)

// DB is the local ledger: configuration records and token accounts in one
// Badger database.
type DB struct {
	badger *badger.DB
}

var _ core.Ledger = (*DB)(nil)

// Open opens the ledger under dir, creating it if needed. An empty dir gives
// an in-memory ledger that disappears on Close.
func Open(dir string) (*DB, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create %q: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(logrus.WithField("module", "badger")).WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &DB{badger: db}, nil
}

func (d *DB) Close() error {
	return d.badger.Close()
}

func (d *DB) View(ctx context.Context, fn func(core.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.badger.View(func(t *badger.Txn) error {
		return fn(&txn{t})
	})
}

// Update runs fn in a read-write transaction. Nothing fn wrote is kept if it
// returns an error.
func (d *DB) Update(ctx context.Context, fn func(core.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.badger.Update(func(t *badger.Txn) error {
		return fn(&txn{t})
	})
}

// Mint credits amount to account out of thin air. It stands in for a
// faucet on local ledgers.
func (d *DB) Mint(account common.Address, amount uint64) error {
	return d.badger.Update(func(t *badger.Txn) error {
		tx := &txn{t}
		acc, err := tx.account(account)
		if err != nil {
			return err
		}
		balance, overflow := math.SafeAdd(acc.Balance, amount)
		if overflow {
			return errorsmod.Wrapf(model.ErrArithmeticOverflow, "mint %d to %s", amount, account.Hex())
		}
		acc.Balance = balance
		return tx.putAccount(account, acc)
	})
}

// Approve lets delegate move funds out of owner's account. A zero delegate
// revokes.
func (d *DB) Approve(owner, delegate common.Address) error {
	return d.badger.Update(func(t *badger.Txn) error {
		tx := &txn{t}
		acc, err := tx.account(owner)
		if err != nil {
			return err
		}
		acc.Delegate = delegate
		return tx.putAccount(owner, acc)
	})
}

// Account returns the token account of addr. Unknown addresses have an
// empty account.
func (d *DB) Account(addr common.Address) (*model.TokenAccount, error) {
	var acc *model.TokenAccount
	err := d.badger.View(func(t *badger.Txn) error {
		var err error
		acc, err = (&txn{t}).account(addr)
		return err
	})
	return acc, err
}

type txn struct {
	t *badger.Txn
}

func stateKey(addr common.Address) []byte {
	return append(append([]byte{}, statePrefix...), addr.Bytes()...)
}

func accountKey(addr common.Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr.Bytes()...)
}

func (tx *txn) get(key []byte) ([]byte, error) {
	item, err := tx.t.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (tx *txn) State(addr common.Address) (*model.State, error) {
	data, err := tx.get(stateKey(addr))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errorsmod.Wrap(model.ErrStateNotFound, addr.Hex())
	}
	if err != nil {
		logrus.Errorf("load state %s err: %v", addr.Hex(), err)
		return nil, err
	}
	return model.DecodeState(data)
}

func (tx *txn) PutState(addr common.Address, state *model.State) error {
	data, err := state.Encode()
	if err != nil {
		return err
	}
	return tx.t.Set(stateKey(addr), data)
}

func (tx *txn) account(addr common.Address) (*model.TokenAccount, error) {
	data, err := tx.get(accountKey(addr))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return &model.TokenAccount{}, nil
	}
	if err != nil {
		logrus.Errorf("load account %s err: %v", addr.Hex(), err)
		return nil, err
	}
	return model.DecodeTokenAccount(data)
}

func (tx *txn) putAccount(addr common.Address, acc *model.TokenAccount) error {
	data, err := acc.Encode()
	if err != nil {
		return err
	}
	return tx.t.Set(accountKey(addr), data)
}

func (tx *txn) Transfer(from, to, authority common.Address, amount uint64) error {
	fromAcc, err := tx.account(from)
	if err != nil {
		return err
	}
	if !fromAcc.CanMove(from, authority) {
		return errorsmod.Wrapf(model.ErrUnauthorized, "%s may not move funds of %s", authority.Hex(), from.Hex())
	}
	if amount == 0 {
		return nil
	}
	if fromAcc.Balance < amount {
		return errorsmod.Wrapf(model.ErrInsufficientFunds, "%s has %d, needs %d", from.Hex(), fromAcc.Balance, amount)
	}
	if from == to {
		return nil
	}

	toAcc, err := tx.account(to)
	if err != nil {
		return err
	}
	credited, overflow := math.SafeAdd(toAcc.Balance, amount)
	if overflow {
		return errorsmod.Wrapf(model.ErrArithmeticOverflow, "credit %d to %s", amount, to.Hex())
	}

	fromAcc.Balance -= amount
	toAcc.Balance = credited

	if err := tx.putAccount(from, fromAcc); err != nil {
		return err
	}
	return tx.putAccount(to, toAcc)
}
