package core

import (
	"context"
	"fmt"

	"tax-token-program/core/model"

	errorsmod "cosmossdk.io/errors"
)

// RandomnessSource picks an index in [0, n). Counter is the raw value the
// index was derived from, reported for auditing.
type RandomnessSource interface {
	Index(ctx context.Context, n int) (index int, counter uint64, err error)
}

// ClockRandomness derives the index as clock seconds mod n.
//
// This is NOT a secure source. The result is a public function of block
// time, which anyone can predict and a block producer can nudge. Do not use
// it for anything with financial stakes.
type ClockRandomness struct {
	Clock Clock
}

func (r ClockRandomness) Index(ctx context.Context, n int) (int, uint64, error) {
	if n <= 0 {
		return 0, 0, errorsmod.Wrapf(model.ErrEmptyHolderSet, "cannot draw from %d holders", n)
	}
	counter, err := r.Clock.Now(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("read clock: %w", err)
	}
	return int(counter % uint64(n)), counter, nil
}
