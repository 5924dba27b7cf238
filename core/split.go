package core

import (
	"tax-token-program/core/model"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common/math"
)

// ComputeSplit divides amount into tax and dev fee using floor division.
// Small amounts may yield zero for either part; that is not an error.
func ComputeSplit(amount uint64, taxPercentage uint8) (model.Split, error) {
	if taxPercentage > model.MaxTaxPercentage {
		return model.Split{}, errorsmod.Wrapf(model.ErrInvalidConfiguration, "tax percentage %d exceeds %d", taxPercentage, model.MaxTaxPercentage)
	}

	scaled, overflow := math.SafeMul(amount, uint64(taxPercentage))
	if overflow {
		return model.Split{}, errorsmod.Wrapf(model.ErrArithmeticOverflow, "%d * %d", amount, taxPercentage)
	}
	tax := scaled / 100

	// amount * 1 never overflows
	devFee := amount * model.DevFeePercentage / 100

	// Only reachable at 100% tax, where the fee comes on top of the whole amount.
	if tax+devFee > amount {
		return model.Split{}, errorsmod.Wrapf(model.ErrSplitExceedsAmount, "tax %d%% leaves no room for dev fee %d on amount %d", taxPercentage, devFee, amount)
	}

	return model.Split{
		Amount: amount,
		Tax:    tax,
		DevFee: devFee,
		Net:    amount - tax - devFee,
	}, nil
}
