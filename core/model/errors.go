package model

import (
	errorsmod "cosmossdk.io/errors"
)

const Codespace = "taxtoken"

var (
	ErrInvalidConfiguration = errorsmod.Register(Codespace, 2, "invalid configuration")
	ErrArithmeticOverflow   = errorsmod.Register(Codespace, 3, "arithmetic overflow")
	ErrInsufficientFunds    = errorsmod.Register(Codespace, 4, "insufficient funds")
	ErrUnauthorized         = errorsmod.Register(Codespace, 5, "unauthorized")
	ErrEmptyHolderSet       = errorsmod.Register(Codespace, 6, "empty holder set")
	ErrStateNotFound        = errorsmod.Register(Codespace, 7, "state not found")
	ErrStateExists          = errorsmod.Register(Codespace, 8, "state already exists")
	ErrSplitExceedsAmount   = errorsmod.Register(Codespace, 9, "tax and dev fee exceed amount")
)
