package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

const (
	// InitialTotalTokens is the supply counter every new record starts with.
	InitialTotalTokens uint64 = 1_000_000

	MaxTaxPercentage uint8 = 100

	// DevFeePercentage is the fixed protocol fee taken from every transfer.
	DevFeePercentage uint64 = 1
)

// State is the configuration record of one deployed instance.
type State struct {
	TaxPercentage uint8
	TotalTokens   uint64
	Authority     common.Address
	// Holders keeps insertion order, which defines selection indices.
	// Duplicates are allowed.
	Holders []common.Address
}

func NewState(authority common.Address, taxPercentage uint8) *State {
	return &State{
		TaxPercentage: taxPercentage,
		TotalTokens:   InitialTotalTokens,
		Authority:     authority,
		Holders:       []common.Address{},
	}
}

func (s *State) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(s)
}

func DecodeState(data []byte) (*State, error) {
	var s State
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, err
	}
	if s.Holders == nil {
		s.Holders = []common.Address{}
	}
	return &s, nil
}

// TokenAccount is a balance owned by the address it is stored under.
// Delegate, when set, may move funds out on the owner's behalf.
type TokenAccount struct {
	Balance  uint64
	Delegate common.Address
}

func (a *TokenAccount) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(a)
}

func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	var a TokenAccount
	if err := rlp.DecodeBytes(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CanMove reports whether authority may debit the account owned by owner.
func (a *TokenAccount) CanMove(owner, authority common.Address) bool {
	if authority == owner {
		return true
	}
	return a.Delegate != (common.Address{}) && a.Delegate == authority
}
