package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type TransferRequest struct {
	From      common.Address
	TaxWallet common.Address
	DevWallet common.Address
	Amount    uint64
}

// Split is how one transfer amount divides between the tax wallet, the dev
// wallet and what is left for the receiver.
type Split struct {
	Amount uint64
	Tax    uint64
	DevFee uint64
	Net    uint64
}

type Receipt struct {
	State common.Address
	Split Split
	// TotalTokens is the supply counter after the call.
	TotalTokens uint64
	Logs        []*types.Log
}

type Selection struct {
	State  common.Address
	Index  int
	Holder common.Address
	Logs   []*types.Log
}

// Signature proves that Signer authorized Payload. Sig is a 65 byte
// [R || S || V] secp256k1 signature over Keccak256(Payload).
type Signature struct {
	Signer  common.Address
	Payload []byte
	Sig     []byte
}
