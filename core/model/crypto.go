package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

func Keccak256(data string) string {
	return fmt.Sprintf("%x", keccak([]byte(data)))
}

func keccak(chunks ...[]byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		hasher.Write(c)
	}
	return hasher.Sum(nil)
}

// DeriveStateAddress returns the address a configuration record created by
// authority is stored under. Different seeds give independent records.
func DeriveStateAddress(authority common.Address, seed string) common.Address {
	return common.BytesToAddress(keccak([]byte(seed), authority.Bytes()))
}

// OperationPayload is the byte string a signer signs to authorize op on
// the record at state.
func OperationPayload(op string, state common.Address, args ...[]byte) []byte {
	payload := append([]byte(op+":"), state.Bytes()...)
	for _, a := range args {
		payload = append(payload, a...)
	}
	return payload
}
