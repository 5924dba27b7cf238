package chain

import (
	"context"
	"crypto/ecdsa"

	"tax-token-program/core/model"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureAuthenticator accepts a signer when the signature recovers to
// the signer's address.
type SignatureAuthenticator struct{}

func (SignatureAuthenticator) Authenticate(ctx context.Context, sig model.Signature) error {
	if len(sig.Sig) != crypto.SignatureLength {
		return errorsmod.Wrapf(model.ErrUnauthorized, "signature must be %d bytes, got %d", crypto.SignatureLength, len(sig.Sig))
	}
	pub, err := crypto.SigToPub(crypto.Keccak256(sig.Payload), sig.Sig)
	if err != nil {
		return errorsmod.Wrapf(model.ErrUnauthorized, "recover signer: %v", err)
	}
	if recovered := crypto.PubkeyToAddress(*pub); recovered != sig.Signer {
		return errorsmod.Wrapf(model.ErrUnauthorized, "signature is from %s, not %s", recovered.Hex(), sig.Signer.Hex())
	}
	return nil
}

func Sign(key *ecdsa.PrivateKey, payload []byte) (model.Signature, error) {
	sig, err := crypto.Sign(crypto.Keccak256(payload), key)
	if err != nil {
		return model.Signature{}, err
	}
	return model.Signature{
		Signer:  crypto.PubkeyToAddress(key.PublicKey),
		Payload: payload,
		Sig:     sig,
	}, nil
}
