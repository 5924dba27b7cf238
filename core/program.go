package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"tax-token-program/core/model"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

const (
	OpInitialize = "initialize"
	OpAddHolder  = "add-holder"
)

// SupplyMode controls what ProcessTransaction does with the supply counter.
type SupplyMode string

const (
	// SupplyModeDisplay leaves the counter untouched; it only reports the
	// starting supply.
	SupplyModeDisplay SupplyMode = "display"
	// SupplyModeDeduct decrements the counter by tax and dev fee on every
	// processed transfer.
	SupplyModeDeduct SupplyMode = "deduct"
)

func ParseSupplyMode(s string) (SupplyMode, error) {
	switch mode := SupplyMode(s); mode {
	case SupplyModeDisplay, SupplyModeDeduct:
		return mode, nil
	case "":
		return SupplyModeDisplay, nil
	default:
		return "", fmt.Errorf("unknown supply mode %q", s)
	}
}

type Program struct {
	ledger     Ledger
	auth       Authenticator
	random     RandomnessSource
	supplyMode SupplyMode
}

func NewProgram(ledger Ledger, auth Authenticator, random RandomnessSource, supplyMode SupplyMode) *Program {
	if supplyMode == "" {
		supplyMode = SupplyModeDisplay
	}
	return &Program{
		ledger:     ledger,
		auth:       auth,
		random:     random,
		supplyMode: supplyMode,
	}
}

// Initialize creates the configuration record at stateAddr with the signer as
// its authority.
func (p *Program) Initialize(ctx context.Context, sig model.Signature, stateAddr common.Address, taxPercentage uint8) (*model.State, error) {
	logrus.Infof("initialize state %s, tax %d%%, signer %s", stateAddr.Hex(), taxPercentage, sig.Signer.Hex())

	if err := p.authenticate(ctx, sig, model.OperationPayload(OpInitialize, stateAddr, []byte{taxPercentage})); err != nil {
		return nil, err
	}
	if taxPercentage > model.MaxTaxPercentage {
		logrus.Warnf("initialize state %s rejected: tax %d%%", stateAddr.Hex(), taxPercentage)
		return nil, errorsmod.Wrapf(model.ErrInvalidConfiguration, "tax percentage %d exceeds %d", taxPercentage, model.MaxTaxPercentage)
	}

	state := model.NewState(sig.Signer, taxPercentage)
	err := p.ledger.Update(ctx, func(txn Txn) error {
		_, err := txn.State(stateAddr)
		switch {
		case err == nil:
			return errorsmod.Wrap(model.ErrStateExists, stateAddr.Hex())
		case !errors.Is(err, model.ErrStateNotFound):
			return err
		}
		return txn.PutState(stateAddr, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// AddHolder appends holder to the selection list. Only the record's
// authority may do so. Duplicates are kept.
func (p *Program) AddHolder(ctx context.Context, sig model.Signature, stateAddr, holder common.Address) (*model.State, error) {
	logrus.Infof("add holder %s to state %s", holder.Hex(), stateAddr.Hex())

	if err := p.authenticate(ctx, sig, model.OperationPayload(OpAddHolder, stateAddr, holder.Bytes())); err != nil {
		return nil, err
	}
	if holder == (common.Address{}) {
		return nil, errorsmod.Wrap(model.ErrInvalidConfiguration, "zero holder address")
	}

	var state *model.State
	err := p.ledger.Update(ctx, func(txn Txn) error {
		var err error
		state, err = txn.State(stateAddr)
		if err != nil {
			return err
		}
		if state.Authority != sig.Signer {
			return errorsmod.Wrapf(model.ErrUnauthorized, "%s is not the authority of %s", sig.Signer.Hex(), stateAddr.Hex())
		}
		state.Holders = append(state.Holders, holder)
		return txn.PutState(stateAddr, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (p *Program) State(ctx context.Context, stateAddr common.Address) (*model.State, error) {
	var state *model.State
	err := p.ledger.View(ctx, func(txn Txn) error {
		var err error
		state, err = txn.State(stateAddr)
		return err
	})
	return state, err
}

// ProcessTransaction moves the tax and the dev fee for req.Amount out of the
// user's token account, with the state record acting as authority. The tax
// leg runs first; if either leg fails nothing is applied.
//
// The amount is taken as gross. Nothing checks whether the caller already
// deducted taxes from it.
func (p *Program) ProcessTransaction(ctx context.Context, stateAddr common.Address, req model.TransferRequest) (*model.Receipt, error) {
	logrus.Infof("process transaction on state %s: %d from %s", stateAddr.Hex(), req.Amount, req.From.Hex())

	receipt := &model.Receipt{State: stateAddr}
	err := p.ledger.Update(ctx, func(txn Txn) error {
		state, err := txn.State(stateAddr)
		if err != nil {
			return err
		}

		split, err := ComputeSplit(req.Amount, state.TaxPercentage)
		if err != nil {
			return err
		}

		if err := txn.Transfer(req.From, req.TaxWallet, stateAddr, split.Tax); err != nil {
			return errorsmod.Wrap(err, "tax transfer")
		}
		if err := txn.Transfer(req.From, req.DevWallet, stateAddr, split.DevFee); err != nil {
			return errorsmod.Wrap(err, "dev fee transfer")
		}

		if p.supplyMode == SupplyModeDeduct {
			remaining, underflow := math.SafeSub(state.TotalTokens, split.Tax+split.DevFee)
			if underflow {
				return errorsmod.Wrapf(model.ErrArithmeticOverflow, "supply %d below %d", state.TotalTokens, split.Tax+split.DevFee)
			}
			state.TotalTokens = remaining
			if err := txn.PutState(stateAddr, state); err != nil {
				return err
			}
		}

		receipt.Split = split
		receipt.TotalTokens = state.TotalTokens
		return nil
	})
	if err != nil {
		logrus.Warnf("process transaction on state %s failed: %v", stateAddr.Hex(), err)
		return nil, err
	}

	taxLog, err := model.NewFeeLog(model.EventTaxCollected, stateAddr, req.From, req.TaxWallet, receipt.Split.Tax)
	if err != nil {
		return nil, err
	}
	feeLog, err := model.NewFeeLog(model.EventDevFeeCollected, stateAddr, req.From, req.DevWallet, receipt.Split.DevFee)
	if err != nil {
		return nil, err
	}
	receipt.Logs = []*types.Log{taxLog, feeLog}

	logrus.Infof("processed %d on state %s: tax %d, dev fee %d, net %d", req.Amount, stateAddr.Hex(), receipt.Split.Tax, receipt.Split.DevFee, receipt.Split.Net)
	return receipt, nil
}

// SelectRandomWallet picks one holder of the record. See ClockRandomness for
// why the default source must not decide anything valuable.
func (p *Program) SelectRandomWallet(ctx context.Context, stateAddr common.Address) (*model.Selection, error) {
	state, err := p.State(ctx, stateAddr)
	if err != nil {
		return nil, err
	}

	n := len(state.Holders)
	if n == 0 {
		logrus.Warnf("select wallet on state %s: no holders", stateAddr.Hex())
		return nil, errorsmod.Wrap(model.ErrEmptyHolderSet, stateAddr.Hex())
	}

	index, counter, err := p.random.Index(ctx, n)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= n {
		return nil, fmt.Errorf("randomness source returned index %d for %d holders", index, n)
	}

	selected := state.Holders[index]
	logrus.Infof("Selected wallet: %s (state %s, index %d, counter %d)", selected.Hex(), stateAddr.Hex(), index, counter)

	selLog, err := model.NewSelectionLog(stateAddr, selected, index, counter)
	if err != nil {
		return nil, err
	}
	return &model.Selection{
		State:  stateAddr,
		Index:  index,
		Holder: selected,
		Logs:   []*types.Log{selLog},
	}, nil
}

func (p *Program) authenticate(ctx context.Context, sig model.Signature, expected []byte) error {
	if !bytes.Equal(sig.Payload, expected) {
		return errorsmod.Wrap(model.ErrUnauthorized, "signature does not cover this operation")
	}
	if err := p.auth.Authenticate(ctx, sig); err != nil {
		logrus.Warnf("signer %s rejected: %v", sig.Signer.Hex(), err)
		return err
	}
	return nil
}
