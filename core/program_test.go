package core_test

import (
	"context"
	"crypto/ecdsa"
	"testing"

	"tax-token-program/chain"
	"tax-token-program/core"
	"tax-token-program/core/model"
	"tax-token-program/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t         *testing.T
	ctx       context.Context
	db        *store.DB
	clock     *chain.FixedClock
	program   *core.Program
	authority *ecdsa.PrivateKey
	state     common.Address
}

func newHarness(t *testing.T, mode core.SupplyMode) *harness {
	t.Helper()
	db, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	clock := &chain.FixedClock{Seconds: 1_700_000_000}
	return &harness{
		t:         t,
		ctx:       context.Background(),
		db:        db,
		clock:     clock,
		program:   core.NewProgram(db, chain.SignatureAuthenticator{}, core.ClockRandomness{Clock: clock}, mode),
		authority: key,
		state:     model.DeriveStateAddress(crypto.PubkeyToAddress(key.PublicKey), "test"),
	}
}

func (h *harness) sign(key *ecdsa.PrivateKey, payload []byte) model.Signature {
	sig, err := chain.Sign(key, payload)
	require.NoError(h.t, err)
	return sig
}

func (h *harness) initialize(tax uint8) (*model.State, error) {
	sig := h.sign(h.authority, model.OperationPayload(core.OpInitialize, h.state, []byte{tax}))
	return h.program.Initialize(h.ctx, sig, h.state, tax)
}

func (h *harness) addHolder(holder common.Address) (*model.State, error) {
	sig := h.sign(h.authority, model.OperationPayload(core.OpAddHolder, h.state, holder.Bytes()))
	return h.program.AddHolder(h.ctx, sig, h.state, holder)
}

func (h *harness) balance(addr common.Address) uint64 {
	acc, err := h.db.Account(addr)
	require.NoError(h.t, err)
	return acc.Balance
}

func (h *harness) fundUser(amount uint64) common.Address {
	user := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	require.NoError(h.t, h.db.Mint(user, amount))
	require.NoError(h.t, h.db.Approve(user, h.state))
	return user
}

var (
	taxWallet = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	devWallet = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

func TestInitialize(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)

	state, err := h.initialize(5)
	require.NoError(t, err)
	require.Equal(t, uint8(5), state.TaxPercentage)
	require.Equal(t, uint64(1_000_000), state.TotalTokens)
	require.Equal(t, crypto.PubkeyToAddress(h.authority.PublicKey), state.Authority)
	require.Empty(t, state.Holders)

	stored, err := h.program.State(h.ctx, h.state)
	require.NoError(t, err)
	require.Equal(t, state, stored)
}

func TestInitializeRejectsTaxOverHundred(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)

	_, err := h.initialize(101)
	require.ErrorIs(t, err, model.ErrInvalidConfiguration)

	_, err = h.program.State(h.ctx, h.state)
	require.ErrorIs(t, err, model.ErrStateNotFound)

	_, err = h.initialize(100)
	require.NoError(t, err)
}

func TestInitializeTwice(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)

	_, err := h.initialize(5)
	require.NoError(t, err)
	_, err = h.initialize(7)
	require.ErrorIs(t, err, model.ErrStateExists)

	state, err := h.program.State(h.ctx, h.state)
	require.NoError(t, err)
	require.Equal(t, uint8(5), state.TaxPercentage)
}

func TestInitializeBadSignature(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig := h.sign(other, model.OperationPayload(core.OpInitialize, h.state, []byte{5}))
	sig.Signer = crypto.PubkeyToAddress(h.authority.PublicKey)

	_, err = h.program.Initialize(h.ctx, sig, h.state, 5)
	require.ErrorIs(t, err, model.ErrUnauthorized)

	// a valid signature over a different operation does not count
	sig = h.sign(h.authority, model.OperationPayload(core.OpInitialize, h.state, []byte{0}))
	_, err = h.program.Initialize(h.ctx, sig, h.state, 5)
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestAddHolder(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)

	a := common.HexToAddress("0x0000000000000000000000000000000000000001")
	b := common.HexToAddress("0x0000000000000000000000000000000000000002")
	for _, holder := range []common.Address{a, b, a} {
		_, err = h.addHolder(holder)
		require.NoError(t, err)
	}

	state, err := h.program.State(h.ctx, h.state)
	require.NoError(t, err)
	require.Equal(t, []common.Address{a, b, a}, state.Holders)
}

func TestAddHolderNotAuthority(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	holder := common.HexToAddress("0x0000000000000000000000000000000000000001")
	sig := h.sign(other, model.OperationPayload(core.OpAddHolder, h.state, holder.Bytes()))

	_, err = h.program.AddHolder(h.ctx, sig, h.state, holder)
	require.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = h.addHolder(common.Address{})
	require.ErrorIs(t, err, model.ErrInvalidConfiguration)
}

func TestProcessTransaction(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)
	user := h.fundUser(200_000)

	receipt, err := h.program.ProcessTransaction(h.ctx, h.state, model.TransferRequest{
		From:      user,
		TaxWallet: taxWallet,
		DevWallet: devWallet,
		Amount:    100_000,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(5000), receipt.Split.Tax)
	require.Equal(t, uint64(1000), receipt.Split.DevFee)
	require.Equal(t, uint64(1_000_000), receipt.TotalTokens)

	require.Equal(t, uint64(194_000), h.balance(user))
	require.Equal(t, uint64(5000), h.balance(taxWallet))
	require.Equal(t, uint64(1000), h.balance(devWallet))

	require.Len(t, receipt.Logs, 2)
	taxEvent, err := model.ParseFeeEvent(model.EventTaxCollected, receipt.Logs[0])
	require.NoError(t, err)
	require.Equal(t, &model.FeeEvent{Name: model.EventTaxCollected, State: h.state, From: user, To: taxWallet, Amount: 5000}, taxEvent)
	feeEvent, err := model.ParseFeeEvent(model.EventDevFeeCollected, receipt.Logs[1])
	require.NoError(t, err)
	require.Equal(t, uint64(1000), feeEvent.Amount)
	require.Equal(t, devWallet, feeEvent.To)
}

func TestProcessTransactionZeroAmount(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)
	user := h.fundUser(0)

	receipt, err := h.program.ProcessTransaction(h.ctx, h.state, model.TransferRequest{
		From: user, TaxWallet: taxWallet, DevWallet: devWallet, Amount: 0,
	})
	require.NoError(t, err)
	require.Zero(t, receipt.Split.Tax)
	require.Zero(t, receipt.Split.DevFee)
}

func TestProcessTransactionInsufficientFunds(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)
	user := h.fundUser(4_999)

	_, err = h.program.ProcessTransaction(h.ctx, h.state, model.TransferRequest{
		From: user, TaxWallet: taxWallet, DevWallet: devWallet, Amount: 100_000,
	})
	require.ErrorIs(t, err, model.ErrInsufficientFunds)
	require.Equal(t, uint64(4_999), h.balance(user))
	require.Zero(t, h.balance(taxWallet))
	require.Zero(t, h.balance(devWallet))
}

func TestProcessTransactionDevFeeFailureRollsBackTax(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)
	// enough for the tax leg, not for both
	user := h.fundUser(5_500)

	_, err = h.program.ProcessTransaction(h.ctx, h.state, model.TransferRequest{
		From: user, TaxWallet: taxWallet, DevWallet: devWallet, Amount: 100_000,
	})
	require.ErrorIs(t, err, model.ErrInsufficientFunds)
	require.Equal(t, uint64(5_500), h.balance(user))
	require.Zero(t, h.balance(taxWallet))
	require.Zero(t, h.balance(devWallet))
}

func TestProcessTransactionWithoutDelegation(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)
	user := common.HexToAddress("0x00000000000000000000000000000000000000a2")
	require.NoError(t, h.db.Mint(user, 200_000))

	_, err = h.program.ProcessTransaction(h.ctx, h.state, model.TransferRequest{
		From: user, TaxWallet: taxWallet, DevWallet: devWallet, Amount: 100_000,
	})
	require.ErrorIs(t, err, model.ErrUnauthorized)
	require.Equal(t, uint64(200_000), h.balance(user))
}

func TestProcessTransactionOverflow(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)
	user := h.fundUser(1)

	_, err = h.program.ProcessTransaction(h.ctx, h.state, model.TransferRequest{
		From: user, TaxWallet: taxWallet, DevWallet: devWallet, Amount: ^uint64(0),
	})
	require.ErrorIs(t, err, model.ErrArithmeticOverflow)
}

func TestProcessTransactionUnknownState(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)

	_, err := h.program.ProcessTransaction(h.ctx, h.state, model.TransferRequest{Amount: 1})
	require.ErrorIs(t, err, model.ErrStateNotFound)
}

func TestProcessTransactionDeductsSupply(t *testing.T) {
	h := newHarness(t, core.SupplyModeDeduct)
	_, err := h.initialize(5)
	require.NoError(t, err)
	user := h.fundUser(300_000)

	req := model.TransferRequest{From: user, TaxWallet: taxWallet, DevWallet: devWallet, Amount: 100_000}
	receipt, err := h.program.ProcessTransaction(h.ctx, h.state, req)
	require.NoError(t, err)
	require.Equal(t, uint64(994_000), receipt.TotalTokens)

	_, err = h.program.ProcessTransaction(h.ctx, h.state, req)
	require.NoError(t, err)

	state, err := h.program.State(h.ctx, h.state)
	require.NoError(t, err)
	require.Equal(t, uint64(988_000), state.TotalTokens)
}

func TestProcessTransactionSupplyUnderflow(t *testing.T) {
	h := newHarness(t, core.SupplyModeDeduct)
	_, err := h.initialize(50)
	require.NoError(t, err)
	user := h.fundUser(10_000_000)

	_, err = h.program.ProcessTransaction(h.ctx, h.state, model.TransferRequest{
		From: user, TaxWallet: taxWallet, DevWallet: devWallet, Amount: 4_000_000,
	})
	require.ErrorIs(t, err, model.ErrArithmeticOverflow)
	require.Equal(t, uint64(10_000_000), h.balance(user))
}

func TestProcessTransactionDisplayModeKeepsSupply(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)
	user := h.fundUser(100_000)

	_, err = h.program.ProcessTransaction(h.ctx, h.state, model.TransferRequest{
		From: user, TaxWallet: taxWallet, DevWallet: devWallet, Amount: 100_000,
	})
	require.NoError(t, err)

	state, err := h.program.State(h.ctx, h.state)
	require.NoError(t, err)
	require.Equal(t, model.InitialTotalTokens, state.TotalTokens)
}

func TestSelectRandomWallet(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)

	holders := []common.Address{
		common.HexToAddress("0x0000000000000000000000000000000000000001"),
		common.HexToAddress("0x0000000000000000000000000000000000000002"),
		common.HexToAddress("0x0000000000000000000000000000000000000003"),
	}
	for _, holder := range holders {
		_, err = h.addHolder(holder)
		require.NoError(t, err)
	}

	for i := uint64(0); i < 10; i++ {
		h.clock.Seconds = 1_700_000_000 + i
		selection, err := h.program.SelectRandomWallet(h.ctx, h.state)
		require.NoError(t, err)
		require.Contains(t, holders, selection.Holder)
		require.Equal(t, int(h.clock.Seconds%3), selection.Index)
		require.Equal(t, holders[selection.Index], selection.Holder)

		require.Len(t, selection.Logs, 1)
		event, err := model.ParseSelectionEvent(selection.Logs[0])
		require.NoError(t, err)
		require.Equal(t, selection.Holder, event.Holder)
		require.Equal(t, h.clock.Seconds, event.Counter)
	}
}

func TestSelectRandomWalletEmpty(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		_, err = h.program.SelectRandomWallet(h.ctx, h.state)
	})
	require.ErrorIs(t, err, model.ErrEmptyHolderSet)
}

type badSource struct{}

func (badSource) Index(ctx context.Context, n int) (int, uint64, error) {
	return n, 0, nil
}

func TestSelectRandomWalletGuardsSource(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)
	_, err = h.addHolder(common.HexToAddress("0x0000000000000000000000000000000000000001"))
	require.NoError(t, err)

	program := core.NewProgram(h.db, chain.SignatureAuthenticator{}, badSource{}, core.SupplyModeDisplay)
	_, err = program.SelectRandomWallet(h.ctx, h.state)
	require.Error(t, err)
}

func TestParseSupplyMode(t *testing.T) {
	mode, err := core.ParseSupplyMode("")
	require.NoError(t, err)
	require.Equal(t, core.SupplyModeDisplay, mode)

	mode, err = core.ParseSupplyMode("deduct")
	require.NoError(t, err)
	require.Equal(t, core.SupplyModeDeduct, mode)

	_, err = core.ParseSupplyMode("burn")
	require.Error(t, err)
}

func TestProcessTransactionFullTax(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(100)
	require.NoError(t, err)
	user := h.fundUser(1_000)

	_, err = h.program.ProcessTransaction(h.ctx, h.state, model.TransferRequest{
		From: user, TaxWallet: taxWallet, DevWallet: devWallet, Amount: 100,
	})
	require.ErrorIs(t, err, model.ErrSplitExceedsAmount)
	require.NotErrorIs(t, err, model.ErrInvalidConfiguration)
	require.Equal(t, uint64(1_000), h.balance(user))
}

func TestCanceledContext(t *testing.T) {
	h := newHarness(t, core.SupplyModeDisplay)
	_, err := h.initialize(5)
	require.NoError(t, err)
	user := h.fundUser(200_000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = h.program.ProcessTransaction(ctx, h.state, model.TransferRequest{
		From: user, TaxWallet: taxWallet, DevWallet: devWallet, Amount: 100_000,
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, uint64(200_000), h.balance(user))

	_, err = h.program.State(ctx, h.state)
	require.ErrorIs(t, err, context.Canceled)
}
