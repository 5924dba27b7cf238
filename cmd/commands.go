package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"

	"tax-token-program/chain"
	"tax-token-program/config"
	"tax-token-program/core"
	"tax-token-program/core/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

const defaultSeed = "tax-token-state"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taxtoken",
		Short:         "Tax and dev fee splitting token program",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Config file (yaml, toml or json)")
	config.AddFlags(root.PersistentFlags())

	root.AddCommand(
		newInitCmd(),
		newAddHolderCmd(),
		newApproveCmd(),
		newFundCmd(),
		newProcessCmd(),
		newSelectCmd(),
		newShowCmd(),
		newBalanceCmd(),
	)
	return root
}

func withApp(cmd *cobra.Command, fn func(*app) error) error {
	flags := cmd.Root().PersistentFlags()
	file, err := flags.GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(file, flags)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func parseKey(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", name, s)
	}
	return common.HexToAddress(s), nil
}

// stateAddress resolves --state, falling back to the address derived from
// the signer and --seed.
func stateAddress(cmd *cobra.Command, signer common.Address) (common.Address, error) {
	state, _ := cmd.Flags().GetString("state")
	if state != "" {
		return parseAddress("state", state)
	}
	if signer == (common.Address{}) {
		return common.Address{}, fmt.Errorf("--state is required")
	}
	seed, _ := cmd.Flags().GetString("seed")
	return model.DeriveStateAddress(signer, seed), nil
}

type stateView struct {
	Address       common.Address   `json:"address"`
	TaxPercentage uint8            `json:"taxPercentage"`
	TotalTokens   uint64           `json:"totalTokens"`
	Authority     common.Address   `json:"authority"`
	Holders       []common.Address `json:"holders"`
}

func newStateView(addr common.Address, s *model.State) stateView {
	return stateView{
		Address:       addr,
		TaxPercentage: s.TaxPercentage,
		TotalTokens:   s.TotalTokens,
		Authority:     s.Authority,
		Holders:       s.Holders,
	}
}

func newInitCmd() *cobra.Command {
	var keyHex, seed string
	var tax uint8
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration record",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(keyHex)
			if err != nil {
				return err
			}
			stateAddr, err := stateAddress(cmd, crypto.PubkeyToAddress(key.PublicKey))
			if err != nil {
				return err
			}
			sig, err := chain.Sign(key, model.OperationPayload(core.OpInitialize, stateAddr, []byte{tax}))
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				state, err := a.program.Initialize(cmd.Context(), sig, stateAddr, tax)
				if err != nil {
					return err
				}
				return printJSON(cmd, newStateView(stateAddr, state))
			})
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "Hex secp256k1 private key of the authority")
	cmd.Flags().Uint8Var(&tax, "tax", 0, "Tax percentage (0-100)")
	cmd.Flags().StringVar(&seed, "seed", defaultSeed, "Seed for the derived state address")
	cmd.Flags().String("state", "", "Explicit state address")
	cmd.MarkFlagRequired("key")
	return cmd
}

func newAddHolderCmd() *cobra.Command {
	var keyHex, holderHex, seed string
	cmd := &cobra.Command{
		Use:   "add-holder",
		Short: "Append a holder to the selection list",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(keyHex)
			if err != nil {
				return err
			}
			holder, err := parseAddress("holder", holderHex)
			if err != nil {
				return err
			}
			stateAddr, err := stateAddress(cmd, crypto.PubkeyToAddress(key.PublicKey))
			if err != nil {
				return err
			}
			sig, err := chain.Sign(key, model.OperationPayload(core.OpAddHolder, stateAddr, holder.Bytes()))
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				state, err := a.program.AddHolder(cmd.Context(), sig, stateAddr, holder)
				if err != nil {
					return err
				}
				return printJSON(cmd, newStateView(stateAddr, state))
			})
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "Hex secp256k1 private key of the authority")
	cmd.Flags().StringVar(&holderHex, "holder", "", "Holder address")
	cmd.Flags().StringVar(&seed, "seed", defaultSeed, "Seed for the derived state address")
	cmd.Flags().String("state", "", "Explicit state address")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("holder")
	return cmd
}

func newApproveCmd() *cobra.Command {
	var keyHex, delegateHex string
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Let a delegate, usually a state address, move funds out of your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(keyHex)
			if err != nil {
				return err
			}
			delegate, err := parseAddress("delegate", delegateHex)
			if err != nil {
				return err
			}
			owner := crypto.PubkeyToAddress(key.PublicKey)
			return withApp(cmd, func(a *app) error {
				if err := a.db.Approve(owner, delegate); err != nil {
					return err
				}
				acc, err := a.db.Account(owner)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]interface{}{"account": owner, "balance": acc.Balance, "delegate": acc.Delegate})
			})
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "Hex secp256k1 private key of the account owner")
	cmd.Flags().StringVar(&delegateHex, "delegate", "", "Delegate address")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("delegate")
	return cmd
}

func newFundCmd() *cobra.Command {
	var accountHex string
	var amount uint64
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Mint tokens into an account of the local ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAddress("account", accountHex)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.db.Mint(account, amount); err != nil {
					return err
				}
				acc, err := a.db.Account(account)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]interface{}{"account": account, "balance": acc.Balance})
			})
		},
	}
	cmd.Flags().StringVar(&accountHex, "account", "", "Account address")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "Amount in token units")
	cmd.MarkFlagRequired("account")
	return cmd
}

func newProcessCmd() *cobra.Command {
	var stateHex, fromHex, taxHex, devHex string
	var amount uint64
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Collect tax and dev fee for a transfer amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req model.TransferRequest
			stateAddr, err := parseAddress("state", stateHex)
			if err != nil {
				return err
			}
			if req.From, err = parseAddress("from", fromHex); err != nil {
				return err
			}
			if req.TaxWallet, err = parseAddress("tax wallet", taxHex); err != nil {
				return err
			}
			if req.DevWallet, err = parseAddress("dev wallet", devHex); err != nil {
				return err
			}
			req.Amount = amount
			return withApp(cmd, func(a *app) error {
				receipt, err := a.program.ProcessTransaction(cmd.Context(), stateAddr, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, receipt)
			})
		},
	}
	cmd.Flags().StringVar(&stateHex, "state", "", "State address")
	cmd.Flags().StringVar(&fromHex, "from", "", "User token account")
	cmd.Flags().StringVar(&taxHex, "tax-wallet", "", "Tax wallet")
	cmd.Flags().StringVar(&devHex, "dev-wallet", "", "Dev wallet")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "Amount in token units")
	for _, name := range []string{"state", "from", "tax-wallet", "dev-wallet"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newSelectCmd() *cobra.Command {
	var stateHex string
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Pick a holder from the time counter (not secure randomness)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateAddr, err := parseAddress("state", stateHex)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				selection, err := a.program.SelectRandomWallet(cmd.Context(), stateAddr)
				if err != nil {
					return err
				}
				return printJSON(cmd, selection)
			})
		},
	}
	cmd.Flags().StringVar(&stateHex, "state", "", "State address")
	cmd.MarkFlagRequired("state")
	return cmd
}

func newShowCmd() *cobra.Command {
	var stateHex string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a configuration record",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateAddr, err := parseAddress("state", stateHex)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				state, err := a.program.State(cmd.Context(), stateAddr)
				if err != nil {
					return err
				}
				return printJSON(cmd, newStateView(stateAddr, state))
			})
		},
	}
	cmd.Flags().StringVar(&stateHex, "state", "", "State address")
	cmd.MarkFlagRequired("state")
	return cmd
}

func newBalanceCmd() *cobra.Command {
	var accountHex string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print a token account",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAddress("account", accountHex)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				acc, err := a.db.Account(account)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]interface{}{"account": account, "balance": acc.Balance, "delegate": acc.Delegate})
			})
		},
	}
	cmd.Flags().StringVar(&accountHex, "account", "", "Account address")
	cmd.MarkFlagRequired("account")
	return cmd
}
