package main

import (
	"context"

	"tax-token-program/chain"
	"tax-token-program/config"
	"tax-token-program/core"
	"tax-token-program/store"

	"github.com/sirupsen/logrus"
)

type app struct {
	cfg     *config.Config
	db      *store.DB
	program *core.Program
	client  *chain.BlockchainClient
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logrus.SetLevel(cfg.Level())

	supplyMode, err := core.ParseSupplyMode(cfg.SupplyMode)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	var clock core.Clock = new(chain.SystemClock)
	if cfg.Clock == config.ClockChain {
		a.client, err = chain.NewBlockchainClient(cfg.ChainUrl)
		if err != nil {
			logrus.Errorf("Failed to create client: %v", err)
			return nil, err
		}
		height, err := a.client.GetLatestBlockNumber(ctx)
		if err != nil {
			logrus.Errorf("GetLatestBlockNumber err: %v", err)
			a.close()
			return nil, err
		}
		logrus.Infof("connected to %s at block %d", cfg.ChainUrl, height)
		clock = a.client
	}

	a.db, err = store.Open(cfg.DataDir)
	if err != nil {
		a.close()
		return nil, err
	}

	a.program = core.NewProgram(a.db, chain.SignatureAuthenticator{}, core.ClockRandomness{Clock: clock}, supplyMode)
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logrus.Errorf("close ledger: %v", err)
		}
	}
	if a.client != nil {
		a.client.Close()
	}
}
