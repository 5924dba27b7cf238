package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// BlockchainClient reads time from an Ethereum-compatible node. Its clock
// advances in block-time steps and is whatever the block producer stamped.
type BlockchainClient struct {
	client *ethclient.Client
}

func NewBlockchainClient(ethURL string) (*BlockchainClient, error) {
	client, err := ethclient.Dial(ethURL)
	if err != nil {
		return nil, err
	}
	return &BlockchainClient{client: client}, nil
}

func (bc *BlockchainClient) Close() {
	bc.client.Close()
}

func (bc *BlockchainClient) LatestHeader(ctx context.Context) (*types.Header, error) {
	return bc.client.HeaderByNumber(ctx, nil)
}

func (bc *BlockchainClient) GetLatestBlockNumber(ctx context.Context) (int64, error) {
	header, err := bc.LatestHeader(ctx)
	if err != nil {
		return 0, err
	}
	return header.Number.Int64(), nil
}

// Now returns the timestamp of the latest block.
func (bc *BlockchainClient) Now(ctx context.Context) (uint64, error) {
	header, err := bc.LatestHeader(ctx)
	if err != nil {
		logrus.Errorf("GetLatestHeader err: %v", err)
		return 0, err
	}
	logrus.Debugf("block %d time %d", header.Number.Uint64(), header.Time)
	return header.Time, nil
}
