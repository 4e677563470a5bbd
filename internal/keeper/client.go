// Package keeper wraps the ledger RPC node: transaction submission,
// receipt confirmation, contract calls and local signing.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const (
	defaultTxAttempts = 40
	defaultTxSleep    = 1500 * time.Millisecond
)

// receiptSource is the slice of the RPC surface receipt polling needs.
type receiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Client struct {
	eth        *ethclient.Client
	signer     *Signer
	chainID    *big.Int
	txAttempts int
	txSleep    time.Duration
	log        *zap.Logger
}

// Dial connects to the keeper node and binds the signer to its chain id.
func Dial(ctx context.Context, url string, signer *Signer, txAttempts int, txSleep time.Duration, log *zap.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial keeper %s: %w", url, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	signer.bind(chainID)

	if txAttempts <= 0 {
		txAttempts = defaultTxAttempts
	}
	if txSleep <= 0 {
		txSleep = defaultTxSleep
	}

	log.Info("keeper connected",
		zap.String("url", url),
		zap.String("chain_id", chainID.String()),
		zap.String("account", signer.Address().Hex()),
	)

	return &Client{
		eth:        eth,
		signer:     signer,
		chainID:    chainID,
		txAttempts: txAttempts,
		txSleep:    txSleep,
		log:        log,
	}, nil
}

func (c *Client) Close() { c.eth.Close() }

func (c *Client) Signer() *Signer { return c.signer }

// Eth exposes the raw client for log filtering and subscriptions.
func (c *Client) Eth() *ethclient.Client { return c.eth }

// WaitMined polls for the transaction receipt with a fixed sleep between
// attempts. A receipt counts only once it carries a block number; without one
// it is still the node's pending placeholder.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return waitMined(ctx, c.eth, txHash, c.txAttempts, c.txSleep)
}

func waitMined(ctx context.Context, source receiptSource, txHash common.Hash, attempts int, sleep time.Duration) (*types.Receipt, error) {
	for i := 0; i < attempts; i++ {
		receipt, err := source.TransactionReceipt(ctx, txHash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetch receipt for %s: %w", txHash.Hex(), err)
		}
		if receipt != nil && receipt.BlockNumber != nil && receipt.BlockNumber.Sign() > 0 {
			return receipt, nil
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(sleep):
			}
		}
	}
	return nil, fmt.Errorf("transaction %s not mined after %d attempts", txHash.Hex(), attempts)
}
