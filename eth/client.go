package eth

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/AlexNa-Holdings/stakezil/metrics"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
)

// Backend is the part of ethclient.Client used for read-only calls.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Client is a rate limited read-only client bound to a single RPC endpoint.
type Client struct {
	backend Backend
	URL     string
	rl      *rateLimiter

	chainMu sync.Mutex
	chainId *big.Int
}

func Dial(ctx context.Context, url string, rate int) (*Client, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		log.Error().Err(err).Msgf("Dial: Failed to connect to %s", url)
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewClient(c, url, rate), nil
}

func NewClient(b Backend, url string, rate int) *Client {
	return &Client{
		backend: b,
		URL:     url,
		rl:      newRateLimiter(url, rate),
	}
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.rl.waitForToken(ctx); err != nil {
		return nil, err
	}

	output, err := c.backend.CallContract(ctx, msg, blockNumber)
	c.handleRPCResult("eth_call", err)
	if err != nil {
		return nil, fmt.Errorf("eth_call: %w", err)
	}
	return output, nil
}

// ChainID is cached after the first successful call.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()

	if c.chainId != nil {
		return new(big.Int).Set(c.chainId), nil
	}

	if err := c.rl.waitForToken(ctx); err != nil {
		return nil, err
	}

	id, err := c.backend.ChainID(ctx)
	c.handleRPCResult("eth_chainId", err)
	if err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}

	c.chainId = id
	return new(big.Int).Set(id), nil
}

func (c *Client) Rate() int {
	return c.rl.rate()
}

func (c *Client) handleRPCResult(method string, err error) {
	metrics.RPCCalls.WithLabelValues(method).Inc()
	if err == nil {
		c.rl.onSuccess()
		return
	}

	metrics.RPCErrors.WithLabelValues(method).Inc()
	if isRateLimitError(err) {
		c.rl.onRateLimitError()
	}
	log.Debug().Err(err).Str("method", method).Msg("rpc call failed")
}
