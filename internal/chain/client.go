// Package chain wraps the external EVM collaborator used for balances,
// message signing, and transaction submission. The core treats it as opaque
// and never retries submissions itself.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/custodia/walletd/internal/config"
)

// Client is the chain collaborator contract consumed by the signing facade.
type Client interface {
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
	SignMessage(ctx context.Context, message, privateKeyHex string) (string, error)
	SendTransaction(ctx context.Context, to string, valueWei *big.Int, privateKeyHex string) (string, error)
}

// EVMClient implements Client over a JSON-RPC endpoint. Outbound RPC calls
// share a token-bucket limiter so a burst of signing requests cannot trip
// provider rate limits.
type EVMClient struct {
	eth     *ethclient.Client
	chainID *big.Int
	limiter *rate.Limiter
}

// Dial connects to the RPC endpoint.
func Dial(rpcURL string, chainID int64) (*EVMClient, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	slog.Info("chain client connected", "chainId", chainID)
	return &EVMClient{
		eth:     eth,
		chainID: big.NewInt(chainID),
		limiter: rate.NewLimiter(rate.Limit(config.ChainRPCRateLimit), 1),
	}, nil
}

// Close releases the RPC connection.
func (c *EVMClient) Close() {
	c.eth.Close()
}

// BalanceOf returns the latest native balance in wei.
func (c *EVMClient) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("balance of %q: not a hex address", address)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("balance of %q: %w", address, err)
	}

	balance, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %q: %w", address, err)
	}

	return balance, nil
}

// SignMessage signs an EIP-191 prefixed personal message and returns the
// 65-byte signature hex with the legacy V offset.
func (c *EVMClient) SignMessage(_ context.Context, message, privateKeyHex string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("sign message: parse key: %w", err)
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256Hash([]byte(prefixed))

	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}

	// personal_sign convention: V is 27/28, not 0/1.
	sig[64] += 27

	return "0x" + common.Bytes2Hex(sig), nil
}

// SendTransaction builds, signs, and broadcasts a native value transfer.
// Returns the transaction hash. No retry: resubmitting network transactions
// risks double-spends and is left to a higher layer.
func (c *EVMClient) SendTransaction(ctx context.Context, to string, valueWei *big.Int, privateKeyHex string) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("send transaction: %q is not a hex address", to)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("send transaction: parse key: %w", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("send transaction: pending nonce for %s: %w", from.Hex(), err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("send transaction: suggest gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(to), valueWei, 21_000, gasPrice, nil)

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return "", fmt.Errorf("send transaction: sign: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send transaction: broadcast: %w", err)
	}

	hash := signed.Hash().Hex()
	slog.Info("transaction broadcast",
		"from", from.Hex(),
		"to", to,
		"value", valueWei.String(),
		"txHash", hash,
	)

	return hash, nil
}
