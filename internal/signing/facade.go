// Package signing reconstructs private keys for stored accounts and delegates
// to the chain collaborator for message signing and transaction submission.
package signing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/custodia/walletd/internal/chain"
	"github.com/custodia/walletd/internal/cipher"
	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/keys"
	"github.com/custodia/walletd/internal/models"
)

// Store is the persistence subset the facade needs.
type Store interface {
	FindAccountByUserAndIndex(userID string, index uint32) (*models.Account, error)
	GetWalletByID(walletID string) (*models.Wallet, error)
}

// Facade performs the decrypt-then-derive key reconstruction and hands the
// key to the chain client. Keys are zeroed after use and never logged.
type Facade struct {
	store  Store
	cipher *cipher.Cipher
	client chain.Client
}

// NewFacade creates a signing facade.
func NewFacade(store Store, c *cipher.Cipher, client chain.Client) *Facade {
	return &Facade{store: store, cipher: c, client: client}
}

// Sign signs a personal message with the key of the account at (user, index).
func (f *Facade) Sign(ctx context.Context, user models.AuthenticatedUser, index uint32, message string) (string, error) {
	derived, err := f.reconstructKey(user, index)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	defer derived.Zero()

	ctx, cancel := context.WithTimeout(ctx, config.ChainRequestTimeout)
	defer cancel()

	sig, err := f.client.SignMessage(ctx, message, derived.PrivateKeyHex)
	if err != nil {
		return "", fmt.Errorf("sign: %w", classifyUpstream(err))
	}

	slog.Info("message signed", "userId", user.ID, "index", index, "address", derived.Address)
	return sig, nil
}

// SendTransaction submits a native value transfer from the account at
// (user, index). Broadcast errors propagate unchanged — this core never
// resubmits transactions.
func (f *Facade) SendTransaction(ctx context.Context, user models.AuthenticatedUser, index uint32, to string, valueWei *big.Int) (string, error) {
	derived, err := f.reconstructKey(user, index)
	if err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	defer derived.Zero()

	ctx, cancel := context.WithTimeout(ctx, config.ChainRequestTimeout)
	defer cancel()

	txHash, err := f.client.SendTransaction(ctx, to, valueWei, derived.PrivateKeyHex)
	if err != nil {
		return "", fmt.Errorf("send: %w", classifyUpstream(err))
	}

	slog.Info("transaction submitted", "userId", user.ID, "index", index, "txHash", txHash)
	return txHash, nil
}

// GetBalance returns the native balance of the account at (user, index).
// No key reconstruction needed — the stored address suffices.
func (f *Facade) GetBalance(ctx context.Context, user models.AuthenticatedUser, index uint32) (*big.Int, error) {
	account, err := f.store.FindAccountByUserAndIndex(user.ID, index)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.ChainRequestTimeout)
	defer cancel()

	balance, err := f.client.BalanceOf(ctx, account.Address)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", classifyUpstream(err))
	}

	return balance, nil
}

// reconstructKey loads the account, decrypts the owning wallet's mnemonic,
// and re-derives the key at the stored index. The derived address must
// reproduce the stored one; a mismatch means the key material is wrong and
// the key must not be used.
func (f *Facade) reconstructKey(user models.AuthenticatedUser, index uint32) (*keys.Derived, error) {
	account, err := f.store.FindAccountByUserAndIndex(user.ID, index)
	if err != nil {
		return nil, err
	}

	w, err := f.store.GetWalletByID(account.WalletID)
	if err != nil {
		return nil, err
	}

	mnemonic, err := f.cipher.Decrypt(w.EncryptedMnemonic, w.IV)
	if err != nil {
		return nil, err
	}

	seed, err := keys.MnemonicToSeed(mnemonic)
	if err != nil {
		return nil, err
	}

	derived, err := keys.DeriveAccount(seed, w.BasePath, account.AccountIndex)
	if err != nil {
		return nil, err
	}

	if derived.Address != account.Address {
		derived.Zero()
		return nil, fmt.Errorf("%w: derived address does not match stored account at index %d", config.ErrKeyDerivation, index)
	}

	return derived, nil
}

// classifyUpstream maps a timeout from the chain collaborator to the
// retryable upstream-timeout error; everything else passes through.
func classifyUpstream(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return config.NewTransientError(fmt.Errorf("%w: %v", config.ErrUpstreamTimeout, err))
	}
	return err
}
