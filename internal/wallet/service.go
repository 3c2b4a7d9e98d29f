// Package wallet orchestrates wallet and account generation: it wires the
// key deriver, the cipher, and the wallet store while enforcing ownership and
// index-allocation invariants.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia/walletd/internal/cipher"
	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/keys"
	"github.com/custodia/walletd/internal/models"
)

// Store is the persistence contract the generation service requires. Every
// operation either fully applies or fully rolls back.
type Store interface {
	CreateWalletWithFirstAccount(userID, encryptedMnemonic, iv, basePath, address string) (*models.Wallet, error)
	GetWalletForUser(userID string) (*models.Wallet, error)
	GetWalletByID(walletID string) (*models.Wallet, error)
	AllocateNextAccount(walletID, name string, derive func(index uint32) (address string, err error)) (*models.Account, error)
	FindAccountByUserAndIndex(userID string, index uint32) (*models.Account, error)
	GetAccountsForWallet(walletID string) ([]models.Account, error)
}

// Service implements wallet and account generation.
type Service struct {
	store    Store
	cipher   *cipher.Cipher
	basePath string
}

// NewService creates a generation service. basePath is the fixed
// account-level derivation path applied to every wallet.
func NewService(store Store, c *cipher.Cipher, basePath string) (*Service, error) {
	if _, err := keys.ParsePath(basePath); err != nil {
		return nil, fmt.Errorf("new generation service: %w", err)
	}

	slog.Info("generation service created", "basePath", basePath)
	return &Service{store: store, cipher: c, basePath: basePath}, nil
}

// CreateWalletWithMnemonic generates a fresh mnemonic, derives account 0,
// encrypts the mnemonic, and persists wallet plus first account atomically.
// The returned plaintext mnemonic is handed to the caller exactly once and is
// never logged or persisted in the clear.
func (s *Service) CreateWalletWithMnemonic(ctx context.Context, user models.AuthenticatedUser) (mnemonic string, walletID string, err error) {
	if err := ctx.Err(); err != nil {
		return "", "", fmt.Errorf("create wallet: %w", err)
	}

	mnemonic, err = keys.NewMnemonic()
	if err != nil {
		return "", "", fmt.Errorf("create wallet: %w", err)
	}

	seed, err := keys.MnemonicToSeed(mnemonic)
	if err != nil {
		return "", "", fmt.Errorf("create wallet: %w", err)
	}

	derived, err := keys.DeriveAccount(seed, s.basePath, 0)
	if err != nil {
		return "", "", fmt.Errorf("create wallet: %w", err)
	}
	defer derived.Zero()

	ciphertext, iv, err := s.cipher.Encrypt(mnemonic)
	if err != nil {
		return "", "", fmt.Errorf("create wallet: %w", err)
	}

	w, err := s.store.CreateWalletWithFirstAccount(user.ID, ciphertext, iv, s.basePath, derived.Address)
	if err != nil {
		return "", "", fmt.Errorf("create wallet: %w", err)
	}

	slog.Info("wallet generated",
		"walletId", w.ID,
		"userId", user.ID,
		"firstAddress", derived.Address,
	)

	return mnemonic, w.ID, nil
}

// CreateNewAccount allocates the wallet's next account index and derives its
// address inside the store's atomic allocation step. Ownership is re-checked
// here even though the HTTP layer authenticates, because walletID is
// caller-supplied. Transient allocation conflicts are retried a bounded
// number of times.
func (s *Service) CreateNewAccount(ctx context.Context, user models.AuthenticatedUser, walletID, name string) (address string, index uint32, err error) {
	w, err := s.store.GetWalletByID(walletID)
	if err != nil {
		return "", 0, fmt.Errorf("create account: %w", err)
	}

	if w.UserID != user.ID {
		slog.Warn("wallet access denied",
			"walletId", walletID,
			"ownerId", w.UserID,
			"callerId", user.ID,
		)
		return "", 0, fmt.Errorf("create account: wallet %q: %w", walletID, config.ErrUnauthorizedWalletAccess)
	}

	plaintext, err := s.cipher.Decrypt(w.EncryptedMnemonic, w.IV)
	if err != nil {
		return "", 0, fmt.Errorf("create account: %w", err)
	}

	seed, err := keys.MnemonicToSeed(plaintext)
	if err != nil {
		return "", 0, fmt.Errorf("create account: %w", err)
	}

	baseKey, err := keys.DeriveBaseKey(seed, w.BasePath)
	if err != nil {
		return "", 0, fmt.Errorf("create account: %w", err)
	}

	var account *models.Account
	for attempt := 1; attempt <= config.AllocationRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return "", 0, fmt.Errorf("create account: %w", err)
		}

		account, err = s.store.AllocateNextAccount(walletID, name, func(idx uint32) (string, error) {
			derived, derr := keys.DeriveAccountFromBase(baseKey, idx)
			if derr != nil {
				return "", derr
			}
			derived.Zero()
			return derived.Address, nil
		})
		if err == nil {
			break
		}
		if !config.IsTransient(err) {
			return "", 0, fmt.Errorf("create account: %w", err)
		}

		slog.Warn("account allocation conflict, retrying",
			"walletId", walletID,
			"attempt", attempt,
			"error", err,
		)
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	if err != nil {
		return "", 0, fmt.Errorf("create account: retries exhausted: %w", err)
	}

	slog.Info("account created",
		"walletId", walletID,
		"index", account.AccountIndex,
		"address", account.Address,
	)

	return account.Address, account.AccountIndex, nil
}

// WalletProjection returns the read-only wallet view for a user. It never
// exposes ciphertext or iv.
func (s *Service) WalletProjection(ctx context.Context, user models.AuthenticatedUser) (*models.WalletView, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("wallet projection: %w", err)
	}

	w, err := s.store.GetWalletForUser(user.ID)
	if err != nil {
		return nil, fmt.Errorf("wallet projection: %w", err)
	}

	accounts, err := s.store.GetAccountsForWallet(w.ID)
	if err != nil {
		return nil, fmt.Errorf("wallet projection: %w", err)
	}

	view := &models.WalletView{
		ID:           w.ID,
		BasePath:     w.BasePath,
		CurrentIndex: w.CurrentIndex,
		Accounts:     make([]models.AccountView, 0, len(accounts)),
	}
	for _, a := range accounts {
		view.Accounts = append(view.Accounts, models.AccountView{
			Index:     a.AccountIndex,
			Address:   a.Address,
			Name:      a.Name,
			CreatedAt: a.CreatedAt,
		})
	}

	return view, nil
}
