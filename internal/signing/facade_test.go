package signing

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/custodia/walletd/internal/cipher"
	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/models"
)

// Well-known development mnemonic; index 0 under m/44'/60'/0'/0 is
// 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266.
const (
	devMnemonic = "test test test test test test test test test test test junk"
	devAddress0 = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	devKey0     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

type fakeStore struct {
	account *models.Account
	wallet  *models.Wallet
}

func (s *fakeStore) FindAccountByUserAndIndex(userID string, index uint32) (*models.Account, error) {
	if s.account == nil || s.account.UserID != userID || s.account.AccountIndex != index {
		return nil, fmt.Errorf("account %d for user %q: %w", index, userID, config.ErrAccountNotFound)
	}
	return s.account, nil
}

func (s *fakeStore) GetWalletByID(walletID string) (*models.Wallet, error) {
	if s.wallet == nil || s.wallet.ID != walletID {
		return nil, fmt.Errorf("wallet %q: %w", walletID, config.ErrWalletNotFound)
	}
	return s.wallet, nil
}

type fakeChain struct {
	balance *big.Int
	err     error

	gotMessage string
	gotTo      string
	gotValue   *big.Int
	gotKey     string
}

func (c *fakeChain) BalanceOf(_ context.Context, address string) (*big.Int, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.balance, nil
}

func (c *fakeChain) SignMessage(_ context.Context, message, privateKeyHex string) (string, error) {
	c.gotMessage = message
	c.gotKey = privateKeyHex
	if c.err != nil {
		return "", c.err
	}
	return "0xsignature", nil
}

func (c *fakeChain) SendTransaction(_ context.Context, to string, valueWei *big.Int, privateKeyHex string) (string, error) {
	c.gotTo = to
	c.gotValue = valueWei
	c.gotKey = privateKeyHex
	if c.err != nil {
		return "", c.err
	}
	return "0xtxhash", nil
}

func setupFacade(t *testing.T, address string, client *fakeChain) *Facade {
	t.Helper()

	key := make([]byte, config.EncryptionKeyLen)
	for i := range key {
		key[i] = byte(i)
	}
	c, err := cipher.New(key)
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}

	ciphertext, iv, err := c.Encrypt(devMnemonic)
	if err != nil {
		t.Fatalf("failed to encrypt mnemonic: %v", err)
	}

	store := &fakeStore{
		wallet: &models.Wallet{
			ID:                "wallet-1",
			UserID:            "user-1",
			EncryptedMnemonic: ciphertext,
			IV:                iv,
			BasePath:          config.DefaultBasePath,
			CurrentIndex:      1,
		},
		account: &models.Account{
			ID:           "account-1",
			WalletID:     "wallet-1",
			UserID:       "user-1",
			AccountIndex: 0,
			Address:      address,
		},
	}

	return NewFacade(store, c, client)
}

func TestSign(t *testing.T) {
	client := &fakeChain{}
	f := setupFacade(t, devAddress0, client)
	user := models.AuthenticatedUser{ID: "user-1"}

	sig, err := f.Sign(context.Background(), user, 0, "hello")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if sig != "0xsignature" {
		t.Errorf("Sign() = %q", sig)
	}
	if client.gotMessage != "hello" {
		t.Errorf("client received message %q", client.gotMessage)
	}
	if client.gotKey != devKey0 {
		t.Error("client did not receive the key derived at the stored index")
	}
}

func TestSignAccountNotFound(t *testing.T) {
	f := setupFacade(t, devAddress0, &fakeChain{})

	_, err := f.Sign(context.Background(), models.AuthenticatedUser{ID: "user-1"}, 5, "hello")
	if !errors.Is(err, config.ErrAccountNotFound) {
		t.Errorf("Sign() error = %v, want ErrAccountNotFound", err)
	}

	_, err = f.Sign(context.Background(), models.AuthenticatedUser{ID: "other"}, 0, "hello")
	if !errors.Is(err, config.ErrAccountNotFound) {
		t.Errorf("cross-user Sign() error = %v, want ErrAccountNotFound", err)
	}
}

func TestSignAddressMismatch(t *testing.T) {
	// Stored address does not match what derivation produces: the key must be
	// refused rather than used.
	client := &fakeChain{}
	f := setupFacade(t, "0x0000000000000000000000000000000000000001", client)

	_, err := f.Sign(context.Background(), models.AuthenticatedUser{ID: "user-1"}, 0, "hello")
	if !errors.Is(err, config.ErrKeyDerivation) {
		t.Fatalf("Sign() error = %v, want ErrKeyDerivation", err)
	}
	if client.gotKey != "" {
		t.Error("mismatched key was still handed to the chain client")
	}
}

func TestSignUpstreamTimeout(t *testing.T) {
	client := &fakeChain{err: context.DeadlineExceeded}
	f := setupFacade(t, devAddress0, client)

	_, err := f.Sign(context.Background(), models.AuthenticatedUser{ID: "user-1"}, 0, "hello")
	if !errors.Is(err, config.ErrUpstreamTimeout) {
		t.Errorf("Sign() error = %v, want ErrUpstreamTimeout", err)
	}
	if !config.IsTransient(err) {
		t.Error("upstream timeout should be transient")
	}
}

func TestSendTransaction(t *testing.T) {
	client := &fakeChain{}
	f := setupFacade(t, devAddress0, client)

	value := big.NewInt(1_000_000)
	txHash, err := f.SendTransaction(context.Background(), models.AuthenticatedUser{ID: "user-1"}, 0, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", value)
	if err != nil {
		t.Fatalf("SendTransaction() error = %v", err)
	}
	if txHash != "0xtxhash" {
		t.Errorf("SendTransaction() = %q", txHash)
	}
	if client.gotTo != "0x70997970C51812dc3A010C7d01b50e0d17dc79C8" {
		t.Errorf("client received to = %q", client.gotTo)
	}
	if client.gotValue.Cmp(value) != 0 {
		t.Errorf("client received value = %v", client.gotValue)
	}
	if client.gotKey != devKey0 {
		t.Error("client did not receive the key derived at the stored index")
	}
}

func TestSendTransactionBroadcastErrorPassesThrough(t *testing.T) {
	broadcastErr := errors.New("insufficient funds for gas")
	client := &fakeChain{err: broadcastErr}
	f := setupFacade(t, devAddress0, client)

	_, err := f.SendTransaction(context.Background(), models.AuthenticatedUser{ID: "user-1"}, 0, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", big.NewInt(1))
	if !errors.Is(err, broadcastErr) {
		t.Errorf("error = %v, want the broadcast error unchanged", err)
	}
	if config.IsTransient(err) {
		t.Error("broadcast errors must not be marked retryable")
	}
}

func TestGetBalance(t *testing.T) {
	client := &fakeChain{balance: big.NewInt(42)}
	f := setupFacade(t, devAddress0, client)

	balance, err := f.GetBalance(context.Background(), models.AuthenticatedUser{ID: "user-1"}, 0)
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if balance.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("GetBalance() = %v, want 42", balance)
	}
}

func TestGetBalanceAccountNotFound(t *testing.T) {
	f := setupFacade(t, devAddress0, &fakeChain{})

	_, err := f.GetBalance(context.Background(), models.AuthenticatedUser{ID: "user-1"}, 9)
	if !errors.Is(err, config.ErrAccountNotFound) {
		t.Errorf("GetBalance() error = %v, want ErrAccountNotFound", err)
	}
}
