// Package keys turns BIP-39 mnemonics into BIP-32 key trees and derives
// per-account address/private-key pairs along a fixed base path.
package keys

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"github.com/custodia/walletd/internal/config"
)

// NewMnemonic generates a fresh 12-word BIP-39 mnemonic from 128 bits of
// cryptographically secure entropy.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(config.MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("entropy to mnemonic: %w", err)
	}

	slog.Debug("mnemonic generated", "wordCount", config.MnemonicWordCount)
	return mnemonic, nil
}

// ValidateMnemonic validates a BIP-39 mnemonic phrase (must be 12 words).
func ValidateMnemonic(mnemonic string) error {
	if !bip39.IsMnemonicValid(mnemonic) {
		return fmt.Errorf("validate mnemonic: %w", config.ErrInvalidMnemonic)
	}

	words := strings.Fields(mnemonic)
	if len(words) != config.MnemonicWordCount {
		return fmt.Errorf("expected %d-word mnemonic, got %d words: %w", config.MnemonicWordCount, len(words), config.ErrInvalidMnemonic)
	}

	return nil
}

// MnemonicToSeed converts a BIP-39 mnemonic to a 64-byte seed (empty passphrase).
func MnemonicToSeed(mnemonic string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("mnemonic to seed: %w", err)
	}

	slog.Debug("seed derived from mnemonic", "seedLen", len(seed))
	return seed, nil
}
