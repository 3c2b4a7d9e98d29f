package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/custodia/walletd/internal/config"
)

// ErrInvalidPath is returned when a derivation path string cannot be parsed.
var ErrInvalidPath = errors.New("invalid derivation path")

// Derived is the address/private-key pair produced at one account index.
type Derived struct {
	Address       string
	PrivateKeyHex string
}

// Zero drops the key reference once it has been handed to the signer. The
// string bytes themselves are immutable and reclaimed by the collector;
// callers must not retain copies.
func (d *Derived) Zero() {
	d.PrivateKeyHex = ""
}

// ParsePath parses a derivation path like "m/44'/60'/0'/0" into child indices
// with the hardened offset already applied.
func ParsePath(path string) ([]uint32, error) {
	segments := strings.Split(path, "/")
	if len(segments) == 0 || segments[0] != "m" {
		return nil, fmt.Errorf("%w: %q must start with \"m\"", ErrInvalidPath, path)
	}

	indices := make([]uint32, 0, len(segments)-1)
	for _, seg := range segments[1:] {
		if seg == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}

		hardened := strings.HasSuffix(seg, "'") || strings.HasSuffix(seg, "h")
		if hardened {
			seg = seg[:len(seg)-1]
		}

		n, err := strconv.ParseUint(seg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q: %v", ErrInvalidPath, seg, err)
		}
		if n >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("%w: segment index %d out of range", ErrInvalidPath, n)
		}

		idx := uint32(n)
		if hardened {
			idx += hdkeychain.HardenedKeyStart
		}
		indices = append(indices, idx)
	}

	return indices, nil
}

// DeriveBaseKey derives the extended key at basePath from a BIP-32 master key
// built from seed. The returned key is the parent of every account index.
func DeriveBaseKey(seed []byte, basePath string) (*hdkeychain.ExtendedKey, error) {
	indices, err := ParsePath(basePath)
	if err != nil {
		return nil, err
	}

	// Network params only influence extended-key serialization, which is
	// never persisted here.
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}

	for depth, idx := range indices {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: path %q depth %d: %v", config.ErrKeyDerivation, basePath, depth, err)
		}
	}

	return key, nil
}

// DeriveAccount derives the child key at basePath/index and returns the
// EIP-55 address and hex private key. Output is fully determined by
// (seed, basePath, index); account 0 is derived at basePath/0 like every
// other index.
func DeriveAccount(seed []byte, basePath string, index uint32) (*Derived, error) {
	baseKey, err := DeriveBaseKey(seed, basePath)
	if err != nil {
		return nil, err
	}

	return DeriveAccountFromBase(baseKey, index)
}

// DeriveAccountFromBase derives a single child from a pre-derived base key.
// Useful when several indices are derived from the same wallet in one call.
func DeriveAccountFromBase(baseKey *hdkeychain.ExtendedKey, index uint32) (*Derived, error) {
	child, err := baseKey.Derive(index)
	if err != nil {
		return nil, fmt.Errorf("%w: child at index %d: %v", config.ErrKeyDerivation, index, err)
	}

	privKey, err := child.ECPrivKey()
	if err != nil {
		// Deterministic for this (seed, path, index); retrying cannot help.
		return nil, fmt.Errorf("%w: no private key at index %d: %v", config.ErrKeyDerivation, index, err)
	}

	derived := &Derived{
		Address:       addressFromKey(privKey),
		PrivateKeyHex: hex.EncodeToString(privKey.Serialize()),
	}

	slog.Debug("account derived", "index", index, "address", derived.Address)
	return derived, nil
}

// addressFromKey converts a secp256k1 private key to an EIP-55 checksummed address.
func addressFromKey(privKey *btcec.PrivateKey) string {
	return crypto.PubkeyToAddress(privKey.ToECDSA().PublicKey).Hex()
}
