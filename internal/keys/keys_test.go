package keys

import (
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/custodia/walletd/internal/config"
)

// Well-known development mnemonic with published derivation vectors for
// m/44'/60'/0'/0/i. Never used outside tests.
const devMnemonic = "test test test test test test test test test test test junk"

func TestNewMnemonic(t *testing.T) {
	m1, err := NewMnemonic()
	if err != nil {
		t.Fatalf("NewMnemonic() error = %v", err)
	}
	if got := len(strings.Fields(m1)); got != config.MnemonicWordCount {
		t.Fatalf("NewMnemonic() word count = %d, want %d", got, config.MnemonicWordCount)
	}
	if err := ValidateMnemonic(m1); err != nil {
		t.Errorf("generated mnemonic failed validation: %v", err)
	}

	m2, err := NewMnemonic()
	if err != nil {
		t.Fatalf("NewMnemonic() error = %v", err)
	}
	if m1 == m2 {
		t.Error("two generated mnemonics are identical")
	}
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		wantErr  bool
	}{
		{"valid 12 words", devMnemonic, false},
		{"empty", "", true},
		{"wrong word", "test test test test test test test test test test test blah", true},
		{"bad checksum", "test test test test test test test test test test test test", true},
		{"valid 24 words rejected", "legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth title", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMnemonic(tt.mnemonic)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMnemonic() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, config.ErrInvalidMnemonic) {
				t.Errorf("ValidateMnemonic() error = %v, want ErrInvalidMnemonic", err)
			}
		})
	}
}

func TestMnemonicToSeed(t *testing.T) {
	seed, err := MnemonicToSeed(devMnemonic)
	if err != nil {
		t.Fatalf("MnemonicToSeed() error = %v", err)
	}
	if len(seed) != 64 {
		t.Errorf("seed length = %d, want 64", len(seed))
	}

	if _, err := MnemonicToSeed("not a real mnemonic at all"); err == nil {
		t.Error("MnemonicToSeed() should reject an invalid mnemonic")
	}
}

func TestParsePath(t *testing.T) {
	h := uint32(hdkeychain.HardenedKeyStart)

	tests := []struct {
		name    string
		path    string
		want    []uint32
		wantErr bool
	}{
		{"standard eth path", "m/44'/60'/0'/0", []uint32{h + 44, h + 60, h + 0, 0}, false},
		{"h suffix", "m/44h/60h/0h/0", []uint32{h + 44, h + 60, h + 0, 0}, false},
		{"root only", "m", []uint32{}, false},
		{"non-hardened", "m/0/1/2", []uint32{0, 1, 2}, false},
		{"missing m", "44'/60'/0'/0", nil, true},
		{"empty segment", "m//0", nil, true},
		{"non-numeric", "m/44'/sixty'", nil, true},
		{"index out of range", "m/2147483648", nil, true},
		{"empty string", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("ParsePath() error = %v, want ErrInvalidPath", err)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParsePath() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParsePath()[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDeriveAccountKnownVectors(t *testing.T) {
	seed, err := MnemonicToSeed(devMnemonic)
	if err != nil {
		t.Fatalf("MnemonicToSeed() error = %v", err)
	}

	tests := []struct {
		index       uint32
		wantAddress string
		wantKey     string
	}{
		{0, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"},
		{1, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"},
	}

	for _, tt := range tests {
		derived, err := DeriveAccount(seed, config.DefaultBasePath, tt.index)
		if err != nil {
			t.Fatalf("DeriveAccount(index=%d) error = %v", tt.index, err)
		}
		if derived.Address != tt.wantAddress {
			t.Errorf("index %d address = %s, want %s", tt.index, derived.Address, tt.wantAddress)
		}
		if derived.PrivateKeyHex != tt.wantKey {
			t.Errorf("index %d private key mismatch", tt.index)
		}
	}
}

func TestDeriveAccountDeterministic(t *testing.T) {
	seed, err := MnemonicToSeed(devMnemonic)
	if err != nil {
		t.Fatalf("MnemonicToSeed() error = %v", err)
	}

	d1, err := DeriveAccount(seed, config.DefaultBasePath, 7)
	if err != nil {
		t.Fatalf("DeriveAccount() error = %v", err)
	}
	d2, err := DeriveAccount(seed, config.DefaultBasePath, 7)
	if err != nil {
		t.Fatalf("DeriveAccount() error = %v", err)
	}

	if d1.Address != d2.Address || d1.PrivateKeyHex != d2.PrivateKeyHex {
		t.Error("same (seed, path, index) produced different results")
	}
}

func TestDeriveAccountFromBaseMatchesDirect(t *testing.T) {
	seed, err := MnemonicToSeed(devMnemonic)
	if err != nil {
		t.Fatalf("MnemonicToSeed() error = %v", err)
	}

	baseKey, err := DeriveBaseKey(seed, config.DefaultBasePath)
	if err != nil {
		t.Fatalf("DeriveBaseKey() error = %v", err)
	}

	for _, index := range []uint32{0, 1, 5} {
		direct, err := DeriveAccount(seed, config.DefaultBasePath, index)
		if err != nil {
			t.Fatalf("DeriveAccount(%d) error = %v", index, err)
		}
		fromBase, err := DeriveAccountFromBase(baseKey, index)
		if err != nil {
			t.Fatalf("DeriveAccountFromBase(%d) error = %v", index, err)
		}
		if direct.Address != fromBase.Address {
			t.Errorf("index %d: base derivation address %s != direct %s", index, fromBase.Address, direct.Address)
		}
	}
}

func TestDeriveDistinctIndices(t *testing.T) {
	seed, err := MnemonicToSeed(devMnemonic)
	if err != nil {
		t.Fatalf("MnemonicToSeed() error = %v", err)
	}

	seen := make(map[string]uint32)
	for index := uint32(0); index < 5; index++ {
		derived, err := DeriveAccount(seed, config.DefaultBasePath, index)
		if err != nil {
			t.Fatalf("DeriveAccount(%d) error = %v", index, err)
		}
		if prev, dup := seen[derived.Address]; dup {
			t.Fatalf("address %s derived at both index %d and %d", derived.Address, prev, index)
		}
		seen[derived.Address] = index
	}
}

func TestDeriveBaseKeyInvalidPath(t *testing.T) {
	seed, err := MnemonicToSeed(devMnemonic)
	if err != nil {
		t.Fatalf("MnemonicToSeed() error = %v", err)
	}

	if _, err := DeriveBaseKey(seed, "not/a/path"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("DeriveBaseKey() error = %v, want ErrInvalidPath", err)
	}
}

func TestDerivedZero(t *testing.T) {
	d := &Derived{Address: "0xabc", PrivateKeyHex: "deadbeef"}
	d.Zero()
	if d.PrivateKeyHex != "" {
		t.Errorf("Zero() left PrivateKeyHex = %q", d.PrivateKeyHex)
	}
	if d.Address != "0xabc" {
		t.Error("Zero() should not touch the address")
	}
}
