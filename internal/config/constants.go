package config

import "time"

// HD Derivation
const (
	// DefaultBasePath is the account-level derivation path stored on every
	// wallet. Account i is derived at DefaultBasePath/i — including account 0,
	// which is created at DefaultBasePath/0, never at the bare base path.
	DefaultBasePath = "m/44'/60'/0'/0"

	// MnemonicEntropyBits yields a 12-word BIP-39 mnemonic.
	MnemonicEntropyBits = 128
	MnemonicWordCount   = 12
)

// Cipher
const (
	EncryptionKeyLen = 32 // AES-256
	CipherIVLen      = 16 // AES block size
)

// Job Queue
const (
	QueueMaxAttempts    = 3
	QueueBackoffBase    = 1 * time.Second
	QueueBackoffMax     = 30 * time.Second
	QueuePollInterval   = 250 * time.Millisecond
	DefaultWorkerCount  = 5
	WorkerDrainTimeout  = 10 * time.Second
)

// GenerationService
const (
	// AllocationRetries bounds synchronous retries of the atomic index
	// allocation step on transient storage conflicts.
	AllocationRetries = 3
)

// Chain Client
const (
	ChainRequestTimeout = 15 * time.Second
	ChainRPCRateLimit   = 10 // requests per second
)

// Server
const (
	ServerPort         = 8080
	ServerReadTimeout  = 30 * time.Second
	ServerWriteTimeout = 60 * time.Second
	ServerIdleTimeout  = 120 * time.Second
	ShutdownTimeout    = 30 * time.Second
)

// Logging
const (
	LogDir         = "./logs"
	LogFilePattern = "walletd-%s.log" // %s = YYYY-MM-DD
	LogMaxAgeDays  = 30
)

// Database
const (
	DBPath        = "./data/walletd.sqlite"
	DBBusyTimeout = 5000 // milliseconds
)
