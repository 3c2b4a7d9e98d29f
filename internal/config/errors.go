package config

import (
	"errors"
	"time"
)

// Sentinel errors for internal use.
var (
	ErrInvalidConfig            = errors.New("invalid configuration")
	ErrInvalidMnemonic          = errors.New("invalid mnemonic")
	ErrKeyDerivation            = errors.New("key derivation failed")
	ErrDecryption               = errors.New("decryption failed")
	ErrUserNotFound             = errors.New("user not found")
	ErrUserExists               = errors.New("user already exists")
	ErrWalletNotFound           = errors.New("wallet not found")
	ErrWalletExists             = errors.New("wallet already exists for user")
	ErrAccountNotFound          = errors.New("account not found")
	ErrUnauthorizedWalletAccess = errors.New("wallet does not belong to caller")
	ErrJobNotFound              = errors.New("job not found")
	ErrAllocationConflict       = errors.New("account index allocation conflict")
	ErrUpstreamTimeout          = errors.New("upstream request timeout")
	ErrQueueClosed              = errors.New("job queue is closed")
)

// TransientError wraps an error that should be retried.
type TransientError struct {
	Err        error
	RetryAfter time.Duration // 0 = use default backoff
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient (retriable).
func NewTransientError(err error) error {
	return &TransientError{Err: err}
}

// NewTransientErrorWithRetry wraps with explicit retry delay.
func NewTransientErrorWithRetry(err error, retryAfter time.Duration) error {
	return &TransientError{Err: err, RetryAfter: retryAfter}
}

// IsTransient returns true if the error is transient (retriable).
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// GetRetryAfter returns the retry delay if set, or 0.
func GetRetryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// Error codes — shared with the HTTP layer via API responses.
const (
	ErrorInvalidRequest     = "ERROR_INVALID_REQUEST"
	ErrorUnauthorized       = "ERROR_UNAUTHORIZED"
	ErrorUserNotFound       = "ERROR_USER_NOT_FOUND"
	ErrorUserExists         = "ERROR_USER_EXISTS"
	ErrorWalletNotFound     = "ERROR_WALLET_NOT_FOUND"
	ErrorWalletExists       = "ERROR_WALLET_EXISTS"
	ErrorAccountNotFound    = "ERROR_ACCOUNT_NOT_FOUND"
	ErrorJobNotFound        = "ERROR_JOB_NOT_FOUND"
	ErrorKeyDerivation      = "ERROR_KEY_DERIVATION"
	ErrorDecryption         = "ERROR_DECRYPTION"
	ErrorDatabase           = "ERROR_DATABASE"
	ErrorQueue              = "ERROR_QUEUE"
	ErrorUpstreamTimeout    = "ERROR_UPSTREAM_TIMEOUT"
	ErrorChainClient        = "ERROR_CHAIN_CLIENT"
	ErrorInternal           = "ERROR_INTERNAL"
)
