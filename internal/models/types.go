package models

import "encoding/json"

// AuthenticatedUser identifies the caller of a core operation. It is resolved
// by the HTTP auth middleware and passed explicitly; core packages never read
// identity off a transport request.
type AuthenticatedUser struct {
	ID string `json:"id"`
}

// Wallet is the per-user HD wallet row. The mnemonic is stored encrypted;
// CurrentIndex is the next unallocated account index.
type Wallet struct {
	ID                string `json:"id"`
	UserID            string `json:"userId"`
	EncryptedMnemonic string `json:"-"`
	IV                string `json:"-"`
	BasePath          string `json:"basePath"`
	CurrentIndex      uint32 `json:"currentIndex"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
}

// Account is a derived address belonging to a wallet. (WalletID, AccountIndex)
// is unique; the address is reproducible by deriving at AccountIndex under the
// wallet's base path.
type Account struct {
	ID           string `json:"id"`
	WalletID     string `json:"walletId"`
	UserID       string `json:"userId"`
	AccountIndex uint32 `json:"index"`
	Address      string `json:"address"`
	Name         string `json:"name,omitempty"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// JobKind identifies the generation operation a queued job executes.
type JobKind string

const (
	JobKindMnemonicGeneration JobKind = "mnemonic-generation"
	JobKindAccountGeneration  JobKind = "account-generation"
)

// JobState is the lifecycle state of a queued job.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// Job is a durable work item on the generation queue.
type Job struct {
	ID          string          `json:"id"`
	Kind        JobKind         `json:"kind"`
	State       JobState        `json:"state"`
	Payload     json.RawMessage `json:"-"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	RunAfter    string          `json:"-"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

// MnemonicJobPayload is the payload of a mnemonic-generation job.
type MnemonicJobPayload struct {
	UserID string `json:"userId"`
}

// MnemonicJobResult is recorded on a completed mnemonic-generation job.
// This is the only place the plaintext mnemonic crosses the process boundary;
// it stays on the durable result row only until the first successful status
// read, which blanks it.
type MnemonicJobResult struct {
	Mnemonic string `json:"mnemonic"`
	WalletID string `json:"walletId"`
}

// AccountJobPayload is the payload of an account-generation job.
type AccountJobPayload struct {
	UserID   string `json:"userId"`
	WalletID string `json:"walletId"`
	Name     string `json:"name"`
}

// AccountJobResult is recorded on a completed account-generation job.
type AccountJobResult struct {
	Address string `json:"address"`
	Index   uint32 `json:"index"`
}

// WalletView is the read-only wallet projection exposed over HTTP.
// It never carries ciphertext or iv.
type WalletView struct {
	ID           string        `json:"id"`
	BasePath     string        `json:"basePath"`
	CurrentIndex uint32        `json:"currentIndex"`
	Accounts     []AccountView `json:"accounts"`
}

// AccountView is a single account entry in WalletView.
type AccountView struct {
	Index     uint32 `json:"index"`
	Address   string `json:"address"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// CreateAccountRequest is the body of POST /api/wallets/{walletID}/accounts.
type CreateAccountRequest struct {
	Name string `json:"name"`
}

// SignRequest is the body of POST /api/sign.
type SignRequest struct {
	Index   uint32 `json:"index"`
	Message string `json:"message"`
}

// SendRequest is the body of POST /api/send.
type SendRequest struct {
	Index    uint32 `json:"index"`
	To       string `json:"to"`
	ValueWei string `json:"valueWei"`
}

// EnqueuedResponse is returned by the async generation endpoints.
type EnqueuedResponse struct {
	JobID string `json:"jobId"`
}

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Data interface{} `json:"data,omitempty"`
	Meta *APIMeta    `json:"meta,omitempty"`
}

// APIMeta contains execution metadata.
type APIMeta struct {
	ExecutionTime int64 `json:"executionTime,omitempty"`
}

// APIError is the standard error response.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail contains error code and message.
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
