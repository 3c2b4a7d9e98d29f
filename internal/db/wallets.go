package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/models"
)

const walletColumns = "id, user_id, encrypted_mnemonic, iv, base_path, current_index, created_at, updated_at"

const accountColumns = "id, wallet_id, user_id, account_index, address, name, created_at, updated_at"

// CreateWalletWithFirstAccount creates a wallet and its index-0 account as one
// transaction. The wallet commits with current_index = 1; a partial creation
// never survives.
func (d *DB) CreateWalletWithFirstAccount(userID, encryptedMnemonic, iv, basePath, address string) (*models.Wallet, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("create wallet: begin: %w", err)
	}
	defer tx.Rollback()

	var userCount int
	if err := tx.QueryRow("SELECT COUNT(*) FROM users WHERE id = ?", userID).Scan(&userCount); err != nil {
		return nil, fmt.Errorf("create wallet: check user: %w", err)
	}
	if userCount == 0 {
		return nil, fmt.Errorf("create wallet for %q: %w", userID, config.ErrUserNotFound)
	}

	walletID := uuid.NewString()
	if _, err := tx.Exec(
		"INSERT INTO wallets (id, user_id, encrypted_mnemonic, iv, base_path, current_index) VALUES (?, ?, ?, ?, ?, 1)",
		walletID, userID, encryptedMnemonic, iv, basePath,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create wallet for %q: %w", userID, config.ErrWalletExists)
		}
		if isBusy(err) {
			return nil, config.NewTransientError(fmt.Errorf("create wallet: insert wallet: %w", err))
		}
		return nil, fmt.Errorf("create wallet: insert wallet: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO accounts (id, wallet_id, user_id, account_index, address) VALUES (?, ?, ?, 0, ?)",
		uuid.NewString(), walletID, userID, address,
	); err != nil {
		if isBusy(err) {
			return nil, config.NewTransientError(fmt.Errorf("create wallet: insert first account: %w", err))
		}
		return nil, fmt.Errorf("create wallet: insert first account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isBusy(err) {
			return nil, config.NewTransientError(fmt.Errorf("create wallet: commit: %w", err))
		}
		return nil, fmt.Errorf("create wallet: commit: %w", err)
	}

	slog.Info("wallet created",
		"walletId", walletID,
		"userId", userID,
		"basePath", basePath,
	)

	return d.GetWalletByID(walletID)
}

// GetWalletForUser returns the wallet owned by userID.
func (d *DB) GetWalletForUser(userID string) (*models.Wallet, error) {
	row := d.conn.QueryRow("SELECT "+walletColumns+" FROM wallets WHERE user_id = ?", userID)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("wallet for user %q: %w", userID, config.ErrWalletNotFound)
	}
	return w, err
}

// GetWalletByID returns a wallet by its identifier.
func (d *DB) GetWalletByID(walletID string) (*models.Wallet, error) {
	row := d.conn.QueryRow("SELECT "+walletColumns+" FROM wallets WHERE id = ?", walletID)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("wallet %q: %w", walletID, config.ErrWalletNotFound)
	}
	return w, err
}

// AllocateNextAccount atomically allocates the wallet's next account index:
// it re-reads current_index inside the transaction, derives the address at
// that index via the callback, inserts the account row, and increments the
// index with a guard on the value it read. Two concurrent callers for the
// same wallet cannot both commit the same index — the loser gets a transient
// conflict and no partial write.
func (d *DB) AllocateNextAccount(walletID, name string, derive func(index uint32) (address string, err error)) (*models.Account, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("allocate account: begin: %w", err)
	}
	defer tx.Rollback()

	var userID string
	var index uint32
	err = tx.QueryRow("SELECT user_id, current_index FROM wallets WHERE id = ?", walletID).Scan(&userID, &index)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("allocate account: wallet %q: %w", walletID, config.ErrWalletNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("allocate account: read index: %w", err)
	}

	// Derivation happens inside the atomic unit so the allocated index and
	// the computed address never diverge under races.
	address, err := derive(index)
	if err != nil {
		return nil, fmt.Errorf("allocate account at index %d: %w", index, err)
	}

	accountID := uuid.NewString()
	if _, err := tx.Exec(
		"INSERT INTO accounts (id, wallet_id, user_id, account_index, address, name) VALUES (?, ?, ?, ?, ?, ?)",
		accountID, walletID, userID, index, address, name,
	); err != nil {
		if isUniqueViolation(err) || isBusy(err) {
			return nil, config.NewTransientError(fmt.Errorf("allocate account: index %d taken: %w", index, config.ErrAllocationConflict))
		}
		return nil, fmt.Errorf("allocate account: insert: %w", err)
	}

	res, err := tx.Exec(
		"UPDATE wallets SET current_index = current_index + 1, updated_at = datetime('now') WHERE id = ? AND current_index = ?",
		walletID, index,
	)
	if err != nil {
		if isBusy(err) {
			return nil, config.NewTransientError(fmt.Errorf("allocate account: increment: %w", err))
		}
		return nil, fmt.Errorf("allocate account: increment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("allocate account: rows affected: %w", err)
	}
	if affected == 0 {
		// Another caller won the index; roll everything back and let the
		// caller retry against the fresh current_index.
		return nil, config.NewTransientError(fmt.Errorf("allocate account: wallet %q index %d: %w", walletID, index, config.ErrAllocationConflict))
	}

	if err := tx.Commit(); err != nil {
		if isBusy(err) {
			return nil, config.NewTransientError(fmt.Errorf("allocate account: commit: %w", err))
		}
		return nil, fmt.Errorf("allocate account: commit: %w", err)
	}

	slog.Info("account allocated",
		"walletId", walletID,
		"index", index,
		"address", address,
	)

	return d.getAccountByID(accountID)
}

// FindAccountByUserAndIndex returns the account at the given index for the
// user's wallet.
func (d *DB) FindAccountByUserAndIndex(userID string, index uint32) (*models.Account, error) {
	row := d.conn.QueryRow(
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = ? AND account_index = ?",
		userID, index,
	)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d for user %q: %w", index, userID, config.ErrAccountNotFound)
	}
	return a, err
}

// GetAccountsForWallet returns all accounts of a wallet ordered by index.
func (d *DB) GetAccountsForWallet(walletID string) ([]models.Account, error) {
	rows, err := d.conn.Query(
		"SELECT "+accountColumns+" FROM accounts WHERE wallet_id = ? ORDER BY account_index",
		walletID,
	)
	if err != nil {
		return nil, fmt.Errorf("query accounts for wallet %q: %w", walletID, err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}

	return accounts, nil
}

func (d *DB) getAccountByID(accountID string) (*models.Account, error) {
	row := d.conn.QueryRow("SELECT "+accountColumns+" FROM accounts WHERE id = ?", accountID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %q: %w", accountID, config.ErrAccountNotFound)
	}
	return a, err
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWallet(s scanner) (*models.Wallet, error) {
	var w models.Wallet
	if err := s.Scan(&w.ID, &w.UserID, &w.EncryptedMnemonic, &w.IV, &w.BasePath, &w.CurrentIndex, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func scanAccount(s scanner) (*models.Account, error) {
	var a models.Account
	if err := s.Scan(&a.ID, &a.WalletID, &a.UserID, &a.AccountIndex, &a.Address, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
