package db

import (
	"fmt"
	"log/slog"

	"github.com/custodia/walletd/internal/config"
)

// CreateUser inserts a user row. Authentication itself lives outside this
// core; the row only anchors wallet ownership.
func (d *DB) CreateUser(userID string) error {
	_, err := d.conn.Exec("INSERT INTO users (id) VALUES (?)", userID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %q: %w", userID, config.ErrUserExists)
		}
		if isBusy(err) {
			return config.NewTransientError(fmt.Errorf("create user %q: %w", userID, err))
		}
		return fmt.Errorf("create user %q: %w", userID, err)
	}

	slog.Info("user created", "userId", userID)
	return nil
}

// UserExists reports whether a user row exists.
func (d *DB) UserExists(userID string) (bool, error) {
	var count int
	if err := d.conn.QueryRow("SELECT COUNT(*) FROM users WHERE id = ?", userID).Scan(&count); err != nil {
		return false, fmt.Errorf("check user %q: %w", userID, err)
	}
	return count > 0, nil
}
