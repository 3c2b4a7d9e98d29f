package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia/walletd/internal/models"
	"github.com/custodia/walletd/internal/queue"
)

// RegisterJobHandlers binds the generation operations to their job kinds.
// A malformed payload is fatal for the job — retrying cannot fix it.
func RegisterJobHandlers(q *queue.Queue, svc *Service) {
	q.Register(models.JobKindMnemonicGeneration, func(ctx context.Context, payload json.RawMessage) ([]byte, error) {
		var p models.MnemonicJobPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("mnemonic job payload: %w", err)
		}

		mnemonic, walletID, err := svc.CreateWalletWithMnemonic(ctx, models.AuthenticatedUser{ID: p.UserID})
		if err != nil {
			return nil, err
		}

		return json.Marshal(models.MnemonicJobResult{Mnemonic: mnemonic, WalletID: walletID})
	})

	q.Register(models.JobKindAccountGeneration, func(ctx context.Context, payload json.RawMessage) ([]byte, error) {
		var p models.AccountJobPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("account job payload: %w", err)
		}

		address, index, err := svc.CreateNewAccount(ctx, models.AuthenticatedUser{ID: p.UserID}, p.WalletID, p.Name)
		if err != nil {
			return nil, err
		}

		return json.Marshal(models.AccountJobResult{Address: address, Index: index})
	})
}
