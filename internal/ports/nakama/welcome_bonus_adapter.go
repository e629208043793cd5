package nakama

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pokergame/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	welcomeBonusCollection = "onboarding"
	welcomeBonusKey        = "starting_chips_v1"
)

type multiUpdater interface {
	MultiUpdate(ctx context.Context, accountUpdates []*runtime.AccountUpdate, storageWrites []*runtime.StorageWrite, storageDeletes []*runtime.StorageDelete, walletUpdates []*runtime.WalletUpdate, updateLedger bool) ([]*api.StorageObjectAck, []*runtime.WalletUpdateResult, error)
}

// NakamaWelcomeBonusAdapter grants starting chips using Nakama storage + wallet updates.
type NakamaWelcomeBonusAdapter struct {
	nk       multiUpdater
	currency string
}

// NewNakamaWelcomeBonusAdapter creates a new welcome bonus adapter paying in currency.
func NewNakamaWelcomeBonusAdapter(nk multiUpdater, currency string) *NakamaWelcomeBonusAdapter {
	if currency == "" {
		currency = "chips"
	}
	return &NakamaWelcomeBonusAdapter{nk: nk, currency: currency}
}

// GrantWelcomeBonusOnce grants the chips and records a marker atomically. The marker is
// written with version "*", so a second grant is rejected by storage.
func (a *NakamaWelcomeBonusAdapter) GrantWelcomeBonusOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("userID is required")
	}
	if amount <= 0 {
		return false, fmt.Errorf("amount must be positive")
	}

	marker := map[string]interface{}{
		"amount":     amount,
		"currency":   a.currency,
		"granted_at": time.Now().UTC().Format(time.RFC3339),
	}
	value, err := json.Marshal(marker)
	if err != nil {
		return false, fmt.Errorf("failed to marshal starting chips marker: %w", err)
	}

	storageWrites := []*runtime.StorageWrite{
		{
			Collection:      welcomeBonusCollection,
			Key:             welcomeBonusKey,
			UserID:          userID,
			Value:           string(value),
			Version:         "*",
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	}

	walletUpdates := []*runtime.WalletUpdate{
		{
			UserID:    userID,
			Changeset: map[string]int64{a.currency: amount},
			Metadata:  metadata,
		},
	}

	_, _, err = a.nk.MultiUpdate(ctx, nil, storageWrites, nil, walletUpdates, true)
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return false, nil
		}
		return false, fmt.Errorf("failed to grant starting chips: %w", err)
	}

	return true, nil
}

var _ ports.WelcomeBonusPort = (*NakamaWelcomeBonusAdapter)(nil)
