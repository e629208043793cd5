package nakama

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"pokergame/internal/domain"
	"pokergame/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ledgerModule is the part of runtime.NakamaModule the ledger uses.
type ledgerModule interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
	MultiUpdate(ctx context.Context, accountUpdates []*runtime.AccountUpdate, storageWrites []*runtime.StorageWrite, storageDeletes []*runtime.StorageDelete, walletUpdates []*runtime.WalletUpdate, updateLedger bool) ([]*api.StorageObjectAck, []*runtime.WalletUpdateResult, error)
	AccountGetId(ctx context.Context, userID string) (*api.Account, error)
}

// NakamaLedger keeps game records in Nakama storage and player chips in Nakama wallets.
// Every game record write carries the storage version it was read at, so a concurrent
// writer on another node is rejected rather than overwritten.
type NakamaLedger struct {
	nk       ledgerModule
	currency string
}

// NewNakamaLedger creates a ledger over the wallet currency.
func NewNakamaLedger(nk ledgerModule, currency string) *NakamaLedger {
	if currency == "" {
		currency = "chips"
	}
	return &NakamaLedger{nk: nk, currency: currency}
}

func (l *NakamaLedger) Load(ctx context.Context, gameID string) (*domain.GameState, error) {
	state, _, err := l.read(ctx, gameID)
	return state, err
}

// read returns the decoded record and its storage version.
func (l *NakamaLedger) read(ctx context.Context, gameID string) (*domain.GameState, string, error) {
	objects, err := l.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: GameCollection,
		Key:        gameID,
		UserID:     systemUserID,
	}})
	if err != nil {
		return nil, "", fmt.Errorf("failed to read game %s: %w", gameID, err)
	}
	if len(objects) == 0 {
		return nil, "", fmt.Errorf("game %s: %w", gameID, domain.ErrGameNotFound)
	}

	state := &domain.GameState{}
	if err := json.Unmarshal([]byte(objects[0].GetValue()), state); err != nil {
		return nil, "", fmt.Errorf("failed to decode game %s: %w", gameID, err)
	}
	return state, objects[0].GetVersion(), nil
}

// gameWrite builds the conditional storage write for state.
func (l *NakamaLedger) gameWrite(ctx context.Context, state *domain.GameState) (*runtime.StorageWrite, error) {
	version := "*"
	current, storedVersion, err := l.read(ctx, state.ID)
	switch {
	case err == nil:
		if current.Revision != state.Revision-1 {
			return nil, fmt.Errorf("game %s at revision %d, save of %d: %w", state.ID, current.Revision, state.Revision, domain.ErrRevisionConflict)
		}
		version = storedVersion
	case errors.Is(err, domain.ErrGameNotFound):
		if state.Revision != 1 {
			return nil, fmt.Errorf("game %s missing, save of %d: %w", state.ID, state.Revision, domain.ErrRevisionConflict)
		}
	default:
		return nil, err
	}

	value, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode game %s: %w", state.ID, err)
	}
	return &runtime.StorageWrite{
		Collection:      GameCollection,
		Key:             state.ID,
		UserID:          systemUserID,
		Value:           string(value),
		Version:         version,
		PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}, nil
}

func (l *NakamaLedger) Save(ctx context.Context, state *domain.GameState) error {
	return l.SaveWithTransfers(ctx, state, nil)
}

// SaveWithTransfers writes state and applies its wallet changes in one MultiUpdate.
func (l *NakamaLedger) SaveWithTransfers(ctx context.Context, state *domain.GameState, transfers []domain.Transfer) error {
	write, err := l.gameWrite(ctx, state)
	if err != nil {
		return err
	}
	wallets, err := l.walletUpdates(ctx, state.ID, transfers)
	if err != nil {
		return err
	}

	if _, _, err := l.nk.MultiUpdate(ctx, nil, []*runtime.StorageWrite{write}, nil, wallets, true); err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return fmt.Errorf("game %s: %w", state.ID, domain.ErrRevisionConflict)
		}
		return fmt.Errorf("failed to commit game %s: %w", state.ID, err)
	}
	return nil
}

func (l *NakamaLedger) Remove(ctx context.Context, gameID string) error {
	if err := l.nk.StorageDelete(ctx, []*runtime.StorageDelete{{
		Collection: GameCollection,
		Key:        gameID,
		UserID:     systemUserID,
	}}); err != nil {
		return fmt.Errorf("failed to delete game %s: %w", gameID, err)
	}
	return nil
}

// Transfer applies wallet changes for a batch without touching the game record.
// Used when game records live outside Nakama storage.
func (l *NakamaLedger) Transfer(ctx context.Context, gameID string, transfers []domain.Transfer) error {
	wallets, err := l.walletUpdates(ctx, gameID, transfers)
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		return nil
	}
	if _, _, err := l.nk.MultiUpdate(ctx, nil, nil, nil, wallets, true); err != nil {
		return fmt.Errorf("failed to update wallets for game %s: %w", gameID, err)
	}
	return nil
}

// Balance returns the player's chips in the configured currency.
func (l *NakamaLedger) Balance(ctx context.Context, userID string) (int64, error) {
	account, err := l.nk.AccountGetId(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}

	wallet := map[string]int64{}
	if raw := account.GetWallet(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &wallet); err != nil {
			return 0, fmt.Errorf("failed to unmarshal wallet: %w", err)
		}
	}
	return wallet[l.currency], nil
}

// walletUpdates nets transfers per player and rejects the batch if any wallet would go
// negative.
func (l *NakamaLedger) walletUpdates(ctx context.Context, gameID string, transfers []domain.Transfer) ([]*runtime.WalletUpdate, error) {
	if len(transfers) == 0 {
		return nil, nil
	}

	deltas := make(map[string]int64)
	order := make([]string, 0, len(transfers))
	for _, t := range transfers {
		if _, ok := deltas[t.Player]; !ok {
			order = append(order, t.Player)
		}
		deltas[t.Player] += t.Delta()
	}

	updates := make([]*runtime.WalletUpdate, 0, len(order))
	for _, player := range order {
		delta := deltas[player]
		if delta == 0 {
			continue
		}
		if delta < 0 {
			balance, err := l.Balance(ctx, player)
			if err != nil {
				return nil, err
			}
			if balance+delta < 0 {
				return nil, fmt.Errorf("player %s has %d %s, needs %d: %w", player, balance, l.currency, -delta, domain.ErrInsufficientFunds)
			}
		}
		updates = append(updates, &runtime.WalletUpdate{
			UserID:    player,
			Changeset: map[string]int64{l.currency: delta},
			Metadata: map[string]interface{}{
				"game_id": gameID,
				"reason":  "poker_escrow",
			},
		})
	}
	return updates, nil
}

var (
	_ ports.TransactionalStore = (*NakamaLedger)(nil)
	_ ports.EscrowPort         = (*NakamaLedger)(nil)
)
