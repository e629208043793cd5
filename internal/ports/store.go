package ports

import (
	"context"

	"pokergame/internal/domain"
)

// GameStore persists game records keyed by game handle.
type GameStore interface {
	// Load returns domain.ErrGameNotFound when the handle has no record.
	Load(ctx context.Context, gameID string) (*domain.GameState, error)

	// Save writes state only if the stored revision is state.Revision-1 (or absent for
	// revision 1). Returns domain.ErrRevisionConflict otherwise.
	Save(ctx context.Context, state *domain.GameState) error

	// Remove deletes the record; removing a missing handle is not an error.
	Remove(ctx context.Context, gameID string) error
}

// TransactionalStore is implemented by stores that can persist a state together with
// its escrow transfers in a single atomic write.
type TransactionalStore interface {
	GameStore
	SaveWithTransfers(ctx context.Context, state *domain.GameState, transfers []domain.Transfer) error
}
