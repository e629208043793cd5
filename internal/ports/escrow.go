package ports

import (
	"context"

	"pokergame/internal/domain"
)

// EscrowPort moves value between player balances and a game's pot.
type EscrowPort interface {
	// Transfer applies every transfer in the batch or none of them.
	// Returns domain.ErrInsufficientFunds when a player cannot cover a transfer into the pot.
	Transfer(ctx context.Context, gameID string, transfers []domain.Transfer) error

	// Balance returns the player's spendable balance outside any pot.
	Balance(ctx context.Context, userID string) (int64, error)
}
