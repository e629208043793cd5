package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"pokergame/internal/domain"
	"pokergame/internal/ports"
)

// Escrow is an in-process ledger of player balances and per-game pots.
type Escrow struct {
	mu       sync.Mutex
	balances map[string]int64
	pots     map[string]int64
	// FailNext, when set, is returned by the next Transfer call.
	FailNext error
}

func NewEscrow(balances map[string]int64) *Escrow {
	b := make(map[string]int64, len(balances))
	for k, v := range balances {
		b[k] = v
	}
	return &Escrow{balances: b, pots: make(map[string]int64)}
}

// Transfer validates the whole batch before applying any of it.
func (e *Escrow) Transfer(ctx context.Context, gameID string, transfers []domain.Transfer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.FailNext != nil {
		err := e.FailNext
		e.FailNext = nil
		return err
	}

	balances := make(map[string]int64)
	pot := e.pots[gameID]
	for _, t := range transfers {
		if t.Amount <= 0 {
			return errors.Errorf("transfer amount must be positive, got %d", t.Amount)
		}
		if _, ok := balances[t.Player]; !ok {
			balances[t.Player] = e.balances[t.Player]
		}
		balances[t.Player] += t.Delta()
		pot -= t.Delta()
		if balances[t.Player] < 0 {
			return errors.Wrapf(domain.ErrInsufficientFunds, "player %s", t.Player)
		}
		if pot < 0 {
			return errors.Errorf("pot of game %s would go negative", gameID)
		}
	}

	for player, balance := range balances {
		e.balances[player] = balance
	}
	e.pots[gameID] = pot
	return nil
}

func (e *Escrow) Balance(ctx context.Context, userID string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[userID], nil
}

// Pot returns the value currently escrowed for gameID.
func (e *Escrow) Pot(gameID string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pots[gameID]
}

var _ ports.EscrowPort = (*Escrow)(nil)
