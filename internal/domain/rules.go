package domain

import "math"

// NewGame returns a fresh, joinable game with every seat empty.
func NewGame(id string, maxSeats int, smallBlind, bigBlind int64) (*GameState, error) {
	if maxSeats < MinPlayersToStartRound || smallBlind <= 0 || bigBlind <= 0 || bigBlind < smallBlind {
		return nil, ErrInvalidConfig
	}
	return &GameState{
		ID:         id,
		MaxSeats:   maxSeats,
		Players:    make([]string, maxSeats),
		PlayerBets: make([]int64, maxSeats),
		Stakes:     make([]int64, maxSeats),
		Folded:     make([]bool, maxSeats),
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
		DealerSeat: -1,
	}, nil
}

// Join seats player in the lowest empty seat and escrows the deposit into the pot.
func (g *GameState) Join(player string, deposit int64) (*GameState, []Transfer, error) {
	if g.IsActive {
		return nil, nil, ErrRoundInProgress
	}
	if player == "" || deposit <= 0 || deposit > math.MaxInt64-g.Pot {
		return nil, nil, ErrInvalidDeposit
	}
	if g.SeatOf(player) >= 0 {
		return nil, nil, ErrAlreadySeated
	}
	seat := LowestAvailableSeat(g.Players)
	if seat < 0 {
		return nil, nil, ErrSeatsFull
	}

	next := g.Clone()
	next.Players[seat] = player
	next.Folded[seat] = false
	next.Stakes[seat] = deposit
	next.Pot += deposit
	next.PlayerCount++
	next.PlayersInRound++
	next.Revision++

	return next, []Transfer{{Player: player, Amount: deposit, Direction: DirectionIn}}, nil
}

// BlindSeats returns the small and big blind seats for a dealer position.
// Heads-up the dealer posts the small blind.
func (g *GameState) BlindSeats(dealer int) (small, big int, err error) {
	if g.PlayersInRound == 2 {
		small = dealer
	} else if small, err = g.NextInRound(dealer); err != nil {
		return -1, -1, err
	}
	if big, err = g.NextInRound(small); err != nil {
		return -1, -1, err
	}
	return small, big, nil
}

// StartRound opens a betting round. The dealer button moves one seat clockwise and the
// first action belongs to the seat after the big blind. Blinds set the bet to match but
// are not credited to any seat's contribution.
func (g *GameState) StartRound() (*GameState, error) {
	if g.IsActive {
		return nil, ErrAlreadyActive
	}
	if g.PlayerCount < MinPlayersToStartRound {
		return nil, ErrNotEnoughPlayers
	}

	next := g.Clone()
	for i := range next.Players {
		next.Folded[i] = false
		next.PlayerBets[i] = 0
	}
	next.PlayersInRound = next.PlayerCount

	dealer, err := next.NextInRound(next.DealerSeat)
	if err != nil {
		return nil, err
	}
	_, big, err := next.BlindSeats(dealer)
	if err != nil {
		return nil, err
	}
	first, err := next.NextInRound(big)
	if err != nil {
		return nil, err
	}

	next.DealerSeat = dealer
	next.CurrentTurn = first
	next.CurrentBet = next.BigBlind
	next.BettingRound = 0
	next.IsActive = true
	next.Revision++
	return next, nil
}

// actorSeat returns the seat of player if it is their turn in an active round.
func (g *GameState) actorSeat(player string) (int, error) {
	if !g.IsActive {
		return -1, ErrRoundInactive
	}
	seat := g.SeatOf(player)
	if seat < 0 || seat != g.CurrentTurn || !g.InRound(seat) {
		return -1, ErrOutOfTurn
	}
	return seat, nil
}

// contribute adds amount to the seat's bet, passes the turn and returns the escrow request.
// It must only be called on a clone.
func (g *GameState) contribute(seat int, amount int64) ([]Transfer, error) {
	if overflows(g.Pot, amount) || overflows(g.PlayerBets[seat], amount) {
		return nil, ErrInvalidAmount
	}
	g.PlayerBets[seat] += amount
	g.Pot += amount
	if g.PlayerBets[seat] > g.CurrentBet {
		g.CurrentBet = g.PlayerBets[seat]
	}
	turn, err := g.NextInRound(seat)
	if err != nil {
		return nil, err
	}
	g.CurrentTurn = turn
	g.Revision++
	return []Transfer{{Player: g.Players[seat], Amount: amount, Direction: DirectionIn}}, nil
}

// Bet adds amount to the acting player's contribution. The resulting contribution must
// reach at least the current bet; exceeding it raises the bet for everyone else.
func (g *GameState) Bet(player string, amount int64) (*GameState, []Transfer, error) {
	seat, err := g.actorSeat(player)
	if err != nil {
		return nil, nil, err
	}
	if amount <= 0 || overflows(g.Pot, amount) || overflows(g.PlayerBets[seat], amount) ||
		g.PlayerBets[seat]+amount < g.CurrentBet {
		return nil, nil, ErrInvalidAmount
	}

	next := g.Clone()
	transfers, err := next.contribute(seat, amount)
	if err != nil {
		return nil, nil, err
	}
	return next, transfers, nil
}

// Call brings the acting player's contribution up to the current bet.
func (g *GameState) Call(player string) (*GameState, []Transfer, error) {
	seat, err := g.actorSeat(player)
	if err != nil {
		return nil, nil, err
	}
	owed := g.CurrentBet - g.PlayerBets[seat]
	if owed <= 0 {
		return nil, nil, ErrNothingToCall
	}

	next := g.Clone()
	transfers, err := next.contribute(seat, owed)
	if err != nil {
		return nil, nil, err
	}
	return next, transfers, nil
}

// Fold removes the acting player from the hand. When a single player remains they
// are paid the pot and the round closes.
func (g *GameState) Fold(player string) (*GameState, []Transfer, error) {
	seat, err := g.actorSeat(player)
	if err != nil {
		return nil, nil, err
	}

	next := g.Clone()
	next.Folded[seat] = true
	next.PlayersInRound--

	if next.PlayersInRound == 1 {
		winner, err := next.NextInRound(seat)
		if err != nil {
			return nil, nil, err
		}
		transfers := next.award(winner)
		next.Revision++
		return next, transfers, nil
	}

	turn, err := next.NextInRound(seat)
	if err != nil {
		return nil, nil, err
	}
	next.CurrentTurn = turn
	next.Revision++
	return next, nil, nil
}

// RevealWinner pays the whole pot to winner and closes the round.
// Hand strength is not checked; the declared winner is trusted.
func (g *GameState) RevealWinner(winner string) (*GameState, []Transfer, error) {
	if !g.IsActive {
		return nil, nil, ErrRoundInactive
	}
	seat := g.SeatOf(winner)
	if seat < 0 {
		return nil, nil, ErrUnknownWinner
	}
	if g.Folded[seat] {
		return nil, nil, ErrWinnerFolded
	}

	next := g.Clone()
	transfers := next.award(seat)
	next.Revision++
	return next, transfers, nil
}

// award settles the pot to seat and deactivates the round.
func (g *GameState) award(seat int) []Transfer {
	var transfers []Transfer
	if g.Pot > 0 {
		transfers = []Transfer{{Player: g.Players[seat], Amount: g.Pot, Direction: DirectionOut}}
	}
	for i := range g.Players {
		g.PlayerBets[i] = 0
		g.Stakes[i] = 0
	}
	g.Pot = 0
	g.CurrentBet = 0
	g.CurrentTurn = seat
	g.IsActive = false
	return transfers
}

// EndGame refunds every outstanding contribution and clears the table back to its
// freshly initialized shape. Blinds and seat count are kept. On a table that is already
// cleared it returns an unchanged copy, revision included.
func (g *GameState) EndGame() (*GameState, []Transfer) {
	if g.isReset() {
		return g.Clone(), nil
	}

	var transfers []Transfer
	for i, p := range g.Players {
		if owed := g.Stakes[i] + g.PlayerBets[i]; p != "" && owed > 0 {
			transfers = append(transfers, Transfer{Player: p, Amount: owed, Direction: DirectionOut})
		}
	}

	next, _ := NewGame(g.ID, g.MaxSeats, g.SmallBlind, g.BigBlind)
	next.Revision = g.Revision + 1
	return next, transfers
}

// overflows reports whether total+amount exceeds the int64 range.
func overflows(total, amount int64) bool {
	return amount > math.MaxInt64-total
}

func (g *GameState) isReset() bool {
	if g.PlayerCount != 0 || g.PlayersInRound != 0 || g.Pot != 0 || g.IsActive {
		return false
	}
	if g.CurrentBet != 0 || g.CurrentTurn != 0 || g.BettingRound != 0 || g.DealerSeat != -1 {
		return false
	}
	for i := range g.Players {
		if g.Players[i] != "" || g.PlayerBets[i] != 0 || g.Stakes[i] != 0 || g.Folded[i] {
			return false
		}
	}
	return true
}
