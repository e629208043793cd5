package domain

// Direction says which way a transfer moves value relative to the pot.
type Direction string

const (
	// DirectionIn moves value from a player's balance into the pot.
	DirectionIn Direction = "in"
	// DirectionOut moves value from the pot to a player's balance.
	DirectionOut Direction = "out"
)

// Transfer is an escrow movement requested by a transition.
type Transfer struct {
	Player    string    `json:"player"`
	Amount    int64     `json:"amount"`
	Direction Direction `json:"direction"`
}

// Delta returns the signed change applied to the player's external balance.
func (t Transfer) Delta() int64 {
	if t.Direction == DirectionIn {
		return -t.Amount
	}
	return t.Amount
}

// Reverse returns the transfer that undoes t.
func (t Transfer) Reverse() Transfer {
	out := t
	if t.Direction == DirectionIn {
		out.Direction = DirectionOut
	} else {
		out.Direction = DirectionIn
	}
	return out
}

// ReverseAll undoes a batch, last transfer first.
func ReverseAll(transfers []Transfer) []Transfer {
	out := make([]Transfer, 0, len(transfers))
	for i := len(transfers) - 1; i >= 0; i-- {
		out = append(out, transfers[i].Reverse())
	}
	return out
}
