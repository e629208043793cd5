package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokergame/internal/domain"
	"pokergame/internal/ports/memory"
)

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (p *recordingPublisher) Publish(ctx context.Context, gameID string, kind string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, kind)
	return p.err
}

// failingStore fails every Save after the first saveAllowed calls.
type failingStore struct {
	*memory.GameStore
	saveAllowed int
}

func (f *failingStore) Save(ctx context.Context, state *domain.GameState) error {
	if f.saveAllowed <= 0 {
		return errors.New("store unavailable")
	}
	f.saveAllowed--
	return f.GameStore.Save(ctx, state)
}

// atomicStore commits state and transfers together, like the Nakama ledger.
type atomicStore struct {
	*memory.GameStore
	escrow *memory.Escrow
	calls  int
}

func (a *atomicStore) SaveWithTransfers(ctx context.Context, state *domain.GameState, transfers []domain.Transfer) error {
	a.calls++
	if len(transfers) > 0 {
		if err := a.escrow.Transfer(ctx, state.ID, transfers); err != nil {
			return err
		}
	}
	return a.GameStore.Save(ctx, state)
}

func newTestService(t *testing.T, balances map[string]int64, opts ...Option) (*Service, *memory.Escrow) {
	t.Helper()
	escrow := memory.NewEscrow(balances)
	opts = append([]Option{WithIDGenerator(func() string { return "game-1" })}, opts...)
	return NewService(memory.NewGameStore(), escrow, opts...), escrow
}

func exec(t *testing.T, svc *Service, cmd Command) *domain.GameState {
	t.Helper()
	if cmd.GameID == "" && cmd.Op != OpInitialize {
		cmd.GameID = "game-1"
	}
	state, _, err := svc.Execute(context.Background(), cmd)
	require.NoError(t, err, "%s by %s", cmd.Op, cmd.Actor)
	return state
}

func TestScenarioFullHand(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, escrow := newTestService(t, map[string]int64{"alice": 5000, "bob": 5000}, WithPublisher(pub), WithMaxSeats(2))

	g := exec(t, svc, Command{Op: OpInitialize, SmallBlind: 10, BigBlind: 20})
	assert.Equal(t, "game-1", g.ID)
	assert.Equal(t, []string{"", ""}, g.Players)
	assert.Equal(t, int64(0), g.Pot)

	exec(t, svc, Command{Op: OpJoin, Actor: "alice", Amount: 1000})
	g = exec(t, svc, Command{Op: OpJoin, Actor: "bob", Amount: 1000})
	assert.Equal(t, []string{"alice", "bob"}, g.Players)
	assert.Equal(t, 2, g.PlayersInRound)
	assert.Equal(t, int64(2000), g.Pot)
	assert.Equal(t, int64(2000), escrow.Pot("game-1"))

	g = exec(t, svc, Command{Op: OpStartRound})
	assert.True(t, g.IsActive)
	assert.Equal(t, 0, g.BettingRound)
	assert.Equal(t, int64(20), g.CurrentBet)

	first := g.Players[g.CurrentTurn]
	g = exec(t, svc, Command{Op: OpBet, Actor: first, Amount: 20})
	second := g.Players[g.CurrentTurn]
	assert.NotEqual(t, first, second)

	g = exec(t, svc, Command{Op: OpCall, Actor: second})
	assert.Equal(t, int64(20), g.PlayerBets[0])
	assert.Equal(t, int64(20), g.PlayerBets[1])
	assert.Equal(t, int64(2040), g.Pot)

	g = exec(t, svc, Command{Op: OpRevealWinner, Actor: first, Winner: "bob"})
	assert.False(t, g.IsActive)
	assert.Equal(t, int64(0), g.Pot)
	assert.Equal(t, int64(0), escrow.Pot("game-1"))

	alice, _ := escrow.Balance(ctx, "alice")
	bob, _ := escrow.Balance(ctx, "bob")
	assert.Equal(t, int64(3980), alice)
	assert.Equal(t, int64(6020), bob)
	assert.Equal(t, int64(10000), alice+bob)

	assert.Equal(t, []string{
		"game_created", "player_joined", "player_joined", "round_started",
		"bet_placed", "bet_called", "pot_awarded",
	}, pub.kinds)
}

func TestFoldAwardsRemainingPlayer(t *testing.T) {
	svc, escrow := newTestService(t, map[string]int64{"alice": 1000, "bob": 1000})
	exec(t, svc, Command{Op: OpInitialize, SmallBlind: 10, BigBlind: 20})
	exec(t, svc, Command{Op: OpJoin, Actor: "alice", Amount: 100})
	exec(t, svc, Command{Op: OpJoin, Actor: "bob", Amount: 100})
	g := exec(t, svc, Command{Op: OpStartRound})

	folder := g.Players[g.CurrentTurn]
	g, events, err := svc.Execute(context.Background(), Command{Op: OpFold, GameID: "game-1", Actor: folder})
	require.NoError(t, err)
	assert.False(t, g.IsActive)
	assert.Equal(t, int64(0), g.Pot)

	require.Len(t, events, 2)
	assert.Equal(t, EventPlayerFolded, events[0].Kind)
	assert.Equal(t, -1, events[0].Payload.(PlayerFoldedPayload).NextTurnSeat)
	award := events[1].Payload.(PotAwardedPayload)
	assert.True(t, award.Uncontested)
	assert.Equal(t, int64(200), award.Amount)
	assert.NotEqual(t, folder, award.UserID)

	winnerBalance, _ := escrow.Balance(context.Background(), award.UserID)
	assert.Equal(t, int64(1100), winnerBalance)
}

func TestRejectedOperationsLeaveStateUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, escrow := newTestService(t, map[string]int64{"alice": 1000, "bob": 1000})
	exec(t, svc, Command{Op: OpInitialize, SmallBlind: 10, BigBlind: 20})
	exec(t, svc, Command{Op: OpJoin, Actor: "alice", Amount: 100})
	exec(t, svc, Command{Op: OpJoin, Actor: "bob", Amount: 100})
	before := exec(t, svc, Command{Op: OpStartRound})
	waiting := before.Players[1-before.CurrentTurn]

	tests := []struct {
		name string
		cmd  Command
		want error
	}{
		{name: "out of turn bet", cmd: Command{Op: OpBet, Actor: waiting, Amount: 50}, want: domain.ErrOutOfTurn},
		{name: "out of turn fold", cmd: Command{Op: OpFold, Actor: waiting}, want: domain.ErrOutOfTurn},
		{name: "join mid round", cmd: Command{Op: OpJoin, Actor: "carol", Amount: 10}, want: domain.ErrRoundInProgress},
		{name: "unknown winner", cmd: Command{Op: OpRevealWinner, Winner: "carol"}, want: domain.ErrUnknownWinner},
		{name: "start twice", cmd: Command{Op: OpStartRound}, want: domain.ErrAlreadyActive},
		{name: "unknown op", cmd: Command{Op: "raise"}, want: domain.ErrUnknownOperation},
		{name: "missing game", cmd: Command{Op: OpBet, GameID: "nope", Actor: waiting, Amount: 50}, want: domain.ErrGameNotFound},
		{name: "initialize twice", cmd: Command{Op: OpInitialize, GameID: "game-1", SmallBlind: 1, BigBlind: 2}, want: domain.ErrGameExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.cmd
			if cmd.GameID == "" {
				cmd.GameID = "game-1"
			}
			_, _, err := svc.Execute(ctx, cmd)
			assert.ErrorIs(t, err, tt.want)

			after, err := svc.Get(ctx, "game-1")
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
	assert.Equal(t, int64(200), escrow.Pot("game-1"))
}

func TestInsufficientFundsRejectsTransition(t *testing.T) {
	ctx := context.Background()
	svc, escrow := newTestService(t, map[string]int64{"alice": 1000, "bob": 50})
	exec(t, svc, Command{Op: OpInitialize, SmallBlind: 10, BigBlind: 20})
	before := exec(t, svc, Command{Op: OpJoin, Actor: "alice", Amount: 100})

	_, _, err := svc.Execute(ctx, Command{Op: OpJoin, GameID: "game-1", Actor: "bob", Amount: 100})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "insufficient_funds", domain.ErrorCode(err))

	after, err := svc.Get(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	balance, _ := escrow.Balance(ctx, "bob")
	assert.Equal(t, int64(50), balance)
}

func TestSaveFailureReversesEscrow(t *testing.T) {
	ctx := context.Background()
	escrow := memory.NewEscrow(map[string]int64{"alice": 1000})
	store := &failingStore{GameStore: memory.NewGameStore(), saveAllowed: 1}
	svc := NewService(store, escrow, WithIDGenerator(func() string { return "game-1" }))

	exec(t, svc, Command{Op: OpInitialize, SmallBlind: 10, BigBlind: 20})
	_, _, err := svc.Execute(ctx, Command{Op: OpJoin, GameID: "game-1", Actor: "alice", Amount: 300})
	require.Error(t, err)

	balance, _ := escrow.Balance(ctx, "alice")
	assert.Equal(t, int64(1000), balance)
	assert.Equal(t, int64(0), escrow.Pot("game-1"))

	g, err := svc.Get(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, 0, g.PlayerCount)
}

func TestTransactionalStoreBypassesEscrowPort(t *testing.T) {
	escrow := memory.NewEscrow(map[string]int64{"alice": 1000, "bob": 1000})
	store := &atomicStore{GameStore: memory.NewGameStore(), escrow: escrow}
	svc := NewService(store, nil, WithIDGenerator(func() string { return "game-1" }))

	exec(t, svc, Command{Op: OpInitialize, SmallBlind: 10, BigBlind: 20})
	exec(t, svc, Command{Op: OpJoin, Actor: "alice", Amount: 100})
	exec(t, svc, Command{Op: OpJoin, Actor: "bob", Amount: 100})

	assert.Equal(t, 3, store.calls)
	assert.Equal(t, int64(200), escrow.Pot("game-1"))
}

func TestEndGameIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, escrow := newTestService(t, map[string]int64{"alice": 1000, "bob": 1000}, WithPublisher(pub))
	exec(t, svc, Command{Op: OpInitialize, SmallBlind: 10, BigBlind: 20})
	exec(t, svc, Command{Op: OpJoin, Actor: "alice", Amount: 100})
	exec(t, svc, Command{Op: OpJoin, Actor: "bob", Amount: 100})
	g := exec(t, svc, Command{Op: OpStartRound})
	exec(t, svc, Command{Op: OpBet, Actor: g.Players[g.CurrentTurn], Amount: 60})

	once := exec(t, svc, Command{Op: OpEndGame})
	twice := exec(t, svc, Command{Op: OpEndGame})
	assert.Equal(t, once, twice)
	assert.Equal(t, 0, once.PlayerCount)
	assert.Equal(t, int64(10), once.SmallBlind)

	alice, _ := escrow.Balance(ctx, "alice")
	bob, _ := escrow.Balance(ctx, "bob")
	assert.Equal(t, int64(2000), alice+bob)
	assert.Equal(t, int64(0), escrow.Pot("game-1"))

	ended := 0
	for _, k := range pub.kinds {
		if k == string(EventGameEnded) {
			ended++
		}
	}
	assert.Equal(t, 1, ended)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("bus down")}
	svc, _ := newTestService(t, nil, WithPublisher(pub))
	g := exec(t, svc, Command{Op: OpInitialize, SmallBlind: 10, BigBlind: 20})
	assert.Equal(t, int64(1), g.Revision)
}

func TestGeneratedGameIDs(t *testing.T) {
	svc := NewService(memory.NewGameStore(), memory.NewEscrow(nil))
	a, _, err := svc.Execute(context.Background(), Command{Op: OpInitialize, SmallBlind: 1, BigBlind: 2})
	require.NoError(t, err)
	b, _, err := svc.Execute(context.Background(), Command{Op: OpInitialize, SmallBlind: 1, BigBlind: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, domain.DefaultMaxSeats, a.MaxSeats)
}

func TestConcurrentJoinsAreSerialized(t *testing.T) {
	ctx := context.Background()
	balances := make(map[string]int64)
	for i := 0; i < 20; i++ {
		balances[fmt.Sprintf("p%d", i)] = 100
	}
	svc, escrow := newTestService(t, balances, WithMaxSeats(6))
	exec(t, svc, Command{Op: OpInitialize, SmallBlind: 1, BigBlind: 2})

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.Execute(ctx, Command{Op: OpJoin, GameID: "game-1", Actor: fmt.Sprintf("p%d", i), Amount: 10})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	joined, full := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, domain.ErrSeatsFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 6, joined)
	assert.Equal(t, 14, full)

	g, err := svc.Get(ctx, "game-1")
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	assert.Equal(t, int64(60), g.Pot)
	assert.Equal(t, int64(60), escrow.Pot("game-1"))
}

func TestRemoveKeepsGamesHoldingChips(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, map[string]int64{"alice": 1000})
	exec(t, svc, Command{Op: OpInitialize, SmallBlind: 10, BigBlind: 20})
	exec(t, svc, Command{Op: OpJoin, Actor: "alice", Amount: 100})

	err := svc.Remove(ctx, "game-1")
	require.ErrorIs(t, err, domain.ErrRoundInProgress)
	_, err = svc.Get(ctx, "game-1")
	require.NoError(t, err)

	exec(t, svc, Command{Op: OpEndGame})
	require.NoError(t, svc.Remove(ctx, "game-1"))
	_, err = svc.Get(ctx, "game-1")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)

	assert.NoError(t, svc.Remove(ctx, "game-1"))
	assert.Equal(t, 0, svc.locks.size())
}

type closingStore struct {
	*memory.GameStore
	closed int
}

func (c *closingStore) Close() error {
	c.closed++
	return nil
}

type closingPublisher struct {
	recordingPublisher
	err error
}

func (c *closingPublisher) Close() error {
	return c.err
}

func TestCloseReleasesStoreAndPublisher(t *testing.T) {
	store := &closingStore{GameStore: memory.NewGameStore()}
	pub := &closingPublisher{err: errors.New("drain timeout")}
	svc := NewService(store, memory.NewEscrow(nil), WithPublisher(pub))

	err := svc.Close()
	assert.EqualError(t, err, "drain timeout")
	assert.Equal(t, 1, store.closed)

	// Neither the memory store nor a missing publisher needs closing.
	plain, _ := newTestService(t, nil)
	assert.NoError(t, plain.Close())
}

func TestCommittedLogCarriesSeat(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	svc, _ := newTestService(t, map[string]int64{"alice": 1000, "bob": 1000}, WithLogger(&logger))
	exec(t, svc, Command{Op: OpInitialize, SmallBlind: 10, BigBlind: 20})
	exec(t, svc, Command{Op: OpJoin, Actor: "alice", Amount: 100})
	exec(t, svc, Command{Op: OpJoin, Actor: "bob", Amount: 100})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.NotContains(t, lines[0], `"seatNo"`)
	assert.Contains(t, lines[1], `"seatNo":0`)
	assert.Contains(t, lines[2], `"seatNo":1`)
	assert.Contains(t, lines[2], `"playerID":"bob"`)
}
