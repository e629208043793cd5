package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pokergame/internal/domain"
	"pokergame/internal/logging"
	"pokergame/internal/ports"
)

// Service runs game operations: it serializes work per game handle, applies the pure
// domain transition and commits the next state together with its escrow transfers.
type Service struct {
	store     ports.GameStore
	escrow    ports.EscrowPort
	publisher ports.EventPublisher
	locks     *locker
	logger    *zerolog.Logger
	maxSeats  int
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher fans committed events out after every successful operation.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger that records rejections and commits. Defaults to a no-op
// logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMaxSeats sets the seat count for games initialized without one.
func WithMaxSeats(n int) Option {
	return func(s *Service) { s.maxSeats = n }
}

// WithIDGenerator replaces the uuid generator used for new game handles.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService constructs a Service. escrow may be nil when store implements
// ports.TransactionalStore.
func NewService(store ports.GameStore, escrow ports.EscrowPort, opts ...Option) *Service {
	s := &Service{
		store:    store,
		escrow:   escrow,
		locks:    newLocker(),
		logger:   logging.Nop(),
		maxSeats: domain.DefaultMaxSeats,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current state of a game.
func (s *Service) Get(ctx context.Context, gameID string) (*domain.GameState, error) {
	return s.store.Load(ctx, gameID)
}

// Execute applies cmd to its game. On any error nothing is persisted and no value moves.
func (s *Service) Execute(ctx context.Context, cmd Command) (*domain.GameState, []Event, error) {
	if cmd.Op == OpInitialize && cmd.GameID == "" {
		cmd.GameID = s.newID()
	}
	if cmd.GameID == "" {
		return nil, nil, domain.ErrGameNotFound
	}

	unlock := s.locks.Lock(cmd.GameID)
	defer unlock()

	log := s.logger.With().
		Str(logging.GameIDKey, cmd.GameID).
		Str(logging.OpKey, string(cmd.Op)).
		Str(logging.PlayerIDKey, cmd.Actor).
		Logger()

	current, err := s.loadFor(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	next, transfers, events, err := s.apply(current, cmd)
	if err != nil {
		log.Info().Str(logging.ErrCodeKey, domain.ErrorCode(err)).Msg("Operation rejected")
		return nil, nil, err
	}
	if current != nil && next.Revision == current.Revision {
		return next, events, nil
	}

	if err := s.commit(ctx, next, transfers, &log); err != nil {
		log.Warn().Err(err).Str(logging.ErrCodeKey, domain.ErrorCode(err)).Msg("Commit failed")
		return nil, nil, err
	}
	committed := log.Debug().Int64(logging.RevisionKey, next.Revision).Int64("pot", next.Pot)
	if seat := next.SeatOf(cmd.Actor); seat >= 0 {
		committed = committed.Int(logging.SeatNumKey, seat)
	}
	committed.Msg("Committed")

	s.publish(ctx, next.ID, events, &log)
	return next, events, nil
}

// Remove drops the record of a settled game. Games with an active round or chips still
// in the pot are kept, so escrowed value always has a record. Unknown handles are a no-op.
func (s *Service) Remove(ctx context.Context, gameID string) error {
	unlock := s.locks.Lock(gameID)
	defer unlock()

	current, err := s.store.Load(ctx, gameID)
	if errors.Is(err, domain.ErrGameNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if current.IsActive || current.Pot != 0 {
		return fmt.Errorf("game %s holds %d chips: %w", gameID, current.Pot, domain.ErrRoundInProgress)
	}
	if err := s.store.Remove(ctx, gameID); err != nil {
		return err
	}
	s.logger.Debug().Str(logging.GameIDKey, gameID).Msg("Removed")
	return nil
}

// Close releases the store and publisher connections, when they hold any.
func (s *Service) Close() error {
	var first error
	for _, c := range []interface{}{s.store, s.publisher} {
		closer, ok := c.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (s *Service) loadFor(ctx context.Context, cmd Command) (*domain.GameState, error) {
	current, err := s.store.Load(ctx, cmd.GameID)
	if cmd.Op == OpInitialize {
		if err == nil {
			return nil, domain.ErrGameExists
		}
		if errors.Is(err, domain.ErrGameNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return current, err
}

// apply runs the domain transition and derives the events it produces.
func (s *Service) apply(g *domain.GameState, cmd Command) (*domain.GameState, []domain.Transfer, []Event, error) {
	switch cmd.Op {
	case OpInitialize:
		seats := cmd.MaxSeats
		if seats == 0 {
			seats = s.maxSeats
		}
		next, err := domain.NewGame(cmd.GameID, seats, cmd.SmallBlind, cmd.BigBlind)
		if err != nil {
			return nil, nil, nil, err
		}
		next.Revision = 1
		return next, nil, []Event{{
			Kind:    EventGameCreated,
			Payload: GameCreatedPayload{SmallBlind: next.SmallBlind, BigBlind: next.BigBlind, MaxSeats: next.MaxSeats},
		}}, nil

	case OpJoin:
		next, transfers, err := g.Join(cmd.Actor, cmd.Amount)
		if err != nil {
			return nil, nil, nil, err
		}
		return next, transfers, []Event{{
			Kind:    EventPlayerJoined,
			Payload: PlayerJoinedPayload{UserID: cmd.Actor, Seat: next.SeatOf(cmd.Actor), Deposit: cmd.Amount, Pot: next.Pot},
		}}, nil

	case OpStartRound:
		next, err := g.StartRound()
		if err != nil {
			return nil, nil, nil, err
		}
		small, big, err := next.BlindSeats(next.DealerSeat)
		if err != nil {
			return nil, nil, nil, err
		}
		return next, nil, []Event{{
			Kind: EventRoundStarted,
			Payload: RoundStartedPayload{
				DealerSeat:     next.DealerSeat,
				SmallBlindSeat: small,
				BigBlindSeat:   big,
				CurrentBet:     next.CurrentBet,
				FirstTurnSeat:  next.CurrentTurn,
			},
		}}, nil

	case OpBet, OpCall:
		var (
			next      *domain.GameState
			transfers []domain.Transfer
			err       error
		)
		kind := EventBetPlaced
		if cmd.Op == OpBet {
			next, transfers, err = g.Bet(cmd.Actor, cmd.Amount)
		} else {
			kind = EventBetCalled
			next, transfers, err = g.Call(cmd.Actor)
		}
		if err != nil {
			return nil, nil, nil, err
		}
		return next, transfers, []Event{{
			Kind: kind,
			Payload: BetPayload{
				UserID:       cmd.Actor,
				Seat:         g.CurrentTurn,
				Amount:       transfers[0].Amount,
				CurrentBet:   next.CurrentBet,
				Pot:          next.Pot,
				NextTurnSeat: next.CurrentTurn,
			},
		}}, nil

	case OpFold:
		next, transfers, err := g.Fold(cmd.Actor)
		if err != nil {
			return nil, nil, nil, err
		}
		folded := PlayerFoldedPayload{
			UserID:         cmd.Actor,
			Seat:           g.CurrentTurn,
			PlayersInRound: next.PlayersInRound,
			NextTurnSeat:   next.CurrentTurn,
		}
		if !next.IsActive {
			folded.NextTurnSeat = -1
		}
		events := []Event{{Kind: EventPlayerFolded, Payload: folded}}
		if !next.IsActive {
			events = append(events, awardEvent(next, transfers, true))
		}
		return next, transfers, events, nil

	case OpRevealWinner:
		next, transfers, err := g.RevealWinner(cmd.Winner)
		if err != nil {
			return nil, nil, nil, err
		}
		return next, transfers, []Event{awardEvent(next, transfers, false)}, nil

	case OpEndGame:
		next, transfers := g.EndGame()
		refunds := make(map[string]int64, len(transfers))
		for _, t := range transfers {
			refunds[t.Player] += t.Amount
		}
		return next, transfers, []Event{{Kind: EventGameEnded, Payload: GameEndedPayload{Refunds: refunds}}}, nil
	}
	return nil, nil, nil, fmt.Errorf("%w: %q", domain.ErrUnknownOperation, cmd.Op)
}

func awardEvent(next *domain.GameState, transfers []domain.Transfer, uncontested bool) Event {
	p := PotAwardedPayload{Seat: next.CurrentTurn, UserID: next.Players[next.CurrentTurn], Uncontested: uncontested}
	if len(transfers) > 0 {
		p.Amount = transfers[0].Amount
	}
	return Event{Kind: EventPotAwarded, Payload: p}
}

// commit persists next and moves its transfers as one unit. Stores that cannot write
// both atomically get the transfers first; a failed save is then compensated.
func (s *Service) commit(ctx context.Context, next *domain.GameState, transfers []domain.Transfer, log *zerolog.Logger) error {
	if ts, ok := s.store.(ports.TransactionalStore); ok {
		return ts.SaveWithTransfers(ctx, next, transfers)
	}

	if len(transfers) > 0 {
		if err := s.escrow.Transfer(ctx, next.ID, transfers); err != nil {
			return err
		}
	}
	if err := s.store.Save(ctx, next); err != nil {
		if len(transfers) > 0 {
			if rerr := s.escrow.Transfer(ctx, next.ID, domain.ReverseAll(transfers)); rerr != nil {
				log.Error().Err(rerr).Msg("Failed to reverse escrow after save failure")
			}
		}
		return err
	}
	return nil
}

func (s *Service) publish(ctx context.Context, gameID string, events []Event, log *zerolog.Logger) {
	if s.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := s.publisher.Publish(ctx, gameID, string(ev.Kind), ev.Payload); err != nil {
			log.Warn().Err(err).Str("event", string(ev.Kind)).Msg("Failed to publish event")
		}
	}
}
