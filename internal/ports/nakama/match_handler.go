package nakama

import (
	"context"
	"database/sql"
	"time"

	"pokergame/internal/app"
	"pokergame/internal/config"
	"pokergame/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	MatchLabelKeyOpenSeats = "open"  // Key for the open seats in the match label
	MatchLabelKeyTable     = "table" // Key for the blind tier in the match label
)

// MatchState holds the runtime state of one poker table. The game record itself lives
// behind the app service under the match id; Game is the last revision this match has
// seen and is refreshed before any decision that reads seats.
type MatchState struct {
	MatchID   string                      `json:"match_id"`
	Table     string                      `json:"table"`    // blind tier advertised in the label
	OwnerID   string                      `json:"owner_id"` // presence allowed to start rounds, reveal winners and end the game
	Tick      int64                       `json:"tick"`
	Game      *domain.GameState           `json:"game"`
	Presences map[string]runtime.Presence `json:"-"` // Map UserId -> Presence for targeted messaging
}

// matchHandler hosts a single game handle per match. Nakama runs each match loop on
// one goroutine, so the table has exactly one writer.
type matchHandler struct {
	svc *app.Service
	cfg *config.GameConfig
}

func newMatchHandler(svc *app.Service, cfg *config.GameConfig) *matchHandler {
	if cfg == nil {
		cfg = config.GetGameConfig()
	}
	return &matchHandler{svc: svc, cfg: cfg}
}

// clientOps maps client op codes to game operations.
var clientOps = map[int64]app.Op{
	OpJoin:         app.OpJoin,
	OpStartRound:   app.OpStartRound,
	OpBet:          app.OpBet,
	OpCall:         app.OpCall,
	OpFold:         app.OpFold,
	OpRevealWinner: app.OpRevealWinner,
	OpEndGame:      app.OpEndGame,
}

var eventOps = map[app.EventKind]int64{
	app.EventGameCreated:  OpGameCreated,
	app.EventPlayerJoined: OpPlayerJoined,
	app.EventRoundStarted: OpRoundStarted,
	app.EventBetPlaced:    OpBetPlaced,
	app.EventBetCalled:    OpBetCalled,
	app.EventPlayerFolded: OpPlayerFolded,
	app.EventPotAwarded:   OpPotAwarded,
	app.EventGameEnded:    OpGameEnded,
}

// ownerOps may only be sent by the table owner.
func ownerOps(op app.Op) bool {
	return op == app.OpStartRound || op == app.OpRevealWinner || op == app.OpEndGame
}

// MatchInit creates the game record for the new table.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	requested, _ := params["table"].(string)
	table := mh.cfg.ResolveTable(requested)
	small, big := mh.cfg.Blinds(table)

	game, _, err := mh.svc.Execute(ctx, app.Command{
		Op:         app.OpInitialize,
		GameID:     matchID,
		SmallBlind: small,
		BigBlind:   big,
		MaxSeats:   mh.cfg.MaxSeats,
	})
	if err != nil {
		logger.Error("MatchInit: Failed to initialize game %s: %v", matchID, err)
		return nil, 0, ""
	}

	state := &MatchState{
		MatchID:   matchID,
		Table:     table,
		Tick:      time.Now().Unix(),
		Game:      game,
		Presences: make(map[string]runtime.Presence),
	}

	label, err := encodeLabel(game, table)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	logger.Debug("MatchInit: Table %s (%s) ready with blinds %d/%d.", matchID, table, small, big)

	tickRate := 1
	return state, tickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	mh.refresh(ctx, matchState, dispatcher, logger)

	// Seated players may always reconnect; others need a free seat.
	if matchState.Game.SeatOf(presence.GetUserId()) >= 0 {
		return state, true, ""
	}
	if matchState.Game.OpenSeats() <= 0 {
		return state, false, "Match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	mh.refresh(ctx, matchState, dispatcher, logger)

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		if matchState.OwnerID == "" {
			matchState.OwnerID = p.GetUserId()
			logger.Debug("MatchJoin: Owner set to %s.", matchState.OwnerID)
		}
	}

	mh.sendSnapshot(matchState, dispatcher, logger, presences)
	return matchState
}

// MatchLeave keeps seats (chips stay escrowed until the game ends) and hands ownership
// to another connected player. The last presence leaving ends the game.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	mh.refresh(ctx, matchState, dispatcher, logger)

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
	}

	if _, connected := matchState.Presences[matchState.OwnerID]; !connected {
		matchState.OwnerID = pickOwner(matchState)
		if matchState.OwnerID != "" {
			logger.Debug("MatchLeave: Owner set to %s.", matchState.OwnerID)
		}
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating empty table %s.", matchState.MatchID)
		mh.endGame(ctx, matchState, logger)
		return nil
	}
	return matchState
}

// pickOwner prefers a connected seated player, in seat order.
func pickOwner(state *MatchState) string {
	for _, userID := range state.Game.Players {
		if _, ok := state.Presences[userID]; ok && userID != "" {
			return userID
		}
	}
	for userID := range state.Presences {
		return userID
	}
	return ""
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick
	mh.refresh(ctx, matchState, dispatcher, logger)

	for _, msg := range messages {
		op, known := clientOps[msg.GetOpCode()]
		if !known {
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
			continue
		}
		mh.handleCommand(ctx, matchState, dispatcher, logger, op, msg)
	}

	return matchState
}

func (mh *matchHandler) handleCommand(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, op app.Op, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	cmd := app.Command{}
	if data := msg.GetData(); len(data) > 0 {
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Warn("handleCommand: Invalid %s payload from %s: %v", op, senderID, err)
			mh.sendError(state, dispatcher, logger, senderID, "invalid_payload")
			return
		}
	}
	cmd.Op = op
	cmd.GameID = state.MatchID
	cmd.Actor = senderID

	if ownerOps(op) && senderID != state.OwnerID {
		logger.Warn("handleCommand: User %s tried %s but is not owner (%s)", senderID, op, state.OwnerID)
		mh.sendError(state, dispatcher, logger, senderID, "not_owner")
		return
	}

	next, events, err := mh.svc.Execute(ctx, cmd)
	if err != nil {
		logger.Warn("handleCommand: User %s failed to %s: %v", senderID, op, err)
		mh.sendError(state, dispatcher, logger, senderID, domain.ErrorCode(err))
		return
	}

	state.Game = next
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	mh.updateLabel(state, dispatcher, logger)
}

// refresh picks up revisions committed outside this match, such as RPC calls against
// the match id, and re-advertises the label when seats changed.
func (mh *matchHandler) refresh(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	latest, err := mh.svc.Get(ctx, state.MatchID)
	if err != nil {
		logger.Warn("refresh: Failed to load table %s: %v", state.MatchID, err)
		return
	}
	if state.Game != nil && latest.Revision <= state.Game.Revision {
		return
	}
	state.Game = latest
	mh.updateLabel(state, dispatcher, logger)
}

// endGame refunds whatever is still escrowed at the table and drops its record.
func (mh *matchHandler) endGame(ctx context.Context, state *MatchState, logger runtime.Logger) {
	next, _, err := mh.svc.Execute(ctx, app.Command{Op: app.OpEndGame, GameID: state.MatchID})
	if err != nil {
		logger.Error("endGame: Failed to settle table %s: %v", state.MatchID, err)
		return
	}
	state.Game = next
	if err := mh.svc.Remove(ctx, state.MatchID); err != nil {
		logger.Error("endGame: Failed to remove table %s: %v", state.MatchID, err)
	}
}

// broadcastEvent encodes an app event as a protobuf Struct and dispatches it.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOps[ev.Kind]
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	bytes, err := encodePayload(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}
		// Targeted events never fall back to a broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true)
}

// sendSnapshot sends the full table state to the given presences.
func (mh *matchHandler) sendSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, to []runtime.Presence) {
	bytes, err := encodePayload(map[string]interface{}{
		"game":     state.Game,
		"owner_id": state.OwnerID,
		"tick":     state.Tick,
	})
	if err != nil {
		logger.Error("sendSnapshot: Failed to marshal snapshot: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpStateSnapshot, bytes, to, nil, true)
}

// sendError sends an error event to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code string) {
	bytes, err := encodePayload(map[string]interface{}{"code": code})
	if err != nil {
		logger.Error("Failed to marshal error event: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := encodeLabel(state.Game, state.Table)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

// toStruct converts any JSON-encodable value to a protobuf Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

func encodePayload(v interface{}) ([]byte, error) {
	s, err := toStruct(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func encodeLabel(g *domain.GameState, table string) (string, error) {
	s, err := toStruct(domain.ComputeLabel(g, table))
	if err != nil {
		return "", err
	}
	b, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MatchTerminate settles the table before the match goes away.
func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminating in %d seconds", graceSeconds)
	if matchState, ok := state.(*MatchState); ok {
		mh.endGame(ctx, matchState, logger)
	}
	return state
}

// MatchSignal answers with the current game record.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}
	out, err := json.Marshal(matchState.Game)
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal game: %v", err)
		return state, ""
	}
	return state, string(out)
}
