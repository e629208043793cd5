package nakama

import (
	"context"
	"database/sql"
	"errors"

	"pokergame/internal/app"
	"pokergame/internal/config"
	"pokergame/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// gRPC status codes used by runtime.NewError.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codeAlreadyExists      = 6
	codePermissionDenied   = 7
	codeFailedPrecondition = 9
	codeAborted            = 10
	codeInternal           = 13
	codeUnauthenticated    = 16
)

// rpcRequest is the JSON payload accepted by every game RPC.
type rpcRequest struct {
	app.Command
	// Table picks the blinds of a configured tier when initializing without explicit blinds.
	Table string `json:"table,omitempty"`
}

// rpcResponse carries the committed state and the events it produced.
type rpcResponse struct {
	Game   *domain.GameState `json:"game"`
	Events []rpcEvent        `json:"events,omitempty"`
}

type rpcEvent struct {
	Kind    app.EventKind `json:"kind"`
	Payload interface{}   `json:"payload"`
}

type rpcHandlers struct {
	svc *app.Service
	cfg *config.GameConfig
}

// RegisterRPCs registers one RPC per game operation plus state lookup and quick match.
func RegisterRPCs(initializer runtime.Initializer, svc *app.Service, cfg *config.GameConfig) error {
	h := &rpcHandlers{svc: svc, cfg: cfg}
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcInitialize:   h.operation(app.OpInitialize),
		RpcJoin:         h.operation(app.OpJoin),
		RpcStartRound:   h.operation(app.OpStartRound),
		RpcBet:          h.operation(app.OpBet),
		RpcCall:         h.operation(app.OpCall),
		RpcFold:         h.operation(app.OpFold),
		RpcRevealWinner: h.operation(app.OpRevealWinner),
		RpcEndGame:      h.operation(app.OpEndGame),
		RpcGetState:     h.getState,
		RpcQuickMatch:   h.quickMatch,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return err
		}
	}
	return nil
}

// operation returns the RPC for op. The acting player is always the session user.
func (h *rpcHandlers) operation(op app.Op) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if userID == "" {
			return "", runtime.NewError("authentication required", codeUnauthenticated)
		}

		req := rpcRequest{}
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &req); err != nil {
				return "", runtime.NewError("invalid payload", codeInvalidArgument)
			}
		}
		cmd := req.Command
		cmd.Op = op
		cmd.Actor = userID
		if op == app.OpInitialize && cmd.SmallBlind == 0 && cmd.BigBlind == 0 {
			cmd.SmallBlind, cmd.BigBlind = h.cfg.Blinds(req.Table)
		}

		if requiresSeat(op) {
			if err := h.requireSeated(ctx, cmd.GameID, userID); err != nil {
				return "", err
			}
		}

		state, events, err := h.svc.Execute(ctx, cmd)
		if err != nil {
			if domain.IsRejection(err) {
				logger.Debug("rpc %s [User:%s]: rejected: %v", op, userID, err)
			} else {
				logger.Error("rpc %s [User:%s]: failed: %v", op, userID, err)
			}
			return "", toRuntimeError(err)
		}

		resp := rpcResponse{Game: state}
		for _, ev := range events {
			resp.Events = append(resp.Events, rpcEvent{Kind: ev.Kind, Payload: ev.Payload})
		}
		out, err := json.Marshal(resp)
		if err != nil {
			return "", runtime.NewError("failed to encode response", codeInternal)
		}
		return string(out), nil
	}
}

func (h *rpcHandlers) getState(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	req := rpcRequest{}
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.GameID == "" {
		return "", runtime.NewError("game_id is required", codeInvalidArgument)
	}
	state, err := h.svc.Get(ctx, req.GameID)
	if err != nil {
		return "", toRuntimeError(err)
	}
	out, err := json.Marshal(rpcResponse{Game: state})
	if err != nil {
		return "", runtime.NewError("failed to encode response", codeInternal)
	}
	return string(out), nil
}

// requiresSeat reports whether op is limited to players seated at the table.
// Betting actions are checked by the turn rules instead.
func requiresSeat(op app.Op) bool {
	switch op {
	case app.OpStartRound, app.OpRevealWinner, app.OpEndGame:
		return true
	}
	return false
}

func (h *rpcHandlers) requireSeated(ctx context.Context, gameID, userID string) error {
	state, err := h.svc.Get(ctx, gameID)
	if err != nil {
		return toRuntimeError(err)
	}
	if state.SeatOf(userID) < 0 {
		return runtime.NewError("not_seated", codePermissionDenied)
	}
	return nil
}

// toRuntimeError maps a game error to a Nakama error whose message is the stable error code.
func toRuntimeError(err error) error {
	code := domain.ErrorCode(err)
	switch {
	case errors.Is(err, domain.ErrGameNotFound):
		return runtime.NewError(code, codeNotFound)
	case errors.Is(err, domain.ErrGameExists):
		return runtime.NewError(code, codeAlreadyExists)
	case errors.Is(err, domain.ErrRevisionConflict):
		return runtime.NewError(code, codeAborted)
	case errors.Is(err, domain.ErrInvalidConfig), errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidDeposit), errors.Is(err, domain.ErrUnknownOperation):
		return runtime.NewError(code, codeInvalidArgument)
	case domain.IsRejection(err):
		return runtime.NewError(code, codeFailedPrecondition)
	}
	return runtime.NewError(code, codeInternal)
}
