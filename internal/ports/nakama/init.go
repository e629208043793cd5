package nakama

import (
	"context"
	"database/sql"

	"pokergame/internal/app"
	"pokergame/internal/config"
	"pokergame/internal/logging"
	"pokergame/internal/ports"
	"pokergame/internal/ports/natsbus"
	"pokergame/internal/ports/redisstore"

	"github.com/heroiclabs/nakama-common/runtime"
)

const defaultConfigPath = "data/poker.yaml"

// InitModule wires RPCs, the table match handler and the onboarding hook.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	path := defaultConfigPath
	if p, ok := env["poker_config_path"]; ok && p != "" {
		path = p
	}
	if err := config.LoadGameConfig(path); err != nil {
		logger.Warn("InitModule: Could not load game config %s, using defaults: %v", path, err)
	}
	cfg := config.GetGameConfig()
	cfg.ApplyEnv(env)

	svc := newService(cfg, nk, logger)

	if err := RegisterRPCs(initializer, svc, cfg); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNamePokerTable, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(svc, cfg), nil
	}); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(NewAfterAuthenticateDevice(cfg)); err != nil {
		return err
	}

	if err := initializer.RegisterShutdown(func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) {
		if err := svc.Close(); err != nil {
			logger.Warn("Shutdown: Failed to close game service: %v", err)
		}
	}); err != nil {
		return err
	}

	logger.Info("Poker Go module loaded.")
	return nil
}

// newService keeps game records in Nakama storage unless a Redis store is configured.
// Chips always move through Nakama wallets.
func newService(cfg *config.GameConfig, nk runtime.NakamaModule, logger runtime.Logger) *app.Service {
	ledger := NewNakamaLedger(nk, cfg.Currency)

	var store ports.GameStore = ledger
	if cfg.Redis.Addr != "" {
		store = redisstore.NewGameStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		logger.Info("InitModule: Game records stored in Redis at %s.", cfg.Redis.Addr)
	}

	opts := []app.Option{
		app.WithLogger(logging.GetZeroLogger("pokergame", nil)),
		app.WithMaxSeats(cfg.MaxSeats),
	}
	if cfg.NATS.URL != "" {
		publisher, err := natsbus.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			logger.Warn("InitModule: Event bus disabled: %v", err)
		} else {
			opts = append(opts, app.WithPublisher(publisher))
		}
	}

	return app.NewService(store, ledger, opts...)
}
