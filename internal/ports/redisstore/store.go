package redisstore

import (
	"context"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"pokergame/internal/domain"
	"pokergame/internal/ports"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const keyPrefix = "poker:game:"

// GameStore persists game records in Redis and guards writes with WATCH so a stale
// revision never overwrites a newer one.
type GameStore struct {
	rdclient *redis.Client
}

func NewGameStore(redisURL string, redisPW string, redisDB int) *GameStore {
	rdclient := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: redisPW,
		DB:       redisDB,
	})
	return &GameStore{
		rdclient: rdclient,
	}
}

// NewGameStoreWithClient wraps an existing client.
func NewGameStoreWithClient(client *redis.Client) *GameStore {
	return &GameStore{rdclient: client}
}

func key(gameID string) string {
	return keyPrefix + gameID
}

func (r *GameStore) Load(ctx context.Context, gameID string) (*domain.GameState, error) {
	return load(ctx, r.rdclient, gameID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, cmd getter, gameID string) (*domain.GameState, error) {
	data, err := cmd.Get(ctx, key(gameID)).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(domain.ErrGameNotFound, "game %s", gameID)
	} else if err != nil {
		return nil, errors.Wrapf(err, "get game %s", gameID)
	}
	state := &domain.GameState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, errors.Wrapf(err, "decode game %s", gameID)
	}
	return state, nil
}

func (r *GameStore) Save(ctx context.Context, state *domain.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, "encode game %s", state.ID)
	}

	k := key(state.ID)
	err = r.rdclient.Watch(ctx, func(tx *redis.Tx) error {
		var stored int64
		current, err := load(ctx, tx, state.ID)
		if err == nil {
			stored = current.Revision
		} else if !errors.Is(err, domain.ErrGameNotFound) {
			return err
		}
		if stored != state.Revision-1 {
			return errors.Wrapf(domain.ErrRevisionConflict, "game %s at revision %d, save of %d", state.ID, stored, state.Revision)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, 0)
			return nil
		})
		return err
	}, k)

	if err == redis.TxFailedErr {
		return errors.Wrapf(domain.ErrRevisionConflict, "game %s changed during save", state.ID)
	}
	return err
}

func (r *GameStore) Remove(ctx context.Context, gameID string) error {
	return errors.Wrapf(r.rdclient.Del(ctx, key(gameID)).Err(), "delete game %s", gameID)
}

// Close releases the underlying connection pool.
func (r *GameStore) Close() error {
	return r.rdclient.Close()
}

var _ ports.GameStore = (*GameStore)(nil)
