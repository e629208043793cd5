package memory

import (
	"context"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"pokergame/internal/domain"
	"pokergame/internal/ports"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GameStore keeps encoded game records in process memory.
type GameStore struct {
	mu    sync.Mutex
	games map[string][]byte
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string][]byte),
	}
}

func (m *GameStore) Load(ctx context.Context, gameID string) (*domain.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(gameID)
}

func (m *GameStore) load(key string) (*domain.GameState, error) {
	data, ok := m.games[key]
	if !ok {
		return nil, errors.Wrapf(domain.ErrGameNotFound, "game %s", key)
	}
	state := &domain.GameState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, errors.Wrapf(err, "decode game %s", key)
	}
	return state, nil
}

func (m *GameStore) Save(ctx context.Context, state *domain.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stored int64
	if current, err := m.load(state.ID); err == nil {
		stored = current.Revision
	} else if !errors.Is(err, domain.ErrGameNotFound) {
		return err
	}
	if stored != state.Revision-1 {
		return errors.Wrapf(domain.ErrRevisionConflict, "game %s at revision %d, save of %d", state.ID, stored, state.Revision)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, "encode game %s", state.ID)
	}
	m.games[state.ID] = data
	return nil
}

func (m *GameStore) Remove(ctx context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, gameID)
	return nil
}

var _ ports.GameStore = (*GameStore)(nil)
