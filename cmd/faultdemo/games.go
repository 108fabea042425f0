package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/faultkit/errors"
	"github.com/kbukum/faultkit/resilience"
)

// Game modes accepted on creation.
var gameModes = []string{"solo", "duel", "team"}

type game struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Mode   string    `json:"mode"`
	Active bool      `json:"active"`
}

// gameStore is an in-memory game repository. Every access runs inside a
// bulkhead and under the storage retry policy, as a database call would.
type gameStore struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]game
	bulkhead *resilience.Bulkhead
	policy   resilience.Policy
}

func newGameStore(bulkhead *resilience.Bulkhead, policy resilience.Policy) *gameStore {
	return &gameStore{
		byID:     make(map[uuid.UUID]game),
		bulkhead: bulkhead,
		policy:   policy,
	}
}

func (s *gameStore) call(ctx context.Context, fn func() (game, error)) (game, error) {
	return resilience.Retry(ctx, s.policy, func() (game, error) {
		return resilience.Bulkheaded(ctx, s.bulkhead, fn)
	})
}

// Get returns the game with id or ENTITY_NOT_FOUND.
func (s *gameStore) Get(ctx context.Context, id uuid.UUID) (game, error) {
	return s.call(ctx, func() (game, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		g, ok := s.byID[id]
		if !ok {
			return game{}, apperrors.Newf(apperrors.KindEntityNotFound, "Game %s not found", id)
		}
		return g, nil
	})
}

// Create stores a new game. Names are unique; a clash is reported the way
// a unique constraint violation would be.
func (s *gameStore) Create(ctx context.Context, name, mode string) (game, error) {
	return s.call(ctx, func() (game, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, g := range s.byID {
			if g.Name == name {
				return game{}, fmt.Errorf("insert game %q: %w", name, apperrors.ErrDataIntegrity)
			}
		}
		g := game{ID: uuid.New(), Name: name, Mode: mode}
		s.byID[g.ID] = g
		return g, nil
	})
}

// Start marks the game active. Only one game may be active at a time.
func (s *gameStore) Start(ctx context.Context, id uuid.UUID) (game, error) {
	return s.call(ctx, func() (game, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		g, ok := s.byID[id]
		if !ok {
			return game{}, apperrors.Newf(apperrors.KindEntityNotFound, "Game %s not found", id)
		}
		for _, other := range s.byID {
			if other.Active && other.ID != id {
				return game{}, apperrors.WithMessage(apperrors.KindInvalidOperation, "Another game is already active")
			}
		}
		g.Active = true
		s.byID[id] = g
		return g, nil
	})
}

// Active returns the active game or NO_ACTIVE_GAME.
func (s *gameStore) Active(ctx context.Context) (game, error) {
	return s.call(ctx, func() (game, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for _, g := range s.byID {
			if g.Active {
				return g, nil
			}
		}
		return game{}, apperrors.New(apperrors.KindNoActiveGame)
	})
}

// All returns every stored game.
func (s *gameStore) All(ctx context.Context) ([]game, error) {
	var out []game
	_, err := s.call(ctx, func() (game, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		out = make([]game, 0, len(s.byID))
		for _, g := range s.byID {
			out = append(out, g)
		}
		return game{}, nil
	})
	return out, err
}
