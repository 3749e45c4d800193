package memory

import (
	"sync"

	"quizblitz/internal/preview"
)

// GameStore is an in-memory implementation of preview.GameRepository.
// Finished games stay addressable by id for late state fetches.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]*preview.Game
}

func NewGameStore() *GameStore {
	return &GameStore{games: make(map[string]*preview.Game)}
}

func (s *GameStore) Put(game *preview.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID()] = game
}

func (s *GameStore) Get(gameID string) (*preview.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[gameID]
	return game, ok
}
