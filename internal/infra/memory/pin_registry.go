package memory

import (
	"context"
	"sync"
)

// PinRegistry maps join pins to game ids for a single preview process.
type PinRegistry struct {
	mu   sync.Mutex
	pins map[string]string
}

func NewPinRegistry() *PinRegistry {
	return &PinRegistry{pins: make(map[string]string)}
}

// Reserve claims pin for gameID and reports false when it is already taken.
func (r *PinRegistry) Reserve(_ context.Context, pin, gameID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.pins[pin]; taken {
		return false, nil
	}
	r.pins[pin] = gameID
	return true, nil
}

func (r *PinRegistry) Lookup(_ context.Context, pin string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gameID, ok := r.pins[pin]
	return gameID, ok, nil
}

func (r *PinRegistry) Release(_ context.Context, pin string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pins, pin)
	return nil
}
