package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Repository persists the long-lived client id between runs.
// Load returns "" with a nil error when nothing is stored yet.
type Repository interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, clientID string) error
}

// Bootstrap returns the persisted client id, generating and saving a new one
// on first use. The id acts as host id and player id and is never rotated.
func Bootstrap(ctx context.Context, repo Repository) (string, error) {
	id, err := repo.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load client id: %w", err)
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := repo.Save(ctx, id); err != nil {
		return "", fmt.Errorf("save client id: %w", err)
	}
	return id, nil
}
