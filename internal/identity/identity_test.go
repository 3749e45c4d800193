package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizblitz/internal/identity"
	"quizblitz/internal/infra/memory"
)

func TestBootstrapGeneratesOnceAndReuses(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdentityStore()

	first, err := identity.Bootstrap(ctx, repo)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err, "expected a uuid, got %q", first)

	second, err := identity.Bootstrap(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, first, second, "client id must not rotate")
}

type failingRepo struct{}

func (failingRepo) Load(context.Context) (string, error) { return "", errors.New("disk gone") }
func (failingRepo) Save(context.Context, string) error   { return nil }

func TestBootstrapPropagatesLoadErrors(t *testing.T) {
	_, err := identity.Bootstrap(context.Background(), failingRepo{})
	assert.ErrorContains(t, err, "disk gone")
}
