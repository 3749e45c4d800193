package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityStorePersistsPerProfile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "identity.yaml")

	alice := NewIdentityStore(path, "alice")
	id, err := alice.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, id, "no id on first run")

	require.NoError(t, alice.Save(ctx, "id-alice"))
	require.NoError(t, NewIdentityStore(path, "bob").Save(ctx, "id-bob"))

	id, err = NewIdentityStore(path, "alice").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id-alice", id)
	id, err = NewIdentityStore(path, "bob").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id-bob", id)
}

func TestIdentityStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [unclosed"), 0o600))

	_, err := NewIdentityStore(path, "default").Load(context.Background())
	assert.Error(t, err)
}
