package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domrepo "PricePulse/internal/domain/repository"
)

func TestFSArtifactStore_SaveLoadRoundtrip(t *testing.T) {
	store, err := NewFSArtifactStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	blob := []byte(`{"kind":"forest","confidence":0.92}`)

	require.NoError(t, store.Save(ctx, "B0TEST01", "model", blob))

	loaded, savedAt, err := store.Load(ctx, "B0TEST01", "model")
	require.NoError(t, err)
	assert.Equal(t, blob, loaded)
	assert.WithinDuration(t, time.Now(), savedAt, 5*time.Second)
}

func TestFSArtifactStore_SaveOverwrites(t *testing.T) {
	store, err := NewFSArtifactStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "B0TEST01", "model", []byte("v1")))
	require.NoError(t, store.Save(ctx, "B0TEST01", "model", []byte("v2")))

	loaded, _, err := store.Load(ctx, "B0TEST01", "model")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), loaded)
}

func TestFSArtifactStore_LoadMissing(t *testing.T) {
	store, err := NewFSArtifactStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Load(context.Background(), "B0TEST01", "model")
	assert.True(t, errors.Is(err, domrepo.ErrArtifactNotFound))
}

func TestFSArtifactStore_DeleteRemovesAllKinds(t *testing.T) {
	store, err := NewFSArtifactStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "B0TEST01", "model", []byte("m")))
	require.NoError(t, store.Save(ctx, "B0TEST01", "scaler", []byte("s")))
	require.NoError(t, store.Save(ctx, "B0OTHER", "model", []byte("keep")))

	require.NoError(t, store.Delete(ctx, "B0TEST01"))

	_, _, err = store.Load(ctx, "B0TEST01", "model")
	assert.True(t, errors.Is(err, domrepo.ErrArtifactNotFound))
	_, _, err = store.Load(ctx, "B0TEST01", "scaler")
	assert.True(t, errors.Is(err, domrepo.ErrArtifactNotFound))

	kept, _, err := store.Load(ctx, "B0OTHER", "model")
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), kept)
}

func TestFSArtifactStore_SanitizesProductID(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSArtifactStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "../escape/attempt", "model", []byte("m")))

	loaded, _, err := store.Load(ctx, "../escape/attempt", "model")
	require.NoError(t, err)
	assert.Equal(t, []byte("m"), loaded)

	// The blob must land inside the store directory, not beside it.
	matches, err := filepath.Glob(filepath.Join(dir, "*_model.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
